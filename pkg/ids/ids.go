// Package ids generates identifiers for backend documents and accounts.
package ids

import (
	"strings"

	"github.com/google/uuid"
)

// Unique returns a fresh 32 character hex identifier, within the 36 character
// limit backends put on custom ids.
func Unique() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
