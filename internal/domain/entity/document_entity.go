package entity

import "time"

// Document is a schemaless record of a backend collection.
type Document struct {
	ID           string
	DatabaseID   string
	CollectionID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Data         map[string]any
}

// String returns the attribute as a string, or "" when missing.
func (d Document) String(attr string) string {
	if d.Data == nil {
		return ""
	}
	return stringify(d.Data[attr])
}

// DocumentList is the result of a collection listing. Total counts all matches,
// which may exceed len(Documents) when a limit applies.
type DocumentList struct {
	Total     int
	Documents []Document
}
