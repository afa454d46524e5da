package entity

import (
	"fmt"
	"time"
)

// User is the profile record kept in the users collection.
// AccountID is issued by the identity provider; Email is a secondary unique key.
type User struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar"`
	AccountID string    `json:"accountId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Document attribute names of a user record.
const (
	AttrFullName  = "fullName"
	AttrEmail     = "email"
	AttrAvatar    = "avatar"
	AttrAccountID = "accountId"
)

// Fields returns the attributes stored in the users collection.
func (u *User) Fields() map[string]any {
	return map[string]any{
		AttrFullName:  u.FullName,
		AttrEmail:     u.Email,
		AttrAvatar:    u.AvatarURL,
		AttrAccountID: u.AccountID,
	}
}

// UserFromDocument maps a users collection document to a User.
func UserFromDocument(d Document) *User {
	return &User{
		ID:        d.ID,
		FullName:  d.String(AttrFullName),
		Email:     d.String(AttrEmail),
		AvatarURL: d.String(AttrAvatar),
		AccountID: d.String(AttrAccountID),
		CreatedAt: d.CreatedAt,
	}
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}
