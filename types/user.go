package types

import (
	"strings"
	"time"
)

// Roles a user account can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account in the blog.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display name.
	Name string `json:"name" db:"name"`

	// Email is the user's login address. It is stored trimmed and lower-cased
	// and is unique across accounts.
	Email string `json:"email" db:"email"`

	// Role indicates the user's authorization level ("user" or "admin").
	// Admins may modify content they do not own.
	Role string `json:"role" db:"role"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// BlogPhoto is the public URL of the user's uploaded blog photo, if any.
	BlogPhoto string `json:"blog_photo" db:"blog_photo_url"`

	// BlogPhotoKey is the image host key backing BlogPhoto.
	BlogPhotoKey string `json:"-" db:"blog_photo_key"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return strings.EqualFold(u.Role, RoleAdmin)
}

// CanModify reports whether the user may change content owned by ownerID.
func (u User) CanModify(ownerID int) bool {
	return u.ID == ownerID || u.IsAdmin()
}

// Profile is the public subset of a user returned by the auth endpoints.
type Profile struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Profile returns the public subset of the user.
func (u User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email}
}
