// Package model defines the data structures used throughout the application.
package model

// User is a row of the users table.
//
// PasswordHash, AuthToken and ImageFilename never leave the server; they
// carry `json:"-"` so a User can't leak them by accident.
type User struct {
	ID            int64  `json:"userId"    db:"id"`
	Email         string `json:"email"     db:"email"`
	FirstName     string `json:"firstName" db:"first_name"`
	LastName      string `json:"lastName"  db:"last_name"`
	PasswordHash  string `json:"-"         db:"password"`
	AuthToken     string `json:"-"         db:"auth_token"`     // empty when logged out
	ImageFilename string `json:"-"         db:"image_filename"` // empty when no image
}

// UserPatch lists the user columns a PATCH may change. Nil means "leave
// as is". Password is already hashed by the time it gets here.
type UserPatch struct {
	Email        *string
	FirstName    *string
	LastName     *string
	PasswordHash *string
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Email == nil && p.FirstName == nil && p.LastName == nil && p.PasswordHash == nil
}

// UserView is the public shape of GET /users/{id}. Email is only set when
// the caller is viewing themselves.
type UserView struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
}
