package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// PasswordHash holds the bcrypt hash; the plaintext password never reaches this struct.
//
// AddressIDs are weak references to externally owned addresses.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	IsAdmin      bool
	AddressIDs   []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserPatch carries the optional fields of a profile update. Nil means unchanged.
type UserPatch struct {
	Name         *string
	Email        *string
	Phone        *string
	PasswordHash *string
	IsAdmin      *bool
	AddressIDs   *[]string
}

// Apply copies the set fields of p onto u.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.IsAdmin != nil {
		u.IsAdmin = *p.IsAdmin
	}
	if p.AddressIDs != nil {
		u.AddressIDs = append([]string(nil), (*p.AddressIDs)...)
	}
}
