package models

import "time"

// User is the persisted identity record. ID is the store-assigned surrogate
// key and stays zero until the first save; UUID is assigned at construction
// time and never changes afterwards.
type User struct {
	ID           int64
	UUID         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Persisted reports whether the record has been written to the store.
func (u *User) Persisted() bool { return u.ID != 0 }
