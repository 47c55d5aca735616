package model

import "time"

// User represents an account record as stored in the `users` table. Each
// field corresponds to a column in the database. The Password field holds
// the bcrypt hash once a record has been through the repository; the
// plaintext only exists on its way in. The json tags drive GraphQL field
// resolution, which is why the password carries "-": it must never be
// selectable through the schema.
//
// Fields:
//  ID        – primary key identifier of the user, assigned on insert.
//  Username  – display name, 3 to 50 characters.
//  Email     – unique email address (UNIQUE KEY in the schema).
//  Confirmed – whether the email address has been verified.
//  CreatedAt – timestamp of creation, maintained by the store.
//  UpdatedAt – timestamp of last update, maintained by the store.
type User struct {
	ID        uint64    `json:"id"`        // users.id
	Username  string    `json:"username"`  // users.username
	Email     string    `json:"email"`     // users.email
	Password  string    `json:"-"`         // users.password (bcrypt hash)
	Confirmed bool      `json:"confirmed"` // users.confirmed
	CreatedAt time.Time `json:"createdAt"` // users.created_at
	UpdatedAt time.Time `json:"updatedAt"` // users.updated_at
}
