package model

import "time"

// User represents an account as stored in the `users` table (or the
// `users` collection when the document store is selected).
//
// Fields:
//  ID           – UUID assigned at registration, never changed.
//  Name         – display name.
//  Email        – unique, trimmed and lower-cased.
//  PasswordHash – bcrypt digest; the plaintext is never stored.
//  CreatedAt    – set once at registration.
type User struct {
    ID           string    `bson:"_id"`
    Name         string    `bson:"name"`
    Email        string    `bson:"email"`
    PasswordHash string    `bson:"password_hash"`
    CreatedAt    time.Time `bson:"created_at"`
}

// PublicUser is the subset of User that may leave the process.
type PublicUser struct {
    ID    string `json:"id"`
    Name  string `json:"name"`
    Email string `json:"email"`
}

// Public strips the password hash.
func (u User) Public() PublicUser {
    return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Identity is what a verified bearer token proves about its holder.
type Identity struct {
    UserID string `json:"id"`
    Email  string `json:"email"`
}
