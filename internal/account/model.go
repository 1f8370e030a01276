package account

import "time"

// Account is the identity record for a registered holder. PasswordHash holds
// the bcrypt digest of the current password and must never leave this core;
// responses are built from explicit summaries, never by serializing Account.
type Account struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}
