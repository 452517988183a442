package models

import "time"

// Account is a registered marketplace participant. Name doubles as the
// party address on the ledger.
type Account struct {
	ID           string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}
