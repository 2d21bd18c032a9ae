package model

import "time"

// User is the caller-supplied identity handed to payment operations.
// Metadata may carry previously resolved vendor customer ids, keyed
// "<provider>_customer_id".
type User struct {
	ID        string            `db:"id" json:"id"`
	Email     string            `db:"email" json:"email"`
	Name      string            `db:"name" json:"name"`
	Metadata  map[string]string `db:"-" json:"metadata,omitempty"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// CustomerIDKey is the metadata key under which a vendor customer id is
// cached on the user session.
func CustomerIDKey(provider string) string {
	return provider + "_customer_id"
}
