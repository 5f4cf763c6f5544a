package model

import "time"

// AccountType is the closed set of account kinds on the platform.
type AccountType string

const (
	AccountClient          AccountType = "client"
	AccountServiceProvider AccountType = "service_provider"
	AccountSuperAdmin      AccountType = "super_admin"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountClient, AccountServiceProvider, AccountSuperAdmin:
		return true
	}
	return false
}

type User struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	AccountType  AccountType `json:"account_type"`
	PushToken    string      `json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
}
