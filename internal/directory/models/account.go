package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Account is the login identity behind a Client. Its numeric ID is the
// external account reference used by profile lookups and tokens.
type Account struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"size:150;uniqueIndex;not null" json:"username" validate:"required,max=150"`
	FirstName    string    `gorm:"size:100" json:"first_name" validate:"required,max=100"`
	LastName     string    `gorm:"size:100" json:"last_name" validate:"required,max=100"`
	Email        string    `gorm:"size:100" json:"email" validate:"required,email,max=100"`
	PasswordHash []byte    `json:"-" validate:"-"`
	IsSuperuser  bool      `gorm:"not null;default:false" json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName pins the table name.
func (Account) TableName() string { return "accounts" }

// Client is a registered end user. It owns companies, equipment and reviews,
// and exposes the account's display attributes through accessors.
type Client struct {
	Base
	AccountID uint     `gorm:"not null;uniqueIndex" json:"account_id"`
	Account   *Account `gorm:"constraint:OnDelete:CASCADE;" json:"account,omitempty" validate:"-"`
}

// TableName pins the table name.
func (Client) TableName() string { return "clients" }

// Username returns the linked account's username.
func (c *Client) Username() string {
	if c == nil || c.Account == nil {
		return ""
	}
	return c.Account.Username
}

// FirstName returns the linked account's first name.
func (c *Client) FirstName() string {
	if c == nil || c.Account == nil {
		return ""
	}
	return c.Account.FirstName
}

// LastName returns the linked account's last name.
func (c *Client) LastName() string {
	if c == nil || c.Account == nil {
		return ""
	}
	return c.Account.LastName
}

// Email returns the linked account's email address.
func (c *Client) Email() string {
	if c == nil || c.Account == nil {
		return ""
	}
	return c.Account.Email
}

func (c *Client) String() string {
	return fmt.Sprintf("%s %s %s", c.Username(), c.FirstName(), c.LastName())
}

// Owns reports whether owner refers to this client.
func (c *Client) Owns(owner *uuid.UUID) bool {
	return c != nil && owner != nil && *owner == c.ID
}
