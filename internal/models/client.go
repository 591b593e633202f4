package models

import (
	"time"

	"gorm.io/gorm"
)

// Client is a customer of the agency: the business whose sites and listings
// are optimised.
type Client struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// UserID is the owning account (multi-tenant isolation).
	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	Name     string `gorm:"size:255;not null" json:"name"`
	Email    string `gorm:"size:255" json:"email,omitempty"`
	Phone    string `gorm:"size:50" json:"phone,omitempty"`
	Company  string `gorm:"size:255" json:"company,omitempty"`
	Website  string `gorm:"size:500" json:"website,omitempty"`
	Industry string `gorm:"size:100" json:"industry,omitempty"`

	Address    string `gorm:"size:500" json:"address,omitempty"`
	City       string `gorm:"size:100" json:"city,omitempty"`
	PostalCode string `gorm:"size:20" json:"postal_code,omitempty"`
	Country    string `gorm:"size:100" json:"country,omitempty"`

	VATNumber string `gorm:"size:20" json:"vat_number,omitempty"`
	Notes     string `gorm:"type:text" json:"notes,omitempty"`
}

// GetUserID implements the Ownable interface for authorization.
func (c *Client) GetUserID() uint {
	return c.UserID
}

// DisplayName prefers the company name over the contact name.
func (c *Client) DisplayName() string {
	if c.Company != "" {
		return c.Company
	}
	return c.Name
}

// FullAddress returns the postal address on up to three lines.
func (c *Client) FullAddress() string {
	addr := c.Address
	if c.PostalCode != "" || c.City != "" {
		if addr != "" {
			addr += "\n"
		}
		addr += c.PostalCode
		if c.PostalCode != "" && c.City != "" {
			addr += " "
		}
		addr += c.City
	}
	if c.Country != "" {
		if addr != "" {
			addr += "\n"
		}
		addr += c.Country
	}
	return addr
}
