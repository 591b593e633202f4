package models

import (
	"time"

	"gorm.io/gorm"
)

// ContractStatus is the lifecycle state of a service contract.
type ContractStatus string

const (
	ContractStatusDraft     ContractStatus = "draft"
	ContractStatusSent      ContractStatus = "sent"
	ContractStatusSigned    ContractStatus = "signed"
	ContractStatusExpired   ContractStatus = "expired"
	ContractStatusCancelled ContractStatus = "cancelled"
)

var contractTransitions = transitions[ContractStatus]{
	ContractStatusDraft:  {ContractStatusSent, ContractStatusCancelled},
	ContractStatusSent:   {ContractStatusSigned, ContractStatusCancelled},
	ContractStatusSigned: {ContractStatusExpired},
}

// Valid reports whether s is a known contract status.
func (s ContractStatus) Valid() bool { return contractTransitions.valid(s) }

// Contract is a recurring SEO service agreement with a client.
type Contract struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	Title string `gorm:"size:255;not null" json:"title"`
	// Body is HTML and may contain template placeholders.
	Body       string     `gorm:"type:text" json:"body,omitempty"`
	StartDate  time.Time  `gorm:"not null" json:"start_date"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	MonthlyFee float64    `gorm:"type:decimal(10,2);not null;default:0" json:"monthly_fee"`

	Status   ContractStatus `gorm:"size:20;not null;default:'draft'" json:"status"`
	SentAt   *time.Time     `json:"sent_at,omitempty"`
	SignedAt *time.Time     `json:"signed_at,omitempty"`
}

// GetUserID implements the Ownable interface.
func (c *Contract) GetUserID() uint {
	return c.UserID
}

// TransitionTo moves the contract to status.
func (c *Contract) TransitionTo(status ContractStatus, now time.Time) error {
	if err := contractTransitions.check(c.Status, status); err != nil {
		return err
	}
	c.Status = status
	switch status {
	case ContractStatusSent:
		c.SentAt = &now
	case ContractStatusSigned:
		c.SignedAt = &now
	}
	return nil
}

// NextStatuses lists the statuses reachable from the current one.
func (c *Contract) NextStatuses() []ContractStatus {
	return contractTransitions.next(c.Status)
}
