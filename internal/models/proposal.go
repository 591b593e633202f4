package models

import (
	"time"

	"gorm.io/gorm"
)

// ProposalStatus is the lifecycle state of a commercial proposal.
type ProposalStatus string

const (
	ProposalStatusDraft    ProposalStatus = "draft"
	ProposalStatusSent     ProposalStatus = "sent"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusRejected ProposalStatus = "rejected"
)

var proposalTransitions = transitions[ProposalStatus]{
	ProposalStatusDraft: {ProposalStatusSent},
	ProposalStatusSent:  {ProposalStatusAccepted, ProposalStatusRejected},
}

// Valid reports whether s is a known proposal status.
func (s ProposalStatus) Valid() bool { return proposalTransitions.valid(s) }

// Proposal is a quote for SEO work sent to a prospect or client.
type Proposal struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	Title      string     `gorm:"size:255;not null" json:"title"`
	Body       string     `gorm:"type:text" json:"body,omitempty"`
	Amount     float64    `gorm:"type:decimal(10,2);not null;default:0" json:"amount"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`

	Status    ProposalStatus `gorm:"size:20;not null;default:'draft'" json:"status"`
	SentAt    *time.Time     `json:"sent_at,omitempty"`
	DecidedAt *time.Time     `json:"decided_at,omitempty"`
}

// GetUserID implements the Ownable interface.
func (p *Proposal) GetUserID() uint {
	return p.UserID
}

// Expired reports whether the validity date has passed at now.
func (p *Proposal) Expired(now time.Time) bool {
	return p.ValidUntil != nil && now.After(*p.ValidUntil)
}

// TransitionTo moves the proposal to status.
func (p *Proposal) TransitionTo(status ProposalStatus, now time.Time) error {
	if err := proposalTransitions.check(p.Status, status); err != nil {
		return err
	}
	p.Status = status
	switch status {
	case ProposalStatusSent:
		p.SentAt = &now
	case ProposalStatusAccepted, ProposalStatusRejected:
		p.DecidedAt = &now
	}
	return nil
}

// NextStatuses lists the statuses reachable from the current one.
func (p *Proposal) NextStatuses() []ProposalStatus {
	return proposalTransitions.next(p.Status)
}
