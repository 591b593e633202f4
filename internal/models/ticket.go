package models

import (
	"slices"
	"time"

	"gorm.io/gorm"
)

// TicketStatus is the support workflow state.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

var ticketTransitions = transitions[TicketStatus]{
	TicketStatusOpen:       {TicketStatusInProgress, TicketStatusClosed},
	TicketStatusInProgress: {TicketStatusResolved, TicketStatusClosed},
	TicketStatusResolved:   {TicketStatusClosed, TicketStatusOpen},
}

// Valid reports whether s is a known ticket status.
func (s TicketStatus) Valid() bool { return ticketTransitions.valid(s) }

// TicketPriority orders tickets in the support queue.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

var ticketPriorities = []TicketPriority{TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityUrgent}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool { return slices.Contains(ticketPriorities, p) }

// Ticket is a support request, optionally tied to a client.
type Ticket struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	ClientID *uint   `gorm:"index" json:"client_id,omitempty"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	Subject     string         `gorm:"size:255;not null" json:"subject"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Priority    TicketPriority `gorm:"size:20;not null;default:'normal'" json:"priority"`
	Status      TicketStatus   `gorm:"size:20;not null;default:'open';index" json:"status"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
	ClosedAt    *time.Time     `json:"closed_at,omitempty"`
}

// GetUserID implements the Ownable interface.
func (t *Ticket) GetUserID() uint {
	return t.UserID
}

// TransitionTo moves the ticket to status. Reopening clears ResolvedAt.
func (t *Ticket) TransitionTo(status TicketStatus, now time.Time) error {
	if err := ticketTransitions.check(t.Status, status); err != nil {
		return err
	}
	t.Status = status
	switch status {
	case TicketStatusResolved:
		t.ResolvedAt = &now
	case TicketStatusClosed:
		t.ClosedAt = &now
	case TicketStatusOpen:
		t.ResolvedAt = nil
	}
	return nil
}

// NextStatuses lists the statuses reachable from the current one.
func (t *Ticket) NextStatuses() []TicketStatus {
	return ticketTransitions.next(t.Status)
}
