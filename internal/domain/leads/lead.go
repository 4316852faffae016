package leads

import (
	"context"
	"time"
)

// Lead is a captured print request with its score.
type Lead struct {
	ID             string    `json:"id"`
	UserIdentifier string    `json:"userIdentifier,omitempty"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Company        string    `json:"company,omitempty"`
	Params         Params    `json:"params"`
	Score          int       `json:"score"`
	Status         Status    `json:"status"`
	Notified       bool      `json:"notified"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Repository persists captured leads.
type Repository interface {
	Store(ctx context.Context, lead *Lead) error
	FindByID(ctx context.Context, id string) (*Lead, error)
	FindByUser(ctx context.Context, userID string) ([]*Lead, error)
	List(ctx context.Context, status Status, limit int) ([]*Lead, error)
	MarkNotified(ctx context.Context, id string) error
}

// Notifier alerts the sales team about a lead.
type Notifier interface {
	NotifyLead(ctx context.Context, lead *Lead) error
}
