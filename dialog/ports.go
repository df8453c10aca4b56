package dialog

import (
	"context"

	"arepazo-bot/models"
)

// The engine talks to its collaborators through these interfaces; the
// services package provides the postgres-backed implementations and the
// tests provide fakes.

type Catalog interface {
	GetMenu(ctx context.Context) (*models.Menu, error)
}

type OrderStore interface {
	Create(ctx context.Context, o *models.Order) error
	// FindByCode returns nil, nil for an unknown code.
	FindByCode(ctx context.Context, code string) (*models.Order, error)
	NewUniqueCode(ctx context.Context) (string, error)
}

type HistoryStore interface {
	// Find returns nil, nil for a first-time customer.
	Find(ctx context.Context, customerID string) (*models.HistoryRecord, error)
	Upsert(ctx context.Context, customerID, name string) error
}

type VerificationLog interface {
	Create(ctx context.Context, rec *models.VerificationRecord) (string, error)
	UpdateStatus(ctx context.Context, id, status string) error
	IsPending(ctx context.Context, id string) (bool, error)
}

// ChatClient is the outbound side of the transport. Implementations may
// simulate typing before delivering; the engine does not care.
type ChatClient interface {
	SendMessage(ctx context.Context, to, text string) error
	SendImage(ctx context.Context, to string, data []byte, caption string) error
	SendImageFile(ctx context.Context, to, path, caption string) error
	SendSticker(ctx context.Context, to, path string) error
}

// Inbound is one message from a customer. Media is non-nil only when the
// transport reports an attachment; calling it downloads the bytes.
type Inbound struct {
	From  string
	Body  string
	Media func(ctx context.Context) ([]byte, error)
}
