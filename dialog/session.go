package dialog

import (
	"context"
	"sync"

	"arepazo-bot/models"
)

// PendingSelection is a menu item the customer picked but has not given a
// quantity for yet.
type PendingSelection struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Category string `json:"category"`
}

// Session holds everything accumulated while building one order. Exactly
// one session exists per identity.
//
// Seq increments on every reset; timer callbacks and the admin decision
// path compare it so a stale event never touches a newer session.
type Session struct {
	Identity       string            `json:"identity"`
	State          State             `json:"state"`
	Cart           []models.CartLine `json:"cart"`
	CustomerName   string            `json:"customer_name,omitempty"`
	KnownCustomer  bool              `json:"known_customer,omitempty"`
	Address        string            `json:"address,omitempty"`
	PaymentMethod  string            `json:"payment_method,omitempty"`
	CashTendered   int64             `json:"cash_tendered,omitempty"`
	ChangeDue      int64             `json:"change_due,omitempty"`
	Instructions   string            `json:"instructions,omitempty"`
	OrderCode      string            `json:"order_code,omitempty"`
	Pending        *PendingSelection `json:"pending,omitempty"`
	ModifyIndex    int               `json:"modify_index"`
	WalletNumber   string            `json:"wallet_number,omitempty"`
	WalletAttempts int               `json:"wallet_attempts,omitempty"`
	DenialCount    int               `json:"denial_count,omitempty"`
	VerificationID string            `json:"verification_id,omitempty"`

	// Listing snapshot the customer is choosing from. Indices are always
	// validated against these, never against a fresher catalog fetch.
	Mains     []models.MenuItem `json:"mains,omitempty"`
	Snacks    []models.MenuItem `json:"snacks,omitempty"`
	Drinks    []models.MenuItem `json:"drinks,omitempty"`
	MenuText  string            `json:"menu_text,omitempty"`
	DrinkText string            `json:"drink_text,omitempty"`

	Seq uint64 `json:"seq"`
}

func newSession(identity string, seq uint64) *Session {
	return &Session{Identity: identity, State: StateNone, ModifyIndex: -1, Seq: seq}
}

// SessionStore maps identity to Session. Get and GetOrCreate return a
// private copy: callers mutate freely and nothing is visible to anyone
// until Save, so a failed turn leaves the stored session untouched.
type SessionStore interface {
	// Get returns nil, nil when the identity has no session record.
	Get(ctx context.Context, identity string) (*Session, error)
	// GetOrCreate is atomic: two racing calls for one identity never
	// initialize two sessions.
	GetOrCreate(ctx context.Context, identity string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	// Reset clears every field, sets StateNone, and bumps Seq.
	Reset(ctx context.Context, identity string) error
}

// MemoryStore is the default process-lifetime SessionStore.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Get(ctx context.Context, identity string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[identity]
	if !ok {
		return nil, nil
	}
	return copySession(s), nil
}

func (m *MemoryStore) GetOrCreate(ctx context.Context, identity string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[identity]
	if !ok {
		s = newSession(identity, 1)
		m.sessions[identity] = s
	}
	return copySession(s), nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Identity] = copySession(s)
	return nil
}

func (m *MemoryStore) Reset(ctx context.Context, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var seq uint64
	if old, ok := m.sessions[identity]; ok {
		seq = old.Seq
	}
	m.sessions[identity] = newSession(identity, seq+1)
	return nil
}

func copySession(s *Session) *Session {
	c := *s
	c.Cart = append([]models.CartLine(nil), s.Cart...)
	c.Mains = append([]models.MenuItem(nil), s.Mains...)
	c.Snacks = append([]models.MenuItem(nil), s.Snacks...)
	c.Drinks = append([]models.MenuItem(nil), s.Drinks...)
	if s.Pending != nil {
		p := *s.Pending
		c.Pending = &p
	}
	return &c
}
