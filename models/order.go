package models

import "time"

// CartLine is one item in a customer's in-progress order. Insertion order
// is preserved for display; only quantity edits and removal are allowed
// after append.
type CartLine struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Qty      int    `json:"qty"`
	Category string `json:"category"` // main, snack, drink
}

// Order is a confirmed order as stored in the orders table, keyed by the
// human-readable code (e.g. "KFR-204").
type Order struct {
	Code          string `json:"codigo"`
	Date          string `json:"fecha"` // restaurant-local, dd/mm/yyyy
	Time          string `json:"hora"`  // restaurant-local, HH:MM
	CustomerID    string `json:"cliente_id"`
	CustomerName  string `json:"cliente"`
	Address       string `json:"direccion"`
	Items         string `json:"pedido"` // rendered summary lines + optional instructions
	Status        string `json:"estado"`
	PaymentMethod string `json:"metodo_pago"`
	CashTendered  int64  `json:"paga_con,omitempty"` // 0 unless paying cash
	ChangeDue     int64  `json:"cambio,omitempty"`
	Total         int64  `json:"total"`
}

// OrderStatusPreparing is the only status the conversation engine ever
// writes; the kitchen display owns every later transition.
const OrderStatusPreparing = "en preparación"

const (
	PaymentCash      = "Efectivo"
	PaymentNequi     = "Nequi"
	PaymentDaviplata = "Daviplata"
)

type HistoryRecord struct {
	CustomerID string
	Name       string
	Visits     int
}

type VerificationRecord struct {
	ID            string
	CustomerID    string
	CustomerName  string
	OrderItems    string
	Amount        int64
	PaymentMethod string
	Status        string
	CreatedAt     time.Time
}

const (
	VerificationPending   = "Pendiente"
	VerificationConfirmed = "Confirmado"
	VerificationDenied    = "Denegado"
)
