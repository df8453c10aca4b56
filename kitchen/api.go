package kitchen

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"arepazo-bot/config"
	"arepazo-bot/models"
	"arepazo-bot/services"
)

// OrderSource is the slice of the order store the kitchen display needs.
type OrderSource interface {
	ListForDate(ctx context.Context, date string) ([]models.Order, error)
	FindByCode(ctx context.Context, code string) (*models.Order, error)
	UpdateStatus(ctx context.Context, code, status string) (bool, error)
}

// Server exposes today's orders to the kitchen display, pushes new codes
// over SSE, and generates a PDF invoice the first time an order reaches
// the configured status.
type Server struct {
	cfg    config.KitchenConfig
	orders OrderSource
	loc    *time.Location

	mu          sync.Mutex
	subscribers map[chan string]struct{}
	known       map[string]struct{} // codes already announced over SSE
	invoiced    map[string]struct{} // codes with a generated invoice
}

func NewServer(cfg config.KitchenConfig, orders OrderSource, loc *time.Location) *Server {
	if loc == nil {
		loc = time.UTC
	}
	return &Server{
		cfg:         cfg,
		orders:      orders,
		loc:         loc,
		subscribers: make(map[chan string]struct{}),
		known:       make(map[string]struct{}),
		invoiced:    make(map[string]struct{}),
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/orders", s.handleOrders)
	mux.HandleFunc("/orders/", s.handleOrderState)
	mux.HandleFunc("/events", s.handleEvents)
	return mux
}

func (s *Server) today() string {
	date, _ := services.DateAndTime(time.Now().In(s.loc))
	return date
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	orders, err := s.orders.ListForDate(r.Context(), s.today())
	if err != nil {
		log.Printf("kitchen list orders: %v", err)
		writeError(w, http.StatusInternalServerError, "error interno")
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

type stateRequest struct {
	Estado string `json:"estado"`
}

// handleOrderState serves POST /orders/{code}/state.
func (s *Server) handleOrderState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/orders/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[1] != "state" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	code := services.NormalizeOrderCode(parts[0])
	if !services.OrderCodePattern.MatchString(code) {
		writeError(w, http.StatusBadRequest, "código inválido")
		return
	}

	var req stateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	req.Estado = strings.TrimSpace(req.Estado)
	if req.Estado == "" {
		writeError(w, http.StatusBadRequest, "estado requerido")
		return
	}

	found, err := s.orders.UpdateStatus(r.Context(), code, req.Estado)
	if err != nil {
		log.Printf("kitchen update %s: %v", code, err)
		writeError(w, http.StatusInternalServerError, "error interno")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "orden no encontrada")
		return
	}

	if req.Estado == s.cfg.InvoiceStatus {
		s.maybeInvoice(r.Context(), code)
	}

	writeJSON(w, http.StatusOK, map[string]string{"codigo": code, "estado": req.Estado})
}

// maybeInvoice generates the PDF once per code, on the first transition
// into the invoice status.
func (s *Server) maybeInvoice(ctx context.Context, code string) {
	s.mu.Lock()
	_, done := s.invoiced[code]
	s.mu.Unlock()
	if done {
		return
	}

	order, err := s.orders.FindByCode(ctx, code)
	if err != nil || order == nil {
		log.Printf("invoice lookup %s: %v", code, err)
		return
	}
	path, err := WriteInvoice(s.cfg.InvoiceDir, order)
	if err != nil {
		log.Printf("invoice %s: %v", code, err)
		return
	}

	// Marked only after a successful write; a failed attempt stays
	// eligible on the next transition.
	s.mu.Lock()
	s.invoiced[code] = struct{}{}
	s.mu.Unlock()
	log.Printf("invoice generated: %s", path)
}

// handleEvents streams new order codes as SSE "order" events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming no soportado")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := make(chan string, 16)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.subscribers, ch)
		s.mu.Unlock()
	}()

	keepAlive := time.NewTicker(30 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case code := <-ch:
			fmt.Fprintf(w, "event: order\ndata: %s\n\n", code)
			flusher.Flush()
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

// Poll watches today's orders and announces codes not seen before. Run it
// in its own goroutine; it returns when ctx is cancelled.
func (s *Server) Poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			orders, err := s.orders.ListForDate(ctx, s.today())
			if err != nil {
				log.Printf("kitchen poll: %v", err)
				continue
			}
			for _, o := range orders {
				s.announce(o.Code)
			}
		}
	}
}

func (s *Server) announce(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.known[code]; seen {
		return
	}
	s.known[code] = struct{}{}
	for ch := range s.subscribers {
		select {
		case ch <- code:
		default: // slow subscriber, drop
		}
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
