package dialog

import (
	"context"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"arepazo-bot/models"
	"arepazo-bot/services"
)

// Config carries the restaurant-level knobs the engine needs; everything
// transport- or storage-specific stays out.
type Config struct {
	AdminID          string // chat identity receiving order and payment notices
	PayNumber        string
	Address          string
	MapsLink         string
	WelcomeImagePath string
	StickerPath      string
	Location         *time.Location
	ProofReminder    time.Duration
	PendingNotice    time.Duration
}

type handlerFunc func(ctx context.Context, s *Session, msg Inbound) error

// Engine is the conversation state machine. One HandleMessage call runs to
// completion per identity at a time; distinct identities proceed
// concurrently.
type Engine struct {
	cfg           Config
	sessions      SessionStore
	catalog       Catalog
	orders        OrderStore
	history       HistoryStore
	verifications VerificationLog
	chat          ChatClient
	timers        *InactivitySupervisor

	handlers map[State]handlerFunc
	locks    sync.Map // identity -> *sync.Mutex
	now      func() time.Time
}

func New(cfg Config, sessions SessionStore, catalog Catalog, orders OrderStore,
	history HistoryStore, verifications VerificationLog, chat ChatClient,
	timers *InactivitySupervisor) *Engine {

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	e := &Engine{
		cfg:           cfg,
		sessions:      sessions,
		catalog:       catalog,
		orders:        orders,
		history:       history,
		verifications: verifications,
		chat:          chat,
		timers:        timers,
	}
	e.now = time.Now
	e.handlers = map[State]handlerFunc{
		StateMainMenu:            e.handleMainMenu,
		StateStatusQuery:         e.handleStatusQuery,
		StateMenu:                e.handleMenu,
		StateQuantity:            e.handleQuantity,
		StateAddMore:             e.handleAddMore,
		StateOfferDrinks:         e.handleOfferDrinks,
		StateDrinks:              e.handleDrinks,
		StateDrinkQuantity:       e.handleDrinkQuantity,
		StateAddDrink:            e.handleAddDrink,
		StateSummary:             e.handleSummary,
		StateInstructions:        e.handleInstructions,
		StateModify:              e.handleModify,
		StateModifyAction:        e.handleModifyAction,
		StateModifyQuantity:      e.handleModifyQuantity,
		StateName:                e.handleName,
		StateAddress:             e.handleAddress,
		StatePaymentMethod:       e.handlePaymentMethod,
		StateCashAmount:          e.handleCashAmount,
		StateWalletNumber:        e.handleWalletNumber,
		StateAwaitingProof:       e.handleAwaitingProof,
		StatePendingVerification: e.handlePendingVerification,
		StatePaymentDenied:       e.handlePaymentDenied,
		StateAgentHandoff:        e.handleAgentHandoff,
	}
	timers.SetCallbacks(e.onInactivityWarn, e.onInactivityEnd)
	return e
}

// lockIdentity serializes handling per identity (same pattern as locking
// per order id in the delivery bot).
func (e *Engine) lockIdentity(identity string) func() {
	v, _ := e.locks.LoadOrStore(identity, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// HandleMessage processes one inbound customer message to completion.
func (e *Engine) HandleMessage(ctx context.Context, msg Inbound) {
	unlock := e.lockIdentity(msg.From)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic handling message from %s: %v", msg.From, r)
			e.failTurn(ctx, msg.From)
		}
	}()

	e.timers.Stop(msg.From)

	sess, err := e.sessions.GetOrCreate(ctx, msg.From)
	if err != nil {
		log.Printf("session load %s: %v", msg.From, err)
		e.send(ctx, msg.From, msgInternalError)
		return
	}

	body := strings.TrimSpace(msg.Body)
	lower := strings.ToLower(body)
	if sess.State == StateNone || lower == "menu" || lower == "cancelar" {
		e.startConversation(ctx, sess)
		return
	}

	handler, ok := e.handlers[sess.State]
	if !ok {
		log.Printf("unhandled state %s for %s", sess.State, msg.From)
		e.send(ctx, msg.From, msgInternalError)
		e.reset(ctx, msg.From)
		return
	}

	msg.Body = body
	if err := handler(ctx, sess, msg); err != nil {
		log.Printf("state %s for %s: %v", sess.State, msg.From, err)
		e.failTurn(ctx, msg.From)
		return
	}
	e.finishTurn(ctx, sess)
}

// finishTurn persists the mutated session and re-arms the inactivity
// timers, or tears everything down when the handler ended the session.
func (e *Engine) finishTurn(ctx context.Context, sess *Session) {
	if sess.State == StateNone {
		e.reset(ctx, sess.Identity)
		return
	}
	if err := e.sessions.Save(ctx, sess); err != nil {
		log.Printf("session save %s: %v", sess.Identity, err)
		e.failTurn(ctx, sess.Identity)
		return
	}
	e.timers.Arm(sess.Identity, sess.Seq)
}

func (e *Engine) startConversation(ctx context.Context, sess *Session) {
	identity := sess.Identity
	if err := e.sessions.Reset(ctx, identity); err != nil {
		log.Printf("session reset %s: %v", identity, err)
		e.send(ctx, identity, msgInternalError)
		return
	}
	fresh, err := e.sessions.Get(ctx, identity)
	if err != nil || fresh == nil {
		log.Printf("session reload %s: %v", identity, err)
		e.send(ctx, identity, msgInternalError)
		return
	}
	if e.cfg.WelcomeImagePath != "" {
		if _, statErr := os.Stat(e.cfg.WelcomeImagePath); statErr == nil {
			if err := e.chat.SendImageFile(ctx, identity, e.cfg.WelcomeImagePath, msgWelcomeCaption); err != nil {
				log.Printf("welcome image to %s: %v", identity, err)
			}
		}
	}
	e.send(ctx, identity, msgWelcome)
	fresh.State = StateMainMenu
	e.finishTurn(ctx, fresh)
}

// failTurn is the §7 catch-all: generic apology, then reset so the user is
// never stuck in a half-completed state.
func (e *Engine) failTurn(ctx context.Context, identity string) {
	e.send(ctx, identity, msgInternalError)
	e.reset(ctx, identity)
}

func (e *Engine) reset(ctx context.Context, identity string) {
	e.timers.Stop(identity)
	if err := e.sessions.Reset(ctx, identity); err != nil {
		log.Printf("session reset %s: %v", identity, err)
	}
}

func (e *Engine) send(ctx context.Context, to, text string) {
	if err := e.chat.SendMessage(ctx, to, text); err != nil {
		log.Printf("send to %s: %v", to, err)
	}
}

// HandleAdminDecision applies the out-of-band payment decision to the
// customer's session. A decision for a verification the session no longer
// expects is discarded.
func (e *Engine) HandleAdminDecision(ctx context.Context, verificationID, customerID string, approved bool) error {
	unlock := e.lockIdentity(customerID)
	defer unlock()

	status := models.VerificationDenied
	if approved {
		status = models.VerificationConfirmed
	}
	if err := e.verifications.UpdateStatus(ctx, verificationID, status); err != nil {
		return err
	}

	sess, err := e.sessions.Get(ctx, customerID)
	if err != nil {
		return err
	}
	if sess == nil || sess.State != StatePendingVerification || sess.VerificationID != verificationID {
		log.Printf("stale decision %s for %s discarded", verificationID, customerID)
		return nil
	}

	e.timers.Stop(customerID)

	if approved {
		e.send(ctx, customerID, msgPaymentConfirmed)
		if err := e.finalizeOrder(ctx, sess); err != nil {
			log.Printf("finalize after approval for %s: %v", customerID, err)
			e.failTurn(ctx, customerID)
			return nil
		}
		e.finishTurn(ctx, sess)
		return nil
	}

	sess.DenialCount++
	if sess.DenialCount >= 2 {
		e.send(ctx, customerID, msgPaymentDeniedHard)
		e.notifyAdmin(ctx, "⚠️ Cliente "+customerID+" con pago denegado dos veces. Requiere atención de un agente.")
		sess.State = StateAgentHandoff
	} else {
		e.send(ctx, customerID, msgPaymentDenied)
		sess.State = StatePaymentDenied
	}
	e.finishTurn(ctx, sess)
	return nil
}

// finalizeOrder is the confirm terminal action: code generation, order
// persistence, notifications, history update, session end.
func (e *Engine) finalizeOrder(ctx context.Context, sess *Session) error {
	lines, total := services.CartSummary(sess.Cart)

	code, err := e.orders.NewUniqueCode(ctx)
	if err != nil {
		return err
	}

	now := e.now().In(e.cfg.Location)
	date, clock := services.DateAndTime(now)

	items := strings.Join(lines, "\n")
	if sess.Instructions != "" {
		items += "\nInstrucciones: " + sess.Instructions
	}

	order := &models.Order{
		Code:          code,
		Date:          date,
		Time:          clock,
		CustomerID:    sess.Identity,
		CustomerName:  sess.CustomerName,
		Address:       sess.Address,
		Items:         items,
		Status:        models.OrderStatusPreparing,
		PaymentMethod: sess.PaymentMethod,
		CashTendered:  sess.CashTendered,
		ChangeDue:     sess.ChangeDue,
		Total:         total,
	}
	if err := e.orders.Create(ctx, order); err != nil {
		return err
	}

	// The order is persisted from here on: everything else is
	// best-effort so a notification hiccup cannot double-create it.
	if err := e.history.Upsert(ctx, sess.Identity, sess.CustomerName); err != nil {
		log.Printf("history upsert %s: %v", sess.Identity, err)
	}

	e.send(ctx, sess.Identity, renderConfirmation(sess, code, total, lines, services.DeliveryMinutes(now)))
	if e.cfg.StickerPath != "" {
		if _, statErr := os.Stat(e.cfg.StickerPath); statErr == nil {
			if err := e.chat.SendSticker(ctx, sess.Identity, e.cfg.StickerPath); err != nil {
				log.Printf("sticker to %s: %v", sess.Identity, err)
			}
		}
	}
	e.notifyAdmin(ctx, renderAdminOrder(sess, code, total, lines))

	sess.OrderCode = code
	sess.State = StateNone
	return nil
}

func (e *Engine) notifyAdmin(ctx context.Context, text string) {
	if e.cfg.AdminID == "" {
		return
	}
	if err := e.chat.SendMessage(ctx, e.cfg.AdminID, text); err != nil {
		log.Printf("admin notify: %v", err)
	}
}

// onInactivityWarn fires at T1. The generation is re-checked under the
// identity lock so a message racing the timer wins.
func (e *Engine) onInactivityWarn(identity string, seq, gen uint64) {
	unlock := e.lockIdentity(identity)
	defer unlock()
	if !e.timers.Valid(identity, gen) {
		return
	}
	ctx := context.Background()
	sess, err := e.sessions.Get(ctx, identity)
	if err != nil || sess == nil || sess.State == StateNone || sess.Seq != seq {
		return
	}
	e.send(ctx, identity, msgInactivityWarn)
}

// onInactivityEnd fires at T2 and force-terminates the session.
func (e *Engine) onInactivityEnd(identity string, seq, gen uint64) {
	unlock := e.lockIdentity(identity)
	defer unlock()
	if !e.timers.Valid(identity, gen) {
		return
	}
	ctx := context.Background()
	sess, err := e.sessions.Get(ctx, identity)
	if err != nil || sess == nil || sess.State == StateNone || sess.Seq != seq {
		return
	}
	e.send(ctx, identity, msgInactivityEnd)
	e.reset(ctx, identity)
}

// afterDelay schedules a one-shot follow-up that only acts when the
// session still matches seq and state (stale fires are discarded).
func (e *Engine) afterDelay(d time.Duration, identity string, seq uint64, want State, fn func(ctx context.Context, sess *Session)) {
	if d <= 0 {
		return
	}
	time.AfterFunc(d, func() {
		unlock := e.lockIdentity(identity)
		defer unlock()
		ctx := context.Background()
		sess, err := e.sessions.Get(ctx, identity)
		if err != nil || sess == nil || sess.Seq != seq || sess.State != want {
			return
		}
		fn(ctx, sess)
	})
}
