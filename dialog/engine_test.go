package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"arepazo-bot/models"

	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	menu *models.Menu
	err  error
}

func (f *fakeCatalog) GetMenu(ctx context.Context) (*models.Menu, error) {
	return f.menu, f.err
}

type fakeOrders struct {
	mu      sync.Mutex
	created []*models.Order
	byCode  map[string]*models.Order
	next    string
}

func (f *fakeOrders) Create(ctx context.Context, o *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *o
	f.created = append(f.created, &cp)
	f.byCode[o.Code] = &cp
	return nil
}

func (f *fakeOrders) FindByCode(ctx context.Context, code string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byCode[code], nil
}

func (f *fakeOrders) NewUniqueCode(ctx context.Context) (string, error) {
	return f.next, nil
}

type fakeHistory struct {
	records map[string]*models.HistoryRecord
	upserts []string
}

func (f *fakeHistory) Find(ctx context.Context, customerID string) (*models.HistoryRecord, error) {
	return f.records[customerID], nil
}

func (f *fakeHistory) Upsert(ctx context.Context, customerID, name string) error {
	f.upserts = append(f.upserts, customerID+"/"+name)
	return nil
}

type fakeVerifications struct {
	mu      sync.Mutex
	n       int
	created []*models.VerificationRecord
	pending map[string]bool
}

func (f *fakeVerifications) Create(ctx context.Context, rec *models.VerificationRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	id := fmt.Sprintf("ver-%d", f.n)
	cp := *rec
	cp.ID = id
	f.created = append(f.created, &cp)
	f.pending[id] = true
	return id, nil
}

func (f *fakeVerifications) UpdateStatus(ctx context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[id] = status == models.VerificationPending
	return nil
}

func (f *fakeVerifications) IsPending(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending[id], nil
}

type fakeChat struct {
	mu     sync.Mutex
	msgs   map[string][]string
	images map[string]int
	fail   bool
}

func newFakeChat() *fakeChat {
	return &fakeChat{msgs: make(map[string][]string), images: make(map[string]int)}
}

func (f *fakeChat) SendMessage(ctx context.Context, to, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("chat down")
	}
	f.msgs[to] = append(f.msgs[to], text)
	return nil
}

func (f *fakeChat) SendImage(ctx context.Context, to string, data []byte, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[to]++
	return nil
}

func (f *fakeChat) SendImageFile(ctx context.Context, to, path, caption string) error {
	return nil
}

func (f *fakeChat) SendSticker(ctx context.Context, to, path string) error {
	return nil
}

func (f *fakeChat) last(to string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.msgs[to]) == 0 {
		return ""
	}
	return f.msgs[to][len(f.msgs[to])-1]
}

func (f *fakeChat) all(to string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.msgs[to]...)
}

type testRig struct {
	engine        *Engine
	store         *MemoryStore
	chat          *fakeChat
	orders        *fakeOrders
	history       *fakeHistory
	verifications *fakeVerifications
}

const (
	testCustomer = "100"
	testAdmin    = "999"
)

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	menu := &models.Menu{
		Mains: []models.MenuItem{
			{Name: "Churrasco", Price: 25000, Tag: models.TagGrilled},
			{Name: "Arepa Rellena", Price: 12000, Tag: models.TagPlain},
		},
		Snacks: []models.MenuItem{{Name: "Chorizo", Price: 8000}},
		Drinks: []models.MenuItem{{Name: "Coca-Cola", Price: 3000}},
	}
	rig := &testRig{
		store:         NewMemoryStore(),
		chat:          newFakeChat(),
		orders:        &fakeOrders{byCode: make(map[string]*models.Order), next: "KFR-204"},
		history:       &fakeHistory{records: make(map[string]*models.HistoryRecord)},
		verifications: &fakeVerifications{pending: make(map[string]bool)},
	}
	timers := NewInactivitySupervisor(time.Hour, 2*time.Hour)
	rig.engine = New(Config{
		AdminID:   testAdmin,
		PayNumber: "3001234567",
		Address:   "Calle 123",
		MapsLink:  "https://maps.example",
		Location:  time.UTC,
	}, rig.store, &fakeCatalog{menu: menu}, rig.orders, rig.history, rig.verifications, rig.chat, timers)
	return rig
}

func (r *testRig) say(t *testing.T, body string) {
	t.Helper()
	r.engine.HandleMessage(context.Background(), Inbound{From: testCustomer, Body: body})
}

func (r *testRig) sayMedia(t *testing.T, media func(context.Context) ([]byte, error)) {
	t.Helper()
	r.engine.HandleMessage(context.Background(), Inbound{From: testCustomer, Media: media})
}

func (r *testRig) state(t *testing.T) State {
	t.Helper()
	s, err := r.store.Get(context.Background(), testCustomer)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s.State
}

// walk the happy path up to the summary with 2x Churrasco + 1 Coca-Cola.
func (r *testRig) buildCart(t *testing.T) {
	t.Helper()
	r.say(t, "hola")
	require.Equal(t, StateMainMenu, r.state(t))
	r.say(t, "1")
	require.Equal(t, StateMenu, r.state(t))
	r.say(t, "1") // Churrasco
	require.Equal(t, StateQuantity, r.state(t))
	r.say(t, "2")
	require.Equal(t, StateAddMore, r.state(t))
	r.say(t, "2") // nothing more
	require.Equal(t, StateOfferDrinks, r.state(t))
	r.say(t, "1")
	require.Equal(t, StateDrinks, r.state(t))
	r.say(t, "1") // Coca-Cola
	require.Equal(t, StateDrinkQuantity, r.state(t))
	r.say(t, "1")
	require.Equal(t, StateAddDrink, r.state(t))
	r.say(t, "2")
	require.Equal(t, StateSummary, r.state(t))
}

func TestCashOrderEndToEnd(t *testing.T) {
	rig := newTestRig(t)
	rig.buildCart(t)

	require.Contains(t, rig.chat.last(testCustomer), "$ 53.000")

	rig.say(t, "4") // confirm
	require.Equal(t, StateName, rig.state(t))
	rig.say(t, "Laura")
	require.Equal(t, StateAddress, rig.state(t))
	rig.say(t, "Calle 1 #2-3")
	require.Equal(t, StatePaymentMethod, rig.state(t))
	rig.say(t, "1") // cash
	require.Equal(t, StateCashAmount, rig.state(t))
	rig.say(t, "60000")

	require.Len(t, rig.orders.created, 1)
	o := rig.orders.created[0]
	require.Equal(t, "KFR-204", o.Code)
	require.Equal(t, "Laura", o.CustomerName)
	require.Equal(t, models.OrderStatusPreparing, o.Status)
	require.Equal(t, models.PaymentCash, o.PaymentMethod)
	require.Equal(t, int64(53000), o.Total)
	require.Equal(t, int64(60000), o.CashTendered)
	require.Equal(t, int64(7000), o.ChangeDue)

	require.Equal(t, []string{"100/Laura"}, rig.history.upserts)

	confirmed := false
	for _, m := range rig.chat.all(testCustomer) {
		if strings.Contains(m, "KFR-204") && strings.Contains(m, "$ 53.000") {
			confirmed = true
		}
	}
	require.True(t, confirmed, "customer never got the confirmation")

	adminGot := false
	for _, m := range rig.chat.all(testAdmin) {
		if strings.Contains(m, "NUEVO PEDIDO") && strings.Contains(m, "KFR-204") {
			adminGot = true
		}
	}
	require.True(t, adminGot, "admin never got the order notice")

	require.Equal(t, StateNone, rig.state(t), "session must end after confirmation")
}

func TestCashAmountTooLowReprompts(t *testing.T) {
	rig := newTestRig(t)
	rig.buildCart(t)
	rig.say(t, "4")
	rig.say(t, "Laura")
	rig.say(t, "Calle 1")
	rig.say(t, "1")

	rig.say(t, "50000") // total is 53000
	require.Equal(t, StateCashAmount, rig.state(t))
	require.Contains(t, rig.chat.last(testCustomer), "$ 53.000")
	require.Empty(t, rig.orders.created)

	rig.say(t, "$ 53.000") // formatted input is accepted
	require.Len(t, rig.orders.created, 1)
	require.Equal(t, int64(0), rig.orders.created[0].ChangeDue)
}

func TestQuantityRejectsNonPositive(t *testing.T) {
	rig := newTestRig(t)
	rig.say(t, "hola")
	rig.say(t, "1")
	rig.say(t, "1")
	require.Equal(t, StateQuantity, rig.state(t))

	for _, bad := range []string{"0", "-5", "abc", "1.5", ""} {
		rig.say(t, bad)
		require.Equal(t, StateQuantity, rig.state(t), "input %q should not advance", bad)
		require.Equal(t, msgQtyInvalid, rig.chat.last(testCustomer))
	}

	rig.say(t, "3")
	require.Equal(t, StateAddMore, rig.state(t))
}

func TestMenuIndexOutOfRange(t *testing.T) {
	rig := newTestRig(t)
	rig.say(t, "hola")
	rig.say(t, "1")
	// 2 mains + 1 snack = indices 1..3
	rig.say(t, "4")
	require.Equal(t, StateMenu, rig.state(t))
	require.Equal(t, msgMenuInvalid, rig.chat.last(testCustomer))

	rig.say(t, "3") // snack, numbered after the mains
	require.Equal(t, StateQuantity, rig.state(t))
	require.Contains(t, rig.chat.last(testCustomer), "Chorizo")
}

func TestMenuCancel(t *testing.T) {
	rig := newTestRig(t)
	rig.say(t, "hola")
	rig.say(t, "1")
	rig.say(t, "0")
	require.Equal(t, StateNone, rig.state(t))
	require.Equal(t, msgCancelled, rig.chat.last(testCustomer))
}

func TestGlobalCancelMidFlow(t *testing.T) {
	rig := newTestRig(t)
	rig.buildCart(t)
	rig.say(t, "cancelar")
	require.Equal(t, StateMainMenu, rig.state(t))
	s, err := rig.store.Get(context.Background(), testCustomer)
	require.NoError(t, err)
	require.Empty(t, s.Cart, "cancel must discard the cart")
}

func TestStatusQuery(t *testing.T) {
	rig := newTestRig(t)
	rig.orders.byCode["KFR-204"] = &models.Order{
		Code: "KFR-204", Status: models.OrderStatusPreparing,
		Date: "05/03/2024", Time: "12:30", Address: "Calle 1",
		PaymentMethod: models.PaymentCash, Total: 53000, Items: "2x Churrasco",
	}

	rig.say(t, "hola")
	rig.say(t, "3")
	require.Equal(t, StateStatusQuery, rig.state(t))

	rig.say(t, "garbage")
	require.Equal(t, StateStatusQuery, rig.state(t))
	require.Equal(t, msgStatusBadFormat, rig.chat.last(testCustomer))

	rig.say(t, "kfr 204")
	require.Contains(t, rig.chat.last(testCustomer), "en preparación")
	require.Equal(t, StateNone, rig.state(t))
}

func TestStatusQueryNotFound(t *testing.T) {
	rig := newTestRig(t)
	rig.say(t, "hola")
	rig.say(t, "3")
	rig.say(t, "ZZZ-999")
	require.Equal(t, msgStatusNotFound, rig.chat.last(testCustomer))
	require.Equal(t, StateNone, rig.state(t))
}

func TestLocationInfo(t *testing.T) {
	rig := newTestRig(t)
	rig.say(t, "hola")
	rig.say(t, "2")
	require.Contains(t, rig.chat.last(testCustomer), "Calle 123")
	require.Equal(t, StateNone, rig.state(t))
}

func TestModifyRemoveLastItemRedirectsToMenu(t *testing.T) {
	rig := newTestRig(t)
	rig.say(t, "hola")
	rig.say(t, "1")
	rig.say(t, "1")
	rig.say(t, "2")
	rig.say(t, "2") // no more food
	rig.say(t, "2") // no drinks -> summary
	require.Equal(t, StateSummary, rig.state(t))

	rig.say(t, "1") // modify
	require.Equal(t, StateModify, rig.state(t))
	rig.say(t, "1") // the only line
	require.Equal(t, StateModifyAction, rig.state(t))
	rig.say(t, "2") // remove

	require.Equal(t, StateMenu, rig.state(t), "empty cart must go back to the menu")
	msgs := rig.chat.all(testCustomer)
	require.Contains(t, msgs[len(msgs)-2], "vacío")
}

func TestModifyQuantity(t *testing.T) {
	rig := newTestRig(t)
	rig.buildCart(t)

	rig.say(t, "1") // modify
	rig.say(t, "1") // churrasco line
	rig.say(t, "1") // change quantity
	require.Equal(t, StateModifyQuantity, rig.state(t))
	rig.say(t, "5")
	require.Equal(t, StateSummary, rig.state(t))
	require.Contains(t, rig.chat.last(testCustomer), "5x Churrasco: $ 125.000")
}

func TestInstructionsShownInSummary(t *testing.T) {
	rig := newTestRig(t)
	rig.buildCart(t)
	rig.say(t, "2")
	require.Equal(t, StateInstructions, rig.state(t))
	rig.say(t, "sin cebolla")
	require.Equal(t, StateSummary, rig.state(t))
	require.Contains(t, rig.chat.last(testCustomer), `"sin cebolla"`)
}

func TestKnownCustomerSkipsNamePrompt(t *testing.T) {
	rig := newTestRig(t)
	rig.history.records[testCustomer] = &models.HistoryRecord{CustomerID: testCustomer, Name: "Laura", Visits: 3}
	rig.buildCart(t)
	rig.say(t, "4")
	require.Equal(t, StateAddress, rig.state(t), "returning customer goes straight to address")
	require.Contains(t, rig.chat.last(testCustomer), "Laura")
}

func TestWalletNumberThreeStrikes(t *testing.T) {
	rig := newTestRig(t)
	rig.buildCart(t)
	rig.say(t, "4")
	rig.say(t, "Laura")
	rig.say(t, "Calle 1")
	rig.say(t, "2") // Nequi
	require.Equal(t, StateWalletNumber, rig.state(t))
	require.Contains(t, rig.chat.last(testCustomer), "3001234567")

	rig.say(t, "123")
	require.Equal(t, StateWalletNumber, rig.state(t))
	require.Contains(t, rig.chat.last(testCustomer), "2")
	rig.say(t, "12345")
	require.Equal(t, StateWalletNumber, rig.state(t))
	rig.say(t, "abc")
	require.Equal(t, StateNone, rig.state(t), "third bad number must end the session")
	require.Empty(t, rig.orders.created)
}

func proofMedia(data []byte, err error) func(context.Context) ([]byte, error) {
	return func(context.Context) ([]byte, error) { return data, err }
}

func (r *testRig) reachAwaitingProof(t *testing.T) {
	t.Helper()
	r.buildCart(t)
	r.say(t, "4")
	r.say(t, "Laura")
	r.say(t, "Calle 1")
	r.say(t, "2")
	r.say(t, "3109876543")
	require.Equal(t, StateAwaitingProof, r.state(t))
}

func TestProofRequiresImage(t *testing.T) {
	rig := newTestRig(t)
	rig.reachAwaitingProof(t)

	rig.say(t, "ya pagué")
	require.Equal(t, StateAwaitingProof, rig.state(t))
	require.Equal(t, msgProofNotImage, rig.chat.last(testCustomer))

	rig.sayMedia(t, proofMedia(nil, errors.New("boom")))
	require.Equal(t, StateAwaitingProof, rig.state(t))
	require.Equal(t, msgProofDownloadFail, rig.chat.last(testCustomer))
}

func TestProofForwardedAndApproved(t *testing.T) {
	rig := newTestRig(t)
	rig.reachAwaitingProof(t)

	rig.sayMedia(t, proofMedia([]byte{0xFF, 0xD8}, nil))
	require.Equal(t, StatePendingVerification, rig.state(t))
	require.Len(t, rig.verifications.created, 1)
	require.Equal(t, int64(53000), rig.verifications.created[0].Amount)
	require.Equal(t, 1, rig.chat.images[testAdmin], "proof image must reach the admin")

	// Customer messages while pending just get a hold-on reply.
	rig.say(t, "¿ya?")
	require.Equal(t, StatePendingVerification, rig.state(t))
	require.Equal(t, msgVerifying, rig.chat.last(testCustomer))

	err := rig.engine.HandleAdminDecision(context.Background(), "ver-1", testCustomer, true)
	require.NoError(t, err)
	require.Len(t, rig.orders.created, 1)
	require.Equal(t, models.PaymentNequi, rig.orders.created[0].PaymentMethod)
	require.Equal(t, StateNone, rig.state(t))
	require.False(t, rig.verifications.pending["ver-1"])
}

func TestProofDeniedTwiceHandsOff(t *testing.T) {
	rig := newTestRig(t)
	rig.reachAwaitingProof(t)
	rig.sayMedia(t, proofMedia([]byte{1}, nil))

	require.NoError(t, rig.engine.HandleAdminDecision(context.Background(), "ver-1", testCustomer, false))
	require.Equal(t, StatePaymentDenied, rig.state(t))

	rig.say(t, "7")
	require.Equal(t, msgDeniedInvalid, rig.chat.last(testCustomer))

	rig.say(t, "1") // resend proof
	require.Equal(t, StateAwaitingProof, rig.state(t))
	rig.sayMedia(t, proofMedia([]byte{2}, nil))
	require.Equal(t, StatePendingVerification, rig.state(t))

	require.NoError(t, rig.engine.HandleAdminDecision(context.Background(), "ver-2", testCustomer, false))
	require.Equal(t, StateAgentHandoff, rig.state(t))
	require.Contains(t, rig.chat.last(testCustomer), "agente")
	require.Empty(t, rig.orders.created)

	rig.say(t, "hola?")
	require.Equal(t, msgAgentWait, rig.chat.last(testCustomer))
	require.Equal(t, StateAgentHandoff, rig.state(t))
}

func TestResendProofRearmsReminder(t *testing.T) {
	rig := newTestRig(t)
	rig.engine.cfg.ProofReminder = 20 * time.Millisecond
	rig.reachAwaitingProof(t)

	// Let the wallet-number reminder fire first; it is one-shot, so any
	// later reminder has to come from a fresh arm.
	require.Eventually(t, func() bool {
		return rig.chat.last(testCustomer) == msgProofReminder
	}, time.Second, 10*time.Millisecond)

	rig.sayMedia(t, proofMedia([]byte{1}, nil))
	require.NoError(t, rig.engine.HandleAdminDecision(context.Background(), "ver-1", testCustomer, false))
	rig.say(t, "1") // resend proof
	require.Equal(t, StateAwaitingProof, rig.state(t))
	require.Equal(t, msgResendProof, rig.chat.last(testCustomer))

	// The reminder must fire again while the customer sits on the
	// resend path, just like after the first wallet-number step.
	require.Eventually(t, func() bool {
		return rig.chat.last(testCustomer) == msgProofReminder
	}, time.Second, 10*time.Millisecond)
}

func TestStaleAdminDecisionDiscarded(t *testing.T) {
	rig := newTestRig(t)
	rig.reachAwaitingProof(t)
	rig.sayMedia(t, proofMedia([]byte{1}, nil))

	// Customer restarted before the admin answered.
	rig.say(t, "menu")
	require.Equal(t, StateMainMenu, rig.state(t))

	require.NoError(t, rig.engine.HandleAdminDecision(context.Background(), "ver-1", testCustomer, true))
	require.Empty(t, rig.orders.created, "stale approval must not create an order")
	require.Equal(t, StateMainMenu, rig.state(t))
}

func TestDaviplataFinalizesImmediately(t *testing.T) {
	rig := newTestRig(t)
	rig.buildCart(t)
	rig.say(t, "4")
	rig.say(t, "Laura")
	rig.say(t, "Calle 1")
	rig.say(t, "3")
	require.Len(t, rig.orders.created, 1)
	require.Equal(t, models.PaymentDaviplata, rig.orders.created[0].PaymentMethod)
	require.Equal(t, int64(0), rig.orders.created[0].CashTendered)
	require.Equal(t, StateNone, rig.state(t))
}

func TestMainMenuInvalidOption(t *testing.T) {
	rig := newTestRig(t)
	rig.say(t, "hola")
	rig.say(t, "9")
	require.Equal(t, StateMainMenu, rig.state(t))
	require.Equal(t, msgMainMenuInvalid, rig.chat.last(testCustomer))
}

func TestCatalogFailureResetsTurn(t *testing.T) {
	rig := newTestRig(t)
	rig.say(t, "hola")
	rig.engine.catalog = &fakeCatalog{err: errors.New("db down")}
	rig.say(t, "1")
	require.Equal(t, msgInternalError, rig.chat.last(testCustomer))
	require.Equal(t, StateNone, rig.state(t))
}
