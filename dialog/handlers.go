package dialog

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"arepazo-bot/models"
	"arepazo-bot/services"
)

var walletNumberPattern = regexp.MustCompile(`^\d{10}$`)

// parseIndex converts a 1-based menu selection into a 0-based index,
// rejecting anything non-numeric or out of [1, length].
func parseIndex(body string, length int) (int, bool) {
	n, err := strconv.Atoi(body)
	if err != nil || n < 1 || n > length {
		return 0, false
	}
	return n - 1, true
}

// parseQuantity accepts only strictly positive integers; everything else
// is re-prompted, never coerced.
func parseQuantity(body string) (int, bool) {
	n, err := strconv.Atoi(body)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// digitsOnly strips everything but digits, so "50.000" and "$50000" both
// read as 50000.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (e *Engine) handleMainMenu(ctx context.Context, s *Session, msg Inbound) error {
	switch msg.Body {
	case "1":
		rec, err := e.history.Find(ctx, s.Identity)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		if rec != nil {
			s.CustomerName = rec.Name
			s.KnownCustomer = true
		}
		if err := e.loadMenuListing(ctx, s); err != nil {
			return err
		}
		s.Cart = nil
		s.State = StateMenu
		e.send(ctx, s.Identity, s.MenuText)
	case "2":
		e.send(ctx, s.Identity, renderLocation(e.cfg.Address, e.cfg.MapsLink))
		s.State = StateNone
	case "3":
		s.State = StateStatusQuery
		e.send(ctx, s.Identity, msgStatusPrompt)
	default:
		e.send(ctx, s.Identity, msgMainMenuInvalid)
	}
	return nil
}

// loadMenuListing snapshots the catalog into the session so selection
// indices stay stable for the rest of the conversation.
func (e *Engine) loadMenuListing(ctx context.Context, s *Session) error {
	menu, err := e.catalog.GetMenu(ctx)
	if err != nil {
		return fmt.Errorf("load menu: %w", err)
	}
	sunday := services.IsSunday(e.now().In(e.cfg.Location))
	s.Mains = services.ActiveMains(menu.Mains, sunday)
	s.Snacks = menu.Snacks
	s.Drinks = menu.Drinks
	s.MenuText = renderMenu(s.Mains, s.Snacks)
	s.DrinkText = renderDrinks(s.Drinks)
	return nil
}

func (e *Engine) handleStatusQuery(ctx context.Context, s *Session, msg Inbound) error {
	code := services.NormalizeOrderCode(msg.Body)
	if !services.OrderCodePattern.MatchString(code) {
		e.send(ctx, s.Identity, msgStatusBadFormat)
		return nil
	}
	order, err := e.orders.FindByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("status lookup: %w", err)
	}
	if order == nil {
		e.send(ctx, s.Identity, msgStatusNotFound)
	} else {
		e.send(ctx, s.Identity, renderStatusReport(order))
	}
	s.State = StateNone
	return nil
}

func (e *Engine) handleMenu(ctx context.Context, s *Session, msg Inbound) error {
	if msg.Body == "0" {
		e.send(ctx, s.Identity, msgCancelled)
		s.State = StateNone
		return nil
	}
	idx, ok := parseIndex(msg.Body, len(s.Mains)+len(s.Snacks))
	if !ok {
		e.send(ctx, s.Identity, msgMenuInvalid)
		return nil
	}
	var item models.MenuItem
	category := models.CategoryMain
	if idx < len(s.Mains) {
		item = s.Mains[idx]
	} else {
		item = s.Snacks[idx-len(s.Mains)]
		category = models.CategorySnack
	}
	s.Pending = &PendingSelection{Name: item.Name, Price: item.Price, Category: category}
	s.State = StateQuantity
	e.send(ctx, s.Identity, renderQuantityPrompt(item.Name))
	return nil
}

func (e *Engine) handleQuantity(ctx context.Context, s *Session, msg Inbound) error {
	qty, ok := parseQuantity(msg.Body)
	if !ok {
		e.send(ctx, s.Identity, msgQtyInvalid)
		return nil
	}
	if s.Pending == nil {
		// Stored selection lost: internal inconsistency, fall back.
		log.Printf("quantity without pending selection for %s", s.Identity)
		e.showSummary(ctx, s)
		return nil
	}
	s.Cart = append(s.Cart, models.CartLine{
		Name:     s.Pending.Name,
		Price:    s.Pending.Price,
		Qty:      qty,
		Category: s.Pending.Category,
	})
	s.Pending = nil
	s.State = StateAddMore
	e.send(ctx, s.Identity, msgAddMore)
	return nil
}

func (e *Engine) handleAddMore(ctx context.Context, s *Session, msg Inbound) error {
	switch msg.Body {
	case "1":
		s.State = StateMenu
		e.send(ctx, s.Identity, s.MenuText)
	case "2":
		s.State = StateOfferDrinks
		e.send(ctx, s.Identity, msgOfferDrinks)
	default:
		e.send(ctx, s.Identity, msgYesNoOnly)
	}
	return nil
}

func (e *Engine) handleOfferDrinks(ctx context.Context, s *Session, msg Inbound) error {
	switch msg.Body {
	case "1":
		if len(s.Drinks) == 0 {
			e.send(ctx, s.Identity, msgNoDrinksMenu)
			e.showSummary(ctx, s)
			return nil
		}
		s.State = StateDrinks
		e.send(ctx, s.Identity, s.DrinkText)
	case "2":
		e.showSummary(ctx, s)
	default:
		e.send(ctx, s.Identity, msgYesNoOnly)
	}
	return nil
}

func (e *Engine) handleDrinks(ctx context.Context, s *Session, msg Inbound) error {
	if msg.Body == "0" {
		e.showSummary(ctx, s)
		return nil
	}
	idx, ok := parseIndex(msg.Body, len(s.Drinks))
	if !ok {
		e.send(ctx, s.Identity, msgDrinkInvalid)
		return nil
	}
	drink := s.Drinks[idx]
	s.Pending = &PendingSelection{Name: drink.Name, Price: drink.Price, Category: models.CategoryDrink}
	s.State = StateDrinkQuantity
	e.send(ctx, s.Identity, fmt.Sprintf("¿Cuántas unidades de *%s* deseas?", drink.Name))
	return nil
}

func (e *Engine) handleDrinkQuantity(ctx context.Context, s *Session, msg Inbound) error {
	qty, ok := parseQuantity(msg.Body)
	if !ok {
		e.send(ctx, s.Identity, msgQtyInvalid)
		return nil
	}
	if s.Pending == nil {
		log.Printf("drink quantity without pending selection for %s", s.Identity)
		e.showSummary(ctx, s)
		return nil
	}
	s.Cart = append(s.Cart, models.CartLine{
		Name:     s.Pending.Name,
		Price:    s.Pending.Price,
		Qty:      qty,
		Category: models.CategoryDrink,
	})
	s.Pending = nil
	s.State = StateAddDrink
	e.send(ctx, s.Identity, msgAddDrink)
	return nil
}

func (e *Engine) handleAddDrink(ctx context.Context, s *Session, msg Inbound) error {
	switch msg.Body {
	case "1":
		s.State = StateDrinks
		e.send(ctx, s.Identity, s.DrinkText)
	case "2":
		e.showSummary(ctx, s)
	default:
		e.send(ctx, s.Identity, msgYesNoOnly)
	}
	return nil
}

// showSummary moves to the summary view, or straight back to the menu
// when the cart is empty (an empty cart can never be confirmed).
func (e *Engine) showSummary(ctx context.Context, s *Session) {
	if len(s.Cart) == 0 {
		e.send(ctx, s.Identity, msgEmptyCart)
		s.State = StateMenu
		e.send(ctx, s.Identity, s.MenuText)
		return
	}
	s.State = StateSummary
	e.send(ctx, s.Identity, renderSummary(s))
}

func (e *Engine) handleSummary(ctx context.Context, s *Session, msg Inbound) error {
	if len(s.Cart) == 0 {
		e.showSummary(ctx, s)
		return nil
	}
	switch msg.Body {
	case "1":
		s.State = StateModify
		e.send(ctx, s.Identity, renderModifyList(s.Cart))
	case "2":
		s.State = StateInstructions
		e.send(ctx, s.Identity, msgInstructionsAsk)
	case "3":
		s.State = StateMenu
		e.send(ctx, s.Identity, s.MenuText)
	case "4":
		if s.KnownCustomer && s.CustomerName != "" {
			s.State = StateAddress
			e.send(ctx, s.Identity, renderAddressPrompt(s.CustomerName))
		} else {
			s.State = StateName
			e.send(ctx, s.Identity, msgNamePrompt)
		}
	default:
		e.send(ctx, s.Identity, msgSummaryInvalid)
	}
	return nil
}

func (e *Engine) handleInstructions(ctx context.Context, s *Session, msg Inbound) error {
	s.Instructions = msg.Body
	e.showSummary(ctx, s)
	return nil
}

func (e *Engine) handleModify(ctx context.Context, s *Session, msg Inbound) error {
	if msg.Body == "0" {
		e.showSummary(ctx, s)
		return nil
	}
	idx, ok := parseIndex(msg.Body, len(s.Cart))
	if !ok {
		e.send(ctx, s.Identity, msgModifyInvalid)
		return nil
	}
	s.ModifyIndex = idx
	s.State = StateModifyAction
	e.send(ctx, s.Identity, renderModifyAction(s.Cart[idx]))
	return nil
}

func (e *Engine) handleModifyAction(ctx context.Context, s *Session, msg Inbound) error {
	if s.ModifyIndex < 0 || s.ModifyIndex >= len(s.Cart) {
		// The stored index no longer matches the cart: recover to the
		// summary instead of crashing.
		log.Printf("stale modify index %d for %s", s.ModifyIndex, s.Identity)
		s.ModifyIndex = -1
		e.showSummary(ctx, s)
		return nil
	}
	switch msg.Body {
	case "0":
		s.ModifyIndex = -1
		e.showSummary(ctx, s)
	case "1":
		s.State = StateModifyQuantity
		e.send(ctx, s.Identity, renderModifyQuantityPrompt(s.Cart[s.ModifyIndex].Name))
	case "2":
		s.Cart = append(s.Cart[:s.ModifyIndex], s.Cart[s.ModifyIndex+1:]...)
		s.ModifyIndex = -1
		e.showSummary(ctx, s)
	default:
		e.send(ctx, s.Identity, msgModifyInvalid)
	}
	return nil
}

func (e *Engine) handleModifyQuantity(ctx context.Context, s *Session, msg Inbound) error {
	qty, ok := parseQuantity(msg.Body)
	if !ok {
		e.send(ctx, s.Identity, msgQtyInvalid)
		return nil
	}
	if s.ModifyIndex < 0 || s.ModifyIndex >= len(s.Cart) {
		log.Printf("stale modify index %d for %s", s.ModifyIndex, s.Identity)
		s.ModifyIndex = -1
		e.showSummary(ctx, s)
		return nil
	}
	s.Cart[s.ModifyIndex].Qty = qty
	s.ModifyIndex = -1
	e.showSummary(ctx, s)
	return nil
}

func (e *Engine) handleName(ctx context.Context, s *Session, msg Inbound) error {
	s.CustomerName = msg.Body
	s.State = StateAddress
	e.send(ctx, s.Identity, renderAddressPrompt(s.CustomerName))
	return nil
}

func (e *Engine) handleAddress(ctx context.Context, s *Session, msg Inbound) error {
	s.Address = msg.Body
	s.State = StatePaymentMethod
	e.send(ctx, s.Identity, msgPaymentPrompt)
	return nil
}

func (e *Engine) handlePaymentMethod(ctx context.Context, s *Session, msg Inbound) error {
	switch msg.Body {
	case "1":
		s.PaymentMethod = models.PaymentCash
		s.State = StateCashAmount
		e.send(ctx, s.Identity, msgCashPrompt)
	case "2":
		s.PaymentMethod = models.PaymentNequi
		s.State = StateWalletNumber
		e.send(ctx, s.Identity, renderWalletIntro(e.cfg.PayNumber))
	case "3":
		s.PaymentMethod = models.PaymentDaviplata
		s.CashTendered = 0
		s.ChangeDue = 0
		return e.finalizeOrder(ctx, s)
	default:
		e.send(ctx, s.Identity, msgPaymentInvalid)
	}
	return nil
}

func (e *Engine) handleCashAmount(ctx context.Context, s *Session, msg Inbound) error {
	_, total := services.CartSummary(s.Cart)
	paid, err := strconv.ParseInt(digitsOnly(msg.Body), 10, 64)
	if err != nil || paid < total {
		e.send(ctx, s.Identity, renderCashTooLow(total))
		return nil
	}
	s.CashTendered = paid
	s.ChangeDue = paid - total
	return e.finalizeOrder(ctx, s)
}

func (e *Engine) handleWalletNumber(ctx context.Context, s *Session, msg Inbound) error {
	if !walletNumberPattern.MatchString(msg.Body) {
		s.WalletAttempts++
		if s.WalletAttempts >= 3 {
			e.send(ctx, s.Identity, msgWalletRestart)
			s.State = StateNone
			return nil
		}
		e.send(ctx, s.Identity, renderWalletRetry(3-s.WalletAttempts))
		return nil
	}
	s.WalletNumber = msg.Body
	s.State = StateAwaitingProof
	e.send(ctx, s.Identity, msgProofPrompt)
	e.afterDelay(e.cfg.ProofReminder, s.Identity, s.Seq, StateAwaitingProof, func(ctx context.Context, cur *Session) {
		e.send(ctx, cur.Identity, msgProofReminder)
	})
	return nil
}

func (e *Engine) handleAwaitingProof(ctx context.Context, s *Session, msg Inbound) error {
	if msg.Media == nil {
		e.send(ctx, s.Identity, msgProofNotImage)
		return nil
	}
	data, err := msg.Media(ctx)
	if err != nil || len(data) == 0 {
		log.Printf("proof download from %s: %v", s.Identity, err)
		e.send(ctx, s.Identity, msgProofDownloadFail)
		return nil
	}

	lines, total := services.CartSummary(s.Cart)
	id, err := e.verifications.Create(ctx, &models.VerificationRecord{
		CustomerID:    s.Identity,
		CustomerName:  s.CustomerName,
		OrderItems:    strings.Join(lines, ", "),
		Amount:        total,
		PaymentMethod: models.PaymentNequi,
	})
	if err != nil {
		return fmt.Errorf("log verification: %w", err)
	}
	s.VerificationID = id
	s.State = StatePendingVerification

	e.send(ctx, s.Identity, msgProofReceived)
	if e.cfg.AdminID != "" {
		if err := e.chat.SendImage(ctx, e.cfg.AdminID, data, renderVerificationCaption(s, total, lines)); err != nil {
			log.Printf("proof forward: %v", err)
		}
		e.notifyAdmin(ctx, renderVerificationOptions(id))
	}

	e.afterDelay(e.cfg.PendingNotice, s.Identity, s.Seq, StatePendingVerification, func(ctx context.Context, cur *Session) {
		pending, err := e.verifications.IsPending(ctx, cur.VerificationID)
		if err != nil {
			log.Printf("pending check %s: %v", cur.VerificationID, err)
			return
		}
		if pending {
			e.send(ctx, cur.Identity, msgVerifySlow)
		}
	})
	return nil
}

func (e *Engine) handlePendingVerification(ctx context.Context, s *Session, msg Inbound) error {
	e.send(ctx, s.Identity, msgVerifying)
	return nil
}

func (e *Engine) handlePaymentDenied(ctx context.Context, s *Session, msg Inbound) error {
	switch msg.Body {
	case "1":
		s.State = StateAwaitingProof
		e.send(ctx, s.Identity, msgResendProof)
		e.afterDelay(e.cfg.ProofReminder, s.Identity, s.Seq, StateAwaitingProof, func(ctx context.Context, cur *Session) {
			e.send(ctx, cur.Identity, msgProofReminder)
		})
	case "2":
		e.send(ctx, s.Identity, msgBackToMenu)
		s.State = StateNone
	case "3":
		s.State = StateAgentHandoff
		e.send(ctx, s.Identity, msgAgentIntro)
		e.notifyAdmin(ctx, "🙋 Cliente "+s.Identity+" solicita hablar con un agente.")
	default:
		e.send(ctx, s.Identity, msgDeniedInvalid)
	}
	return nil
}

func (e *Engine) handleAgentHandoff(ctx context.Context, s *Session, msg Inbound) error {
	e.send(ctx, s.Identity, msgAgentWait)
	return nil
}
