package dialog

// State is the closed set of conversation states. StateNone means no
// active session: the next inbound message starts a fresh conversation.
type State int

const (
	StateNone State = iota
	StateMainMenu
	StateStatusQuery
	StateMenu
	StateQuantity
	StateAddMore
	StateOfferDrinks
	StateDrinks
	StateDrinkQuantity
	StateAddDrink
	StateSummary
	StateInstructions
	StateModify
	StateModifyAction
	StateModifyQuantity
	StateName
	StateAddress
	StatePaymentMethod
	StateCashAmount
	StateWalletNumber
	StateAwaitingProof
	StatePendingVerification
	StatePaymentDenied
	StateAgentHandoff
)

var stateNames = map[State]string{
	StateNone:                "none",
	StateMainMenu:            "main_menu",
	StateStatusQuery:         "status_query",
	StateMenu:                "menu",
	StateQuantity:            "quantity",
	StateAddMore:             "add_more",
	StateOfferDrinks:         "offer_drinks",
	StateDrinks:              "drinks",
	StateDrinkQuantity:       "drink_quantity",
	StateAddDrink:            "add_drink",
	StateSummary:             "summary",
	StateInstructions:        "instructions",
	StateModify:              "modify",
	StateModifyAction:        "modify_action",
	StateModifyQuantity:      "modify_quantity",
	StateName:                "name",
	StateAddress:             "address",
	StatePaymentMethod:       "payment_method",
	StateCashAmount:          "cash_amount",
	StateWalletNumber:        "wallet_number",
	StateAwaitingProof:       "awaiting_proof",
	StatePendingVerification: "pending_verification",
	StatePaymentDenied:       "payment_denied",
	StateAgentHandoff:        "agent_handoff",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}
