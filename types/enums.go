package types

type ChatState string

const (
	StateMainMenu                   ChatState = "main_menu"
	StateWaitingCardBalance         ChatState = "waiting_card_balance"
	StateWaitingPaymentConfirmation ChatState = "waiting_payment_confirmation"
	StateWaitingCardSelection       ChatState = "waiting_card_selection"
	StateWaitingTRXAddress          ChatState = "waiting_trx_address"
)

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCompleted RequestStatus = "completed"
)

const (
	CallbackBuyCard       string = "buy_card"
	CallbackRedeemCard    string = "redeem_card"
	CallbackMyCards       string = "my_cards"
	CallbackHelp          string = "help"
	CallbackPaymentDone   string = "payment_done"
	CallbackCancelPayment string = "cancel_payment"

	// CallbackSelectCardPrefix is followed by the card id.
	CallbackSelectCardPrefix string = "select_card:"
)

const (
	TransactionTypePurchase   string = "purchase"
	TransactionTypeRedemption string = "redemption"
)
