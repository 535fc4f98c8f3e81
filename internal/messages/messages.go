package messages

import (
	"fmt"
	"strings"

	"github.com/vkart/vkart-bot/types"
)

const ParseModeMarkdown = "Markdown"

const (
	MinCardBalance float64 = 500
	MaxCardBalance float64 = 50000
	ServiceFeeRate float64 = 0.20
)

func Welcome(firstName string) string {
	return fmt.Sprintf(`🤖 *Welcome to the Virtual Card Shop!*

Hello %s!

With this bot you can:
💳 Buy virtual prepaid cards
🔄 Redeem a card's remaining balance
📋 View your cards

Please choose what you want to do:`, firstName)
}

const (
	BtnBuyCard    = "💳 Buy Virtual Card"
	BtnRedeemCard = "🔄 Redeem Card"
	BtnMyCards    = "📋 My Cards"
	BtnHelp       = "❓ Help"
	BtnPaymentOK  = "✅ I Paid"
	BtnCancel     = "❌ Cancel"
)

func BuyPrompt() string {
	return fmt.Sprintf(`💳 *Buy Virtual Card*

Enter the balance you want on the card, in TL:

Example: 500

💡 Note: a %.0f%% service fee is added on top.

📝 Minimum: %.0f TL, Maximum: %.0f TL`, ServiceFeeRate*100, MinCardBalance, MaxCardBalance)
}

func AmountNotANumber() string {
	return "❌ That is not a valid balance. Please enter a number only:\n\nExample: 500"
}

func AmountTooSmall() string {
	return fmt.Sprintf("❌ The minimum card balance is %.0f TL. Please enter it again:\n\nExample: 500", MinCardBalance)
}

func AmountTooLarge() string {
	return fmt.Sprintf("❌ The maximum card balance is %.0f TL. Please enter it again:", MaxCardBalance)
}

func PaymentInstructions(cardBalance, serviceFee, totalAmount float64, walletAddress string) string {
	return fmt.Sprintf(`💳 *Buy Virtual Card*

Requested card balance: *%.2f TL*
Service fee (%.0f%%): *%.2f TL*
Total to pay: *%.2f TRX*

Payment address: `+"`%s`"+`

After paying, tap the "I Paid" button.`,
		cardBalance, ServiceFeeRate*100, serviceFee, totalAmount, walletAddress)
}

func PaymentRequestCreated(requestID string) string {
	return fmt.Sprintf(`✅ *Your payment request has been received!*

Once it is reviewed, your virtual card will be sent to you.
Request ID: `+"`%s`"+`

⏱️ Processing time: 1-24 hours`, requestID)
}

func PaymentCancelled() string {
	return "❌ The payment was cancelled."
}

func PaymentFlowBroken() string {
	return "❌ Something went wrong. Please start the card purchase again."
}

func UserNotResolved() string {
	return "❌ Your account details could not be found. Please send /start and try again."
}

func RequestCreateFailed() string {
	return "❌ Your request could not be created right now. Please try again later."
}

func NoCards() string {
	return "❌ You do not have any virtual cards yet."
}

func NoRedeemableCards() string {
	return "❌ You have no cards eligible for redemption."
}

func ChooseCardToRedeem() string {
	return "🔄 Choose the card you want to redeem:"
}

func CardOption(card *types.Card) string {
	return fmt.Sprintf("💳 %s - Balance: %.2f TL", card.LastFour(), card.Balance)
}

func AskTRXAddress() string {
	return "💼 Enter your TRX wallet address:"
}

func InvalidTRXAddress() string {
	return "❌ That is not a valid TRX wallet address. Please enter a valid TRX address:"
}

func CardNotFound() string {
	return "❌ The card could not be found. Please pick a card again."
}

func RedemptionRequestCreated(requestID string) string {
	return fmt.Sprintf(`✅ *Your redemption request has been received!*

Once it is reviewed, the payout will be sent to your TRX address.
Request ID: `+"`%s`", requestID)
}

func MyCards(cards []types.Card) string {
	var sb strings.Builder
	sb.WriteString("💳 *Your cards:*\n\n")
	for i, card := range cards {
		status := "✅ Active"
		if card.IsUsed {
			status = "❌ Used"
		}
		masked := card.CardNumber
		if len(masked) >= 8 {
			masked = masked[:4] + "..." + card.LastFour()
		}
		sb.WriteString(fmt.Sprintf("*%d.* Card: `%s`\n", i+1, masked))
		sb.WriteString(fmt.Sprintf("   CVV: `%s`\n", card.CVV))
		sb.WriteString(fmt.Sprintf("   Balance: `%.2f TL`\n", card.Balance))
		sb.WriteString(fmt.Sprintf("   Expires: `%s`\n", card.ExpiryDate))
		sb.WriteString(fmt.Sprintf("   Status: %s\n\n", status))
	}
	return sb.String()
}

func Help() string {
	return fmt.Sprintf(`🔍 *Help & FAQ*

*What is a virtual card?*
Virtual cards let you shop online without a physical card.

*How do I buy one?*
Tap "Buy Virtual Card" in the main menu, enter the balance you want, make the payment and confirm.

*What is redemption?*
You can get a card's remaining balance paid back to you in TRX.

*Minimum amount:* %.0f TL
*Maximum amount:* %.0f TL

Contact us if you have more questions.`, MinCardBalance, MaxCardBalance)
}

func Fallback() string {
	return "Hello! Please pick an option from the menu or use the /start command."
}

// --- fulfillment notices ---

func CardReady() string {
	return "✅ Your payment has been approved! Your virtual card is ready.\n\nUse the /mycards command to see your card details."
}

func PaymentRejected() string {
	return `❌ *Payment Request Rejected*

Your payment request was rejected. Please make sure you paid the exact amount, or contact support.`
}

func RedemptionCompleted(amount float64) string {
	return fmt.Sprintf(`✅ *Card Redemption Completed*

Your redemption of %.2f TL is done. The TRX payout has been sent to your wallet address.

Thank you!`, amount)
}

func RedemptionRejected() string {
	return `❌ *Card Redemption Rejected*

Your redemption request was rejected. Please check your card details or contact support.`
}

func BalanceUpdated(lastFour string, oldBalance, newBalance float64) string {
	return fmt.Sprintf(`💳 *Card Balance Updated*

The balance of your card ending in %s changed:
Old balance: *%.2f TL*
New balance: *%.2f TL*`, lastFour, oldBalance, newBalance)
}
