package engine

import (
	"errors"
	"strconv"
	"strings"

	"github.com/vkart/vkart-bot/internal/messages"
)

var (
	ErrAmountNotANumber = errors.New("amount is not a number")
	ErrAmountTooSmall   = errors.New("amount below minimum")
	ErrAmountTooLarge   = errors.New("amount above maximum")
)

// ParseAmount turns lenient human input into a card balance. Everything but
// digits and decimal separators is stripped and both '.' and ',' are accepted
// as the separator.
func ParseAmount(text string) (float64, error) {
	var sb strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			sb.WriteRune(r)
		}
	}
	clean := strings.Replace(sb.String(), ",", ".", 1)
	amount, err := strconv.ParseFloat(clean, 64)
	if err != nil || amount <= 0 {
		return 0, ErrAmountNotANumber
	}
	if amount < messages.MinCardBalance {
		return 0, ErrAmountTooSmall
	}
	if amount > messages.MaxCardBalance {
		return 0, ErrAmountTooLarge
	}
	return amount, nil
}

const (
	trxAddressPrefix = "T"
	trxAddressMinLen = 30
)

// ValidTRXAddress is a shallow shape check; the payout itself is verified by
// a human before any money moves.
func ValidTRXAddress(address string) bool {
	address = strings.TrimSpace(address)
	return strings.HasPrefix(address, trxAddressPrefix) && len(address) >= trxAddressMinLen
}
