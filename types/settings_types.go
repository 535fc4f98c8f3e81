package types

// Settings is the read-mostly operator configuration the engine consults
// when rendering payment instructions.
type Settings struct {
	TRXWalletAddress string  `json:"trx_wallet_address"`
	CardPrice        float64 `json:"card_price"`
}

// SettingsUpdate carries only the fields the admin wants to change.
type SettingsUpdate struct {
	TRXWalletAddress *string  `json:"trx_wallet_address,omitempty"`
	CardPrice        *float64 `json:"card_price,omitempty"`
}

type SettingsStore interface {
	PayoutWalletAddress() string
	CardUnitPrice() float64
	Snapshot() Settings
	Update(update SettingsUpdate) Settings
}
