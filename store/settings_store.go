package store

import (
	"sync"

	"github.com/vkart/vkart-bot/types"
)

// SettingsStore holds the operator settings in process. The admin API can
// mutate them at runtime; readers always see a consistent snapshot.
type SettingsStore struct {
	mu       sync.RWMutex
	settings types.Settings
}

func NewSettingsStore(initial types.Settings) *SettingsStore {
	return &SettingsStore{settings: initial}
}

func (s *SettingsStore) PayoutWalletAddress() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.TRXWalletAddress
}

func (s *SettingsStore) CardUnitPrice() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.CardPrice
}

func (s *SettingsStore) Snapshot() types.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *SettingsStore) Update(update types.SettingsUpdate) types.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if update.TRXWalletAddress != nil && *update.TRXWalletAddress != "" {
		s.settings.TRXWalletAddress = *update.TRXWalletAddress
	}
	if update.CardPrice != nil && *update.CardPrice > 0 {
		s.settings.CardPrice = *update.CardPrice
	}
	return s.settings
}
