package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/launchkit/launchkit/internal/config"
	"github.com/launchkit/launchkit/internal/payment"
	"github.com/launchkit/launchkit/internal/repository"
)

// settingActiveProvider is the settings key holding the provider choice,
// so a switch survives restarts.
const settingActiveProvider = "payment.active_provider"

// Manager owns provider instances and the active-provider selection.
// Adapters are built lazily, cached per name, and swapped atomically on
// switch. A failed switch leaves the previous provider serving.
type Manager struct {
	cfg      *config.Config
	deps     payment.Deps
	settings repository.SettingRepository

	mu        sync.RWMutex
	active    string
	providers map[string]payment.Provider
}

// NewManager builds the initial active provider eagerly so configuration
// errors surface at startup, not on the first request.
func NewManager(cfg *config.Config, deps payment.Deps, settings repository.SettingRepository) (*Manager, error) {
	m := &Manager{
		cfg:       cfg,
		deps:      deps,
		settings:  settings,
		providers: make(map[string]payment.Provider),
	}

	name := cfg.PaymentProvider
	if stored, err := settings.Get(settingActiveProvider); err == nil && stored != "" {
		name = stored
	} else if err != nil && !errors.Is(err, repository.ErrSettingNotFound) {
		return nil, fmt.Errorf("failed to load active provider setting: %w", err)
	}

	p, err := payment.New(name, cfg, deps)
	if err != nil {
		return nil, err
	}

	m.active = name
	m.providers[name] = p
	slog.Info("payment manager ready", "active_provider", name)
	return m, nil
}

// Active returns the current provider. Callers must not cache it across
// requests; a switch may replace it.
func (m *Manager) Active() payment.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.providers[m.active]
}

func (m *Manager) ActiveName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Provider returns the adapter for name, building and caching it on first
// use. Webhook routes use this so every configured vendor can deliver
// events regardless of which provider is active for checkout.
func (m *Manager) Provider(name string) (payment.Provider, error) {
	m.mu.RLock()
	p, ok := m.providers[name]
	m.mu.RUnlock()
	if ok {
		return p, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.providers[name]; ok {
		return p, nil
	}

	p, err := payment.New(name, m.cfg, m.deps)
	if err != nil {
		return nil, err
	}
	m.providers[name] = p
	return p, nil
}

// SwitchProvider makes name the active provider. The new adapter is built
// and the choice persisted before the swap; switching to the already
// active provider is a no-op.
func (m *Manager) SwitchProvider(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name == m.active {
		return nil
	}

	p, ok := m.providers[name]
	if !ok {
		built, err := payment.New(name, m.cfg, m.deps)
		if err != nil {
			return err
		}
		p = built
		m.providers[name] = p
	}

	if err := m.settings.Set(settingActiveProvider, name); err != nil {
		return fmt.Errorf("failed to persist provider switch: %w", err)
	}

	previous := m.active
	m.active = name
	slog.Info("payment provider switched", "from", previous, "to", name)
	return nil
}
