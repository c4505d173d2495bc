package risk

import "sync"

// ProfileStore resolves a user's trading configuration. The production store
// lives outside the engine; implementations here keep it a black box.
type ProfileStore interface {
	Profile(userID string) (Config, error)
}

// StaticProfiles serves per-user configs from memory, falling back to the
// engine defaults for unknown users. Configs are validated at insertion so
// the decision pipeline only ever sees well-formed profiles.
type StaticProfiles struct {
	mu       sync.RWMutex
	profiles map[string]Config
}

// NewStaticProfiles builds a store from the supplied per-user configs.
// Zero-valued fields are defaulted before validation.
func NewStaticProfiles(profiles map[string]Config) (*StaticProfiles, error) {
	store := &StaticProfiles{profiles: make(map[string]Config, len(profiles))}
	for userID, cfg := range profiles {
		cfg = cfg.withDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		store.profiles[userID] = cfg
	}
	return store, nil
}

// Profile returns the user's config or the defaults when none is registered.
func (s *StaticProfiles) Profile(userID string) (Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cfg, ok := s.profiles[userID]; ok {
		return cfg, nil
	}
	return DefaultConfig(), nil
}

// Put registers or replaces a user's config.
func (s *StaticProfiles) Put(userID string, cfg Config) error {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.profiles[userID] = cfg
	s.mu.Unlock()
	return nil
}
