package settings

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Store persists the settings record as an opaque string under a key.
type Store interface {
	GetValue(ctx context.Context, key string) (string, bool, error)
	SetValue(ctx context.Context, key, value string) error
}

// Hook is called with the new settings after every successful update.
type Hook func(Settings)

// Service owns the in-memory settings value and keeps it in sync with the
// store. Reads return copies; writes go through Update.
type Service struct {
	store  Store
	logger *slog.Logger

	mu      sync.Mutex
	current Settings
	hooks   []Hook
}

// NewService creates a Service holding Default() until Load is called.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		logger:  logger,
		current: Default(),
	}
}

// Load reads the stored record and merges it over defaults. On failure the
// previous in-memory value is kept and the error is returned.
func (s *Service) Load(ctx context.Context) (Settings, error) {
	raw, ok, err := s.store.GetValue(ctx, Key)
	if err != nil {
		s.logger.Warn("settings load failed, keeping current values", "err", err)
		return s.Current(), fmt.Errorf("load settings: %w", err)
	}

	loaded := Default()
	if ok {
		loaded, err = Decode([]byte(raw))
		if err != nil {
			s.logger.Warn("stored settings unreadable, keeping current values", "err", err)
			return s.Current(), err
		}
	}

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()

	return loaded.Clone(), nil
}

// Current returns a copy of the settings in effect.
func (s *Service) Current() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// OnChange registers a hook run after each successful update.
func (s *Service) OnChange(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// Update applies fn to a copy of the current settings, persists the result,
// and only then makes it current. If fn or the write fails, the in-memory
// value is left untouched.
func (s *Service) Update(ctx context.Context, fn func(Settings) (Settings, error)) (Settings, error) {
	s.mu.Lock()
	next, err := fn(s.current.Clone())
	if err != nil {
		s.mu.Unlock()
		return s.Current(), err
	}

	data, err := Encode(next)
	if err == nil {
		err = s.store.SetValue(ctx, Key, string(data))
	}
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("settings write failed, keeping previous values", "err", err)
		return s.Current(), fmt.Errorf("save settings: %w", err)
	}

	s.current = next
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.Unlock()

	s.logger.Debug("settings saved", "rules", len(next.Sorting))
	for _, h := range hooks {
		h(next.Clone())
	}
	return next.Clone(), nil
}

// Replace stores s wholesale.
func (s *Service) Replace(ctx context.Context, next Settings) (Settings, error) {
	return s.Update(ctx, func(Settings) (Settings, error) {
		if len(next.Sorting) == 0 {
			next.Sorting = DefaultRules()
		} else {
			next.Sorting = normalizeRules(next.Sorting)
		}
		return next, nil
	})
}

// MoveRule moves the rule for attr one step up or down.
func (s *Service) MoveRule(ctx context.Context, attr string, down bool) (Settings, error) {
	return s.Update(ctx, func(cur Settings) (Settings, error) {
		i := cur.Index(attr)
		if i < 0 {
			return cur, fmt.Errorf("%w: sort rule %q", ErrUnknown, attr)
		}
		if down {
			return cur.MoveDown(i), nil
		}
		return cur.MoveUp(i), nil
	})
}

// SetRuleAsc sets the direction flag of the rule for attr.
func (s *Service) SetRuleAsc(ctx context.Context, attr string, asc bool) (Settings, error) {
	return s.Update(ctx, func(cur Settings) (Settings, error) {
		i := cur.Index(attr)
		if i < 0 {
			return cur, fmt.Errorf("%w: sort rule %q", ErrUnknown, attr)
		}
		return cur.SetAsc(i, asc), nil
	})
}

// SetMenu records the active popup menu.
func (s *Service) SetMenu(ctx context.Context, menu int) (Settings, error) {
	return s.Update(ctx, func(cur Settings) (Settings, error) {
		return cur.SetMenu(menu), nil
	})
}

// SetFlag sets one boolean setting.
func (s *Service) SetFlag(ctx context.Context, name string, value bool) (Settings, error) {
	return s.Update(ctx, func(cur Settings) (Settings, error) {
		return cur.SetFlag(name, value)
	})
}
