package persistentlogin

import (
	"context"
	"time"

	"github.com/tech-arch1tect/persistentlogin/config"
	"github.com/tech-arch1tect/persistentlogin/services/logging"
	"go.uber.org/zap"
)

// Manager owns the token lifecycle. It is the only component that talks to
// the Store and keeps no per-request state, so one Manager serves all
// requests concurrently.
type Manager struct {
	store     Store
	config    config.PersistentLoginConfig
	generator Generator
	clock     Clock
	logger    *logging.Service
}

func NewManager(store Store, cfg config.PersistentLoginConfig, generator Generator, clock Clock, logger *logging.Service) *Manager {
	if clock == nil {
		clock = SystemClock
	}

	logger.Info("initializing persistent login manager",
		zap.Int("lifetime_days", cfg.Lifetime),
		zap.Int("max_tokens", cfg.MaxTokens))

	return &Manager{
		store:     store,
		config:    cfg,
		generator: generator,
		clock:     clock,
		logger:    logger,
	}
}

func (m *Manager) now() time.Time {
	return m.clock.Now().UTC().Truncate(time.Second)
}

func (m *Manager) expiry(now time.Time) time.Time {
	if m.config.Lifetime == 0 {
		return MaxExpiry
	}
	expires := now.AddDate(0, 0, m.config.Lifetime)
	if expires.After(MaxExpiry) {
		return MaxExpiry
	}
	return expires
}

// Validate looks the token up. A hit returns a copy carrying the stored user
// and timestamps; a miss or a storage failure returns the token invalidated.
func (m *Manager) Validate(ctx context.Context, token Token) Token {
	record, err := m.store.FindActive(ctx, token.series, token.instance, m.now())
	if err != nil {
		m.logger.Error("persistent login validation failed, treating token as invalid",
			zap.Error(err))
		return token.Invalidated()
	}

	if record == nil {
		m.logger.Debug("persistent login token not found or expired")
		return token.Invalidated()
	}

	m.logger.Debug("persistent login token validated", zap.Int64("user_id", record.UserID))

	return token.
		WithUserID(record.UserID).
		WithCreated(time.Unix(record.Created, 0).UTC()).
		WithRefreshed(time.Unix(record.Refreshed, 0).UTC()).
		WithExpiry(time.Unix(record.Expires, 0).UTC())
}

func (m *Manager) CreateForUser(ctx context.Context, userID int64) (Token, error) {
	series, err := m.generator.Generate()
	if err != nil {
		return Token{}, &TokenError{Op: "create", Err: err}
	}
	instance, err := m.generator.Generate()
	if err != nil {
		return Token{}, &TokenError{Op: "create", Err: err}
	}

	now := m.now()
	token := NewToken(series, instance).
		WithUserID(userID).
		WithCreated(now).
		WithRefreshed(now).
		WithExpiry(m.expiry(now))

	if err := m.store.Insert(ctx, recordFromToken(token)); err != nil {
		m.logger.Error("failed to store persistent login token",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return Token{}, &TokenError{Op: "create", Err: err}
	}

	m.logger.Info("persistent login token created",
		zap.Int64("user_id", userID),
		zap.Time("expires_at", token.expires))

	if m.config.MaxTokens > 0 {
		m.evictBeyondLimit(ctx, userID)
	}

	return token, nil
}

// evictBeyondLimit is best effort; failures only get logged.
func (m *Manager) evictBeyondLimit(ctx context.Context, userID int64) {
	boundary, err := m.store.FindOldestBeyondLimit(ctx, userID, m.config.MaxTokens)
	if err != nil {
		m.logger.Error("unable to delete extra persistent login tokens",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return
	}
	if boundary == nil {
		return
	}

	removed, err := m.store.DeleteOlderOrEqual(ctx, userID, boundary.Created, boundary.Expires)
	if err != nil {
		m.logger.Error("unable to delete extra persistent login tokens",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return
	}

	m.logger.Debug("evicted persistent login tokens beyond limit",
		zap.Int64("user_id", userID),
		zap.Int("max_tokens", m.config.MaxTokens),
		zap.Int64("tokens_removed", removed))
}

// Update rotates the instance value. The rotated token is returned even when
// no stored row matched: a concurrent request already rotated it, and the
// orphaned value will simply fail its next validation.
func (m *Manager) Update(ctx context.Context, token Token) (Token, error) {
	instance, err := m.generator.Generate()
	if err != nil {
		return token, &TokenError{Op: "update", Err: err}
	}

	rotated := token.WithRotatedInstance(instance, m.now())

	matched, err := m.store.UpdateInstance(ctx, token.series, token.instance, rotated.instance, rotated.refreshed)
	if err != nil {
		m.logger.Error("failed to rotate persistent login token",
			zap.Int64("user_id", token.userID),
			zap.Error(err))
		return token, &TokenError{Op: "update", Err: err}
	}

	if !matched {
		m.logger.Debug("persistent login rotation matched no token, instance already replaced",
			zap.Int64("user_id", token.userID))
	}

	return rotated, nil
}

// Delete removes the stored row and returns the token invalidated, even when
// the store reports an error. With RevokeLineageOnReuse the whole series is
// removed, so a stale instance also takes out the rotated one.
func (m *Manager) Delete(ctx context.Context, token Token) (Token, error) {
	invalid := token.Invalidated()

	var err error
	if m.config.RevokeLineageOnReuse {
		var removed int64
		removed, err = m.store.DeleteSeries(ctx, token.series)
		if err == nil && removed > 0 {
			m.logger.Warn("persistent login series revoked",
				zap.Int64("tokens_removed", removed))
		}
	} else {
		err = m.store.Delete(ctx, token.series, token.instance)
	}

	if err != nil {
		m.logger.Error("failed to delete persistent login token", zap.Error(err))
		return invalid, &TokenError{Op: "delete", Err: err}
	}

	return invalid, nil
}

func (m *Manager) CleanupExpired(ctx context.Context) {
	removed, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		m.logger.Error("an error occurred while removing expired persistent login tokens", zap.Error(err))
		return
	}

	if removed > 0 {
		m.logger.Info("expired persistent login tokens cleaned up", zap.Int64("tokens_removed", removed))
	} else {
		m.logger.Debug("no expired persistent login tokens found to cleanup")
	}
}

// TokensForUser lists the user's live tokens, oldest first. Storage failures
// yield an empty list.
func (m *Manager) TokensForUser(ctx context.Context, userID int64) []Token {
	records, err := m.store.FindByUser(ctx, userID, m.now())
	if err != nil {
		m.logger.Error("unable to list persistent login tokens",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return []Token{}
	}

	tokens := make([]Token, 0, len(records))
	for i := range records {
		tokens = append(tokens, tokenFromRecord(&records[i]))
	}
	return tokens
}

// DeleteAllForUser revokes every lineage of a user, e.g. after a password
// change.
func (m *Manager) DeleteAllForUser(ctx context.Context, userID int64) error {
	removed, err := m.store.DeleteByUser(ctx, userID)
	if err != nil {
		m.logger.Error("failed to revoke persistent login tokens",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return &TokenError{Op: "delete", Err: err}
	}

	m.logger.Info("persistent login tokens revoked",
		zap.Int64("user_id", userID),
		zap.Int64("tokens_removed", removed))
	return nil
}

func (m *Manager) Config() config.PersistentLoginConfig {
	return m.config
}
