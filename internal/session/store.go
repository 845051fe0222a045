// Package session keeps the {token, role} pair of a signed-in browser.
//
// The pair lives in a database row; the browser only holds a signed and
// encrypted cookie naming that row. Handlers never touch the cookie or the
// table directly: they get a *Context for the current request and use Set,
// Get and Clear.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"control-acceso/internal/config"
	"control-acceso/internal/models"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/argon2"
	"gorm.io/gorm"
)

var ErrNoSession = errors.New("no session")

const (
	keySessionID = "sid"
	keyLoginKey  = "lk"
)

type Store struct {
	db      *gorm.DB
	cookies *sessions.CookieStore
	name    string
	ttl     time.Duration
}

// NewStore derives the cookie signing and encryption keys from the
// configured secret.
func NewStore(db *gorm.DB, cfg *config.Config) (*Store, error) {
	ttl, err := cfg.SessionTTL()
	if err != nil {
		return nil, err
	}
	if cfg.Session.Secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}

	hashKey, blockKey := deriveKeys(cfg.Session.Secret)
	cookies := sessions.NewCookieStore(hashKey, blockKey)
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}

	return &Store{
		db:      db,
		cookies: cookies,
		name:    cfg.Session.CookieName,
		ttl:     ttl,
	}, nil
}

func deriveKeys(secret string) (hashKey, blockKey []byte) {
	key := argon2.IDKey([]byte(secret), []byte("control-acceso/session-cookie"), 1, 19*1024, 1, 96)
	return key[:64], key[64:]
}

// Context binds the store to one request.
func (s *Store) Context(w http.ResponseWriter, r *http.Request) *Context {
	return &Context{store: s, w: w, r: r}
}

// DeleteExpired removes expired sessions and stale login attempt counters.
func (s *Store) DeleteExpired(ctx context.Context) error {
	now := time.Now()
	if err := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	if err := s.db.WithContext(ctx).Where("updated_at < ?", now.Add(-s.ttl)).Delete(&models.LoginAttempt{}).Error; err != nil {
		return fmt.Errorf("delete stale login attempts: %w", err)
	}
	return nil
}

// Sweep calls DeleteExpired every interval until ctx is done.
func (s *Store) Sweep(ctx context.Context, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.DeleteExpired(ctx); err != nil {
				logger.Warn("session sweep failed", "error", err)
			}
		}
	}
}
