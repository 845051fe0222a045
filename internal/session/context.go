package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"control-acceso/internal/auth"
	"control-acceso/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"gorm.io/gorm"
)

// Flash is a one-shot notice shown on the next rendered page.
type Flash struct {
	Error   bool    `json:"error,omitempty"`
	Message string  `json:"message"`
	Details []Field `json:"details,omitempty"`
}

type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Context is the session of a single request. It is not safe for concurrent
// use; handlers own it for the lifetime of the request.
type Context struct {
	store *Store
	w     http.ResponseWriter
	r     *http.Request

	cookie  *sessions.Session
	loaded  bool
	current *models.Session
	claims  *auth.Claims
}

func (c *Context) cookieSession() *sessions.Session {
	if c.cookie == nil {
		// A cookie that no longer decodes (rotated secret, tampering) yields a
		// fresh session together with the error; the fresh one is what we want.
		c.cookie, _ = c.store.cookies.Get(c.r, c.store.name)
	}
	return c.cookie
}

func (c *Context) save() error {
	if err := c.cookieSession().Save(c.r, c.w); err != nil {
		return fmt.Errorf("save session cookie: %w", err)
	}
	return nil
}

func (c *Context) record() (*models.Session, error) {
	if c.loaded {
		if c.current == nil {
			return nil, ErrNoSession
		}
		return c.current, nil
	}
	c.loaded = true

	sid, _ := c.cookieSession().Values[keySessionID].(string)
	if sid == "" {
		return nil, ErrNoSession
	}

	var rec models.Session
	err := c.store.db.WithContext(c.r.Context()).
		Where("id = ? AND expires_at > ?", sid, time.Now()).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		c.loaded = false
		return nil, fmt.Errorf("load session: %w", err)
	}
	c.current = &rec
	return c.current, nil
}

// ID returns the current session id, or "" when signed out.
func (c *Context) ID() string {
	rec, err := c.record()
	if err != nil {
		return ""
	}
	return rec.ID
}

// Get returns the stored {token, role} pair.
func (c *Context) Get() (*auth.Session, bool) {
	rec, err := c.record()
	if err != nil {
		return nil, false
	}
	return &auth.Session{Token: rec.Token, Role: auth.Role(rec.RoleName)}, true
}

// Set stores a new {token, role} pair, replacing any previous one.
func (c *Context) Set(token string, role auth.Role) error {
	if prev, _ := c.cookieSession().Values[keySessionID].(string); prev != "" {
		if err := c.store.db.WithContext(c.r.Context()).Delete(&models.Session{}, "id = ?", prev).Error; err != nil {
			return fmt.Errorf("drop previous session: %w", err)
		}
	}

	rec := models.Session{
		ID:        uuid.NewString(),
		Token:     token,
		RoleName:  string(role),
		ExpiresAt: time.Now().Add(c.store.ttl),
	}
	if err := c.store.db.WithContext(c.r.Context()).Create(&rec).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	c.cookieSession().Values[keySessionID] = rec.ID
	c.current, c.loaded, c.claims = &rec, true, nil
	return c.save()
}

// Clear ends the session. It is the only way a session is reset: logout,
// a 401 from the backend and an undecodable token all go through here.
func (c *Context) Clear() error {
	cookie := c.cookieSession()
	if sid, _ := cookie.Values[keySessionID].(string); sid != "" {
		if err := c.store.db.WithContext(c.r.Context()).Delete(&models.Session{}, "id = ?", sid).Error; err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	delete(cookie.Values, keySessionID)
	c.current, c.loaded, c.claims = nil, true, nil
	return c.save()
}

// Claims decodes the stored token. A missing session reports
// auth.ErrMissingToken so callers handle both cases the same way.
func (c *Context) Claims() (*auth.Claims, error) {
	if c.claims != nil {
		return c.claims, nil
	}
	sess, ok := c.Get()
	if !ok {
		return nil, auth.ErrMissingToken
	}
	claims, err := auth.DecodeToken(sess.Token)
	if err != nil {
		return nil, err
	}
	c.claims = claims
	return claims, nil
}

// LoginKey identifies this browser for the failed-login counter. It outlives
// sign-outs so the counter cannot be reset by logging out.
func (c *Context) LoginKey() (string, error) {
	cookie := c.cookieSession()
	if key, _ := cookie.Values[keyLoginKey].(string); key != "" {
		return key, nil
	}
	key := uuid.NewString()
	cookie.Values[keyLoginKey] = key
	if err := c.save(); err != nil {
		return "", err
	}
	return key, nil
}

func (c *Context) AddFlash(f Flash) error {
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode flash: %w", err)
	}
	c.cookieSession().AddFlash(string(b))
	return c.save()
}

// Flashes pops every pending flash.
func (c *Context) Flashes() []Flash {
	raw := c.cookieSession().Flashes()
	if len(raw) == 0 {
		return nil
	}
	out := make([]Flash, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var f Flash
		if err := json.Unmarshal([]byte(s), &f); err == nil {
			out = append(out, f)
		}
	}
	_ = c.save()
	return out
}
