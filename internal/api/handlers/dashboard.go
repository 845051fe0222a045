package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"control-acceso/internal/api/middleware"
	"control-acceso/internal/auth"
	"control-acceso/internal/dashboard"
	"control-acceso/internal/services"
	"control-acceso/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var errNotSupported = errors.New("operation not supported by resource")

const maxTabLen = 64

// MsgMutationFailed is shown when a write fails without a more specific
// message.
const MsgMutationFailed = "No se pudo completar la operación."

// MsgBadForm is shown when the submitted form cannot be read.
const MsgBadForm = "No se pudo leer el formulario. Intenta de nuevo."

// DashboardHandler serves one role's panel.
type DashboardHandler struct {
	panel   *dashboard.Panel
	tracker *dashboard.Tracker
	logger  *slog.Logger
}

func NewDashboardHandler(panel *dashboard.Panel, tracker *dashboard.Tracker, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		panel:   panel,
		tracker: tracker,
		logger:  logger.With("panel", panel.Role),
	}
}

// viewer decodes the stored token. A session whose token cannot be decoded
// is ended.
func (h *DashboardHandler) viewer(c *gin.Context) (dashboard.Viewer, bool) {
	sc := middleware.CurrentSession(c)
	sess, ok := sc.Get()
	if !ok {
		c.Redirect(http.StatusSeeOther, auth.LoginPath)
		c.Abort()
		return dashboard.Viewer{}, false
	}
	claims, err := sc.Claims()
	if err != nil {
		h.expire(c, err)
		return dashboard.Viewer{}, false
	}
	return dashboard.Viewer{Token: sess.Token, Claims: claims}, true
}

// expire clears the session and sends the browser back to the login page.
func (h *DashboardHandler) expire(c *gin.Context, reason error) {
	h.logger.Info("ending session", "reason", reason)
	if err := middleware.CurrentSession(c).Clear(); err != nil {
		h.logger.Error("failed to clear session", "error", err)
	}
	c.Redirect(http.StatusSeeOther, auth.LoginPath)
	c.Abort()
}

// Show renders the section named by the section query parameter.
func (h *DashboardHandler) Show(c *gin.Context) {
	v, ok := h.viewer(c)
	if !ok {
		return
	}

	// Loads supersede each other only within one browser tab. A tab keeps
	// its id in every link it renders; a first visit gets a new one.
	tab := c.Query("tab")
	if tab == "" || len(tab) > maxTabLen {
		tab = uuid.NewString()
	}
	sc := middleware.CurrentSession(c)
	ctx, ticket := h.tracker.Begin(c.Request.Context(), sc.ID()+h.panel.Path()+"#"+tab)
	defer ticket.Done()

	snap, err := h.panel.Load(ctx, v, c.Query("section"))
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		h.expire(c, err)
		return
	case errors.Is(err, dashboard.ErrSuperseded), err == nil && !ticket.Current():
		h.logger.Debug("dashboard load superseded", "generation", ticket.Generation())
		c.Status(http.StatusNoContent)
		return
	case err != nil:
		h.logger.Debug("dashboard load abandoned", "error", err)
		c.Abort()
		return
	}

	page := h.panel.Render(snap, dashboard.State{
		Search: c.Query("q"),
		View:   c.Query("view"),
		Edit:   c.Query("edit"),
		Tab:    tab,
	})

	render(c, http.StatusOK, "panel.html", gin.H{
		"Page":     page,
		"UserName": v.Claims.Nombre,
	})
}

type mutation func(ctx context.Context, token string, m dashboard.Mutations) (*dashboard.Outcome, error)

func (h *DashboardHandler) Create(c *gin.Context) {
	h.mutate(c, "create", func(ctx context.Context, token string, m dashboard.Mutations) (*dashboard.Outcome, error) {
		if m.Create == nil {
			return nil, errNotSupported
		}
		form, err := postForm(c)
		if err != nil {
			return nil, dashboard.Failed(err, MsgBadForm)
		}
		return m.Create(ctx, token, form)
	})
}

func (h *DashboardHandler) Update(c *gin.Context) {
	key := c.Param("key")
	h.mutate(c, "update", func(ctx context.Context, token string, m dashboard.Mutations) (*dashboard.Outcome, error) {
		if m.Update == nil {
			return nil, errNotSupported
		}
		form, err := postForm(c)
		if err != nil {
			return nil, dashboard.Failed(err, MsgBadForm)
		}
		return m.Update(ctx, token, key, form)
	})
}

func (h *DashboardHandler) Delete(c *gin.Context) {
	key := c.Param("key")
	h.mutate(c, "delete", func(ctx context.Context, token string, m dashboard.Mutations) (*dashboard.Outcome, error) {
		if m.Delete == nil {
			return nil, errNotSupported
		}
		return m.Delete(ctx, token, key)
	})
}

func postForm(c *gin.Context) (url.Values, error) {
	if err := c.Request.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}
	return c.Request.PostForm, nil
}

// mutate runs a write against the resource named in the path and redirects
// back to the section it came from. The result is shown once as a flash.
func (h *DashboardHandler) mutate(c *gin.Context, action string, run mutation) {
	v, ok := h.viewer(c)
	if !ok {
		return
	}

	resource := c.Param("resource")
	src, ok := h.panel.Source(resource)
	if !ok {
		NotFound(c)
		return
	}

	outcome, err := run(c.Request.Context(), v.Token, src.Mutations())
	if errors.Is(err, errNotSupported) {
		NotFound(c)
		return
	}
	if errors.Is(err, auth.ErrUnauthorized) {
		h.expire(c, err)
		return
	}

	var flash session.Flash
	if err != nil {
		h.logger.Warn("mutation failed", "action", action, "resource", resource, "key", c.Param("key"), "error", err)
		fallback := MsgMutationFailed
		var merr *dashboard.MutationError
		if errors.As(err, &merr) {
			fallback = merr.Fallback
		}
		flash = session.Flash{Error: true, Message: services.MessageOf(err, fallback)}
	} else {
		logAudit(c, v.Claims.Nombre, middleware.CurrentRole(c), action, resource, c.Param("key"))
		if outcome != nil {
			flash.Message = outcome.Message
			for _, d := range outcome.Details {
				flash.Details = append(flash.Details, session.Field{Label: d.Label, Value: d.Value})
			}
		}
	}

	if flash.Message != "" {
		if err := middleware.CurrentSession(c).AddFlash(flash); err != nil {
			h.logger.Error("failed to store flash", "error", err)
		}
	}
	c.Redirect(http.StatusSeeOther, h.returnPath(c, resource))
}

func (h *DashboardHandler) returnPath(c *gin.Context, resource string) string {
	section := c.PostForm("section")
	if section == "" {
		section = resource
	}
	q := url.Values{"section": {h.panel.Section(section).Name}}
	if tab := c.PostForm("tab"); tab != "" && len(tab) <= maxTabLen {
		q.Set("tab", tab)
	}
	return h.panel.Path() + "?" + q.Encode()
}
