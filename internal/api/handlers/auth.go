package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"control-acceso/internal/api/middleware"
	"control-acceso/internal/auth"
	"control-acceso/internal/config"
	"control-acceso/internal/services"
	"control-acceso/internal/session"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *services.AuthService
	cfg         *config.Config
	logger      *slog.Logger
}

func NewAuthHandler(authService *services.AuthService, cfg *config.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
		logger:      logger,
	}
}

type loginForm struct {
	Email             string `form:"email"`
	Password          string `form:"password"`
	ChallengeResponse string `form:"g-recaptcha-response"`
}

// ShowLogin renders the login form, with the challenge widget once this
// browser has failed often enough.
func (h *AuthHandler) ShowLogin(c *gin.Context) {
	h.renderLogin(c, http.StatusOK, "", "")
}

func (h *AuthHandler) renderLogin(c *gin.Context, status int, email, errMsg string) {
	sc := middleware.CurrentSession(c)
	required := false
	if key, err := sc.LoginKey(); err == nil {
		required, err = h.authService.ChallengeRequired(c.Request.Context(), key)
		if err != nil {
			h.logger.Error("failed to read login attempts", "error", err)
		}
	} else {
		h.logger.Error("failed to issue login key", "error", err)
	}

	render(c, status, "login.html", gin.H{
		"Email":             email,
		"Error":             errMsg,
		"ChallengeRequired": required,
		"SiteKey":           h.cfg.Security.Recaptcha.SiteKey,
	})
}

// Login handles the login form submit
func (h *AuthHandler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderLogin(c, http.StatusBadRequest, "", services.MsgLoginFailed)
		return
	}

	sc := middleware.CurrentSession(c)
	key, err := sc.LoginKey()
	if err != nil {
		h.logger.Error("failed to issue login key", "error", err)
		h.renderLogin(c, http.StatusInternalServerError, form.Email, services.MsgLoginFailed)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Email:             form.Email,
		Password:          form.Password,
		ChallengeResponse: form.ChallengeResponse,
		AttemptKey:        key,
	})
	switch {
	case errors.Is(err, services.ErrChallengeRequired):
		h.renderLogin(c, http.StatusBadRequest, form.Email, services.MsgChallengeRequired)
		return
	case err != nil:
		h.logger.Info("login failed", "email", form.Email, "error", err)
		h.renderLogin(c, http.StatusUnauthorized, form.Email, services.MessageOf(err, services.MsgLoginFailed))
		return
	}

	if err := sc.Set(result.Token, result.Role); err != nil {
		h.logger.Error("failed to store session", "error", err)
		h.renderLogin(c, http.StatusInternalServerError, form.Email, services.MsgLoginFailed)
		return
	}

	logAudit(c, actorName(result.Token, form.Email), result.Role, "login", "", "")

	if result.Path == "" {
		h.logger.Warn("login with unknown role", "email", form.Email, "role", result.Role)
		h.renderLogin(c, http.StatusOK, form.Email, services.MsgUnknownRole)
		return
	}

	c.Redirect(http.StatusSeeOther, result.Path)
}

type registerForm struct {
	Nombre   string `form:"nombre"`
	Telefono string `form:"telefono"`
	Email    string `form:"email"`
	Password string `form:"password"`
	RoleID   string `form:"id_rol"`
}

type roleOption struct {
	ID   string
	Name string
}

func registerRoles() []roleOption {
	roles := auth.RegistrableRoles()
	opts := make([]roleOption, 0, len(roles))
	for _, r := range roles {
		opts = append(opts, roleOption{ID: strconv.Itoa(r.ID()), Name: r.String()})
	}
	return opts
}

func (h *AuthHandler) ShowRegister(c *gin.Context) {
	h.renderRegister(c, http.StatusOK, registerForm{RoleID: services.DefaultRegisterRoleID}, "")
}

func (h *AuthHandler) renderRegister(c *gin.Context, status int, form registerForm, errMsg string) {
	render(c, status, "register.html", gin.H{
		"Form":  form,
		"Roles": registerRoles(),
		"Error": errMsg,
	})
}

// Register handles the registration form submit
func (h *AuthHandler) Register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderRegister(c, http.StatusBadRequest, form, services.MsgRegisterFailed)
		return
	}

	err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		Nombre:   form.Nombre,
		Telefono: form.Telefono,
		Email:    form.Email,
		Password: form.Password,
		RoleID:   form.RoleID,
	})
	if err != nil {
		h.logger.Info("registration failed", "email", form.Email, "error", err)
		form.Password = ""
		status := http.StatusBadGateway
		if errors.Is(err, services.ErrInvalidRegistration) {
			status = http.StatusBadRequest
		}
		h.renderRegister(c, status, form, services.MessageOf(err, services.MsgRegisterFailed))
		return
	}

	logAudit(c, form.Nombre, "", "register", "usuarios", "")

	sc := middleware.CurrentSession(c)
	if err := sc.AddFlash(session.Flash{Message: services.MsgRegistered}); err != nil {
		h.logger.Error("failed to store flash", "error", err)
	}
	c.Redirect(http.StatusSeeOther, auth.LoginPath)
}

// Logout ends the session
func (h *AuthHandler) Logout(c *gin.Context) {
	sc := middleware.CurrentSession(c)
	sess, signedIn := sc.Get()

	if err := sc.Clear(); err != nil {
		h.logger.Error("failed to clear session", "error", err)
	}

	if signedIn {
		logAudit(c, actorName(sess.Token, ""), sess.Role, "logout", "", "")
	}

	c.Redirect(http.StatusSeeOther, auth.LoginPath)
}
