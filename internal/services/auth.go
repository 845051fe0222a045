package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"control-acceso/internal/auth"
	"control-acceso/internal/config"
	"control-acceso/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrChallengeRequired   = errors.New("challenge response required")
	ErrInvalidRegistration = errors.New("invalid registration")
)

// Login and registration messages shown to the user.
const (
	MsgChallengeRequired = "Por favor, completa la verificación de reCAPTCHA."
	MsgLoginFailed       = "Error al iniciar sesión. Verifica tus credenciales."
	MsgUnknownRole       = "Rol no reconocido. Contacta al administrador."
	MsgRegisterFailed    = "Error al registrar usuario. Intenta de nuevo."
	MsgRegistered        = "Usuario registrado con éxito. Por favor, inicia sesión."
)

type AuthService struct {
	cfg     *config.Config
	backend *BackendClient
}

func NewAuthService(cfg *config.Config, backend *BackendClient) *AuthService {
	return &AuthService{cfg: cfg, backend: backend}
}

type LoginInput struct {
	Email             string
	Password          string
	ChallengeResponse string
	// AttemptKey identifies the browser for the failed-attempt counter.
	AttemptKey string
}

type LoginResult struct {
	Token string
	Role  auth.Role
	// Path is the role's dashboard, empty for a role this front-end does not
	// know.
	Path string
}

// Failures returns the consecutive failed logins recorded for key.
func (s *AuthService) Failures(ctx context.Context, key string) (int, error) {
	var attempt models.LoginAttempt
	err := models.DB.WithContext(ctx).Where("attempt_key = ?", key).First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load login attempts: %w", err)
	}
	return attempt.Failures, nil
}

// ChallengeRequired reports whether the next login from key must carry a
// challenge response.
func (s *AuthService) ChallengeRequired(ctx context.Context, key string) (bool, error) {
	n, err := s.Failures(ctx, key)
	if err != nil {
		return false, err
	}
	return n >= s.cfg.Security.Login.ChallengeThreshold, nil
}

func (s *AuthService) recordFailure(ctx context.Context, key string) error {
	bump := clause.Assignments(map[string]interface{}{
		"failures":   gorm.Expr("failures + 1"),
		"updated_at": time.Now(),
	})
	return models.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_key"}},
		DoUpdates: bump,
	}).Create(&models.LoginAttempt{AttemptKey: key, Failures: 1}).Error
}

func (s *AuthService) resetFailures(ctx context.Context, key string) error {
	return models.DB.WithContext(ctx).Where("attempt_key = ?", key).Delete(&models.LoginAttempt{}).Error
}

// Login authenticates against the backend. Once the failure counter has
// reached the threshold a challenge response is required, and a request
// without one is rejected before anything is sent.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	required, err := s.ChallengeRequired(ctx, in.AttemptKey)
	if err != nil {
		return nil, err
	}

	var captcha *string
	if required {
		if strings.TrimSpace(in.ChallengeResponse) == "" {
			return nil, ErrChallengeRequired
		}
		captcha = &in.ChallengeResponse
	}

	resp, err := s.backend.Login(ctx, LoginRequest{
		Email:           strings.TrimSpace(in.Email),
		Password:        in.Password,
		CaptchaResponse: captcha,
	})
	if err != nil {
		if ferr := s.recordFailure(ctx, in.AttemptKey); ferr != nil {
			return nil, errors.Join(err, ferr)
		}
		return nil, err
	}

	if err := s.resetFailures(ctx, in.AttemptKey); err != nil {
		return nil, fmt.Errorf("reset login attempts: %w", err)
	}

	role := auth.Role(resp.RoleName)
	return &LoginResult{Token: resp.Token, Role: role, Path: role.Path()}, nil
}

type RegisterInput struct {
	Nombre   string
	Telefono string
	Email    string
	Password string
	RoleID   string
}

// DefaultRegisterRoleID preselects Residente on the registration form.
const DefaultRegisterRoleID = "2"

// Register creates an account on the backend. Only the roles offered on the
// form are accepted.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) error {
	if in.RoleID == "" {
		in.RoleID = DefaultRegisterRoleID
	}
	if !registrableRoleID(in.RoleID) {
		return fmt.Errorf("%w: rol %q", ErrInvalidRegistration, in.RoleID)
	}
	if strings.TrimSpace(in.Nombre) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return fmt.Errorf("%w: faltan campos obligatorios", ErrInvalidRegistration)
	}

	return s.backend.Register(ctx, RegisterRequest{
		Nombre:   strings.TrimSpace(in.Nombre),
		Telefono: strings.TrimSpace(in.Telefono),
		Email:    strings.TrimSpace(in.Email),
		Password: in.Password,
		RoleID:   in.RoleID,
	})
}

func registrableRoleID(id string) bool {
	for _, r := range auth.RegistrableRoles() {
		if fmt.Sprint(r.ID()) == id {
			return true
		}
	}
	return false
}
