package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"control-acceso/internal/auth"
	"control-acceso/internal/config"
	"control-acceso/internal/models"
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// Is lets errors.Is(err, auth.ErrUnauthorized) match a 401.
func (e *APIError) Is(target error) bool {
	return target == auth.ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// MessageOf returns the backend's message carried by err, or fallback when
// the error has none (transport failures, empty bodies).
func MessageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// BackendClient talks to the access-control REST API.
type BackendClient struct {
	baseURL string
	http    *http.Client
}

func NewBackendClient(cfg *config.Config) (*BackendClient, error) {
	timeout, err := cfg.BackendTimeout()
	if err != nil {
		return nil, err
	}
	return NewBackendClientWith(cfg.Backend.BaseURL, &http.Client{Timeout: timeout}), nil
}

func NewBackendClientWith(baseURL string, client *http.Client) *BackendClient {
	return &BackendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

func (c *BackendClient) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

type LoginRequest struct {
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	CaptchaResponse *string `json:"captchaResponse"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	RoleName string `json:"roleName"`
}

func (c *BackendClient) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", req, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "respuesta de inicio de sesión sin token"}
	}
	return &resp, nil
}

type RegisterRequest struct {
	Nombre   string `json:"nombre"`
	Telefono string `json:"telefono"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   string `json:"id_rol"`
}

func (c *BackendClient) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/auth/register", "", req, nil)
}

func (c *BackendClient) Users(ctx context.Context, token string) ([]models.User, error) {
	var users []models.User
	if err := c.do(ctx, http.MethodGet, "/usuarios", token, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *BackendClient) Cars(ctx context.Context, token string) ([]models.Car, error) {
	var cars []models.Car
	if err := c.do(ctx, http.MethodGet, "/maintenance/cars", token, nil, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

func (c *BackendClient) CreateCar(ctx context.Context, token string, car models.Car) error {
	car.ID = 0
	return c.do(ctx, http.MethodPost, "/maintenance/cars", token, car, nil)
}

func (c *BackendClient) UpdateCar(ctx context.Context, token string, id int, car models.Car) error {
	car.ID = id
	return c.do(ctx, http.MethodPut, "/maintenance/cars/"+strconv.Itoa(id), token, car, nil)
}

func (c *BackendClient) DeleteCar(ctx context.Context, token string, id int) error {
	return c.do(ctx, http.MethodDelete, "/maintenance/cars/"+strconv.Itoa(id), token, nil, nil)
}

func (c *BackendClient) AccessLog(ctx context.Context, token string) ([]models.AccessLogEntry, error) {
	var entries []models.AccessLogEntry
	if err := c.do(ctx, http.MethodGet, "/maintenance/access", token, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *BackendClient) AccessCodes(ctx context.Context, token string) ([]models.AccessCode, error) {
	var codes []models.AccessCode
	if err := c.do(ctx, http.MethodGet, "/maintenance/access-codes", token, nil, &codes); err != nil {
		return nil, err
	}
	return codes, nil
}

func (c *BackendClient) DeleteAccessCode(ctx context.Context, token string, id int) error {
	return c.do(ctx, http.MethodDelete, "/maintenance/access-codes/"+strconv.Itoa(id), token, nil, nil)
}

func (c *BackendClient) Sensors(ctx context.Context, token string) ([]models.Sensor, error) {
	var sensors []models.Sensor
	if err := c.do(ctx, http.MethodGet, "/maintenance/sensors", token, nil, &sensors); err != nil {
		return nil, err
	}
	return sensors, nil
}

type GenerateCodeRequest struct {
	CarID           *int   `json:"id_auto"`
	FechaExpiracion string `json:"fecha_expiracion"`
}

func (c *BackendClient) GenerateCode(ctx context.Context, token string, req GenerateCodeRequest) (*models.GeneratedCode, error) {
	var code models.GeneratedCode
	if err := c.do(ctx, http.MethodPost, "/maintenance/generate-code", token, req, &code); err != nil {
		return nil, err
	}
	return &code, nil
}

// ExpirationLayout is the timestamp format generate-code expects.
const ExpirationLayout = "2006-01-02 15:04:05"

// NormalizeExpiration converts a datetime-local form value read in loc to
// the backend's UTC timestamp format.
func NormalizeExpiration(value string, loc *time.Location) (string, error) {
	value = strings.TrimSpace(value)
	var (
		t   time.Time
		err error
	)
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02T15:04:05", ExpirationLayout} {
		t, err = time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t.UTC().Format(ExpirationLayout), nil
		}
	}
	return "", fmt.Errorf("fecha de expiración inválida %q: %w", value, err)
}
