// Package panels defines what each role sees on its dashboard: the backend
// resources, how they are tabulated and which writes they accept.
package panels

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"control-acceso/internal/auth"
	"control-acceso/internal/dashboard"
	"control-acceso/internal/models"
	"control-acceso/internal/services"
)

var ErrMissingFields = errors.New("missing required fields")

const notAvailable = "N/A"

func orNA(s *string) string {
	if s == nil || *s == "" {
		return notAvailable
	}
	return *s
}

func intOrNA(n *int) string {
	if n == nil {
		return notAvailable
	}
	return strconv.Itoa(*n)
}

func sameRole(u models.User, viewer *auth.Claims) bool {
	return auth.SameRole(u.RoleID, viewer)
}

func roleName(id int) string {
	if r, ok := auth.RoleByID(id); ok {
		return r.String()
	}
	return strconv.Itoa(id)
}

// users lists accounts. Scoped lists only show accounts sharing the viewer's
// role.
func users(backend *services.BackendClient, scoped bool) *dashboard.Resource[models.User] {
	res := &dashboard.Resource[models.User]{
		Name:      "users",
		Title:     "Usuarios",
		EmptyText: "No hay usuarios registrados.",
		Columns: []dashboard.Column[models.User]{
			{Header: "ID Usuario", Value: func(u models.User) string { return strconv.Itoa(u.ID) }},
			{Header: "Nombre", Value: func(u models.User) string { return u.Nombre }, Searchable: true},
			{Header: "Teléfono", Value: func(u models.User) string { return u.Telefono }, Searchable: true},
			{Header: "Email", Value: func(u models.User) string { return u.Email }, Searchable: true},
		},
		Key:    func(u models.User) string { return strconv.Itoa(u.ID) },
		Label:  func(u models.User) string { return u.Nombre },
		Fetch:  backend.Users,
		Detail: true,
	}
	if scoped {
		res.Scope = sameRole
	} else {
		res.Columns = append(res.Columns, dashboard.Column[models.User]{
			Header: "Rol", Value: func(u models.User) string { return roleName(u.RoleID) },
		})
	}
	return res
}

func carFromForm(form url.Values) (models.Car, error) {
	car := models.Car{
		Placa:  strings.TrimSpace(form.Get("placa")),
		Modelo: strings.TrimSpace(form.Get("modelo")),
		Color:  strings.TrimSpace(form.Get("color")),
	}
	if car.Placa == "" || car.Modelo == "" || car.Color == "" {
		return car, fmt.Errorf("%w: placa, modelo, color", ErrMissingFields)
	}
	return car, nil
}

func parseKey(key string) (int, error) {
	id, err := strconv.Atoi(key)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", key)
	}
	return id, nil
}

// cars lists registered vehicles; writable panels get create, inline edit
// and delete.
func cars(backend *services.BackendClient, writable bool) *dashboard.Resource[models.Car] {
	res := &dashboard.Resource[models.Car]{
		Name:      "cars",
		Title:     "Autos",
		EmptyText: "No hay autos registrados.",
		Columns: []dashboard.Column[models.Car]{
			{Header: "ID", Value: func(c models.Car) string { return strconv.Itoa(c.ID) }},
			{Header: "Placa", Value: func(c models.Car) string { return c.Placa }, Field: "placa"},
			{Header: "Modelo", Value: func(c models.Car) string { return c.Modelo }, Field: "modelo"},
			{Header: "Color", Value: func(c models.Car) string { return c.Color }, Field: "color"},
		},
		Key:   func(c models.Car) string { return strconv.Itoa(c.ID) },
		Label: func(c models.Car) string { return c.Placa + " - " + c.Modelo },
		Fetch: backend.Cars,
	}
	if !writable {
		return res
	}

	res.Mutate = dashboard.Mutations{
		Create: func(ctx context.Context, token string, form url.Values) (*dashboard.Outcome, error) {
			car, err := carFromForm(form)
			if err != nil {
				return nil, dashboard.Failed(err, "Placa, modelo y color son obligatorios.")
			}
			if err := backend.CreateCar(ctx, token, car); err != nil {
				return nil, dashboard.Failed(err, "Error al registrar el auto")
			}
			return &dashboard.Outcome{Message: "Auto registrado con éxito"}, nil
		},
		Update: func(ctx context.Context, token, key string, form url.Values) (*dashboard.Outcome, error) {
			id, err := parseKey(key)
			if err != nil {
				return nil, dashboard.Failed(err, "Error al actualizar el auto")
			}
			car, err := carFromForm(form)
			if err != nil {
				return nil, dashboard.Failed(err, "Placa, modelo y color son obligatorios.")
			}
			if err := backend.UpdateCar(ctx, token, id, car); err != nil {
				return nil, dashboard.Failed(err, "Error al actualizar el auto")
			}
			return &dashboard.Outcome{Message: "Auto actualizado con éxito"}, nil
		},
		Delete: func(ctx context.Context, token, key string) (*dashboard.Outcome, error) {
			id, err := parseKey(key)
			if err != nil {
				return nil, dashboard.Failed(err, "Error al eliminar el auto")
			}
			if err := backend.DeleteCar(ctx, token, id); err != nil {
				return nil, dashboard.Failed(err, "Error al eliminar el auto")
			}
			return &dashboard.Outcome{Message: "Auto eliminado con éxito"}, nil
		},
	}
	return res
}

func accessLog(backend *services.BackendClient) *dashboard.Resource[models.AccessLogEntry] {
	return &dashboard.Resource[models.AccessLogEntry]{
		Name:      "access",
		Title:     "Historial de Accesos",
		EmptyText: "No hay accesos registrados.",
		Columns: []dashboard.Column[models.AccessLogEntry]{
			{Header: "ID", Value: func(e models.AccessLogEntry) string { return strconv.Itoa(e.ID) }},
			{Header: "Fecha Entrada", Value: func(e models.AccessLogEntry) string { return e.FechaEntrada }},
			{Header: "Fecha Salida", Value: func(e models.AccessLogEntry) string { return orNA(e.FechaSalida) }},
			{Header: "Vigilante", Value: func(e models.AccessLogEntry) string { return intOrNA(e.GuardID) }},
		},
		Key:   func(e models.AccessLogEntry) string { return strconv.Itoa(e.ID) },
		Fetch: backend.AccessLog,
	}
}

// GenerateForm reads the generate-code form. An empty id_auto sends null.
func GenerateForm(form url.Values, loc *time.Location) (services.GenerateCodeRequest, error) {
	var req services.GenerateCodeRequest
	if raw := strings.TrimSpace(form.Get("id_auto")); raw != "" {
		id, err := parseKey(raw)
		if err != nil {
			return req, err
		}
		req.CarID = &id
	}
	exp, err := services.NormalizeExpiration(form.Get("fecha_expiracion"), loc)
	if err != nil {
		return req, err
	}
	req.FechaExpiracion = exp
	return req, nil
}

// DefaultExpiration is the initial value of the expiration input: the last
// minute of the current year.
func DefaultExpiration(now time.Time) string {
	return fmt.Sprintf("%d-12-31T23:59", now.Year())
}

// accessCodes lists gate codes. Writable panels generate (create) and
// delete them.
func accessCodes(backend *services.BackendClient, loc *time.Location, writable bool) *dashboard.Resource[models.AccessCode] {
	res := &dashboard.Resource[models.AccessCode]{
		Name:      "access-codes",
		Title:     "Códigos de Acceso",
		EmptyText: "No hay códigos de acceso registrados.",
		Columns: []dashboard.Column[models.AccessCode]{
			{Header: "ID", Value: func(a models.AccessCode) string { return strconv.Itoa(a.ID) }},
			{Header: "Código", Value: func(a models.AccessCode) string { return a.Codigo }},
			{Header: "Estado", Value: func(a models.AccessCode) string { return a.Estado }},
			{Header: "Fecha Expiración", Value: func(a models.AccessCode) string { return orNA(&a.FechaExpiracion) }},
		},
		Key:   func(a models.AccessCode) string { return strconv.Itoa(a.ID) },
		Fetch: backend.AccessCodes,
	}
	if !writable {
		return res
	}

	res.Mutate = dashboard.Mutations{
		Create: func(ctx context.Context, token string, form url.Values) (*dashboard.Outcome, error) {
			req, err := GenerateForm(form, loc)
			if err != nil {
				return nil, dashboard.Failed(err, "Fecha de expiración inválida")
			}
			code, err := backend.GenerateCode(ctx, token, req)
			if err != nil {
				return nil, dashboard.Failed(err, "Error al generar el código")
			}
			expires := code.FechaExpiracion
			if expires == "" {
				expires = "Nunca"
			}
			return &dashboard.Outcome{
				Message: "Código generado con éxito",
				Details: []dashboard.Field{
					{Label: "Código", Value: code.Value()},
					{Label: "Fecha de Expiración", Value: expires},
				},
			}, nil
		},
		Delete: func(ctx context.Context, token, key string) (*dashboard.Outcome, error) {
			id, err := parseKey(key)
			if err != nil {
				return nil, dashboard.Failed(err, "Error al eliminar el código de acceso")
			}
			if err := backend.DeleteAccessCode(ctx, token, id); err != nil {
				return nil, dashboard.Failed(err, "Error al eliminar el código de acceso")
			}
			return &dashboard.Outcome{Message: "Código de acceso eliminado con éxito"}, nil
		},
	}
	return res
}

func sensors(backend *services.BackendClient) *dashboard.Resource[models.Sensor] {
	return &dashboard.Resource[models.Sensor]{
		Name:      "sensors",
		Title:     "Sensores",
		EmptyText: "No hay sensores registrados.",
		Columns: []dashboard.Column[models.Sensor]{
			{Header: "ID", Value: func(s models.Sensor) string { return strconv.Itoa(s.ID) }},
			{Header: "Nombre", Value: func(s models.Sensor) string { return s.Nombre }},
			{Header: "Estado", Value: func(s models.Sensor) string { return s.Estado }},
		},
		Key:   func(s models.Sensor) string { return strconv.Itoa(s.ID) },
		Fetch: backend.Sensors,
	}
}

// activity lists the local audit trail, newest first.
func activity(audit *services.AuditService, loc *time.Location) *dashboard.Resource[models.AuditLog] {
	return &dashboard.Resource[models.AuditLog]{
		Name:      "activity",
		Title:     "Actividad",
		EmptyText: "No hay actividad registrada.",
		Columns: []dashboard.Column[models.AuditLog]{
			{Header: "Fecha", Value: func(l models.AuditLog) string { return l.CreatedAt.In(loc).Format("2006-01-02 15:04:05") }},
			{Header: "Usuario", Value: func(l models.AuditLog) string { return l.Actor }, Searchable: true},
			{Header: "Rol", Value: func(l models.AuditLog) string { return l.RoleName }},
			{Header: "Acción", Value: func(l models.AuditLog) string { return l.Action }, Searchable: true},
			{Header: "Recurso", Value: func(l models.AuditLog) string { return l.Resource }, Searchable: true},
			{Header: "ID Recurso", Value: func(l models.AuditLog) string { return l.ResourceID }},
			{Header: "IP", Value: func(l models.AuditLog) string { return l.IPAddress }},
		},
		Key:    func(l models.AuditLog) string { return strconv.FormatUint(uint64(l.ID), 10) },
		Label:  func(l models.AuditLog) string { return l.Actor + " " + l.Action },
		Fetch:  audit.Recent,
		Detail: true,
	}
}
