package panels

import (
	"log/slog"
	"strconv"

	"control-acceso/internal/auth"
	"control-acceso/internal/config"
	"control-acceso/internal/dashboard"
	"control-acceso/internal/models"
	"control-acceso/internal/services"
)

// Form templates rendered by panel sections.
const (
	FormCar        = "form_car"
	FormAccessCode = "form_access_code"
)

func count(n int) string { return strconv.Itoa(n) }

// MaintenanceStats summarizes the maintenance dashboard.
func MaintenanceStats(s dashboard.Snapshot) []dashboard.Stat {
	var entradas, salidas int
	for _, e := range dashboard.Items[models.AccessLogEntry](s.Get("access")) {
		if e.FechaEntrada != "" {
			entradas++
		}
		if e.FechaSalida != nil && *e.FechaSalida != "" {
			salidas++
		}
	}

	active := 0
	for _, c := range dashboard.Items[models.AccessCode](s.Get("access-codes")) {
		if c.Estado == models.AccessCodeActive {
			active++
		}
	}

	var free, occupied int
	for _, sn := range dashboard.Items[models.Sensor](s.Get("sensors")) {
		switch sn.Estado {
		case models.SensorFree:
			free++
		case models.SensorOccupied:
			occupied++
		}
	}

	return []dashboard.Stat{
		{Label: "Entradas", Value: count(entradas)},
		{Label: "Salidas", Value: count(salidas)},
		{Label: "Autos Registrados", Value: count(s.Get("cars").Len())},
		{Label: "Códigos Activos", Value: count(active)},
		{Label: "Sensores Libres", Value: count(free)},
		{Label: "Sensores Ocupados", Value: count(occupied)},
	}
}

func adminStats(s dashboard.Snapshot) []dashboard.Stat {
	return []dashboard.Stat{
		{Label: "Usuarios", Value: count(s.Get("users").Len())},
		{Label: "Autos Registrados", Value: count(s.Get("cars").Len())},
		{Label: "Accesos", Value: count(s.Get("access").Len())},
	}
}

// Build assembles the dashboard of every role.
func Build(cfg *config.Config, backend *services.BackendClient, audit *services.AuditService, logger *slog.Logger) (map[auth.Role]*dashboard.Panel, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	type def struct {
		role     auth.Role
		title    string
		sources  []dashboard.Source
		sections []dashboard.Section
	}

	defs := []def{
		{
			role:  auth.RoleAdmin,
			title: "Panel de Administración",
			sources: []dashboard.Source{
				users(backend, false), cars(backend, false), accessLog(backend), activity(audit, loc),
			},
			sections: []dashboard.Section{
				{Name: "dashboard", Title: "Dashboard", Heading: "Dashboard Administrador",
					Needs:  []string{"users", "cars", "access"},
					Tables: []dashboard.View{{Resource: "access", Title: "Accesos Recientes", Limit: 5}},
					Stats:  adminStats},
				{Name: "users", Title: "Usuarios", Needs: []string{"users"},
					Tables: []dashboard.View{{Resource: "users"}}},
				{Name: "cars", Title: "Autos", Needs: []string{"cars"},
					Tables: []dashboard.View{{Resource: "cars"}}},
				{Name: "access", Title: "Accesos", Needs: []string{"access"},
					Tables: []dashboard.View{{Resource: "access"}}},
				{Name: "activity", Title: "Actividad", Needs: []string{"activity"},
					Tables: []dashboard.View{{Resource: "activity"}}},
			},
		},
		{
			role:    auth.RoleResident,
			title:   "Vista de Datos de Residente",
			sources: []dashboard.Source{users(backend, true)},
			sections: []dashboard.Section{
				{Name: "users", Title: "Residentes", Needs: []string{"users"},
					Tables: []dashboard.View{{Resource: "users"}}},
			},
		},
		{
			role:  auth.RoleMaintenance,
			title: "Control Acceso",
			sources: []dashboard.Source{
				accessLog(backend), cars(backend, true), accessCodes(backend, loc, true), sensors(backend),
			},
			sections: []dashboard.Section{
				{Name: "dashboard", Title: "Dashboard", Heading: "Dashboard Mantenimiento",
					Needs:  []string{"access", "cars", "access-codes", "sensors"},
					Tables: []dashboard.View{{Resource: "access", Title: "Accesos Recientes", Limit: 5}},
					Stats:  MaintenanceStats},
				{Name: "access", Title: "Mis Accesos", Needs: []string{"access"},
					Tables: []dashboard.View{{Resource: "access"}}},
				{Name: "cars", Title: "Mis Autos", Needs: []string{"cars"},
					Tables: []dashboard.View{{Resource: "cars"}},
					Forms:  []string{FormCar}},
				{Name: "access-codes", Title: "Códigos de Acceso", Needs: []string{"cars", "access-codes", "sensors"},
					Tables: []dashboard.View{{Resource: "access-codes"}},
					Forms:  []string{FormAccessCode}},
			},
		},
		{
			role:  auth.RoleGuard,
			title: "Panel de Vigilancia",
			sources: []dashboard.Source{
				accessLog(backend), accessCodes(backend, loc, false), users(backend, true),
			},
			sections: []dashboard.Section{
				{Name: "access", Title: "Accesos", Needs: []string{"access"},
					Tables: []dashboard.View{{Resource: "access"}}},
				{Name: "access-codes", Title: "Códigos de Acceso", Needs: []string{"access-codes"},
					Tables: []dashboard.View{{Resource: "access-codes"}}},
				{Name: "users", Title: "Vigilantes", Needs: []string{"users"},
					Tables: []dashboard.View{{Resource: "users"}}},
			},
		},
		{
			role:    auth.RoleVisitor,
			title:   "Vista de Visitante",
			sources: []dashboard.Source{users(backend, true)},
			sections: []dashboard.Section{
				{Name: "users", Title: "Visitantes", Needs: []string{"users"},
					Tables: []dashboard.View{{Resource: "users"}}},
			},
		},
	}

	panels := make(map[auth.Role]*dashboard.Panel, len(defs))
	for _, d := range defs {
		p, err := dashboard.NewPanel(d.role, d.title, d.sources, d.sections...)
		if err != nil {
			return nil, err
		}
		p.Logger = logger
		panels[d.role] = p
	}
	return panels, nil
}
