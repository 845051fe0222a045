package panels

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"control-acceso/internal/auth"
	"control-acceso/internal/config"
	"control-acceso/internal/dashboard"
	"control-acceso/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateForm(t *testing.T) {
	loc := time.FixedZone("CST", -6*60*60)

	req, err := GenerateForm(url.Values{"id_auto": {"7"}, "fecha_expiracion": {"2025-06-01T10:30"}}, loc)
	require.NoError(t, err)
	require.NotNil(t, req.CarID)
	assert.Equal(t, 7, *req.CarID)
	assert.Equal(t, "2025-06-01 16:30:00", req.FechaExpiracion)

	req, err = GenerateForm(url.Values{"id_auto": {""}, "fecha_expiracion": {"2025-12-31T23:59"}}, time.UTC)
	require.NoError(t, err)
	assert.Nil(t, req.CarID)

	_, err = GenerateForm(url.Values{"id_auto": {"abc"}, "fecha_expiracion": {"2025-12-31T23:59"}}, time.UTC)
	assert.Error(t, err)

	_, err = GenerateForm(url.Values{"fecha_expiracion": {"mañana"}}, time.UTC)
	assert.Error(t, err)
}

func TestDefaultExpiration(t *testing.T) {
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-12-31T23:59", DefaultExpiration(now))
}

func TestCarFromFormRequiresEveryField(t *testing.T) {
	car, err := carFromForm(url.Values{"placa": {" ABC123 "}, "modelo": {"Civic"}, "color": {"Rojo"}})
	require.NoError(t, err)
	assert.Equal(t, "ABC123", car.Placa)

	_, err = carFromForm(url.Values{"placa": {"ABC123"}, "modelo": {"Civic"}})
	assert.ErrorIs(t, err, ErrMissingFields)
}

func maintenanceBackend(t *testing.T) *httptest.Server {
	bodies := map[string]string{
		"/maintenance/access": `[
			{"id_detalle_acceso":1,"fecha_entrada":"2025-01-01 08:00:00","fecha_salida":"2025-01-01 09:00:00"},
			{"id_detalle_acceso":2,"fecha_entrada":"2025-01-02 08:00:00"}]`,
		"/maintenance/cars":         `[{"id_auto":1,"placa":"ABC123","modelo":"Civic","color":"Rojo"}]`,
		"/maintenance/access-codes": `[{"id_acceso":1,"codigo":"X1","estado":"Activo"},{"id_acceso":2,"codigo":"X2","estado":"Expirado"}]`,
		"/maintenance/sensors":      `[{"id_sensor":1,"estado":"Libre"},{"id_sensor":2,"estado":"Ocupado"},{"id_sensor":3,"estado":"Libre"}]`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func buildPanels(t *testing.T, baseURL string) map[auth.Role]*dashboard.Panel {
	cfg := &config.Config{
		Server:  config.ServerConfig{Timezone: "UTC"},
		Backend: config.BackendConfig{BaseURL: baseURL, Timeout: "5s"},
	}
	backend, err := services.NewBackendClient(cfg)
	require.NoError(t, err)
	built, err := Build(cfg, backend, services.NewAuditService(nil), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return built
}

func TestBuildCoversEveryRole(t *testing.T) {
	built := buildPanels(t, "http://127.0.0.1:0")
	for _, role := range auth.Roles() {
		p, ok := built[role]
		require.True(t, ok, "missing panel for %s", role)
		assert.Equal(t, role.Path(), p.Path())
	}

	admin := built[auth.RoleAdmin]
	_, ok := admin.Source("activity")
	assert.True(t, ok)
	assert.Equal(t, "activity", admin.Section("activity").Name)

	guard := built[auth.RoleGuard]
	codes, ok := guard.Source("access-codes")
	require.True(t, ok)
	assert.Nil(t, codes.Mutations().Create)
	assert.Nil(t, codes.Mutations().Delete)
}

func TestMaintenanceDashboardStats(t *testing.T) {
	srv := maintenanceBackend(t)
	p := buildPanels(t, srv.URL)[auth.RoleMaintenance]

	snap, err := p.Load(context.Background(), dashboard.Viewer{Token: "tok", Claims: &auth.Claims{}}, "dashboard")
	require.NoError(t, err)

	stats := map[string]string{}
	for _, s := range MaintenanceStats(snap) {
		stats[s.Label] = s.Value
	}
	assert.Equal(t, map[string]string{
		"Entradas":          "2",
		"Salidas":           "1",
		"Autos Registrados": "1",
		"Códigos Activos":   "1",
		"Sensores Libres":   "2",
		"Sensores Ocupados": "1",
	}, stats)

	page := p.Render(snap, dashboard.State{})
	require.Len(t, page.Tables, 1)
	assert.Equal(t, "Accesos Recientes", page.Tables[0].Title)
	assert.Equal(t, "Dashboard Mantenimiento", page.Heading)
}

func TestAccessCodeSectionOffersCars(t *testing.T) {
	srv := maintenanceBackend(t)
	p := buildPanels(t, srv.URL)[auth.RoleMaintenance]

	snap, err := p.Load(context.Background(), dashboard.Viewer{Token: "tok", Claims: &auth.Claims{}}, "access-codes")
	require.NoError(t, err)

	page := p.Render(snap, dashboard.State{})
	assert.Equal(t, []dashboard.Option{{Value: "1", Label: "ABC123 - Civic"}}, page.Options("cars"))
	assert.Equal(t, []string{FormAccessCode}, page.Forms)
}
