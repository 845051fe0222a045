package models

// Records below mirror the backend's JSON. They are owned by the backend and
// never persisted locally.

type User struct {
	ID       int    `json:"id_usuario"`
	Nombre   string `json:"nombre"`
	Telefono string `json:"telefono"`
	Email    string `json:"email"`
	RoleID   int    `json:"id_rol"`
}

// Car is a registered vehicle ("auto").
type Car struct {
	ID     int    `json:"id_auto,omitempty"`
	Placa  string `json:"placa"`
	Modelo string `json:"modelo"`
	Color  string `json:"color"`
}

type AccessCode struct {
	ID              int    `json:"id_acceso"`
	Codigo          string `json:"codigo"`
	Estado          string `json:"estado"`
	FechaExpiracion string `json:"fecha_expiracion"`
	CarID           *int   `json:"id_auto,omitempty"`
}

// AccessCodeActive is the estado of a code that still opens the gate.
const AccessCodeActive = "Activo"

type AccessLogEntry struct {
	ID           int     `json:"id_detalle_acceso"`
	FechaEntrada string  `json:"fecha_entrada"`
	FechaSalida  *string `json:"fecha_salida,omitempty"`
	GuardID      *int    `json:"id_vigilante,omitempty"`
}

const (
	SensorFree     = "Libre"
	SensorOccupied = "Ocupado"
)

type Sensor struct {
	ID     int    `json:"id_sensor"`
	Nombre string `json:"nombre,omitempty"`
	Estado string `json:"estado"`
}

// GeneratedCode is the backend's answer to a generate-code request. Older
// backends name the code "code".
type GeneratedCode struct {
	Codigo          string `json:"codigo"`
	Code            string `json:"code,omitempty"`
	FechaExpiracion string `json:"fecha_expiracion"`
}

func (g GeneratedCode) Value() string {
	if g.Codigo != "" {
		return g.Codigo
	}
	return g.Code
}
