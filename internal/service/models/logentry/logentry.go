package logentry

import "time"

// Result tags for the final outcome of a logical operation.
const (
	ResultSuccess = "Exito"
	ResultError   = "Error"
)

// LogEntry is the unified log record accumulated for one logical request.
// It lives in the in-flight map of the correlation log between Open and Close
// and is persisted exactly once.
type LogEntry struct {
	ID        int64     `json:"id"`
	LogID     string    `json:"logId"`
	Timestamp time.Time `json:"fecha"`
	Target    string    `json:"entidad"`
	IP        string    `json:"ip"`
	Method    string    `json:"metodo"`
	Headers   string    `json:"headers"`
	Status    int       `json:"statusCode"`

	// Filled in by downstream layers between Open and Close.
	ServiceMessage string `json:"datosServicio,omitempty"`
	SQL            string `json:"sqlQuery,omitempty"`
	ServiceResult  string `json:"resultadoServicio,omitempty"`
	BoundaryError  string `json:"errorController,omitempty"`
}
