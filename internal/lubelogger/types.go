package lubelogger

import (
	"encoding/json"
	"fmt"
)

// Document is an original uploaded file forwarded to LubeLogger's document
// store.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// GasRecord is the payload posted to /api/vehicle/gasrecords/add. Files
// carries the document-upload response through verbatim.
type GasRecord struct {
	Date         string          `json:"date"`
	Odometer     int             `json:"odometer"`
	FuelConsumed float64         `json:"fuelConsumed"`
	Cost         float64         `json:"cost"`
	IsFillToFull bool            `json:"isFillToFull"`
	MissedFuelUp bool            `json:"missedFuelUp"`
	Notes        string          `json:"notes"`
	Files        json.RawMessage `json:"files"`
}

// ExtraField is a user-defined vehicle attribute on the LubeLogger side.
type ExtraField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Vehicle is a vehicle record as returned by /api/vehicles.
type Vehicle struct {
	ID          int          `json:"id"`
	Year        int          `json:"year"`
	Make        string       `json:"make"`
	Model       string       `json:"model"`
	ExtraFields []ExtraField `json:"extraFields"`
}

// APIError is a non-2xx response from the LubeLogger backend.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lubelogger returned status %d: %s", e.StatusCode, e.Body)
}
