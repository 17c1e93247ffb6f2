package submission

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/masoncfrancis/gasreceiptautomation/internal/extraction"
)

// ImageFile is an uploaded image with its original name and content type,
// kept intact for the downstream document store.
type ImageFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Odometer input method form values.
const (
	MethodSeparatePhoto  = "separate_photo"
	MethodOnReceiptPhoto = "on_receipt_photo"
	MethodManual         = "manual"
)

// OdometerSource is a closed variant describing how the odometer reading is
// supplied. Each case carries exactly the data it needs.
type OdometerSource interface {
	isOdometerSource()
}

// OdometerPhoto means a dedicated dashboard photo was uploaded.
type OdometerPhoto struct {
	Image ImageFile
}

// OdometerOnReceipt means the reading is handwritten on the receipt photo.
type OdometerOnReceipt struct{}

// OdometerManual means the user typed the reading.
type OdometerManual struct {
	Reading string
}

func (OdometerPhoto) isOdometerSource()     {}
func (OdometerOnReceipt) isOdometerSource() {}
func (OdometerManual) isOdometerSource()    {}

// ParseOdometerSource builds the odometer source from the loose form fields,
// enforcing the conditional requirements before any upstream call is made.
func ParseOdometerSource(method string, photo *ImageFile, reading string) (OdometerSource, error) {
	switch method {
	case MethodSeparatePhoto:
		if photo == nil {
			return nil, &ValidationError{
				Field:   "odometerPhoto",
				Message: "odometerPhoto is required when odometerInputMethod is 'separate_photo'",
			}
		}
		return OdometerPhoto{Image: *photo}, nil
	case MethodOnReceiptPhoto:
		return OdometerOnReceipt{}, nil
	case MethodManual:
		if strings.TrimSpace(reading) == "" {
			return nil, &ValidationError{
				Field:   "odometerReading",
				Message: "odometerReading is required when odometerInputMethod is 'manual'",
			}
		}
		return OdometerManual{Reading: reading}, nil
	default:
		return nil, &ValidationError{
			Field:   "odometerInputMethod",
			Message: fmt.Sprintf("unknown odometerInputMethod %q", method),
		}
	}
}

// Request is one validated gas submission.
type Request struct {
	ReceiptPhoto   ImageFile
	Odometer       OdometerSource
	FilledToFull   string
	FilledLastTime string
	VehicleID      string
	UserName       string
}

// ReceiptData is the extracted receipt merged with the resolved odometer
// reading, echoed back to the caller.
type ReceiptData struct {
	extraction.ReceiptFields
	OdometerReading int `json:"odometerReading"`
}

// Result is the successful response for a gas submission.
type Result struct {
	Message            string          `json:"message"`
	ReceiptData        ReceiptData     `json:"receiptData"`
	LubeLoggerResponse json.RawMessage `json:"lubeLoggerResponse"`
}

// ValidationError means the client input violates a conditional requirement.
// It halts the request before any upstream call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamError means an outbound call to the AI service or the LubeLogger
// backend failed; the request is answered with 502.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// yesNo maps exactly "yes" (case-insensitive) to true. "no", empty, "true",
// "1" and everything else map to false.
func yesNo(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "yes")
}

// sentinelOdometer marks a submission with no usable odometer reading.
const sentinelOdometer = 999999

// parseManualOdometer converts a typed reading. Anything other than a pure
// string of digits resolves to the sentinel rather than failing the request.
func parseManualOdometer(reading string) int {
	for _, c := range reading {
		if c < '0' || c > '9' {
			return sentinelOdometer
		}
	}
	value, err := strconv.Atoi(reading)
	if err != nil {
		return sentinelOdometer
	}
	return value
}
