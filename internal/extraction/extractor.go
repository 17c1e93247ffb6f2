package extraction

import (
	"context"
	"fmt"
)

// ReceiptFields contains the structured data extracted from a receipt photo.
// Datetime is empty when the receipt has no printed date.
type ReceiptFields struct {
	TotalCost        float64 `json:"totalCost"`
	GallonsPurchased float64 `json:"gallonsPurchased"`
	Datetime         string  `json:"datetime"` // MM/DD/YYYY HH:MM
	StoreBrand       string  `json:"storeBrand"`
	StoreAddress     string  `json:"storeAddress"`
}

// OdometerFields contains an odometer reading extracted from a photo.
type OdometerFields struct {
	OdometerReading int `json:"odometerReading"`
}

// ImageContext tells the extractor what kind of photo the odometer reading
// appears in, so it can pick the right instruction text.
type ImageContext string

const (
	// ContextReceipt means the odometer was written by hand on the receipt.
	ContextReceipt ImageContext = "receipt"
	// ContextOdometer means the photo is of the vehicle dashboard itself.
	ContextOdometer ImageContext = "odometer"
)

// Extractor defines the interface for structured image extraction.
type Extractor interface {
	// ExtractReceipt extracts the full set of receipt fields from a photo.
	ExtractReceipt(ctx context.Context, image ImageInput) (*ReceiptFields, error)
	// ExtractOdometer extracts only an odometer reading from a photo.
	ExtractOdometer(ctx context.Context, image ImageInput, imageContext ImageContext) (*OdometerFields, error)
	// Close releases the underlying model client.
	Close() error
}

// ErrorKind discriminates extraction failures.
type ErrorKind int

const (
	// ErrKindUpstream covers transport, auth and model-invocation failures.
	ErrKindUpstream ErrorKind = iota
	// ErrKindInvalidModelOutput means the model returned text that is not
	// valid JSON despite the schema request. RawText holds what it said.
	ErrKindInvalidModelOutput
)

// Error is a structured extraction failure.
type Error struct {
	Kind    ErrorKind
	RawText string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrKindInvalidModelOutput:
		return fmt.Sprintf("model returned invalid JSON: %v", e.Err)
	default:
		return fmt.Sprintf("extraction failed: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}
