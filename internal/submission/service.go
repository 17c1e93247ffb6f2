package submission

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/masoncfrancis/gasreceiptautomation/internal/extraction"
	"github.com/masoncfrancis/gasreceiptautomation/internal/lubelogger"
)

// GasLogger is the slice of the LubeLogger API the orchestrator needs.
type GasLogger interface {
	UploadDocuments(ctx context.Context, docs []lubelogger.Document) (json.RawMessage, error)
	AddGasRecord(ctx context.Context, vehicleID string, record lubelogger.GasRecord) (json.RawMessage, error)
	ListVehicles(ctx context.Context) ([]lubelogger.Vehicle, error)
	Ping(ctx context.Context) error
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// healthProbeTimeout bounds the reachability check behind /health.
const healthProbeTimeout = 5 * time.Second

// Service orchestrates gas submissions: extraction, odometer resolution,
// document upload and record submission. It holds no state between requests.
type Service struct {
	extractor  extraction.Extractor
	logbook    GasLogger
	timeSource TimeSource
	eastern    *time.Location
}

// NewService creates a new Service with the default time source.
func NewService(extractor extraction.Extractor, logbook GasLogger) *Service {
	return NewServiceWithDeps(extractor, logbook, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with a custom time source for
// testing.
func NewServiceWithDeps(extractor extraction.Extractor, logbook GasLogger, timeSource TimeSource) *Service {
	eastern, err := time.LoadLocation("America/New_York")
	if err != nil {
		slog.Warn("Failed to load Eastern time zone, notes will use UTC", "error", err)
		eastern = time.UTC
	}
	return &Service{
		extractor:  extractor,
		logbook:    logbook,
		timeSource: timeSource,
		eastern:    eastern,
	}
}

// SubmitGas runs one submission end to end. Validation has already happened
// when the Request was built; every stage after it can still fail the
// request with an UpstreamError.
func (s *Service) SubmitGas(ctx context.Context, req *Request) (*Result, error) {
	slog.Info("Starting gas submission", "vehicleId", req.VehicleID, "user", req.UserName)

	fields, err := s.extractor.ExtractReceipt(ctx, imageInput(req.ReceiptPhoto))
	if err != nil {
		return nil, &UpstreamError{Op: "extracting receipt data", Err: err}
	}

	now := s.timeSource.Now()
	dateIncluded := fields.Datetime != ""
	if !dateIncluded {
		slog.Info("No date found on receipt, substituting current time")
		fields.Datetime = now.Format("01/02/2006 15:04")
	}

	odometer := s.resolveOdometer(ctx, req)

	docs := []lubelogger.Document{{
		Filename:    req.ReceiptPhoto.Filename,
		ContentType: req.ReceiptPhoto.ContentType,
		Data:        req.ReceiptPhoto.Data,
	}}
	if photo, ok := req.Odometer.(OdometerPhoto); ok {
		docs = append(docs, lubelogger.Document{
			Filename:    photo.Image.Filename,
			ContentType: photo.Image.ContentType,
			Data:        photo.Image.Data,
		})
	}

	slog.Info("Uploading original photos", "count", len(docs))
	files, err := s.logbook.UploadDocuments(ctx, docs)
	if err != nil {
		return nil, &UpstreamError{Op: "uploading documents", Err: err}
	}

	submittedAt := now.In(s.eastern).Format("2006-01-02 15:04:05 MST")
	notes := composeNotes(fields.StoreBrand, fields.StoreAddress, fields.Datetime, req.UserName, submittedAt, !dateIncluded)

	recordDate := fields.Datetime
	if !dateIncluded {
		recordDate = submittedAt
	}

	record := lubelogger.GasRecord{
		Date:         recordDate,
		Odometer:     odometer,
		FuelConsumed: fields.GallonsPurchased,
		Cost:         fields.TotalCost,
		IsFillToFull: yesNo(req.FilledToFull),
		MissedFuelUp: !yesNo(req.FilledLastTime),
		Notes:        notes,
		Files:        files,
	}

	slog.Info("Submitting gas record", "vehicleId", req.VehicleID, "odometer", odometer)
	response, err := s.logbook.AddGasRecord(ctx, req.VehicleID, record)
	if err != nil {
		return nil, &UpstreamError{Op: "sending gas record to LubeLogger", Err: err}
	}

	slog.Info("Gas submission completed", "vehicleId", req.VehicleID)
	return &Result{
		Message:            "Form submitted successfully",
		ReceiptData:        ReceiptData{ReceiptFields: *fields, OdometerReading: odometer},
		LubeLoggerResponse: response,
	}, nil
}

// resolveOdometer produces the reading for the submission's odometer source.
// A failed photo extraction degrades to the sentinel instead of discarding
// an otherwise valid receipt.
func (s *Service) resolveOdometer(ctx context.Context, req *Request) int {
	switch src := req.Odometer.(type) {
	case OdometerPhoto:
		reading, err := s.extractor.ExtractOdometer(ctx, imageInput(src.Image), extraction.ContextOdometer)
		if err != nil {
			slog.Warn("Odometer photo extraction failed, using sentinel", "error", err)
			return sentinelOdometer
		}
		return reading.OdometerReading
	case OdometerOnReceipt:
		reading, err := s.extractor.ExtractOdometer(ctx, imageInput(req.ReceiptPhoto), extraction.ContextReceipt)
		if err != nil {
			slog.Warn("Handwritten odometer extraction failed, using sentinel", "error", err)
			return sentinelOdometer
		}
		return reading.OdometerReading
	case OdometerManual:
		return parseManualOdometer(src.Reading)
	}
	return sentinelOdometer
}

// VehicleSummary is a vehicle as exposed to the receipt app.
type VehicleSummary struct {
	VehicleID int    `json:"vehicleId"`
	Year      int    `json:"year"`
	Make      string `json:"make"`
	Model     string `json:"model"`
}

// ListVehicles fetches the backend's vehicles, excluding any flagged out of
// the receipt app via the showInReceiptApp extra field.
func (s *Service) ListVehicles(ctx context.Context) ([]VehicleSummary, error) {
	vehicles, err := s.logbook.ListVehicles(ctx)
	if err != nil {
		return nil, &UpstreamError{Op: "fetching vehicles", Err: err}
	}

	summaries := make([]VehicleSummary, 0, len(vehicles))
	for _, v := range vehicles {
		if hiddenInReceiptApp(v) {
			continue
		}
		summaries = append(summaries, VehicleSummary{
			VehicleID: v.ID,
			Year:      v.Year,
			Make:      v.Make,
			Model:     v.Model,
		})
	}
	return summaries, nil
}

func hiddenInReceiptApp(v lubelogger.Vehicle) bool {
	for _, field := range v.ExtraFields {
		if field.Name == "showInReceiptApp" && field.Value == "false" {
			return true
		}
	}
	return false
}

// CheckHealth probes the LubeLogger backend.
func (s *Service) CheckHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	if err := s.logbook.Ping(ctx); err != nil {
		return &UpstreamError{Op: "reaching LubeLogger", Err: err}
	}
	return nil
}

func imageInput(f ImageFile) extraction.ImageInput {
	return extraction.ImageInput{Data: f.Data, ContentType: f.ContentType}
}
