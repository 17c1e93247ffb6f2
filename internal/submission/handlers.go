package submission

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
)

// Parse multipart forms up to 50MB to handle high-resolution phone photos.
const maxFormSize = int64(50 << 20)

// writeJSON writes a JSON response body with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes an error response as JSON
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, validationErr.Message)
		return
	}
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		writeError(w, http.StatusBadGateway, upstreamErr.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// handleSubmitGas handles a gas receipt submission
func (s *Server) handleSubmitGas(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		message := "Error parsing form"
		if err.Error() == "http: request body too large" {
			message = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		writeError(w, http.StatusBadRequest, message)
		return
	}

	receiptPhoto, err := formImage(r, "receiptPhoto")
	if err != nil {
		slog.Error("Error reading receipt photo", "error", err)
		writeError(w, http.StatusBadRequest, "Error reading receiptPhoto")
		return
	}
	if receiptPhoto == nil {
		writeError(w, http.StatusBadRequest, "receiptPhoto is required")
		return
	}

	odometerPhoto, err := formImage(r, "odometerPhoto")
	if err != nil {
		slog.Error("Error reading odometer photo", "error", err)
		writeError(w, http.StatusBadRequest, "Error reading odometerPhoto")
		return
	}

	for _, field := range []string{"filledToFull", "filledLastTime", "vehicleId", "userName"} {
		if r.FormValue(field) == "" {
			writeError(w, http.StatusBadRequest, field+" is required")
			return
		}
	}

	source, err := ParseOdometerSource(r.FormValue("odometerInputMethod"), odometerPhoto, r.FormValue("odometerReading"))
	if err != nil {
		slog.Info("Submission validation failed", "error", err)
		writeServiceError(w, err)
		return
	}

	req := &Request{
		ReceiptPhoto:   *receiptPhoto,
		Odometer:       source,
		FilledToFull:   r.FormValue("filledToFull"),
		FilledLastTime: r.FormValue("filledLastTime"),
		VehicleID:      r.FormValue("vehicleId"),
		UserName:       r.FormValue("userName"),
	}

	result, err := s.service.SubmitGas(r.Context(), req)
	if err != nil {
		slog.Error("Gas submission failed", "vehicleId", req.VehicleID, "error", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleVehicles returns the vehicles visible to the receipt app
func (s *Server) handleVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := s.service.ListVehicles(r.Context())
	if err != nil {
		slog.Error("Error listing vehicles", "error", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]VehicleSummary{"vehicles": vehicles})
}

// handleHealth probes the downstream backend
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// handleAuthTest echoes the verified token claims
func (s *Server) handleAuthTest(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "authentication is disabled"})
		return
	}
	writeJSON(w, http.StatusOK, claims)
}

// formImage reads an uploaded image field. A missing optional field returns
// nil with no error.
func formImage(r *http.Request, field string) (*ImageFile, error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = sniffContentType(header.Filename)
	}

	return &ImageFile{
		Filename:    header.Filename,
		ContentType: strings.ToLower(strings.TrimSpace(contentType)),
		Data:        data,
	}, nil
}

// sniffContentType guesses a content type from the filename extension for
// clients that do not label their uploads.
func sniffContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}
