package submission

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/masoncfrancis/gasreceiptautomation/internal/lubelogger"
)

// submitForm builds a multipart submission body. Fields or files can be
// omitted by individual specs.
type submitForm struct {
	fields map[string]string
	files  map[string][]byte
}

func defaultSubmitForm() *submitForm {
	return &submitForm{
		fields: map[string]string{
			"odometerInputMethod": "manual",
			"odometerReading":     "88210",
			"filledToFull":        "yes",
			"filledLastTime":      "yes",
			"vehicleId":           "4",
			"userName":            "Mason",
		},
		files: map[string][]byte{
			"receiptPhoto": []byte("receipt bytes"),
		},
	}
}

func (f *submitForm) request() *http.Request {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, value := range f.fields {
		Expect(writer.WriteField(name, value)).To(Succeed())
	}
	for name, data := range f.files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+name+`"; filename="`+name+`.jpg"`)
		header.Set("Content-Type", "image/jpeg")
		part, err := writer.CreatePart(header)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(writer.Close()).To(Succeed())

	req := httptest.NewRequest(http.MethodPost, "/submitGas", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

var _ = Describe("Server", func() {
	var (
		extractor *mockExtractor
		logbook   *mockGasLogger
		server    *Server
		recorder  *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		extractor = newMockExtractor()
		logbook = newMockGasLogger()
		timeSrc := &mockTimeSource{now: time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)}
		service := NewServiceWithDeps(extractor, logbook, timeSrc)
		server = NewServer(service, nil)
		recorder = httptest.NewRecorder()
	})

	errorBody := func() string {
		var body map[string]string
		Expect(json.Unmarshal(recorder.Body.Bytes(), &body)).To(Succeed())
		return body["error"]
	}

	Describe("POST /submitGas", func() {
		When("the form is complete", func() {
			JustBeforeEach(func() {
				server.ServeHTTP(recorder, defaultSubmitForm().request())
			})

			It("should respond 200 with the submission result", func() {
				Expect(recorder.Code).To(Equal(http.StatusOK))

				var result Result
				Expect(json.Unmarshal(recorder.Body.Bytes(), &result)).To(Succeed())
				Expect(result.Message).To(Equal("Form submitted successfully"))
				Expect(result.ReceiptData.TotalCost).To(Equal(45.20))
				Expect(result.ReceiptData.OdometerReading).To(Equal(88210))
			})

			It("should set CORS headers", func() {
				Expect(recorder.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
			})

			It("should pass the uploaded photo through to the backend", func() {
				Expect(logbook.lastUploadDocs).To(HaveLen(1))
				Expect(logbook.lastUploadDocs[0].Filename).To(Equal("receiptPhoto.jpg"))
				Expect(logbook.lastUploadDocs[0].ContentType).To(Equal("image/jpeg"))
				Expect(logbook.lastUploadDocs[0].Data).To(Equal([]byte("receipt bytes")))
			})
		})

		When("the receipt photo is missing", func() {
			JustBeforeEach(func() {
				form := defaultSubmitForm()
				delete(form.files, "receiptPhoto")
				server.ServeHTTP(recorder, form.request())
			})

			It("should respond 400", func() {
				Expect(recorder.Code).To(Equal(http.StatusBadRequest))
				Expect(errorBody()).To(Equal("receiptPhoto is required"))
			})

			It("should make no upstream calls", func() {
				Expect(extractor.receiptCalls).To(Equal(0))
				Expect(logbook.uploadCalls).To(Equal(0))
			})
		})

		When("a required field is blank", func() {
			JustBeforeEach(func() {
				form := defaultSubmitForm()
				delete(form.fields, "vehicleId")
				server.ServeHTTP(recorder, form.request())
			})

			It("should respond 400 naming the field", func() {
				Expect(recorder.Code).To(Equal(http.StatusBadRequest))
				Expect(errorBody()).To(Equal("vehicleId is required"))
			})
		})

		When("separate_photo is chosen without an odometer photo", func() {
			JustBeforeEach(func() {
				form := defaultSubmitForm()
				form.fields["odometerInputMethod"] = "separate_photo"
				delete(form.fields, "odometerReading")
				server.ServeHTTP(recorder, form.request())
			})

			It("should respond 400 before any upstream call", func() {
				Expect(recorder.Code).To(Equal(http.StatusBadRequest))
				Expect(errorBody()).To(Equal("odometerPhoto is required when odometerInputMethod is 'separate_photo'"))
				Expect(extractor.receiptCalls).To(Equal(0))
				Expect(logbook.uploadCalls).To(Equal(0))
			})
		})

		When("the odometer input method is unknown", func() {
			JustBeforeEach(func() {
				form := defaultSubmitForm()
				form.fields["odometerInputMethod"] = "telepathy"
				server.ServeHTTP(recorder, form.request())
			})

			It("should respond 400", func() {
				Expect(recorder.Code).To(Equal(http.StatusBadRequest))
				Expect(errorBody()).To(ContainSubstring("telepathy"))
			})
		})

		When("the document upload fails", func() {
			JustBeforeEach(func() {
				logbook.uploadErr = &lubelogger.APIError{StatusCode: 500, Body: "disk full"}
				server.ServeHTTP(recorder, defaultSubmitForm().request())
			})

			It("should respond 502", func() {
				Expect(recorder.Code).To(Equal(http.StatusBadGateway))
				Expect(errorBody()).To(ContainSubstring("uploading documents"))
			})

			It("should never submit the gas record", func() {
				Expect(logbook.addCalls).To(Equal(0))
			})
		})

		When("receipt extraction fails", func() {
			JustBeforeEach(func() {
				extractor.receiptErr = errors.New("model unavailable")
				server.ServeHTTP(recorder, defaultSubmitForm().request())
			})

			It("should respond 502", func() {
				Expect(recorder.Code).To(Equal(http.StatusBadGateway))
			})
		})
	})

	Describe("GET /vehicles", func() {
		JustBeforeEach(func() {
			logbook.vehicles = []lubelogger.Vehicle{
				{ID: 1, Year: 2019, Make: "Honda", Model: "Civic", ExtraFields: []lubelogger.ExtraField{{Name: "showInReceiptApp", Value: "false"}}},
				{ID: 2, Year: 2021, Make: "Toyota", Model: "Tacoma"},
			}
			server.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/vehicles", nil))
		})

		It("should return only the visible vehicles", func() {
			Expect(recorder.Code).To(Equal(http.StatusOK))

			var body map[string][]VehicleSummary
			Expect(json.Unmarshal(recorder.Body.Bytes(), &body)).To(Succeed())
			Expect(body["vehicles"]).To(HaveLen(1))
			Expect(body["vehicles"][0].VehicleID).To(Equal(2))
		})
	})

	Describe("GET /health", func() {
		When("the backend responds", func() {
			It("should report OK", func() {
				server.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
				Expect(recorder.Code).To(Equal(http.StatusOK))
				Expect(recorder.Body.String()).To(MatchJSON(`{"status": "OK"}`))
			})
		})

		When("the backend is down", func() {
			It("should respond 502", func() {
				logbook.pingErr = errors.New("connection refused")
				server.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
				Expect(recorder.Code).To(Equal(http.StatusBadGateway))
			})
		})
	})

	Describe("GET /authTest", func() {
		When("no guard is configured", func() {
			It("should report authentication disabled", func() {
				server.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/authTest", nil))
				Expect(recorder.Code).To(Equal(http.StatusOK))
				Expect(recorder.Body.String()).To(MatchJSON(`{"message": "authentication is disabled"}`))
			})
		})
	})

	Describe("CORS preflight", func() {
		It("should answer OPTIONS with 204 and CORS headers", func() {
			server.ServeHTTP(recorder, httptest.NewRequest(http.MethodOptions, "/submitGas", nil))
			Expect(recorder.Code).To(Equal(http.StatusNoContent))
			Expect(recorder.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring("POST"))
		})
	})

	Describe("with a guard", func() {
		var guardCalls int

		BeforeEach(func() {
			guardCalls = 0
			deny := func(next http.HandlerFunc) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					guardCalls++
					writeError(w, http.StatusUnauthorized, "missing token")
				}
			}
			service := NewServiceWithDeps(extractor, logbook, &mockTimeSource{now: time.Now()})
			server = NewServer(service, deny)
		})

		It("should protect the API routes", func() {
			server.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/vehicles", nil))
			Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
			Expect(guardCalls).To(Equal(1))
		})

		It("should leave /health open", func() {
			server.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(guardCalls).To(Equal(0))
		})
	})
})
