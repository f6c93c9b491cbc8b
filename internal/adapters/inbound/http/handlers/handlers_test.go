package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/architeacher/checkpoint/internal/adapters/inbound/http/handlers"
	"github.com/architeacher/checkpoint/internal/adapters/photos"
	"github.com/architeacher/checkpoint/internal/adapters/repos"
	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/internal/infrastructure"
	"github.com/architeacher/checkpoint/internal/ports"
	"github.com/architeacher/checkpoint/internal/services"
	"github.com/architeacher/checkpoint/internal/usecases"
	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/architeacher/checkpoint/pkg/metrics/noop"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

const maxUploadBytes = 1 << 20

type (
	recordingSink struct {
		mu       sync.Mutex
		requests []model.RequestEvent
		errors   []model.ErrorEvent
	}

	failingPhotoStore struct{}

	testEnv struct {
		devices *handlers.DeviceHandler
		health  *handlers.HealthHandler
		sink    *recordingSink
		repo    ports.DevicesRepository
	}

	envelope struct {
		Data       json.RawMessage `json:"data"`
		Meta       map[string]any  `json:"meta"`
		Pagination *struct {
			Page       uint `json:"page"`
			Size       uint `json:"size"`
			TotalItems uint `json:"totalItems"`
			HasNext    bool `json:"hasNext"`
		} `json:"pagination"`
	}

	deviceBody struct {
		ID       string `json:"id"`
		Kind     string `json:"kind"`
		Brand    string `json:"brand"`
		State    string `json:"state"`
		PhotoURL string `json:"photoUrl"`
		Owner    struct {
			Name string `json:"name"`
			ID   string `json:"id"`
		} `json:"owner"`
		Frequent *struct {
			VisitCount int `json:"visitCount"`
			Visits     []struct {
				CheckedOutAt *string `json:"checkedOutAt"`
			} `json:"visits"`
		} `json:"frequent"`
		Medical *struct {
			Serial string `json:"serial"`
		} `json:"medical"`
		Links struct {
			Self     string `json:"self"`
			Checkout string `json:"checkout"`
			Checkin  string `json:"checkin"`
		} `json:"links"`
	}
)

func (s *recordingSink) RecordRequest(_ context.Context, e model.RequestEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, e)
}

func (s *recordingSink) RecordError(_ context.Context, e model.ErrorEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errors = append(s.errors, e)
}

func (s *recordingSink) RecordInfo(context.Context, model.InfoEvent) {}

func (s *recordingSink) Flush(context.Context) error { return nil }

func (s *recordingSink) Shutdown(context.Context) error { return nil }

func (s *recordingSink) errorEvents() []model.ErrorEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]model.ErrorEvent(nil), s.errors...)
}

func (failingPhotoStore) Save(context.Context, model.Photo, model.DeviceID) (string, error) {
	return "", model.ErrPhotoStore
}

func newTestEnv(t *testing.T, store ports.PhotoStore, monitors ...ports.DependencyMonitor) *testEnv {
	t.Helper()

	log := logger.NewTestLogger()

	if store == nil {
		fsStore, err := photos.NewFilesystemStore(t.TempDir(), "http://media.test", []string{"jpg", "png"}, log)
		require.NoError(t, err)

		store = fsStore
	}

	repo := repos.NewMemoryDevicesRepository(log)
	app := usecases.NewApplication(usecases.Services{
		Computers:      services.NewComputerService(repo, store),
		MedicalDevices: services.NewMedicalDeviceService(repo, store),
		Devices:        services.NewDeviceService(repo),
		Health:         services.NewHealthService(repo, "v1", monitors),
	}, log, infrastructure.NewNoopTracerProvider(), noop.NewMetricsClient())

	sink := &recordingSink{}

	return &testEnv{
		devices: handlers.NewDeviceHandler(app, sink, log, "v1", maxUploadBytes),
		health:  handlers.NewHealthHandler(app),
		sink:    sink,
		repo:    repo,
	}
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	return req
}

func multipartRequest(t *testing.T, target string, fields map[string]string, photoName string, photo []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}

	if photoName != "" {
		part, err := writer.CreateFormFile("photo", photoName)
		require.NoError(t, err)

		_, err = part.Write(photo)
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return req
}

func withID(req *http.Request, id string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(handlers.IDParam, id)

	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func decodeDevice(t *testing.T, rec *httptest.ResponseRecorder) deviceBody {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	var device deviceBody
	require.NoError(t, json.Unmarshal(env.Data, &device))

	return device
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handlers.ErrorResponse {
	t.Helper()

	var response handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	return response
}

func computerPayload() map[string]any {
	return map[string]any{
		"brand":     "Lenovo",
		"model":     "ThinkPad X1",
		"color":     "black",
		"ownerName": "Ada Lovelace",
		"ownerId":   "CC-1815",
	}
}

func (e *testEnv) checkin(t *testing.T) deviceBody {
	t.Helper()

	rec := httptest.NewRecorder()
	e.devices.CheckinComputer(rec, jsonRequest(t, http.MethodPost, "/api/computers/checkin", computerPayload()))
	require.Equal(t, http.StatusCreated, rec.Code)

	return decodeDevice(t, rec)
}
