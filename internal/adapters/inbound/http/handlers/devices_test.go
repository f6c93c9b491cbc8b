package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/internal/ports"
	"github.com/stretchr/testify/require"
)

func TestDeviceHandler_Checkins(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		store      ports.PhotoStore
		request    func(t *testing.T) *http.Request
		call       func(env *testEnv) http.HandlerFunc
		wantStatus int
		wantKind   string
		wantCode   string
		wantField  string
		wantPhoto  bool
	}{
		{
			name: "computer from json",
			request: func(t *testing.T) *http.Request {
				return jsonRequest(t, http.MethodPost, "/api/computers/checkin", computerPayload())
			},
			call:       func(env *testEnv) http.HandlerFunc { return env.devices.CheckinComputer },
			wantStatus: http.StatusCreated,
			wantKind:   model.KindComputer.String(),
		},
		{
			name: "computer from multipart with photo",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/computers/checkin", map[string]string{
					"brand":     "Dell",
					"model":     "XPS 13",
					"ownerName": "Alan Turing",
				}, "laptop.JPG", []byte("jpeg-bytes"))
			},
			call:       func(env *testEnv) http.HandlerFunc { return env.devices.CheckinComputer },
			wantStatus: http.StatusCreated,
			wantKind:   model.KindComputer.String(),
			wantPhoto:  true,
		},
		{
			name: "frequent computer registration",
			request: func(t *testing.T) *http.Request {
				return jsonRequest(t, http.MethodPost, "/api/computers/frequent", computerPayload())
			},
			call:       func(env *testEnv) http.HandlerFunc { return env.devices.RegisterFrequentComputer },
			wantStatus: http.StatusCreated,
			wantKind:   model.KindFrequentComputer.String(),
		},
		{
			name: "medical device with serial",
			request: func(t *testing.T) *http.Request {
				payload := computerPayload()
				payload["serial"] = "MD-001"
				payload["deviceClass"] = "IIa"

				return jsonRequest(t, http.MethodPost, "/api/medicaldevices/checkin", payload)
			},
			call:       func(env *testEnv) http.HandlerFunc { return env.devices.CheckinMedicalDevice },
			wantStatus: http.StatusCreated,
			wantKind:   model.KindMedicalDevice.String(),
		},
		{
			name: "medical device without serial",
			request: func(t *testing.T) *http.Request {
				return jsonRequest(t, http.MethodPost, "/api/medicaldevices/checkin", computerPayload())
			},
			call:       func(env *testEnv) http.HandlerFunc { return env.devices.CheckinMedicalDevice },
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
			wantField:  "serial",
		},
		{
			name: "missing brand",
			request: func(t *testing.T) *http.Request {
				payload := computerPayload()
				delete(payload, "brand")

				return jsonRequest(t, http.MethodPost, "/api/computers/checkin", payload)
			},
			call:       func(env *testEnv) http.HandlerFunc { return env.devices.CheckinComputer },
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
			wantField:  "brand",
		},
		{
			name: "malformed json",
			request: func(*testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/computers/checkin", strings.NewReader("{brand"))
				req.Header.Set("Content-Type", "application/json")

				return req
			},
			call:       func(env *testEnv) http.HandlerFunc { return env.devices.CheckinComputer },
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_BODY",
		},
		{
			name: "unsupported content type",
			request: func(*testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/computers/checkin", strings.NewReader("brand=Dell"))
				req.Header.Set("Content-Type", "text/plain")

				return req
			},
			call:       func(env *testEnv) http.HandlerFunc { return env.devices.CheckinComputer },
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_BODY",
		},
		{
			name: "photo without extension",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/computers/checkin", map[string]string{
					"brand":     "Dell",
					"model":     "XPS 13",
					"ownerName": "Alan Turing",
				}, "laptop", []byte("jpeg-bytes"))
			},
			call:       func(env *testEnv) http.HandlerFunc { return env.devices.CheckinComputer },
			wantStatus: http.StatusInternalServerError,
			wantCode:   "PHOTO_STORE_ERROR",
		},
		{
			name: "photo with unsupported extension",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/computers/checkin", map[string]string{
					"brand":     "Dell",
					"model":     "XPS 13",
					"ownerName": "Alan Turing",
				}, "installer.exe", []byte("MZ"))
			},
			call:       func(env *testEnv) http.HandlerFunc { return env.devices.CheckinComputer },
			wantStatus: http.StatusInternalServerError,
			wantCode:   "PHOTO_STORE_ERROR",
		},
		{
			name:  "photo store failure",
			store: failingPhotoStore{},
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/computers/checkin", map[string]string{
					"brand":     "Dell",
					"model":     "XPS 13",
					"ownerName": "Alan Turing",
				}, "laptop.png", []byte("png-bytes"))
			},
			call:       func(env *testEnv) http.HandlerFunc { return env.devices.CheckinComputer },
			wantStatus: http.StatusInternalServerError,
			wantCode:   "PHOTO_STORE_ERROR",
		},
		{
			name: "body above upload limit",
			request: func(t *testing.T) *http.Request {
				payload := computerPayload()
				payload["color"] = strings.Repeat("x", maxUploadBytes)

				return jsonRequest(t, http.MethodPost, "/api/computers/checkin", payload)
			},
			call:       func(env *testEnv) http.HandlerFunc { return env.devices.CheckinComputer },
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "PAYLOAD_TOO_LARGE",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t, tc.store)
			rec := httptest.NewRecorder()

			tc.call(env)(rec, tc.request(t))

			require.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())

			if tc.wantCode != "" {
				response := decodeError(t, rec)
				require.Equal(t, tc.wantCode, response.Code)
				require.Equal(t, tc.wantField, response.Field)
				require.Len(t, env.sink.errorEvents(), 1)

				if rec.Code == http.StatusInternalServerError {
					require.Equal(t, "PhotoStoreError", env.sink.errorEvents()[0].Kind)
				}

				stored, err := env.repo.Count(t.Context(), nil)
				require.NoError(t, err)
				require.Zero(t, stored)

				return
			}

			device := decodeDevice(t, rec)
			require.Equal(t, tc.wantKind, device.Kind)
			require.Equal(t, model.StatePresent.String(), device.State)
			require.Equal(t, "/api/devices/"+device.ID, rec.Header().Get("Location"))
			require.Equal(t, "/api/devices/checkout/"+device.ID, device.Links.Checkout)
			require.Empty(t, env.sink.errorEvents())

			if tc.wantPhoto {
				require.Equal(t, "http://media.test/photo/"+device.ID+".jpg", device.PhotoURL)
			} else {
				require.Empty(t, device.PhotoURL)
			}
		})
	}
}

func TestDeviceHandler_InvalidIDRecordsErrorContext(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	rec := httptest.NewRecorder()

	env.devices.CheckoutDevice(rec, withID(httptest.NewRequest(http.MethodPatch, "/api/devices/checkout/abc", nil), "abc"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_ID", decodeError(t, rec).Code)

	events := env.sink.errorEvents()
	require.Len(t, events, 1)
	require.Equal(t, "ValidationError", events[0].Kind)
	require.Equal(t, map[string]string{"endpoint": "checkoutDevice", "id": "abc"}, events[0].Context)
}

func TestDeviceHandler_CheckoutLifecycle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	device := env.checkin(t)

	checkout := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := withID(httptest.NewRequest(http.MethodPatch, "/api/devices/checkout/"+device.ID, nil), device.ID)
		env.devices.CheckoutDevice(rec, req)

		return rec
	}

	first := checkout()
	require.Equal(t, http.StatusOK, first.Code)

	checkedOut := decodeDevice(t, first)
	require.Equal(t, model.StateCheckedOut.String(), checkedOut.State)
	require.Empty(t, checkedOut.Links.Checkout)

	second := checkout()
	require.Equal(t, http.StatusBadRequest, second.Code)
	require.Equal(t, "INVALID_STATE", decodeError(t, second).Code)

	unknown := model.NewDeviceID().String()
	rec := httptest.NewRecorder()
	env.devices.CheckoutDevice(rec, withID(httptest.NewRequest(http.MethodPatch, "/api/devices/checkout/"+unknown, nil), unknown))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestDeviceHandler_FrequentComputerReturns(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	rec := httptest.NewRecorder()
	env.devices.RegisterFrequentComputer(rec, jsonRequest(t, http.MethodPost, "/api/computers/frequent", computerPayload()))
	require.Equal(t, http.StatusCreated, rec.Code)

	registered := decodeDevice(t, rec)
	require.NotNil(t, registered.Frequent)
	require.Equal(t, 1, registered.Frequent.VisitCount)

	checkin := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := withID(httptest.NewRequest(http.MethodPatch, "/api/computers/frequent/checkin/"+registered.ID, nil), registered.ID)
		env.devices.CheckinFrequentComputer(rec, req)

		return rec
	}

	require.Equal(t, http.StatusBadRequest, checkin().Code)

	rec = httptest.NewRecorder()
	env.devices.CheckoutDevice(rec, withID(httptest.NewRequest(http.MethodPatch, "/", nil), registered.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/api/computers/frequent/checkin/"+registered.ID, decodeDevice(t, rec).Links.Checkin)

	again := checkin()
	require.Equal(t, http.StatusOK, again.Code)

	returned := decodeDevice(t, again)
	require.Equal(t, registered.ID, returned.ID)
	require.Equal(t, model.StatePresent.String(), returned.State)
	require.Equal(t, 2, returned.Frequent.VisitCount)
	require.Len(t, returned.Frequent.Visits, 1)
	require.NotNil(t, returned.Frequent.Visits[0].CheckedOutAt)
}

func TestDeviceHandler_Listings(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	for range 3 {
		env.checkin(t)
	}

	gone := env.checkin(t)

	rec := httptest.NewRecorder()
	env.devices.CheckoutDevice(rec, withID(httptest.NewRequest(http.MethodPatch, "/", nil), gone.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	cases := []struct {
		name       string
		target     string
		call       http.HandlerFunc
		wantStatus int
		wantItems  int
		wantTotal  uint
		wantField  string
	}{
		{
			name:       "computers paginated",
			target:     "/api/computers?page=1&size=2",
			call:       env.devices.GetComputers,
			wantStatus: http.StatusOK,
			wantItems:  2,
			wantTotal:  4,
		},
		{
			name:       "computers filtered by state",
			target:     "/api/computers?state=checked-out",
			call:       env.devices.GetComputers,
			wantStatus: http.StatusOK,
			wantItems:  1,
			wantTotal:  1,
		},
		{
			name:       "entered devices skip checked out",
			target:     "/api/devices/entered",
			call:       env.devices.GetEnteredDevices,
			wantStatus: http.StatusOK,
			wantItems:  3,
			wantTotal:  3,
		},
		{
			name:       "no frequent computers yet",
			target:     "/api/computers/frequent",
			call:       env.devices.GetFrequentComputers,
			wantStatus: http.StatusOK,
			wantItems:  0,
			wantTotal:  0,
		},
		{
			name:       "no medical devices yet",
			target:     "/api/medicaldevices",
			call:       env.devices.GetMedicalDevices,
			wantStatus: http.StatusOK,
			wantItems:  0,
			wantTotal:  0,
		},
		{
			name:       "size above maximum",
			target:     "/api/computers?size=500",
			call:       env.devices.GetComputers,
			wantStatus: http.StatusBadRequest,
			wantField:  "size",
		},
		{
			name:       "unknown sort field",
			target:     "/api/devices/entered?sort=-weight",
			call:       env.devices.GetEnteredDevices,
			wantStatus: http.StatusBadRequest,
			wantField:  "sort",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			tc.call(rec, httptest.NewRequest(http.MethodGet, tc.target, nil))

			require.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())

			if tc.wantField != "" {
				response := decodeError(t, rec)
				require.Equal(t, "VALIDATION_ERROR", response.Code)
				require.Equal(t, tc.wantField, response.Field)

				return
			}

			var body envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

			var items []json.RawMessage
			require.NoError(t, json.Unmarshal(body.Data, &items))
			require.Len(t, items, tc.wantItems)
			require.NotNil(t, body.Pagination)
			require.Equal(t, tc.wantTotal, body.Pagination.TotalItems)
			require.Equal(t, "v1", body.Meta["apiVersion"])
		})
	}
}

func TestDeviceHandler_GetDevice(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	created := env.checkin(t)

	rec := httptest.NewRecorder()
	env.devices.GetDevice(rec, withID(httptest.NewRequest(http.MethodGet, "/api/devices/"+created.ID, nil), created.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	found := decodeDevice(t, rec)
	require.Equal(t, created.ID, found.ID)
	require.Equal(t, "Ada Lovelace", found.Owner.Name)
	require.Equal(t, "CC-1815", found.Owner.ID)
	require.Equal(t, "/api/devices/"+created.ID, found.Links.Self)
}

func TestDeviceHandler_GetDeviceWithEscapedID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	created := env.checkin(t)

	escaped := strings.ReplaceAll(created.ID, "-", "%2D")

	rec := httptest.NewRecorder()
	env.devices.GetDevice(rec, withID(httptest.NewRequest(http.MethodGet, "/api/devices/"+escaped, nil), escaped))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, created.ID, decodeDevice(t, rec).ID)

	rec = httptest.NewRecorder()
	env.devices.GetDevice(rec, withID(httptest.NewRequest(http.MethodGet, "/api/devices/%zz", nil), "%zz"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_ID", decodeError(t, rec).Code)
}

func TestDeviceHandler_RejectRequest(t *testing.T) {
	t.Parallel()

	invalidPage := model.NewValidationErrors()
	invalidPage.Add(model.ParamPage, "page: number must be at least 1", model.CodeInvalidParameter)

	cases := []struct {
		name       string
		err        error
		status     int
		wantStatus int
		wantCode   string
		wantKind   string
	}{
		{
			name:       "validation failure",
			err:        invalidPage,
			status:     http.StatusBadRequest,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
			wantKind:   "ValidationError",
		},
		{
			name:       "body too large",
			err:        &http.MaxBytesError{Limit: 16},
			status:     http.StatusRequestEntityTooLarge,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "PAYLOAD_TOO_LARGE",
			wantKind:   "Error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t, nil)
			rec := httptest.NewRecorder()

			env.devices.RejectRequest(rec, httptest.NewRequest(http.MethodGet, "/api/computers?page=0", nil), tc.err, tc.status)

			require.Equal(t, tc.wantStatus, rec.Code)

			response := decodeError(t, rec)
			require.Equal(t, tc.wantCode, response.Code)

			events := env.sink.errorEvents()
			require.Len(t, events, 1)
			require.Equal(t, tc.wantKind, events[0].Kind)
			require.Equal(t, "requestValidation", events[0].Context["endpoint"])
		})
	}
}
