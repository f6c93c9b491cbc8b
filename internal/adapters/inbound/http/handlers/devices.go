package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/architeacher/checkpoint/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/internal/ports"
	"github.com/architeacher/checkpoint/internal/usecases"
	"github.com/architeacher/checkpoint/internal/usecases/commands"
	"github.com/architeacher/checkpoint/internal/usecases/queries"
	"github.com/architeacher/checkpoint/pkg/idempotency"
	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const (
	basePath = "/api"

	// IDParam is the chi URL parameter carrying a device id.
	IDParam = "id"
)

type DeviceHandler struct {
	app            *usecases.Application
	etags          *middleware.ETagGenerator
	telemetry      ports.TelemetrySink
	logger         logger.Logger
	apiVersion     string
	maxUploadBytes int64
}

func NewDeviceHandler(
	app *usecases.Application,
	telemetry ports.TelemetrySink,
	log logger.Logger,
	apiVersion string,
	maxUploadBytes int64,
) *DeviceHandler {
	return &DeviceHandler{
		app:            app,
		etags:          middleware.NewETagGenerator(),
		telemetry:      telemetry,
		logger:         log.Component("device_handler"),
		apiVersion:     apiVersion,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *DeviceHandler) CheckinComputer(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeCheckin(w, r, h.maxUploadBytes)
	if err != nil {
		h.fail(w, r, "checkinComputer", "", err)

		return
	}

	device, err := h.app.Commands.CheckinComputer.Handle(r.Context(), commands.CheckinComputerCommand{
		Request: payload.computerRequest(),
	})
	if err != nil {
		h.fail(w, r, "checkinComputer", "", err)

		return
	}

	h.created(w, r, device)
}

func (h *DeviceHandler) RegisterFrequentComputer(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeCheckin(w, r, h.maxUploadBytes)
	if err != nil {
		h.fail(w, r, "registerFrequentComputer", "", err)

		return
	}

	device, err := h.app.Commands.RegisterFrequentComputer.Handle(r.Context(), commands.RegisterFrequentComputerCommand{
		Request: payload.computerRequest(),
	})
	if err != nil {
		h.fail(w, r, "registerFrequentComputer", "", err)

		return
	}

	h.created(w, r, device)
}

func (h *DeviceHandler) CheckinMedicalDevice(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeCheckin(w, r, h.maxUploadBytes)
	if err != nil {
		h.fail(w, r, "checkinMedicalDevice", "", err)

		return
	}

	device, err := h.app.Commands.CheckinMedicalDevice.Handle(r.Context(), commands.CheckinMedicalDeviceCommand{
		Request: payload.medicalDeviceRequest(),
	})
	if err != nil {
		h.fail(w, r, "checkinMedicalDevice", "", err)

		return
	}

	h.created(w, r, device)
}

func (h *DeviceHandler) CheckinFrequentComputer(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, IDParam)

	id, err := deviceIDParam(rawID)
	if err != nil {
		h.fail(w, r, "checkinFrequentComputer", rawID, err)

		return
	}

	device, err := h.app.Commands.CheckinFrequentComputer.Handle(r.Context(), commands.CheckinFrequentComputerCommand{ID: id})
	if err != nil {
		h.fail(w, r, "checkinFrequentComputer", rawID, err)

		return
	}

	h.ok(w, r, toDeviceData(device), nil)
}

func (h *DeviceHandler) CheckoutDevice(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, IDParam)

	id, err := deviceIDParam(rawID)
	if err != nil {
		h.fail(w, r, "checkoutDevice", rawID, err)

		return
	}

	device, err := h.app.Commands.CheckoutDevice.Handle(r.Context(), commands.CheckoutDeviceCommand{ID: id})
	if err != nil {
		h.fail(w, r, "checkoutDevice", rawID, err)

		return
	}

	h.ok(w, r, toDeviceData(device), nil)
}

func (h *DeviceHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, IDParam)

	id, err := deviceIDParam(rawID)
	if err != nil {
		h.fail(w, r, "getDevice", rawID, err)

		return
	}

	device, err := h.app.Queries.GetDevice.Execute(r.Context(), queries.GetDeviceQuery{ID: id})
	if err != nil {
		h.fail(w, r, "getDevice", rawID, err)

		return
	}

	h.ok(w, r, toDeviceData(device), nil)
}

func (h *DeviceHandler) GetComputers(w http.ResponseWriter, r *http.Request) {
	criteria, err := model.ParseCriteria(r.URL.Query())
	if err != nil {
		h.fail(w, r, "getComputers", "", err)

		return
	}

	list, err := h.app.Queries.GetComputers.Execute(r.Context(), queries.GetComputersQuery{Criteria: criteria})
	if err != nil {
		h.fail(w, r, "getComputers", "", err)

		return
	}

	h.ok(w, r, toDeviceListData(list.Devices), toPaginationData(list.Pagination))
}

func (h *DeviceHandler) GetFrequentComputers(w http.ResponseWriter, r *http.Request) {
	criteria, err := model.ParseCriteria(r.URL.Query())
	if err != nil {
		h.fail(w, r, "getFrequentComputers", "", err)

		return
	}

	list, err := h.app.Queries.GetFrequentComputers.Execute(r.Context(), queries.GetFrequentComputersQuery{Criteria: criteria})
	if err != nil {
		h.fail(w, r, "getFrequentComputers", "", err)

		return
	}

	h.ok(w, r, toDeviceListData(list.Devices), toPaginationData(list.Pagination))
}

func (h *DeviceHandler) GetMedicalDevices(w http.ResponseWriter, r *http.Request) {
	criteria, err := model.ParseCriteria(r.URL.Query())
	if err != nil {
		h.fail(w, r, "getMedicalDevices", "", err)

		return
	}

	list, err := h.app.Queries.GetMedicalDevices.Execute(r.Context(), queries.GetMedicalDevicesQuery{Criteria: criteria})
	if err != nil {
		h.fail(w, r, "getMedicalDevices", "", err)

		return
	}

	h.ok(w, r, toDeviceListData(list.Devices), toPaginationData(list.Pagination))
}

func (h *DeviceHandler) GetEnteredDevices(w http.ResponseWriter, r *http.Request) {
	criteria, err := model.ParseCriteria(r.URL.Query())
	if err != nil {
		h.fail(w, r, "getEnteredDevices", "", err)

		return
	}

	list, err := h.app.Queries.GetEnteredDevices.Execute(r.Context(), queries.GetEnteredDevicesQuery{Criteria: criteria})
	if err != nil {
		h.fail(w, r, "getEnteredDevices", "", err)

		return
	}

	h.ok(w, r, toEnteredDeviceListData(list.Devices), toPaginationData(list.Pagination))
}

func (h *DeviceHandler) created(w http.ResponseWriter, r *http.Request, device *model.Device) {
	w.Header().Set("Location", devicePath(device.ID))
	writeJSONResponse(w, http.StatusCreated, EnvelopedResponse{
		Data: toDeviceData(device),
		Meta: newMeta(r, h.apiVersion),
	})
}

func (h *DeviceHandler) ok(w http.ResponseWriter, r *http.Request, data any, pagination *paginationData) {
	response := EnvelopedResponse{
		Data:       data,
		Meta:       newMeta(r, h.apiVersion),
		Pagination: pagination,
	}

	// meta differs on every request, so reads are tagged on the representation alone.
	if r.Method == http.MethodGet {
		if representation, err := json.Marshal(struct {
			Data       any             `json:"data"`
			Pagination *paginationData `json:"pagination,omitempty"`
		}{data, pagination}); err == nil {
			w.Header().Set("ETag", h.etags.GenerateWeak(representation))
		}
	}

	writeJSONResponse(w, http.StatusOK, response)
}

// RejectRequest reports a request the OpenAPI validator turned away. The status
// follows from err the same way it does for handler failures.
func (h *DeviceHandler) RejectRequest(w http.ResponseWriter, r *http.Request, err error, _ int) {
	h.fail(w, r, "requestValidation", "", err)
}

// fail reports err to the telemetry sink and writes the mapped error response.
func (h *DeviceHandler) fail(w http.ResponseWriter, r *http.Request, endpoint, id string, err error) {
	status, response := errorResponseFor(err)

	eventCtx := map[string]string{"endpoint": endpoint}
	if id != "" {
		eventCtx["id"] = id
	}

	if key, ok := idempotency.FromContext(r.Context()); ok {
		eventCtx["idempotencyKey"] = key
	}

	h.telemetry.RecordError(r.Context(), model.ErrorEvent{
		Kind:    model.ErrorKind(err),
		Message: err.Error(),
		Context: eventCtx,
	})

	if status >= http.StatusInternalServerError {
		reqLogger := h.logger.WithContext(r.Context())
		reqLogger.Error().Err(err).Str("endpoint", endpoint).Msg("request failed")
	}

	writeErrorResponse(w, status, response)
}
