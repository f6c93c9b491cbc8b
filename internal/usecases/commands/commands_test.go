package commands_test

import (
	"context"
	"testing"
	"time"

	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/internal/infrastructure"
	"github.com/architeacher/checkpoint/internal/usecases/commands"
	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/architeacher/checkpoint/pkg/metrics/noop"
	"github.com/stretchr/testify/require"
)

var enteredAt = time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)

type (
	mockComputerService struct {
		checkinComputerFn          func(ctx context.Context, request model.ComputerRequest) (*model.Device, error)
		registerFrequentComputerFn func(ctx context.Context, request model.ComputerRequest) (*model.Device, error)
		checkinFrequentComputerFn  func(ctx context.Context, id model.DeviceID) (*model.Device, error)
	}

	mockMedicalDeviceService struct {
		checkinMedicalDeviceFn func(ctx context.Context, request model.MedicalDeviceRequest) (*model.Device, error)
	}

	mockDeviceService struct {
		checkoutDeviceFn func(ctx context.Context, id model.DeviceID) (*model.Device, error)
	}
)

func (m *mockComputerService) CheckinComputer(ctx context.Context, request model.ComputerRequest) (*model.Device, error) {
	if m.checkinComputerFn != nil {
		return m.checkinComputerFn(ctx, request)
	}

	return model.NewComputer(model.NewDeviceID(), request.Details(), enteredAt), nil
}

func (m *mockComputerService) RegisterFrequentComputer(ctx context.Context, request model.ComputerRequest) (*model.Device, error) {
	if m.registerFrequentComputerFn != nil {
		return m.registerFrequentComputerFn(ctx, request)
	}

	return model.NewFrequentComputer(model.NewDeviceID(), request.Details(), enteredAt), nil
}

func (m *mockComputerService) CheckinFrequentComputer(ctx context.Context, id model.DeviceID) (*model.Device, error) {
	if m.checkinFrequentComputerFn != nil {
		return m.checkinFrequentComputerFn(ctx, id)
	}

	return nil, model.ErrDeviceNotFound
}

func (m *mockComputerService) GetComputers(context.Context, model.Criteria) (*model.DeviceList, error) {
	return &model.DeviceList{}, nil
}

func (m *mockComputerService) GetFrequentComputers(context.Context, model.Criteria) (*model.DeviceList, error) {
	return &model.DeviceList{}, nil
}

func (m *mockMedicalDeviceService) CheckinMedicalDevice(ctx context.Context, request model.MedicalDeviceRequest) (*model.Device, error) {
	if m.checkinMedicalDeviceFn != nil {
		return m.checkinMedicalDeviceFn(ctx, request)
	}

	return model.NewMedicalDevice(model.NewDeviceID(), request.Details(), request.Medical(), enteredAt), nil
}

func (m *mockMedicalDeviceService) GetMedicalDevices(context.Context, model.Criteria) (*model.DeviceList, error) {
	return &model.DeviceList{}, nil
}

func (m *mockDeviceService) GetDevice(context.Context, model.DeviceID) (*model.Device, error) {
	return nil, model.ErrDeviceNotFound
}

func (m *mockDeviceService) GetEnteredDevices(context.Context, model.Criteria) (*model.EnteredDeviceList, error) {
	return &model.EnteredDeviceList{}, nil
}

func (m *mockDeviceService) CheckoutDevice(ctx context.Context, id model.DeviceID) (*model.Device, error) {
	if m.checkoutDeviceFn != nil {
		return m.checkoutDeviceFn(ctx, id)
	}

	return nil, model.ErrDeviceNotFound
}

func request() model.ComputerRequest {
	return model.ComputerRequest{
		Brand: "Apple",
		Model: "MacBook Air",
		Owner: model.Owner{Name: "Grace Hopper"},
	}
}

func TestCheckinComputerCommandHandler(t *testing.T) {
	t.Parallel()

	log := logger.NewTestLogger()
	tp := infrastructure.NewNoopTracerProvider()
	mc := noop.NewMetricsClient()

	cases := []struct {
		name     string
		setupSvc func(*mockComputerService)
		wantErr  error
	}{
		{
			name: "checks in computer",
		},
		{
			name: "propagates photo store failure",
			setupSvc: func(m *mockComputerService) {
				m.checkinComputerFn = func(context.Context, model.ComputerRequest) (*model.Device, error) {
					return nil, model.ErrPhotoStore
				}
			},
			wantErr: model.ErrPhotoStore,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockComputerService{}
			if tc.setupSvc != nil {
				tc.setupSvc(svc)
			}

			handler := commands.NewCheckinComputerCommandHandler(svc, log, mc, tp)

			device, err := handler.Handle(context.Background(), commands.CheckinComputerCommand{Request: request()})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.Nil(t, device)

				return
			}

			require.NoError(t, err)
			require.Equal(t, model.KindComputer, device.Kind)
			require.Equal(t, "Apple", device.Brand)
		})
	}
}

func TestRegisterFrequentComputerCommandHandler(t *testing.T) {
	t.Parallel()

	handler := commands.NewRegisterFrequentComputerCommandHandler(
		&mockComputerService{},
		logger.NewTestLogger(),
		noop.NewMetricsClient(),
		infrastructure.NewNoopTracerProvider(),
	)

	device, err := handler.Handle(context.Background(), commands.RegisterFrequentComputerCommand{Request: request()})
	require.NoError(t, err)
	require.Equal(t, model.KindFrequentComputer, device.Kind)
	require.Equal(t, enteredAt, device.Frequent.RegisteredAt)
}

func TestCheckinFrequentComputerCommandHandler(t *testing.T) {
	t.Parallel()

	log := logger.NewTestLogger()
	tp := infrastructure.NewNoopTracerProvider()
	mc := noop.NewMetricsClient()

	known := model.NewDeviceID()

	cases := []struct {
		name    string
		id      model.DeviceID
		wantErr error
	}{
		{
			name: "passes identity through",
			id:   known,
		},
		{
			name:    "unknown identity",
			id:      model.NewDeviceID(),
			wantErr: model.ErrDeviceNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockComputerService{
				checkinFrequentComputerFn: func(_ context.Context, id model.DeviceID) (*model.Device, error) {
					if id != known {
						return nil, model.ErrDeviceNotFound
					}

					return model.NewFrequentComputer(id, request().Details(), enteredAt), nil
				},
			}

			handler := commands.NewCheckinFrequentComputerCommandHandler(svc, log, mc, tp)

			device, err := handler.Handle(context.Background(), commands.CheckinFrequentComputerCommand{ID: tc.id})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.id, device.ID)
		})
	}
}

func TestCheckinMedicalDeviceCommandHandler(t *testing.T) {
	t.Parallel()

	handler := commands.NewCheckinMedicalDeviceCommandHandler(
		&mockMedicalDeviceService{},
		logger.NewTestLogger(),
		noop.NewMetricsClient(),
		infrastructure.NewNoopTracerProvider(),
	)

	device, err := handler.Handle(context.Background(), commands.CheckinMedicalDeviceCommand{
		Request: model.MedicalDeviceRequest{ComputerRequest: request(), Serial: "SN-9"},
	})
	require.NoError(t, err)
	require.Equal(t, model.KindMedicalDevice, device.Kind)
	require.Equal(t, "SN-9", device.Medical.Serial)
}

func TestCheckoutDeviceCommandHandler(t *testing.T) {
	t.Parallel()

	log := logger.NewTestLogger()
	tp := infrastructure.NewNoopTracerProvider()
	mc := noop.NewMetricsClient()

	cases := []struct {
		name     string
		setupSvc func(*mockDeviceService)
		wantErr  error
	}{
		{
			name: "checks out device",
			setupSvc: func(m *mockDeviceService) {
				m.checkoutDeviceFn = func(_ context.Context, id model.DeviceID) (*model.Device, error) {
					device := model.NewComputer(id, request().Details(), enteredAt)

					return device, device.CheckOut(enteredAt.Add(time.Hour))
				}
			},
		},
		{
			name: "already checked out",
			setupSvc: func(m *mockDeviceService) {
				m.checkoutDeviceFn = func(context.Context, model.DeviceID) (*model.Device, error) {
					return nil, model.ErrAlreadyCheckedOut
				}
			},
			wantErr: model.ErrInvalidState,
		},
		{
			name:    "unknown device",
			wantErr: model.ErrDeviceNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockDeviceService{}
			if tc.setupSvc != nil {
				tc.setupSvc(svc)
			}

			handler := commands.NewCheckoutDeviceCommandHandler(svc, log, mc, tp)

			device, err := handler.Handle(context.Background(), commands.CheckoutDeviceCommand{ID: model.NewDeviceID()})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.Nil(t, device)

				return
			}

			require.NoError(t, err)
			require.Equal(t, model.StateCheckedOut, device.State)
		})
	}
}
