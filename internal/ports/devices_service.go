package ports

import (
	"context"

	"github.com/architeacher/checkpoint/internal/domain/model"
)

type (
	ComputerService interface {
		CheckinComputer(ctx context.Context, request model.ComputerRequest) (*model.Device, error)
		RegisterFrequentComputer(ctx context.Context, request model.ComputerRequest) (*model.Device, error)
		CheckinFrequentComputer(ctx context.Context, id model.DeviceID) (*model.Device, error)
		GetComputers(ctx context.Context, criteria model.Criteria) (*model.DeviceList, error)
		GetFrequentComputers(ctx context.Context, criteria model.Criteria) (*model.DeviceList, error)
	}

	MedicalDeviceService interface {
		CheckinMedicalDevice(ctx context.Context, request model.MedicalDeviceRequest) (*model.Device, error)
		GetMedicalDevices(ctx context.Context, criteria model.Criteria) (*model.DeviceList, error)
	}

	DeviceService interface {
		GetDevice(ctx context.Context, id model.DeviceID) (*model.Device, error)
		GetEnteredDevices(ctx context.Context, criteria model.Criteria) (*model.EnteredDeviceList, error)
		CheckoutDevice(ctx context.Context, id model.DeviceID) (*model.Device, error)
	}
)
