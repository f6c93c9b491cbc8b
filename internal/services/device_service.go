package services

import (
	"context"

	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/internal/ports"
)

// DeviceService covers operations that apply to every device kind.
type DeviceService struct {
	repo    ports.DevicesRepository
	options options
}

func NewDeviceService(repo ports.DevicesRepository, opts ...Option) *DeviceService {
	return &DeviceService{
		repo:    repo,
		options: newOptions(opts),
	}
}

func (s *DeviceService) GetDevice(ctx context.Context, id model.DeviceID) (*model.Device, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *DeviceService) GetEnteredDevices(ctx context.Context, criteria model.Criteria) (*model.EnteredDeviceList, error) {
	list, err := s.repo.Query(ctx, criteria.And(model.StillInside()))
	if err != nil {
		return nil, err
	}

	entered := make([]model.EnteredDevice, 0, len(list.Devices))
	for _, device := range list.Devices {
		entered = append(entered, device.ToEntered())
	}

	return &model.EnteredDeviceList{
		Devices:    entered,
		Pagination: list.Pagination,
	}, nil
}

// CheckoutDevice rejects a second checkout of the same visit with model.ErrInvalidState.
func (s *DeviceService) CheckoutDevice(ctx context.Context, id model.DeviceID) (*model.Device, error) {
	return s.repo.Update(ctx, id, func(device *model.Device) error {
		return device.CheckOut(s.options.now())
	})
}
