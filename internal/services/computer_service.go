package services

import (
	"context"
	"fmt"

	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/internal/ports"
)

type ComputerService struct {
	repo    ports.DevicesRepository
	photos  ports.PhotoStore
	options options
}

func NewComputerService(repo ports.DevicesRepository, photos ports.PhotoStore, opts ...Option) *ComputerService {
	return &ComputerService{
		repo:    repo,
		photos:  photos,
		options: newOptions(opts),
	}
}

func (s *ComputerService) CheckinComputer(ctx context.Context, request model.ComputerRequest) (*model.Device, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	return admit(ctx, s.repo, s.photos, request.Photo, func(id model.DeviceID) *model.Device {
		return model.NewComputer(id, request.Details(), s.options.now())
	})
}

// RegisterFrequentComputer creates the persistent identity and records its first visit.
func (s *ComputerService) RegisterFrequentComputer(ctx context.Context, request model.ComputerRequest) (*model.Device, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	return admit(ctx, s.repo, s.photos, request.Photo, func(id model.DeviceID) *model.Device {
		return model.NewFrequentComputer(id, request.Details(), s.options.now())
	})
}

func (s *ComputerService) CheckinFrequentComputer(ctx context.Context, id model.DeviceID) (*model.Device, error) {
	return s.repo.Update(ctx, id, func(device *model.Device) error {
		if !device.IsFrequent() {
			return fmt.Errorf("frequent computer %s: %w", id, model.ErrDeviceNotFound)
		}

		return device.CheckIn(s.options.now())
	})
}

func (s *ComputerService) GetComputers(ctx context.Context, criteria model.Criteria) (*model.DeviceList, error) {
	return s.repo.Query(ctx, criteria.And(model.OfKind(model.KindComputer)))
}

func (s *ComputerService) GetFrequentComputers(ctx context.Context, criteria model.Criteria) (*model.DeviceList, error) {
	return s.repo.Query(ctx, criteria.And(model.OfKind(model.KindFrequentComputer)))
}

// admit stores the photo first, so a failed upload leaves no record behind.
func admit(
	ctx context.Context,
	repo ports.DevicesRepository,
	photos ports.PhotoStore,
	photo *model.Photo,
	build func(id model.DeviceID) *model.Device,
) (*model.Device, error) {
	id := model.NewDeviceID()

	var photoURL string

	if photo != nil {
		url, err := photos.Save(ctx, *photo, id)
		if err != nil {
			return nil, fmt.Errorf("saving photo for device %s: %w", id, err)
		}

		photoURL = url
	}

	device := build(id)
	device.PhotoURL = photoURL

	if _, err := repo.Insert(ctx, device); err != nil {
		return nil, err
	}

	return device.Clone(), nil
}
