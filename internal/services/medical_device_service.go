package services

import (
	"context"

	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/internal/ports"
)

type MedicalDeviceService struct {
	repo    ports.DevicesRepository
	photos  ports.PhotoStore
	options options
}

func NewMedicalDeviceService(repo ports.DevicesRepository, photos ports.PhotoStore, opts ...Option) *MedicalDeviceService {
	return &MedicalDeviceService{
		repo:    repo,
		photos:  photos,
		options: newOptions(opts),
	}
}

func (s *MedicalDeviceService) CheckinMedicalDevice(ctx context.Context, request model.MedicalDeviceRequest) (*model.Device, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	return admit(ctx, s.repo, s.photos, request.Photo, func(id model.DeviceID) *model.Device {
		return model.NewMedicalDevice(id, request.Details(), request.Medical(), s.options.now())
	})
}

func (s *MedicalDeviceService) GetMedicalDevices(ctx context.Context, criteria model.Criteria) (*model.DeviceList, error) {
	return s.repo.Query(ctx, criteria.And(model.OfKind(model.KindMedicalDevice)))
}
