package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/architeacher/checkpoint/internal/adapters/repos"
	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/internal/ports"
	"github.com/architeacher/checkpoint/internal/services"
	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("disk full")

type fakePhotoStore struct {
	mu     sync.Mutex
	saved  []model.DeviceID
	saveFn func(ctx context.Context, photo model.Photo, id model.DeviceID) (string, error)
}

func (f *fakePhotoStore) Save(ctx context.Context, photo model.Photo, id model.DeviceID) (string, error) {
	f.mu.Lock()
	f.saved = append(f.saved, id)
	f.mu.Unlock()

	if f.saveFn != nil {
		return f.saveFn(ctx, photo, id)
	}

	return "http://media.test/photo/" + id.String() + "." + photo.Extension(), nil
}

func (f *fakePhotoStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.saved)
}

// stepClock advances by one minute on every read.
type stepClock struct {
	mu      sync.Mutex
	current time.Time
}

func newStepClock() *stepClock {
	return &stepClock{current: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.current
	c.current = c.current.Add(time.Minute)

	return now
}

func newRepository() *repos.MemoryDevicesRepository {
	return repos.NewMemoryDevicesRepository(logger.NewTestLogger())
}

func computerRequest() model.ComputerRequest {
	return model.ComputerRequest{
		Brand: "Lenovo",
		Model: "ThinkPad X1",
		Color: "black",
		Owner: model.Owner{Name: "Ada Lovelace", DocumentID: "CC-1815"},
	}
}

func withPhoto(request model.ComputerRequest) model.ComputerRequest {
	request.Photo = &model.Photo{Filename: "laptop.PNG", ContentType: "image/png", Content: []byte{0x89, 'P', 'N', 'G'}}

	return request
}

func TestComputerService_CheckinComputer(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		request      model.ComputerRequest
		saveFn       func(context.Context, model.Photo, model.DeviceID) (string, error)
		wantErr      error
		wantPhotoURL bool
		wantStored   uint
	}{
		{
			name:       "checks in without photo",
			request:    computerRequest(),
			wantStored: 1,
		},
		{
			name:         "checks in with photo",
			request:      withPhoto(computerRequest()),
			wantPhotoURL: true,
			wantStored:   1,
		},
		{
			name: "rejects missing brand",
			request: model.ComputerRequest{
				Model: "ThinkPad",
				Owner: model.Owner{Name: "Ada"},
			},
			wantErr: &model.ValidationErrors{},
		},
		{
			name:    "photo failure leaves nothing behind",
			request: withPhoto(computerRequest()),
			saveFn: func(context.Context, model.Photo, model.DeviceID) (string, error) {
				return "", fmt.Errorf("%w: %w", model.ErrPhotoStore, errDiskFull)
			},
			wantErr: model.ErrPhotoStore,
		},
		{
			name:    "unsupported photo extension",
			request: withPhoto(computerRequest()),
			saveFn: func(context.Context, model.Photo, model.DeviceID) (string, error) {
				return "", model.ErrUnsupportedPhoto
			},
			wantErr: model.ErrUnsupportedPhoto,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := newRepository()
			photos := &fakePhotoStore{saveFn: tc.saveFn}
			svc := services.NewComputerService(repo, photos)

			device, err := svc.CheckinComputer(context.Background(), tc.request)

			stored, countErr := repo.Count(context.Background(), nil)
			require.NoError(t, countErr)
			require.Equal(t, tc.wantStored, stored)

			if tc.wantErr != nil {
				var validation *model.ValidationErrors
				if errors.As(tc.wantErr, &validation) {
					require.ErrorAs(t, err, &validation)
				} else {
					require.ErrorIs(t, err, tc.wantErr)
				}

				require.Nil(t, device)

				return
			}

			require.NoError(t, err)
			require.Equal(t, model.KindComputer, device.Kind)
			require.Equal(t, model.StatePresent, device.State)
			require.Nil(t, device.CheckedOutAt)
			require.False(t, device.ID.IsZero())
			require.Equal(t, tc.wantPhotoURL, device.PhotoURL != "")

			if tc.wantPhotoURL {
				require.Contains(t, device.PhotoURL, device.ID.String())
			}
		})
	}
}

func TestComputerService_CheckinComputer_UniqueIdentities(t *testing.T) {
	t.Parallel()

	svc := services.NewComputerService(newRepository(), &fakePhotoStore{})

	const workers = 16

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[model.DeviceID]struct{}, workers)
	)

	for range workers {
		wg.Go(func() {
			device, err := svc.CheckinComputer(context.Background(), computerRequest())
			if !assert.NoError(t, err) {
				return
			}

			mu.Lock()
			ids[device.ID] = struct{}{}
			mu.Unlock()
		})
	}

	wg.Wait()

	require.Len(t, ids, workers)
}

func TestComputerService_RegisterFrequentComputer(t *testing.T) {
	t.Parallel()

	clock := newStepClock()
	svc := services.NewComputerService(newRepository(), &fakePhotoStore{}, services.WithClock(clock.Now))

	device, err := svc.RegisterFrequentComputer(context.Background(), computerRequest())
	require.NoError(t, err)

	require.Equal(t, model.KindFrequentComputer, device.Kind)
	require.True(t, device.IsPresent())
	require.NotNil(t, device.Frequent)
	require.Equal(t, device.EnteredAt, device.Frequent.RegisteredAt)
	require.Equal(t, device.EnteredAt, device.Frequent.LastCheckinAt)
	require.Equal(t, 1, device.VisitCount())
}

func TestComputerService_CheckinFrequentComputer(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		setup   func(t *testing.T, computers *services.ComputerService, devices *services.DeviceService) model.DeviceID
		wantErr error
	}{
		{
			name: "re-admits a checked out frequent computer",
			setup: func(t *testing.T, computers *services.ComputerService, devices *services.DeviceService) model.DeviceID {
				device, err := computers.RegisterFrequentComputer(context.Background(), computerRequest())
				require.NoError(t, err)

				_, err = devices.CheckoutDevice(context.Background(), device.ID)
				require.NoError(t, err)

				return device.ID
			},
		},
		{
			name: "rejects a double checkin",
			setup: func(t *testing.T, computers *services.ComputerService, _ *services.DeviceService) model.DeviceID {
				device, err := computers.RegisterFrequentComputer(context.Background(), computerRequest())
				require.NoError(t, err)

				return device.ID
			},
			wantErr: model.ErrInvalidState,
		},
		{
			name: "unknown identity",
			setup: func(*testing.T, *services.ComputerService, *services.DeviceService) model.DeviceID {
				return model.NewDeviceID()
			},
			wantErr: model.ErrDeviceNotFound,
		},
		{
			name: "one-off computer is not a frequent identity",
			setup: func(t *testing.T, computers *services.ComputerService, devices *services.DeviceService) model.DeviceID {
				device, err := computers.CheckinComputer(context.Background(), computerRequest())
				require.NoError(t, err)

				_, err = devices.CheckoutDevice(context.Background(), device.ID)
				require.NoError(t, err)

				return device.ID
			},
			wantErr: model.ErrDeviceNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			clock := newStepClock()
			repo := newRepository()
			computers := services.NewComputerService(repo, &fakePhotoStore{}, services.WithClock(clock.Now))
			devices := services.NewDeviceService(repo, services.WithClock(clock.Now))

			id := tc.setup(t, computers, devices)

			device, err := computers.CheckinFrequentComputer(context.Background(), id)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.Nil(t, device)

				return
			}

			require.NoError(t, err)
			require.Equal(t, id, device.ID)
			require.True(t, device.IsPresent())
			require.Nil(t, device.CheckedOutAt)
			require.Equal(t, device.EnteredAt, device.Frequent.LastCheckinAt)
			require.True(t, device.Frequent.LastCheckinAt.After(device.Frequent.RegisteredAt))
			require.Equal(t, 2, device.VisitCount())
			require.NotNil(t, device.Frequent.Visits[0].CheckedOutAt)
		})
	}
}

func TestComputerService_Listings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newRepository()
	photos := &fakePhotoStore{}
	computers := services.NewComputerService(repo, photos)
	medical := services.NewMedicalDeviceService(repo, photos)

	for range 3 {
		_, err := computers.CheckinComputer(ctx, computerRequest())
		require.NoError(t, err)
	}

	for range 2 {
		_, err := computers.RegisterFrequentComputer(ctx, computerRequest())
		require.NoError(t, err)
	}

	_, err := medical.CheckinMedicalDevice(ctx, model.MedicalDeviceRequest{
		ComputerRequest: computerRequest(),
		Serial:          "SN-1",
	})
	require.NoError(t, err)

	cases := []struct {
		name     string
		list     func(model.Criteria) (*model.DeviceList, error)
		wantKind model.Kind
		wantLen  int
	}{
		{
			name:     "computers",
			list:     func(c model.Criteria) (*model.DeviceList, error) { return computers.GetComputers(ctx, c) },
			wantKind: model.KindComputer,
			wantLen:  3,
		},
		{
			name:     "frequent computers",
			list:     func(c model.Criteria) (*model.DeviceList, error) { return computers.GetFrequentComputers(ctx, c) },
			wantKind: model.KindFrequentComputer,
			wantLen:  2,
		},
		{
			name:     "medical devices",
			list:     func(c model.Criteria) (*model.DeviceList, error) { return medical.GetMedicalDevices(ctx, c) },
			wantKind: model.KindMedicalDevice,
			wantLen:  1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			list, err := tc.list(model.DefaultCriteria())
			require.NoError(t, err)
			require.Len(t, list.Devices, tc.wantLen)
			require.Equal(t, uint(tc.wantLen), list.Pagination.TotalItems)

			for _, device := range list.Devices {
				require.Equal(t, tc.wantKind, device.Kind)
			}
		})
	}
}

func TestComputerService_ListingKeepsCallerFilters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	computers := services.NewComputerService(newRepository(), &fakePhotoStore{})

	dell := computerRequest()
	dell.Brand = "Dell"

	_, err := computers.CheckinComputer(ctx, dell)
	require.NoError(t, err)

	_, err = computers.CheckinComputer(ctx, computerRequest())
	require.NoError(t, err)

	_, err = computers.RegisterFrequentComputer(ctx, dell)
	require.NoError(t, err)

	criteria := model.NewCriteria().Where(model.FieldBrand, "dell").Build()

	list, err := computers.GetComputers(ctx, criteria)
	require.NoError(t, err)
	require.Len(t, list.Devices, 1)
	require.Equal(t, "Dell", list.Devices[0].Brand)
	require.Equal(t, model.KindComputer, list.Devices[0].Kind)
}

var _ ports.PhotoStore = (*fakePhotoStore)(nil)
