package ports

import (
	"context"

	"github.com/architeacher/checkpoint/internal/domain/model"
)

type (
	// Mutator edits a private copy of a device. Returning an error discards the copy.
	Mutator func(device *model.Device) error

	Inserter interface {
		// Insert stores a new device, assigning an ID when it has none.
		Insert(ctx context.Context, device *model.Device) (model.DeviceID, error)
	}

	Fetcher interface {
		// FindByID returns a snapshot of the device.
		FindByID(ctx context.Context, id model.DeviceID) (*model.Device, error)
	}

	Updater interface {
		// Update applies mutator atomically for id and returns the stored result.
		Update(ctx context.Context, id model.DeviceID, mutator Mutator) (*model.Device, error)
	}

	Finder interface {
		// Query filters, orders and paginates a snapshot of the store.
		Query(ctx context.Context, criteria model.Criteria) (*model.DeviceList, error)

		// Count returns how many records match spec, nil matches everything.
		Count(ctx context.Context, spec model.Specification) (uint, error)
	}

	// DevicesRepository owns every device record.
	DevicesRepository interface {
		Inserter
		Fetcher
		Updater
		Finder
	}
)
