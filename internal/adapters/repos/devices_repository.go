package repos

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/internal/ports"
	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/cespare/xxhash/v2"
)

const defaultShardCount = 32

var errNilDevice = errors.New("inserting device: nil device")

type (
	record struct {
		device *model.Device
		seq    uint64
	}

	shard struct {
		mu      sync.RWMutex
		records map[model.DeviceID]record
	}

	// MemoryDevicesRepository keeps devices in memory, spread over shards so
	// writers to different IDs rarely contend. Every operation on one ID is
	// linearizable: mutations run under that shard's write lock.
	MemoryDevicesRepository struct {
		shards  []*shard
		seq     atomic.Uint64
		matcher *CriteriaMatcher
	}

	MemoryRepositoryOption func(*MemoryDevicesRepository)
)

// WithShardCount overrides the number of shards, values below one are ignored.
func WithShardCount(count int) MemoryRepositoryOption {
	return func(r *MemoryDevicesRepository) {
		if count > 0 {
			r.shards = newShards(count)
		}
	}
}

func NewMemoryDevicesRepository(log logger.Logger, opts ...MemoryRepositoryOption) *MemoryDevicesRepository {
	repo := &MemoryDevicesRepository{
		shards:  newShards(defaultShardCount),
		matcher: NewCriteriaMatcher(log),
	}

	for _, opt := range opts {
		opt(repo)
	}

	return repo
}

var _ ports.DevicesRepository = (*MemoryDevicesRepository)(nil)

func (r *MemoryDevicesRepository) Insert(_ context.Context, device *model.Device) (model.DeviceID, error) {
	if device == nil {
		return model.DeviceID{}, errNilDevice
	}

	if device.ID.IsZero() {
		device.ID = model.NewDeviceID()
	}

	s := r.shardFor(device.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[device.ID]; exists {
		return model.DeviceID{}, fmt.Errorf("inserting device %s: %w", device.ID, model.ErrDuplicateDevice)
	}

	s.records[device.ID] = record{device: device.Clone(), seq: r.seq.Add(1)}

	return device.ID, nil
}

func (r *MemoryDevicesRepository) FindByID(_ context.Context, id model.DeviceID) (*model.Device, error) {
	s := r.shardFor(id)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, found := s.records[id]
	if !found {
		return nil, fmt.Errorf("finding device %s: %w", id, model.ErrDeviceNotFound)
	}

	return rec.device.Clone(), nil
}

// Update runs mutator on a copy while holding the shard write lock, so two
// concurrent updates of the same ID always see each other's result. ID and
// kind cannot be changed.
func (r *MemoryDevicesRepository) Update(_ context.Context, id model.DeviceID, mutator ports.Mutator) (*model.Device, error) {
	s := r.shardFor(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found := s.records[id]
	if !found {
		return nil, fmt.Errorf("updating device %s: %w", id, model.ErrDeviceNotFound)
	}

	candidate := rec.device.Clone()
	if err := mutator(candidate); err != nil {
		return nil, err
	}

	candidate.ID = rec.device.ID
	candidate.Kind = rec.device.Kind

	s.records[id] = record{device: candidate, seq: rec.seq}

	return candidate.Clone(), nil
}

func (r *MemoryDevicesRepository) Query(ctx context.Context, criteria model.Criteria) (*model.DeviceList, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}

	matched := r.collect(criteria.Spec())

	slices.SortFunc(matched, func(a, b record) int {
		return cmp.Compare(a.seq, b.seq)
	})

	if criteria.HasSorting() {
		slices.SortStableFunc(matched, func(a, b record) int {
			return r.matcher.Compare(criteria.Sorting(), a.device, b.device)
		})
	}

	page, size := criteria.Page(), criteria.Size()
	if !criteria.HasPagination() {
		page, size = model.DefaultPage, model.DefaultSize
	}

	total := uint(len(matched))

	// offset*size stays within total here, any larger page is past the end.
	start := total
	if offset := page - 1; offset <= total/size {
		start = offset * size
	}

	end := start + min(size, total-start)

	devices := make([]*model.Device, 0, end-start)
	for _, rec := range matched[start:end] {
		devices = append(devices, rec.device)
	}

	return &model.DeviceList{
		Devices:    devices,
		Pagination: model.NewPagination(page, size, total),
	}, nil
}

func (r *MemoryDevicesRepository) Count(_ context.Context, spec model.Specification) (uint, error) {
	var total uint

	for _, s := range r.shards {
		s.mu.RLock()

		for _, rec := range s.records {
			if r.matcher.Matches(spec, rec.device) {
				total++
			}
		}

		s.mu.RUnlock()
	}

	return total, nil
}

// collect copies matching records shard by shard. Each copy is taken under
// its shard's read lock and so is never half-mutated.
func (r *MemoryDevicesRepository) collect(spec model.Specification) []record {
	matched := make([]record, 0)

	for _, s := range r.shards {
		s.mu.RLock()

		for _, rec := range s.records {
			if r.matcher.Matches(spec, rec.device) {
				matched = append(matched, record{device: rec.device.Clone(), seq: rec.seq})
			}
		}

		s.mu.RUnlock()
	}

	return matched
}

func (r *MemoryDevicesRepository) shardFor(id model.DeviceID) *shard {
	return r.shards[xxhash.Sum64(id.UUID[:])%uint64(len(r.shards))]
}

func newShards(count int) []*shard {
	shards := make([]*shard, count)
	for index := range shards {
		shards[index] = &shard{records: make(map[model.DeviceID]record)}
	}

	return shards
}
