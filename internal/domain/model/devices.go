package model

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type DeviceID struct {
	uuid.UUID
}

func NewDeviceID() DeviceID {
	return DeviceID{UUID: uuid.Must(uuid.NewV7())}
}

func ParseDeviceID(s string) (DeviceID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return DeviceID{}, fmt.Errorf("%w: %q", ErrInvalidDeviceID, s)
	}

	return DeviceID{UUID: id}, nil
}

func (d DeviceID) String() string {
	return d.UUID.String()
}

func (d DeviceID) IsZero() bool {
	return d.UUID == uuid.Nil
}

// Kind tags the device variant. Behaviour is dispatched on it, never on which optional details are set.
type Kind string

const (
	KindComputer         Kind = "computer"
	KindFrequentComputer Kind = "frequent-computer"
	KindMedicalDevice    Kind = "medical-device"
)

func (k Kind) String() string {
	return string(k)
}

func (k Kind) IsValid() bool {
	return slices.Contains(AllKinds(), k)
}

func ParseKind(s string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid kind: %s", s)
	}

	return kind, nil
}

func AllKinds() []Kind {
	return []Kind{KindComputer, KindFrequentComputer, KindMedicalDevice}
}

type (
	Owner struct {
		Name       string
		DocumentID string
	}

	// DeviceDetails are the attributes supplied by whoever brings the device in.
	DeviceDetails struct {
		Brand string
		Model string
		Color string
		Owner Owner
	}

	// Visit is a closed presence period of a frequent computer.
	Visit struct {
		EnteredAt    time.Time
		CheckedOutAt *time.Time
	}

	FrequentDetails struct {
		RegisteredAt  time.Time
		LastCheckinAt time.Time
		Visits        []Visit
	}

	MedicalDetails struct {
		Serial      string
		DeviceClass string
	}

	Device struct {
		ID           DeviceID
		Kind         Kind
		Brand        string
		Model        string
		Color        string
		Owner        Owner
		PhotoURL     string
		State        State
		EnteredAt    time.Time
		CheckedOutAt *time.Time
		UpdatedAt    time.Time
		Frequent     *FrequentDetails
		Medical      *MedicalDetails
	}

	// EnteredDevice is the cross-kind view of a device currently inside the facility.
	EnteredDevice struct {
		ID        DeviceID
		Kind      Kind
		Brand     string
		Model     string
		Owner     Owner
		PhotoURL  string
		EnteredAt time.Time
	}
)

func newDevice(id DeviceID, kind Kind, details DeviceDetails, now time.Time) *Device {
	now = now.UTC()

	return &Device{
		ID:        id,
		Kind:      kind,
		Brand:     details.Brand,
		Model:     details.Model,
		Color:     details.Color,
		Owner:     details.Owner,
		State:     StatePresent,
		EnteredAt: now,
		UpdatedAt: now,
	}
}

func NewComputer(id DeviceID, details DeviceDetails, now time.Time) *Device {
	return newDevice(id, KindComputer, details, now)
}

// NewFrequentComputer registers a frequent computer. Registration is also its first visit.
func NewFrequentComputer(id DeviceID, details DeviceDetails, now time.Time) *Device {
	device := newDevice(id, KindFrequentComputer, details, now)
	device.Frequent = &FrequentDetails{
		RegisteredAt:  device.EnteredAt,
		LastCheckinAt: device.EnteredAt,
	}

	return device
}

func NewMedicalDevice(id DeviceID, details DeviceDetails, medical MedicalDetails, now time.Time) *Device {
	device := newDevice(id, KindMedicalDevice, details, now)
	device.Medical = &medical

	return device
}

func (d *Device) IsPresent() bool {
	return d.State == StatePresent && d.CheckedOutAt == nil
}

func (d *Device) IsFrequent() bool {
	return d.Kind == KindFrequentComputer
}

// CheckOut closes the current visit.
func (d *Device) CheckOut(now time.Time) error {
	if !d.IsPresent() {
		return ErrAlreadyCheckedOut
	}

	now = now.UTC()
	d.CheckedOutAt = &now
	d.State = StateCheckedOut
	d.UpdatedAt = now

	return nil
}

// CheckIn opens a new visit for a frequent computer, archiving the closed one.
func (d *Device) CheckIn(now time.Time) error {
	if !d.IsFrequent() {
		return fmt.Errorf("%w: %s is not a frequent computer", ErrInvalidState, d.Kind)
	}

	if d.IsPresent() {
		return ErrAlreadyCheckedIn
	}

	now = now.UTC()

	if d.Frequent == nil {
		d.Frequent = &FrequentDetails{RegisteredAt: d.EnteredAt}
	}

	d.Frequent.Visits = append(d.Frequent.Visits, Visit{
		EnteredAt:    d.EnteredAt,
		CheckedOutAt: d.CheckedOutAt,
	})
	d.Frequent.LastCheckinAt = now

	d.EnteredAt = now
	d.CheckedOutAt = nil
	d.State = StatePresent
	d.UpdatedAt = now

	return nil
}

// VisitCount includes the visit in progress, if any.
func (d *Device) VisitCount() int {
	if d.Frequent == nil {
		return 1
	}

	return len(d.Frequent.Visits) + 1
}

// Clone returns a deep copy that shares nothing mutable with d.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}

	clone := *d
	clone.CheckedOutAt = cloneTime(d.CheckedOutAt)

	if d.Frequent != nil {
		frequent := *d.Frequent
		frequent.Visits = make([]Visit, len(d.Frequent.Visits))

		for index, visit := range d.Frequent.Visits {
			frequent.Visits[index] = Visit{
				EnteredAt:    visit.EnteredAt,
				CheckedOutAt: cloneTime(visit.CheckedOutAt),
			}
		}

		clone.Frequent = &frequent
	}

	if d.Medical != nil {
		medical := *d.Medical
		clone.Medical = &medical
	}

	return &clone
}

func (d *Device) ToEntered() EnteredDevice {
	return EnteredDevice{
		ID:        d.ID,
		Kind:      d.Kind,
		Brand:     d.Brand,
		Model:     d.Model,
		Owner:     d.Owner,
		PhotoURL:  d.PhotoURL,
		EnteredAt: d.EnteredAt,
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	value := *t

	return &value
}

type Pagination struct {
	Page        uint
	Size        uint
	TotalItems  uint
	TotalPages  uint
	HasNext     bool
	HasPrevious bool
}

func NewPagination(page, size, totalItems uint) Pagination {
	var totalPages uint
	if size > 0 {
		totalPages = (totalItems + size - 1) / size
	}

	return Pagination{
		Page:        page,
		Size:        size,
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}

type DeviceList struct {
	Devices    []*Device
	Pagination Pagination
}

type EnteredDeviceList struct {
	Devices    []EnteredDevice
	Pagination Pagination
}
