package handlers

import (
	"time"

	"github.com/architeacher/checkpoint/internal/domain/model"
)

type (
	ownerData struct {
		Name string `json:"name"`
		ID   string `json:"id,omitempty"`
	}

	visitData struct {
		EnteredAt    time.Time  `json:"enteredAt"`
		CheckedOutAt *time.Time `json:"checkedOutAt,omitempty"`
	}

	frequentData struct {
		RegisteredAt  time.Time   `json:"registeredAt"`
		LastCheckinAt time.Time   `json:"lastCheckinAt"`
		VisitCount    int         `json:"visitCount"`
		Visits        []visitData `json:"visits"`
	}

	medicalData struct {
		Serial      string `json:"serial"`
		DeviceClass string `json:"deviceClass,omitempty"`
	}

	deviceLinks struct {
		Self     string `json:"self"`
		Checkout string `json:"checkout,omitempty"`
		Checkin  string `json:"checkin,omitempty"`
	}

	deviceData struct {
		ID           string        `json:"id"`
		Kind         string        `json:"kind"`
		Brand        string        `json:"brand"`
		Model        string        `json:"model"`
		Color        string        `json:"color,omitempty"`
		Owner        ownerData     `json:"owner"`
		PhotoURL     string        `json:"photoUrl,omitempty"`
		State        string        `json:"state"`
		EnteredAt    time.Time     `json:"enteredAt"`
		CheckedOutAt *time.Time    `json:"checkedOutAt,omitempty"`
		UpdatedAt    time.Time     `json:"updatedAt"`
		Frequent     *frequentData `json:"frequent,omitempty"`
		Medical      *medicalData  `json:"medical,omitempty"`
		Links        deviceLinks   `json:"links"`
	}

	enteredDeviceData struct {
		ID        string    `json:"id"`
		Kind      string    `json:"kind"`
		Brand     string    `json:"brand"`
		Model     string    `json:"model"`
		Owner     ownerData `json:"owner"`
		PhotoURL  string    `json:"photoUrl,omitempty"`
		EnteredAt time.Time `json:"enteredAt"`
		Links     struct {
			Self string `json:"self"`
		} `json:"links"`
	}
)

func devicePath(id model.DeviceID) string {
	return basePath + "/devices/" + id.String()
}

func toDeviceData(device *model.Device) deviceData {
	data := deviceData{
		ID:           device.ID.String(),
		Kind:         device.Kind.String(),
		Brand:        device.Brand,
		Model:        device.Model,
		Color:        device.Color,
		Owner:        ownerData{Name: device.Owner.Name, ID: device.Owner.DocumentID},
		PhotoURL:     device.PhotoURL,
		State:        device.State.String(),
		EnteredAt:    device.EnteredAt,
		CheckedOutAt: device.CheckedOutAt,
		UpdatedAt:    device.UpdatedAt,
		Links:        deviceLinks{Self: devicePath(device.ID)},
	}

	if device.IsPresent() {
		data.Links.Checkout = basePath + "/devices/checkout/" + device.ID.String()
	}

	if device.Frequent != nil {
		visits := make([]visitData, 0, len(device.Frequent.Visits))
		for _, visit := range device.Frequent.Visits {
			visits = append(visits, visitData{EnteredAt: visit.EnteredAt, CheckedOutAt: visit.CheckedOutAt})
		}

		data.Frequent = &frequentData{
			RegisteredAt:  device.Frequent.RegisteredAt,
			LastCheckinAt: device.Frequent.LastCheckinAt,
			VisitCount:    device.VisitCount(),
			Visits:        visits,
		}

		if !device.IsPresent() {
			data.Links.Checkin = basePath + "/computers/frequent/checkin/" + device.ID.String()
		}
	}

	if device.Medical != nil {
		data.Medical = &medicalData{
			Serial:      device.Medical.Serial,
			DeviceClass: device.Medical.DeviceClass,
		}
	}

	return data
}

func toDeviceListData(devices []*model.Device) []deviceData {
	data := make([]deviceData, 0, len(devices))
	for _, device := range devices {
		data = append(data, toDeviceData(device))
	}

	return data
}

func toEnteredDeviceListData(devices []model.EnteredDevice) []enteredDeviceData {
	data := make([]enteredDeviceData, 0, len(devices))

	for _, device := range devices {
		item := enteredDeviceData{
			ID:        device.ID.String(),
			Kind:      device.Kind.String(),
			Brand:     device.Brand,
			Model:     device.Model,
			Owner:     ownerData{Name: device.Owner.Name, ID: device.Owner.DocumentID},
			PhotoURL:  device.PhotoURL,
			EnteredAt: device.EnteredAt,
		}
		item.Links.Self = devicePath(device.ID)

		data = append(data, item)
	}

	return data
}
