package model

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const maxTextLength = 200

type (
	// Photo is an uploaded image as received at the boundary.
	Photo struct {
		Filename    string
		ContentType string
		Content     []byte
	}

	ComputerRequest struct {
		Brand string
		Model string
		Color string
		Owner Owner
		Photo *Photo
	}

	MedicalDeviceRequest struct {
		ComputerRequest
		Serial      string
		DeviceClass string
	}
)

// Extension is the lower-cased file extension without the dot.
func (p Photo) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(p.Filename), "."))
}

func (r ComputerRequest) Details() DeviceDetails {
	return DeviceDetails{
		Brand: strings.TrimSpace(r.Brand),
		Model: strings.TrimSpace(r.Model),
		Color: strings.TrimSpace(r.Color),
		Owner: Owner{
			Name:       strings.TrimSpace(r.Owner.Name),
			DocumentID: strings.TrimSpace(r.Owner.DocumentID),
		},
	}
}

func (r ComputerRequest) Validate() error {
	errs := NewValidationErrors()
	r.validateInto(errs)

	return errs.ErrOrNil()
}

func (r ComputerRequest) validateInto(errs *ValidationErrors) {
	requireText(errs, "brand", r.Brand)
	requireText(errs, "model", r.Model)
	requireText(errs, "ownerName", r.Owner.Name)
	limitText(errs, "color", r.Color)
	limitText(errs, "ownerId", r.Owner.DocumentID)

	if r.Photo != nil && len(r.Photo.Content) == 0 {
		errs.Add("photo", "photo must not be empty", CodeInvalidValue)
	}
}

func (r MedicalDeviceRequest) Medical() MedicalDetails {
	return MedicalDetails{
		Serial:      strings.TrimSpace(r.Serial),
		DeviceClass: strings.TrimSpace(r.DeviceClass),
	}
}

func (r MedicalDeviceRequest) Validate() error {
	errs := NewValidationErrors()
	r.validateInto(errs)
	requireText(errs, "serial", r.Serial)
	limitText(errs, "deviceClass", r.DeviceClass)

	return errs.ErrOrNil()
}

func requireText(errs *ValidationErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, field+" is required", CodeRequired)

		return
	}

	limitText(errs, field, value)
}

func limitText(errs *ValidationErrors, field, value string) {
	if utf8.RuneCountInString(value) > maxTextLength {
		errs.Add(field, field+" must not exceed 200 characters", CodeTooLong)
	}
}
