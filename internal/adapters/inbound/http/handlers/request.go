package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/oapi-codegen/runtime"
)

const (
	multipartFormData = "multipart/form-data"

	formPhoto = "photo"

	// multipart parts above this size spill to temporary files.
	multipartMemory = 8 << 20
)

var errMalformedBody = errors.New("malformed request body")

type (
	photoPayload struct {
		Filename    string `json:"filename"`
		ContentType string `json:"contentType"`
		Data        []byte `json:"data"`
	}

	// checkinPayload is the JSON form of a checkin. Multipart forms use the same field names.
	checkinPayload struct {
		Brand       string        `json:"brand"`
		Model       string        `json:"model"`
		Color       string        `json:"color"`
		OwnerName   string        `json:"ownerName"`
		OwnerID     string        `json:"ownerId"`
		Serial      string        `json:"serial"`
		DeviceClass string        `json:"deviceClass"`
		Photo       *photoPayload `json:"photo"`
	}
)

func (p checkinPayload) computerRequest() model.ComputerRequest {
	request := model.ComputerRequest{
		Brand: p.Brand,
		Model: p.Model,
		Color: p.Color,
		Owner: model.Owner{Name: p.OwnerName, DocumentID: p.OwnerID},
	}

	if p.Photo != nil {
		request.Photo = &model.Photo{
			Filename:    p.Photo.Filename,
			ContentType: p.Photo.ContentType,
			Content:     p.Photo.Data,
		}
	}

	return request
}

func (p checkinPayload) medicalDeviceRequest() model.MedicalDeviceRequest {
	return model.MedicalDeviceRequest{
		ComputerRequest: p.computerRequest(),
		Serial:          p.Serial,
		DeviceClass:     p.DeviceClass,
	}
}

// deviceIDParam binds the {id} path segment the way generated servers do and
// leaves the UUID rules to the domain.
func deviceIDParam(raw string) (model.DeviceID, error) {
	var id string

	err := runtime.BindStyledParameterWithOptions("simple", IDParam, raw, &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return model.DeviceID{}, fmt.Errorf("%w: %q", model.ErrInvalidDeviceID, raw)
	}

	return model.ParseDeviceID(id)
}

// decodeCheckin reads a JSON or multipart checkin body of at most maxBytes.
func decodeCheckin(w http.ResponseWriter, r *http.Request, maxBytes int64) (checkinPayload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get(contentTypeHeader))
	if err != nil {
		return checkinPayload{}, errUnsupportedContentType
	}

	switch mediaType {
	case applicationJSON:
		return decodeJSONCheckin(r.Body)
	case multipartFormData:
		return decodeMultipartCheckin(r)
	default:
		return checkinPayload{}, errUnsupportedContentType
	}
}

func decodeJSONCheckin(body io.Reader) (checkinPayload, error) {
	var payload checkinPayload

	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return checkinPayload{}, err
		}

		return checkinPayload{}, fmt.Errorf("%w: %s", errMalformedBody, err.Error())
	}

	return payload, nil
}

func decodeMultipartCheckin(r *http.Request) (checkinPayload, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return checkinPayload{}, err
		}

		return checkinPayload{}, fmt.Errorf("%w: %s", errMalformedBody, err.Error())
	}

	payload := checkinPayload{
		Brand:       r.FormValue("brand"),
		Model:       r.FormValue("model"),
		Color:       r.FormValue("color"),
		OwnerName:   r.FormValue("ownerName"),
		OwnerID:     r.FormValue("ownerId"),
		Serial:      r.FormValue("serial"),
		DeviceClass: r.FormValue("deviceClass"),
	}

	file, header, err := r.FormFile(formPhoto)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return payload, nil
	case err != nil:
		return checkinPayload{}, fmt.Errorf("%w: %s", errMalformedBody, err.Error())
	}

	defer func() { _ = file.Close() }()

	photo, err := readPhoto(file, header)
	if err != nil {
		return checkinPayload{}, err
	}

	payload.Photo = photo

	return payload, nil
}

func readPhoto(file multipart.File, header *multipart.FileHeader) (*photoPayload, error) {
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: reading photo: %s", errMalformedBody, err.Error())
	}

	return &photoPayload{
		Filename:    header.Filename,
		ContentType: header.Header.Get(contentTypeHeader),
		Data:        content,
	}, nil
}
