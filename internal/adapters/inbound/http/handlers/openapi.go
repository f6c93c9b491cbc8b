package handlers

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
)

//go:embed openapi.yaml
var openAPIDocument []byte

// Photo parts carry their own media type, which the multipart decoder needs a decoder for.
func init() {
	for _, contentType := range []string{"image/jpeg", "image/png", "image/gif", "image/webp"} {
		openapi3filter.RegisterBodyDecoder(contentType, openapi3filter.FileBodyDecoder)
	}
}

// GetSwagger loads the OpenAPI document describing the /api routes.
// Every call returns a fresh copy, callers may change its servers.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()

	swagger, err := loader.LoadFromData(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("loading OpenAPI document: %w", err)
	}

	if err := swagger.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validating OpenAPI document: %w", err)
	}

	return swagger, nil
}
