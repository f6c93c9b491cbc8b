package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

const fieldBody = "body"

type RequestValidatorOptions struct {
	Options openapi3filter.Options
	// MaxBodyBytes caps how much of a body is read for validation. Zero means no cap.
	MaxBodyBytes int64
	// ErrorHandler writes rejections. err is a *model.ValidationErrors for 400s.
	ErrorHandler func(w http.ResponseWriter, r *http.Request, err error, statusCode int)
}

// OapiRequestValidatorWithOptions rejects requests that do not match swagger.
// Paths and methods the document does not know are left to the router.
func OapiRequestValidatorWithOptions(
	log logger.Logger,
	swagger *openapi3.T,
	options *RequestValidatorOptions,
) (func(http.Handler) http.Handler, error) {
	router, err := gorillamux.NewRouter(swagger)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAPI router: %w", err)
	}

	if options == nil {
		options = &RequestValidatorOptions{}
	}

	errorHandler := options.ErrorHandler
	if errorHandler == nil {
		errorHandler = RequestValidationErrHandler
	}

	validatorLogger := log.Component("request_validator")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// CORS preflight
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)

				return
			}

			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				next.ServeHTTP(w, r)

				return
			}

			if options.MaxBodyBytes > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, options.MaxBodyBytes)
			}

			statusCode, err := validateRequest(r, &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    &options.Options,
			})
			if err != nil {
				if statusCode >= http.StatusInternalServerError {
					reqLogger := validatorLogger.WithContext(r.Context())
					reqLogger.Error().Err(err).Str("operation", route.Operation.OperationID).Msg("request validation failed unexpectedly")
				}

				errorHandler(w, r, err, statusCode)

				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

func validateRequest(r *http.Request, input *openapi3filter.RequestValidationInput) (int, error) {
	err := openapi3filter.ValidateRequest(r.Context(), input)
	if err == nil {
		return http.StatusOK, nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, tooLarge
	}

	var requestErr *openapi3filter.RequestError
	if errors.As(err, &requestErr) {
		errs := model.NewValidationErrors()
		field, code := requestErrorField(requestErr)
		errs.Add(field, field+": "+requestErrorReason(requestErr), code)

		return http.StatusBadRequest, errs
	}

	return http.StatusInternalServerError, fmt.Errorf("unexpected validation error: %w", err)
}

// requestErrorField names the parameter or the body property at fault.
func requestErrorField(err *openapi3filter.RequestError) (string, string) {
	if err.Parameter != nil {
		return err.Parameter.Name, model.CodeInvalidParameter
	}

	if schemaErr := deepestSchemaError(err); schemaErr != nil {
		code := model.CodeInvalidValue
		if schemaErr.SchemaField == "required" {
			code = model.CodeRequired
		}

		if pointer := schemaErr.JSONPointer(); len(pointer) > 0 {
			return strings.Join(pointer, "."), code
		}

		return fieldBody, code
	}

	return fieldBody, model.CodeInvalidValue
}

func requestErrorReason(err *openapi3filter.RequestError) string {
	if schemaErr := deepestSchemaError(err); schemaErr != nil {
		return schemaErr.Reason
	}

	if err.Err != nil {
		return sanitizeErrorMessage(err.Err.Error())
	}

	return err.Reason
}

// deepestSchemaError unwraps allOf and friends down to the property that failed.
func deepestSchemaError(err error) *openapi3.SchemaError {
	var schemaErr *openapi3.SchemaError
	if !errors.As(err, &schemaErr) {
		return nil
	}

	for {
		var inner *openapi3.SchemaError
		if !errors.As(schemaErr.Origin, &inner) {
			return schemaErr
		}

		schemaErr = inner
	}
}

// RequestValidationErrHandler writes the bare error body used when no handler is configured.
func RequestValidationErrHandler(w http.ResponseWriter, _ *http.Request, err error, statusCode int) {
	w.Header().Set(contentTypeHeader, applicationJSON)
	w.WriteHeader(statusCode)

	response := map[string]any{
		"code":      http.StatusText(statusCode),
		"message":   sanitizeErrorMessage(err.Error()),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	var validation *model.ValidationErrors
	if errors.As(err, &validation) {
		response["field"] = validation.Field()
	}

	_ = json.NewEncoder(w).Encode(response)
}

// sanitizeErrorMessage drops everything up to the first ": ", which names internals.
func sanitizeErrorMessage(message string) string {
	if idx := strings.Index(message, ": "); idx != -1 {
		return message[idx+2:]
	}

	return message
}
