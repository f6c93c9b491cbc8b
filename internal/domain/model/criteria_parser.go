package model

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Filterable and sortable field names understood by repositories.
const (
	FieldID           = "id"
	FieldKind         = "kind"
	FieldState        = "state"
	FieldBrand        = "brand"
	FieldModel        = "model"
	FieldColor        = "color"
	FieldOwner        = "owner"
	FieldOwnerID      = "ownerId"
	FieldEnteredAt    = "enteredAt"
	FieldCheckedOutAt = "checkedOutAt"
	FieldUpdatedAt    = "updatedAt"
)

const (
	ParamPage        = "page"
	ParamSize        = "size"
	ParamSort        = "sort"
	ParamBrand       = "brand"
	ParamModel       = "model"
	ParamOwner       = "owner"
	ParamOwnerID     = "ownerId"
	ParamKind        = "kind"
	ParamState       = "state"
	ParamEnteredFrom = "enteredFrom"
	ParamEnteredTo   = "enteredTo"

	dateLayout = time.DateOnly
)

var sortableFields = []string{
	FieldEnteredAt, FieldCheckedOutAt, FieldUpdatedAt,
	FieldBrand, FieldModel, FieldOwner, FieldKind, FieldState,
}

func SortableFields() []string {
	return slices.Clone(sortableFields)
}

// ParseCriteria turns raw query parameters into Criteria. Unknown parameters
// are ignored and absent ones fall back to defaults. Every rejected parameter
// is reported, the first one names the error.
func ParseCriteria(params url.Values) (Criteria, error) {
	errs := NewValidationErrors()
	builder := NewCriteria()

	page := parseBound(errs, params, ParamPage, DefaultPage, 1, 0)
	size := parseBound(errs, params, ParamSize, DefaultSize, 1, MaxSize)
	builder.Paginate(page, size)

	for _, field := range splitList(params.Get(ParamSort)) {
		if !slices.Contains(sortableFields, strings.TrimPrefix(field, "-")) {
			errs.Add(ParamSort,
				fmt.Sprintf("sort: unknown field %q, expected one of %s", field, strings.Join(sortableFields, ", ")),
				CodeInvalidParameter)

			continue
		}

		builder.OrderBy(field)
	}

	if brands := splitList(params.Get(ParamBrand)); len(brands) > 0 {
		builder.WhereIn(FieldBrand, toAnySlice(brands)...)
	}

	if pattern := strings.TrimSpace(params.Get(ParamModel)); pattern != "" {
		builder.WhereLike(FieldModel, pattern)
	}

	if pattern := strings.TrimSpace(params.Get(ParamOwner)); pattern != "" {
		builder.WhereLike(FieldOwner, pattern)
	}

	if ownerID := strings.TrimSpace(params.Get(ParamOwnerID)); ownerID != "" {
		builder.Where(FieldOwnerID, ownerID)
	}

	if kinds := parseEnumList(errs, params, ParamKind, ParseKind); len(kinds) > 0 {
		builder.WhereIn(FieldKind, kinds...)
	}

	if states := parseEnumList(errs, params, ParamState, ParseState); len(states) > 0 {
		builder.WhereIn(FieldState, states...)
	}

	from, hasFrom := parseInstant(errs, params, ParamEnteredFrom, false)
	to, hasTo := parseInstant(errs, params, ParamEnteredTo, true)

	switch {
	case hasFrom && hasTo && from.After(to):
		errs.Add(ParamEnteredFrom, "enteredFrom must not be after enteredTo", CodeInvalidParameter)
	case hasFrom && hasTo:
		builder.WhereBetween(FieldEnteredAt, from, to)
	case hasFrom:
		builder.WhereGte(FieldEnteredAt, from)
	case hasTo:
		builder.WhereLte(FieldEnteredAt, to)
	}

	if errs.HasErrors() {
		return Criteria{}, errs
	}

	return builder.Build(), nil
}

// parseBound reads a positive integer parameter. A zero upper bound means unbounded.
func parseBound(errs *ValidationErrors, params url.Values, name string, fallback, lower, upper uint) uint {
	raw := strings.TrimSpace(params.Get(name))
	if raw == "" {
		return fallback
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		errs.Add(name, fmt.Sprintf("%s: %q is not an integer", name, raw), CodeInvalidParameter)

		return fallback
	}

	if value < int64(lower) || (upper > 0 && value > int64(upper)) {
		message := fmt.Sprintf("%s: must be at least %d", name, lower)
		if upper > 0 {
			message = fmt.Sprintf("%s: must be between %d and %d", name, lower, upper)
		}

		errs.Add(name, message, CodeInvalidParameter)

		return fallback
	}

	return uint(value)
}

func parseEnumList[T ~string](errs *ValidationErrors, params url.Values, name string, parse func(string) (T, error)) []any {
	raw := splitList(params.Get(name))
	values := make([]any, 0, len(raw))

	for _, item := range raw {
		value, err := parse(item)
		if err != nil {
			errs.Add(name, fmt.Sprintf("%s: %v", name, err), CodeInvalidParameter)

			return nil
		}

		if !slices.Contains(values, any(string(value))) {
			values = append(values, string(value))
		}
	}

	return values
}

// parseInstant accepts RFC 3339 timestamps or plain dates. A plain date used as
// an upper bound covers the whole day.
func parseInstant(errs *ValidationErrors, params url.Values, name string, endOfDay bool) (time.Time, bool) {
	raw := strings.TrimSpace(params.Get(name))
	if raw == "" {
		return time.Time{}, false
	}

	if instant, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return instant.UTC(), true
	}

	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		errs.Add(name, fmt.Sprintf("%s: %q is neither an RFC 3339 timestamp nor a YYYY-MM-DD date", name, raw),
			CodeInvalidParameter)

		return time.Time{}, false
	}

	if endOfDay {
		return day.AddDate(0, 0, 1).Add(-time.Nanosecond), true
	}

	return day, true
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))

	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}

	return items
}

func toAnySlice(items []string) []any {
	result := make([]any, len(items))
	for index, item := range items {
		result[index] = item
	}

	return result
}
