package repos

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/pkg/logger"
)

// fieldAccessor reads a criteria field off a device. ok is false when the field is unset.
type fieldAccessor func(d *model.Device) (value any, ok bool)

var fieldAccessors = map[string]fieldAccessor{
	model.FieldID:    func(d *model.Device) (any, bool) { return d.ID.String(), true },
	model.FieldKind:  func(d *model.Device) (any, bool) { return d.Kind.String(), true },
	model.FieldState: func(d *model.Device) (any, bool) { return d.State.String(), true },
	model.FieldBrand: func(d *model.Device) (any, bool) { return d.Brand, true },
	model.FieldModel: func(d *model.Device) (any, bool) { return d.Model, true },
	model.FieldColor: func(d *model.Device) (any, bool) { return d.Color, d.Color != "" },
	model.FieldOwner: func(d *model.Device) (any, bool) { return d.Owner.Name, true },
	model.FieldOwnerID: func(d *model.Device) (any, bool) {
		return d.Owner.DocumentID, d.Owner.DocumentID != ""
	},
	model.FieldEnteredAt: func(d *model.Device) (any, bool) { return d.EnteredAt, true },
	model.FieldCheckedOutAt: func(d *model.Device) (any, bool) {
		if d.CheckedOutAt == nil {
			return nil, false
		}

		return *d.CheckedOutAt, true
	},
	model.FieldUpdatedAt: func(d *model.Device) (any, bool) { return d.UpdatedAt, true },
}

// CriteriaMatcher evaluates specification trees and sort keys against devices in memory.
// String comparisons ignore case.
type CriteriaMatcher struct {
	logger logger.Logger
}

func NewCriteriaMatcher(log logger.Logger) *CriteriaMatcher {
	return &CriteriaMatcher{logger: log}
}

// Matches reports whether device satisfies spec. A nil spec matches everything.
func (m *CriteriaMatcher) Matches(spec model.Specification, device *model.Device) bool {
	if spec == nil {
		return true
	}

	switch spec.Operator() {
	case model.SpecOpMust:
		for _, child := range spec.Children() {
			if !m.Matches(child, device) {
				return false
			}
		}

		return true

	case model.SpecOpShould:
		for _, child := range spec.Children() {
			if m.Matches(child, device) {
				return true
			}
		}

		return len(spec.Children()) == 0

	case model.SpecOpMustNot:
		children := spec.Children()

		return len(children) > 0 && !m.Matches(children[0], device)
	}

	value, ok, known := m.read(spec.Field(), device)
	if !known {
		return false
	}

	if spec.Operator() == model.SpecOpIsNull {
		return !ok
	}

	if !ok {
		return false
	}

	switch spec.Operator() {
	case model.SpecOpEq:
		return compareEqual(value, spec.Value())

	case model.SpecOpIn:
		values, _ := spec.Value().([]any)

		return slices.ContainsFunc(values, func(candidate any) bool {
			return compareEqual(value, candidate)
		})

	case model.SpecOpLike:
		pattern := strings.Trim(fmt.Sprint(spec.Value()), "%")

		return strings.Contains(strings.ToLower(fmt.Sprint(value)), strings.ToLower(pattern))

	case model.SpecOpGte:
		result, comparable := compareValues(value, spec.Value())

		return comparable && result >= 0

	case model.SpecOpLte:
		result, comparable := compareValues(value, spec.Value())

		return comparable && result <= 0

	case model.SpecOpBetween:
		bounds, _ := spec.Value().([]any)
		if len(bounds) != 2 {
			return false
		}

		lower, lowerOK := compareValues(value, bounds[0])
		upper, upperOK := compareValues(value, bounds[1])

		return lowerOK && upperOK && lower >= 0 && upper <= 0
	}

	m.warn(spec.Field(), "unsupported operator "+string(spec.Operator()))

	return false
}

// Compare orders two devices by sorting. Unset values sort last in either direction.
func (m *CriteriaMatcher) Compare(sorting []model.SortField, a, b *model.Device) int {
	for _, field := range sorting {
		left, leftOK, known := m.read(field.Field, a)
		if !known {
			continue
		}

		right, rightOK, _ := m.read(field.Field, b)

		switch {
		case !leftOK && !rightOK:
			continue
		case !leftOK:
			return 1
		case !rightOK:
			return -1
		}

		result, _ := compareValues(left, right)
		if result == 0 {
			continue
		}

		if field.Direction == model.SortDesc {
			return -result
		}

		return result
	}

	return 0
}

func (m *CriteriaMatcher) read(field string, device *model.Device) (any, bool, bool) {
	accessor, found := fieldAccessors[field]
	if !found {
		m.warn(field, "unknown criteria field")

		return nil, false, false
	}

	value, ok := accessor(device)

	return value, ok, true
}

func (m *CriteriaMatcher) warn(field, msg string) {
	m.logger.Warn().Str("field", field).Msg(msg)
}

func compareEqual(left, right any) bool {
	result, comparable := compareValues(left, right)

	return comparable && result == 0
}

func compareValues(left, right any) (int, bool) {
	switch l := normalize(left).(type) {
	case string:
		r, ok := normalize(right).(string)
		if !ok {
			return 0, false
		}

		return strings.Compare(strings.ToLower(l), strings.ToLower(r)), true

	case time.Time:
		r, ok := normalize(right).(time.Time)
		if !ok {
			return 0, false
		}

		return l.Compare(r), true

	case int64:
		r, ok := normalize(right).(int64)
		if !ok {
			return 0, false
		}

		return cmp.Compare(l, r), true
	}

	return 0, false
}

func normalize(value any) any {
	switch v := value.(type) {
	case string, time.Time, int64:
		return v
	case *time.Time:
		if v == nil {
			return nil
		}

		return *v
	case int:
		return int64(v)
	case uint:
		return int64(v)
	case fmt.Stringer:
		return v.String()
	default:
		return value
	}
}
