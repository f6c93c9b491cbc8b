package model

import "slices"

type CriteriaBuilder struct {
	specs   []Specification
	sorting []SortField
	page    uint
	size    uint
}

func NewCriteria() *CriteriaBuilder {
	return &CriteriaBuilder{
		specs: make([]Specification, 0),
		page:  DefaultPage,
		size:  DefaultSize,
	}
}

func (b *CriteriaBuilder) Where(field string, value any) *CriteriaBuilder {
	b.specs = append(b.specs, Eq(field, value))

	return b
}

func (b *CriteriaBuilder) WhereIn(field string, values ...any) *CriteriaBuilder {
	b.specs = append(b.specs, In(field, values...))

	return b
}

func (b *CriteriaBuilder) WhereLike(field, pattern string) *CriteriaBuilder {
	b.specs = append(b.specs, Like(field, pattern))

	return b
}

func (b *CriteriaBuilder) WhereBetween(field string, start, end any) *CriteriaBuilder {
	b.specs = append(b.specs, Between(field, start, end))

	return b
}

func (b *CriteriaBuilder) WhereGte(field string, bound any) *CriteriaBuilder {
	b.specs = append(b.specs, Gte(field, bound))

	return b
}

func (b *CriteriaBuilder) WhereLte(field string, bound any) *CriteriaBuilder {
	b.specs = append(b.specs, Lte(field, bound))

	return b
}

func (b *CriteriaBuilder) WhereNull(field string) *CriteriaBuilder {
	b.specs = append(b.specs, IsNull(field))

	return b
}

func (b *CriteriaBuilder) WhereSpec(spec Specification) *CriteriaBuilder {
	b.specs = append(b.specs, spec)

	return b
}

// OrderBy appends a sort key, a leading "-" sorts descending.
func (b *CriteriaBuilder) OrderBy(field string) *CriteriaBuilder {
	direction := SortAsc
	actualField := field

	if len(field) > 0 && field[0] == '-' {
		direction = SortDesc
		actualField = field[1:]
	}

	b.sorting = append(b.sorting, SortField{Field: actualField, Direction: direction})

	return b
}

func (b *CriteriaBuilder) Paginate(page, size uint) *CriteriaBuilder {
	if page > 0 {
		b.page = page
	}

	if size > 0 {
		b.size = min(size, MaxSize)
	}

	return b
}

func (b *CriteriaBuilder) Build() Criteria {
	var rootSpec Specification

	if len(b.specs) == 1 {
		rootSpec = b.specs[0]
	} else if len(b.specs) > 1 {
		rootSpec = Must(slices.Clone(b.specs)...)
	}

	return Criteria{
		spec:    rootSpec,
		sorting: slices.Clone(b.sorting),
		page:    b.page,
		size:    b.size,
	}
}
