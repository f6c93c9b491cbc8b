package model

import "math"

type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"

	DefaultPage uint = 1
	DefaultSize uint = 20
	MaxSize     uint = 100
)

type (
	SortField struct {
		Field     string
		Direction SortDirection
	}

	// Criteria is an immutable filter, ordering and page window. An empty
	// sorting keeps insertion order.
	Criteria struct {
		spec    Specification
		sorting []SortField
		page    uint
		size    uint
	}
)

func (c Criteria) Spec() Specification  { return c.spec }
func (c Criteria) Sorting() []SortField { return c.sorting }
func (c Criteria) Page() uint           { return c.page }
func (c Criteria) Size() uint           { return c.size }
func (c Criteria) HasSpec() bool        { return c.spec != nil }
func (c Criteria) HasSorting() bool     { return len(c.sorting) > 0 }
func (c Criteria) HasPagination() bool  { return c.page > 0 && c.size > 0 }

// Offset is the index of the first item on the page. It saturates for pages
// no listing can reach.
func (c Criteria) Offset() uint {
	if c.page == 0 || c.size == 0 {
		return 0
	}

	if c.page-1 > math.MaxUint/c.size {
		return math.MaxUint
	}

	return (c.page - 1) * c.size
}

// And narrows c with spec, keeping ordering and pagination.
func (c Criteria) And(spec Specification) Criteria {
	switch {
	case spec == nil:
	case c.spec == nil:
		c.spec = spec
	default:
		c.spec = Must(spec, c.spec)
	}

	return c
}

// DefaultCriteria selects the first page with no filter.
func DefaultCriteria() Criteria {
	return NewCriteria().Build()
}
