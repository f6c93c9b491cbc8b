package model

type SpecOperator string

const (
	SpecOpEq      SpecOperator = "eq"
	SpecOpIn      SpecOperator = "in"
	SpecOpLike    SpecOperator = "like"
	SpecOpGte     SpecOperator = "gte"
	SpecOpLte     SpecOperator = "lte"
	SpecOpBetween SpecOperator = "between"
	SpecOpIsNull  SpecOperator = "is_null"
	SpecOpMust    SpecOperator = "must"
	SpecOpShould  SpecOperator = "should"
	SpecOpMustNot SpecOperator = "must_not"
)

// Specification is a node of a device filter tree. Leaves test one field of a
// device against a value, composites combine their children with their operator.
// Repositories translate the tree, CriteriaMatcher is the in-memory reading.
type Specification interface {
	Must(other Specification) Specification
	Should(other Specification) Specification
	MustNot() Specification
	IsComposite() bool
	Children() []Specification
	Operator() SpecOperator
	Field() string
	Value() any
}

// OfKind matches devices of the given kind.
func OfKind(kind Kind) Specification {
	return Eq(FieldKind, kind.String())
}

// InState matches devices whose visit is in the given state.
func InState(state State) Specification {
	return Eq(FieldState, state.String())
}

// StillInside matches devices that entered and have not been checked out.
func StillInside() Specification {
	return IsNull(FieldCheckedOutAt)
}
