package model_test

import (
	"testing"

	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/stretchr/testify/require"
)

func TestLeafSpecs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		spec          model.Specification
		expectedOp    model.SpecOperator
		expectedField string
		expectedValue any
	}{
		{
			name:          "eq",
			spec:          model.Eq("ownerId", "CC-1"),
			expectedOp:    model.SpecOpEq,
			expectedField: "ownerId",
			expectedValue: "CC-1",
		},
		{
			name:          "in",
			spec:          model.In("kind", "computer", "medical-device"),
			expectedOp:    model.SpecOpIn,
			expectedField: "kind",
			expectedValue: []any{"computer", "medical-device"},
		},
		{
			name:          "like",
			spec:          model.Like("owner", "ada"),
			expectedOp:    model.SpecOpLike,
			expectedField: "owner",
			expectedValue: "ada",
		},
		{
			name:          "gte",
			spec:          model.Gte("enteredAt", 10),
			expectedOp:    model.SpecOpGte,
			expectedField: "enteredAt",
			expectedValue: 10,
		},
		{
			name:          "of kind",
			spec:          model.OfKind(model.KindMedicalDevice),
			expectedOp:    model.SpecOpEq,
			expectedField: model.FieldKind,
			expectedValue: "medical-device",
		},
		{
			name:          "in state",
			spec:          model.InState(model.StateCheckedOut),
			expectedOp:    model.SpecOpEq,
			expectedField: model.FieldState,
			expectedValue: "checked-out",
		},
		{
			name:          "still inside",
			spec:          model.StillInside(),
			expectedOp:    model.SpecOpIsNull,
			expectedField: model.FieldCheckedOutAt,
		},
		{
			name:          "is null",
			spec:          model.IsNull("checkedOutAt"),
			expectedOp:    model.SpecOpIsNull,
			expectedField: "checkedOutAt",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.expectedOp, tc.spec.Operator())
			require.Equal(t, tc.expectedField, tc.spec.Field())
			require.Equal(t, tc.expectedValue, tc.spec.Value())
			require.False(t, tc.spec.IsComposite())
			require.Nil(t, tc.spec.Children())
		})
	}
}

func TestLeafSpec_Combinators(t *testing.T) {
	t.Parallel()

	present := model.Eq("state", "present")
	computer := model.Eq("kind", "computer")

	must := present.Must(computer)
	require.Equal(t, model.SpecOpMust, must.Operator())
	require.Equal(t, []model.Specification{present, computer}, must.Children())

	should := present.Should(computer)
	require.Equal(t, model.SpecOpShould, should.Operator())

	negated := present.MustNot()
	require.Equal(t, model.SpecOpMustNot, negated.Operator())
	require.Same(t, present, negated.MustNot())
}

func TestCompositeSpec_DoesNotShareChildren(t *testing.T) {
	t.Parallel()

	base := model.Must(model.Eq("kind", "computer"), model.Eq("state", "present"))

	left := base.Must(model.Eq("brand", "Dell"))
	right := base.Must(model.Eq("brand", "HP"))

	require.Len(t, base.Children(), 2)
	require.Equal(t, "Dell", left.Children()[2].Value())
	require.Equal(t, "HP", right.Children()[2].Value())

	either := model.Should(model.Eq("brand", "Dell")).Should(model.Eq("brand", "HP"))
	require.Len(t, either.Children(), 2)
	require.True(t, either.IsComposite())
	require.Empty(t, either.Field())
	require.Nil(t, either.Value())
}
