package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondition_Validate_NilIsValid(t *testing.T) {
	var condition *Condition

	require.NoError(t, condition.Validate())
}

func TestCondition_Validate_Comparison(t *testing.T) {
	condition := &Condition{Op: ConditionOpEq, Field: "budget", Value: 1000}

	require.NoError(t, condition.Validate())
}

func TestCondition_Validate_ComparisonRequiresField(t *testing.T) {
	condition := &Condition{Op: ConditionOpGt, Value: 5}

	err := condition.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConditionNeedsField)
}

func TestCondition_Validate_ComparisonRejectsChildren(t *testing.T) {
	condition := &Condition{
		Op:    ConditionOpEq,
		Field: "tier",
		Children: []*Condition{
			{Op: ConditionOpExists, Field: "other"},
		},
	}

	require.Error(t, condition.Validate())
}

func TestCondition_Validate_LogicalRequiresChildren(t *testing.T) {
	err := (&Condition{Op: ConditionOpAnd}).Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConditionNeedsChildren)

	err = (&Condition{Op: ConditionOpOr}).Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConditionNeedsChildren)
}

func TestCondition_Validate_NotRequiresExactlyOneChild(t *testing.T) {
	condition := &Condition{
		Op: ConditionOpNot,
		Children: []*Condition{
			{Op: ConditionOpExists, Field: "a"},
			{Op: ConditionOpExists, Field: "b"},
		},
	}

	err := condition.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConditionNeedsChildren)
}

func TestCondition_Validate_UnknownOperator(t *testing.T) {
	condition := &Condition{Op: "xor", Field: "a"}

	err := condition.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConditionOpUnknown)
}

func TestCondition_Validate_NestedTree(t *testing.T) {
	condition := &Condition{
		Op: ConditionOpAnd,
		Children: []*Condition{
			{Op: ConditionOpGte, Field: "budget", Value: 5000},
			{
				Op: ConditionOpNot,
				Children: []*Condition{
					{Op: ConditionOpEq, Field: "tier", Value: "basic"},
				},
			},
		},
	}

	require.NoError(t, condition.Validate())
}

func TestCondition_Validate_ReportsInvalidDescendant(t *testing.T) {
	condition := &Condition{
		Op: ConditionOpOr,
		Children: []*Condition{
			{Op: ConditionOpExists, Field: "a"},
			{Op: ConditionOpLt}, // missing field
		},
	}

	err := condition.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConditionNeedsField)
}

func TestElementType_Category(t *testing.T) {
	assert.Equal(t, ElementCategoryInput, ElementTypeTextInput.Category())
	assert.Equal(t, ElementCategoryContent, ElementTypeHeading.Category())
	assert.Equal(t, ElementCategoryIntegration, ElementTypeCalendarBooking.Category())
	assert.Equal(t, ElementCategoryControl, ElementTypeNextButton.Category())
}

func TestElementType_Valid(t *testing.T) {
	assert.True(t, ElementTypeDropdown.Valid())
	assert.False(t, ElementType("hologram").Valid())
}

func TestRole_IsAdminTier(t *testing.T) {
	assert.True(t, Role{Name: RoleAdmin}.IsAdminTier())
	assert.True(t, Role{Name: RoleSuperAdmin}.IsAdminTier())
	assert.False(t, Role{Name: "editor"}.IsAdminTier())
}
