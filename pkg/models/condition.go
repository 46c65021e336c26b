package models

import (
	"errors"
	"fmt"
)

// ConditionOp is the operator of one node in a condition tree.
type ConditionOp string

const (
	// Logical operators; evaluated over Children.
	ConditionOpAnd ConditionOp = "and"
	ConditionOpOr  ConditionOp = "or"
	ConditionOpNot ConditionOp = "not"

	// Comparison operators; evaluated over Field and Value.
	ConditionOpEq       ConditionOp = "eq"
	ConditionOpNeq      ConditionOp = "neq"
	ConditionOpGt       ConditionOp = "gt"
	ConditionOpGte      ConditionOp = "gte"
	ConditionOpLt       ConditionOp = "lt"
	ConditionOpLte      ConditionOp = "lte"
	ConditionOpContains ConditionOp = "contains"
	ConditionOpExists   ConditionOp = "exists"
)

var (
	ErrConditionOpUnknown     = errors.New("unknown condition operator")
	ErrConditionNeedsChildren = errors.New("logical condition requires children")
	ErrConditionNeedsField    = errors.New("comparison condition requires a field")
)

// Condition is a predicate over instance data, attached to stages and steps
// to control their visibility. It forms a typed expression tree: logical
// nodes compose Children, comparison nodes reference a Field and a Value.
// Evaluation is deferred to an evaluator outside this core; only structural
// validation happens here.
type Condition struct {
	Op       ConditionOp  `json:"op"`
	Field    string       `json:"field,omitempty"`
	Value    any          `json:"value,omitempty"`
	Children []*Condition `json:"children,omitempty"`
}

// Validate checks the structural shape of the condition tree.
func (c *Condition) Validate() error {
	if c == nil {
		return nil
	}

	switch c.Op {
	case ConditionOpAnd, ConditionOpOr:
		if len(c.Children) == 0 {
			return fmt.Errorf("%q: %w", c.Op, ErrConditionNeedsChildren)
		}
	case ConditionOpNot:
		if len(c.Children) != 1 {
			return fmt.Errorf("%q expects exactly one child: %w", c.Op, ErrConditionNeedsChildren)
		}
	case ConditionOpEq, ConditionOpNeq, ConditionOpGt, ConditionOpGte,
		ConditionOpLt, ConditionOpLte, ConditionOpContains, ConditionOpExists:
		if c.Field == "" {
			return fmt.Errorf("%q: %w", c.Op, ErrConditionNeedsField)
		}

		if len(c.Children) > 0 {
			return fmt.Errorf("comparison %q cannot have children", c.Op)
		}
	default:
		return fmt.Errorf("%q: %w", c.Op, ErrConditionOpUnknown)
	}

	for _, child := range c.Children {
		if err := child.Validate(); err != nil {
			return err
		}
	}

	return nil
}
