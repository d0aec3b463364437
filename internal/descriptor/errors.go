package descriptor

import (
	"fmt"
	"strings"
)

// Validation rule identifiers carried by Violations.
const (
	// RuleDuplicateName fires when two services share a name.
	RuleDuplicateName = "duplicate-name"

	// RulePortSyntax fires on a malformed host:container mapping.
	RulePortSyntax = "port-syntax"

	// RuleUnknownDependency fires when depends_on names an absent service.
	RuleUnknownDependency = "unknown-dependency"

	// RuleDependencyCycle fires when dependency edges form a cycle.
	RuleDependencyCycle = "dependency-cycle"

	// RuleUnknownVolume fires when a mount names an undeclared volume.
	RuleUnknownVolume = "unknown-volume"

	// RuleVolumeSyntax fires on a mount spec missing its target.
	RuleVolumeSyntax = "volume-syntax"
)

// ParseError indicates the template text does not conform to the expected
// grammar. Unrecoverable; the render aborts.
type ParseError struct {
	// Source is the template path, or "<template>" for in-memory input.
	Source string

	// Line is the 1-based line of the offending node, 0 if unknown.
	Line int

	// Msg describes what was malformed.
	Msg string

	// Err is the underlying decode error, if any.
	Err error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Source)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// UnresolvedVariableError indicates placeholders with no value in the
// environment source and no default. Variables keeps first-reference order.
type UnresolvedVariableError struct {
	Variables []string
}

func (e *UnresolvedVariableError) Error() string {
	return fmt.Sprintf("missing variables: ${%s}", strings.Join(e.Variables, "}, ${"))
}

// Violation is one schema rule failure: which rule, on what, and why.
type Violation struct {
	// Rule is one of the Rule* identifiers.
	Rule string

	// Subject is the offending service or volume name.
	Subject string

	// Detail is a human-readable explanation.
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s [%s]: %s", v.Subject, v.Rule, v.Detail)
}

// ValidationError aggregates every violation found in one validation pass.
// Validation is exhaustive, not fail-fast.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return "validation failed: " + e.Violations[0].String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "validation failed with %d violations:", len(e.Violations))
	for _, v := range e.Violations {
		b.WriteString("\n  - ")
		b.WriteString(v.String())
	}
	return b.String()
}

// EmitError indicates the serializer hit a value it cannot represent. After a
// successful Validate this is an internal-invariant failure, not bad input.
type EmitError struct {
	Err error
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("emit descriptor: %v", e.Err)
}

func (e *EmitError) Unwrap() error { return e.Err }
