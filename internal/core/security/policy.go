// Package security decides what an actor is allowed to do.
// Role rules are injected configuration, not hardcoded conditionals: the
// orchestrator asks a RolePolicy once and branches on the answer.
package security

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"agora/internal/core/actor"
)

// RolePolicy answers privilege questions about an actor.
type RolePolicy interface {
	// HasModerationPrivilege reports whether the actor may hard-remove and
	// restore other users' posts.
	HasModerationPrivilege(a actor.Actor) bool
}

// StaffPolicy grants moderation privilege to admins and moderators.
// This is the default production policy.
type StaffPolicy struct{}

func (StaffPolicy) HasModerationPrivilege(a actor.Actor) bool {
	return a.IsStaff()
}

// ExpressionPolicy evaluates a CEL expression against actor attributes.
// Lets operators widen or narrow the moderation role without a deploy,
// e.g. "moderator || admin || trust_level >= 4".
type ExpressionPolicy struct {
	program cel.Program
}

// NewExpressionPolicy compiles a CEL expression into a policy.
// The expression must evaluate to bool; available variables are
// admin, moderator, system (bool) and trust_level (int).
func NewExpressionPolicy(expr string) (*ExpressionPolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("admin", cel.BoolType),
		cel.Variable("moderator", cel.BoolType),
		cel.Variable("system", cel.BoolType),
		cel.Variable("trust_level", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile policy expression: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("policy expression must return bool, got %v", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build policy program: %w", err)
	}

	return &ExpressionPolicy{program: program}, nil
}

func (p *ExpressionPolicy) HasModerationPrivilege(a actor.Actor) bool {
	out, _, err := p.program.Eval(map[string]any{
		"admin":       a.Admin,
		"moderator":   a.Moderator,
		"system":      a.System,
		"trust_level": int64(a.TrustLevel),
	})
	if err != nil {
		// Evaluation failure means no privilege, never an escalation.
		return false
	}
	granted, ok := out.Value().(bool)
	return ok && granted
}
