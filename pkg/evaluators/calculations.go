package evaluators

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shopify/go-lua"

	"mercator-hq/underwriter/pkg/pipeline"
	"mercator-hq/underwriter/pkg/population"
)

// script is one compiled calculation.
type script struct {
	rule   string
	output string
	source string
}

// Calculations returns the calculations generator. Each rule's value is a
// Lua expression ("income / 12") or chunk ("local m = income / 12 return m")
// whose result is written to the rule's output variable. Record variables
// and earlier results are visible as globals.
func Calculations() pipeline.Generator {
	return pipeline.GeneratorFunc(func(_ context.Context, req pipeline.GenerateRequest) (pipeline.StageEvaluator, error) {
		scripts := make([]script, 0, len(req.Segment.Ruleset))

		check := lua.NewState()
		for _, rule := range req.Segment.Ruleset {
			if rule.Output == "" {
				return nil, &RuleError{Rule: rule.Name, Err: ErrOutputVariableRequired}
			}
			src, ok := rule.Value.(string)
			if !ok {
				return nil, &RuleError{Rule: rule.Name, Err: fmt.Errorf("calculation must be a string, got %T", rule.Value)}
			}
			src = chunk(src)
			if err := lua.LoadString(check, src); err != nil {
				return nil, &RuleError{Rule: rule.Name, Err: fmt.Errorf("invalid calculation: %w", err)}
			}
			check.Pop(1)
			scripts = append(scripts, script{rule: rule.Name, output: rule.Output, source: src})
		}

		return func(ctx context.Context, rec pipeline.Record) (pipeline.StageResult, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			sb := newSandbox(ctx)
			l := sb.l
			for k, v := range rec {
				if pushValue(l, v) {
					l.SetGlobal(k)
				}
			}

			values := make(map[string]any, len(scripts))
			for _, s := range scripts {
				v, err := run(l, s.source)
				if err != nil {
					return nil, &RuleError{Rule: s.rule, Err: sb.cause(err)}
				}
				values[s.output] = v
				if pushValue(l, v) {
					l.SetGlobal(s.output)
				}
			}

			return &pipeline.CalculationsResult{Values: values}, nil
		}, nil
	})
}

const (
	// hookInterval is the number of VM instructions between budget checks.
	hookInterval = 1000
	// maxInstructions bounds one evaluation of a segment's calculations.
	maxInstructions = 50_000_000
)

// sandboxGlobals are base library functions removed from scripts: file
// loading, dynamic chunks and stdout.
var sandboxGlobals = []string{"dofile", "loadfile", "load", "loadstring", "require", "print"}

// sandbox is a Lua state with only the base, string, math and table
// libraries, interrupted when ctx ends or the instruction budget runs out.
type sandbox struct {
	l     *lua.State
	ctx   context.Context
	steps int
}

func newSandbox(ctx context.Context) *sandbox {
	sb := &sandbox{l: lua.NewState(), ctx: ctx}
	for _, lib := range []lua.RegistryFunction{
		{Name: "_G", Function: lua.BaseOpen},
		{Name: "string", Function: lua.StringOpen},
		{Name: "math", Function: lua.MathOpen},
		{Name: "table", Function: lua.TableOpen},
	} {
		lua.Require(sb.l, lib.Name, lib.Function, true)
		sb.l.Pop(1)
	}
	for _, name := range sandboxGlobals {
		sb.l.PushNil()
		sb.l.SetGlobal(name)
	}

	lua.SetDebugHook(sb.l, func(l *lua.State, _ lua.Debug) {
		sb.steps += hookInterval
		if err := sb.ctx.Err(); err != nil {
			lua.Errorf(l, "%s", err.Error())
		}
		if sb.steps > maxInstructions {
			lua.Errorf(l, "%s", ErrInstructionBudget.Error())
		}
	}, lua.MaskCount, hookInterval)
	return sb
}

// cause maps an interrupted run to the context or budget error.
func (sb *sandbox) cause(err error) error {
	if ctxErr := sb.ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if sb.steps > maxInstructions {
		return ErrInstructionBudget
	}
	return err
}

// chunk turns a bare expression into a returning chunk.
func chunk(src string) string {
	trimmed := strings.TrimSpace(src)
	if strings.HasPrefix(trimmed, "return") || strings.Contains(trimmed, "\n") || strings.HasPrefix(trimmed, "local") {
		return trimmed
	}
	return "return " + trimmed
}

// run executes src and returns its single result.
func run(l *lua.State, src string) (any, error) {
	if err := lua.LoadString(l, src); err != nil {
		return nil, err
	}
	if err := l.ProtectedCall(0, 1, 0); err != nil {
		return nil, err
	}
	defer l.Pop(1)
	return toValue(l, -1), nil
}

// pushValue pushes scalars and string keyed maps. It reports false, pushing
// nothing, for values Lua scripts cannot use.
func pushValue(l *lua.State, v any) bool {
	switch val := v.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(val)
	case string:
		l.PushString(val)
	case map[string]any:
		l.NewTable()
		for k, inner := range val {
			if pushValue(l, inner) {
				l.SetField(-2, k)
			}
		}
	default:
		f, err := population.ToFloat64(v)
		if err != nil {
			return false
		}
		l.PushNumber(f)
	}
	return true
}

// toValue converts the Lua value at index to Go.
func toValue(l *lua.State, index int) any {
	switch l.TypeOf(index) {
	case lua.TypeNumber:
		f, _ := l.ToNumber(index)
		return f
	case lua.TypeString:
		s, _ := l.ToString(index)
		return s
	case lua.TypeBoolean:
		return l.ToBoolean(index)
	default:
		return nil
	}
}
