// Package cel evaluates CEL expressions against a snapshot bound to "_".
package cel

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	celext "github.com/google/cel-go/ext"

	"github.com/oakwood-commons/kvwatch/internal/snapshot"
)

// RootVariable is the name the snapshot is bound to.
const RootVariable = "_"

// Evaluator compiles and evaluates CEL expressions. Compiled programs are
// cached by expression text, so re-evaluating the same expression on every
// refresh only pays for evaluation.
type Evaluator struct {
	env *cel.Env

	mu       sync.Mutex
	programs map[string]cel.Program
}

// NewEvaluator creates an evaluator with the strings, encoders, lists and
// math extensions.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable(RootVariable, cel.DynType),
		celext.Strings(),
		celext.Encoders(),
		celext.Lists(),
		celext.Math(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Evaluator{env: env, programs: make(map[string]cel.Program)}, nil
}

// Compile checks expr without evaluating it.
func (e *Evaluator) Compile(expr string) error {
	_, err := e.program(expr)
	return err
}

// Evaluate runs expr with root bound to "_". Mappings in the result come
// back with sorted keys because CEL maps are unordered.
func (e *Evaluator) Evaluate(expr string, root snapshot.Value) (snapshot.Value, error) {
	prg, err := e.program(expr)
	if err != nil {
		return snapshot.Value{}, err
	}
	out, _, err := prg.Eval(map[string]interface{}{RootVariable: root.Interface()})
	if err != nil {
		return snapshot.Value{}, fmt.Errorf("eval error: %w", err)
	}
	v, err := snapshot.FromInterface(ToGo(out))
	if err != nil {
		return snapshot.Value{}, fmt.Errorf("convert result: %w", err)
	}
	return v, nil
}

func (e *Evaluator) program(expr string) (cel.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, ok := e.programs[expr]; ok {
		return prg, nil
	}
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation error: %w", issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	e.programs[expr] = prg
	return prg, nil
}

// ToGo converts CEL values to plain Go values recursively.
func ToGo(val ref.Val) interface{} {
	if val == nil {
		return nil
	}

	switch v := val.(type) {
	case types.Null:
		return nil
	case types.Bool:
		return bool(v)
	case types.Int:
		return int64(v)
	case types.Uint:
		return uint64(v)
	case types.Double:
		return float64(v)
	case types.String:
		return string(v)
	case types.Bytes:
		return string(v)
	}

	valuer, ok := val.(interface{ Value() interface{} })
	if !ok {
		return val
	}
	return plain(valuer.Value())
}

func plain(inner interface{}) interface{} {
	switch x := inner.(type) {
	case ref.Val:
		return ToGo(x)
	case []ref.Val:
		out := make([]interface{}, len(x))
		for i, elem := range x {
			out[i] = ToGo(elem)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, elem := range x {
			out[i] = plain(elem)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, v := range x {
			out[k] = plain(v)
		}
		return out
	case map[ref.Val]ref.Val:
		out := make(map[string]interface{}, len(x))
		for k, v := range x {
			out[fmt.Sprint(plain(k.Value()))] = ToGo(v)
		}
		return out
	}
	return inner
}
