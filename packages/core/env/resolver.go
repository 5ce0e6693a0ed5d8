package env

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/fetchform/packages/builtin"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Resolver interpolates {{...}} expressions in request documents. An
// expression is a variable name, an environment variable ($NAME) or a
// builtin function call (uuid(), random(1, 10), ...).
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]any
	funcs     *builtin.Registry
	warnFunc  WarnFunc
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]any),
		funcs:     builtin.NewRegistry(),
	}
}

// SetWarnFunc sets a function to be called when warnings occur (e.g., unresolved variables)
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

func (r *Resolver) SetVariables(vars map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) SetVariable(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[name] = value
}

func (r *Resolver) GetVariable(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variables[name]
	return v, ok
}

func (r *Resolver) HasVariable(name string) bool {
	_, ok := r.GetVariable(name)
	return ok
}

// Resolve replaces every resolvable expression in input. Unresolvable
// expressions are left untouched and reported through the warn func.
func (r *Resolver) Resolve(input string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])
		if val, ok := r.lookup(expr); ok {
			return val
		}
		return match
	})
}

func (r *Resolver) lookup(expr string) (string, bool) {
	if strings.HasPrefix(expr, "$") {
		envVar := expr[1:]
		if val, ok := os.LookupEnv(envVar); ok {
			return val, true
		}
		r.warn("unresolved environment variable: $%s", envVar)
		return "", false
	}

	if strings.Contains(expr, "(") {
		result, ok, err := r.funcs.Call(expr)
		if err != nil {
			r.warn("function call %s failed: %v", expr, err)
			return "", false
		}
		if !ok {
			r.warn("unresolved function call: %s", expr)
			return "", false
		}
		return fmt.Sprintf("%v", result), true
	}

	if val, ok := r.GetVariable(expr); ok {
		return fmt.Sprintf("%v", val), true
	}

	r.warn("unresolved variable: %s", expr)
	return "", false
}

func (r *Resolver) ResolveAll(values map[string]string) map[string]string {
	result := make(map[string]string, len(values))
	for k, v := range values {
		result[k] = r.Resolve(v)
	}
	return result
}

// ResolveValue walks decoded document values and resolves every string it
// finds. Maps and slices are copied; other values are returned as is.
func (r *Resolver) ResolveValue(v any) any {
	switch val := v.(type) {
	case string:
		return r.Resolve(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = r.ResolveValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.ResolveValue(item)
		}
		return out
	default:
		return v
	}
}

// GetUnresolvedVariables returns the expressions in input that would be left
// untouched by Resolve, in order of appearance.
func (r *Resolver) GetUnresolvedVariables(input string) []string {
	var unresolved []string
	for _, m := range variablePattern.FindAllStringSubmatch(input, -1) {
		expr := strings.TrimSpace(m[1])
		if !r.canResolve(expr) {
			unresolved = append(unresolved, expr)
		}
	}
	return unresolved
}

func (r *Resolver) HasUnresolvedVariables(input string) bool {
	return len(r.GetUnresolvedVariables(input)) > 0
}

func (r *Resolver) canResolve(expr string) bool {
	switch {
	case strings.HasPrefix(expr, "$"):
		_, ok := os.LookupEnv(expr[1:])
		return ok
	case strings.Contains(expr, "("):
		name, _, _ := strings.Cut(expr, "(")
		return r.funcs.Has(strings.TrimSpace(name))
	default:
		return r.HasVariable(expr)
	}
}

// Names returns the sorted names of all variables.
func (r *Resolver) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.variables))
	for k := range r.variables {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (r *Resolver) Clone() *Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := NewResolver()
	for k, v := range r.variables {
		clone.variables[k] = v
	}
	clone.warnFunc = r.warnFunc
	return clone
}
