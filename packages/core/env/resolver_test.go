package env

import (
	"fmt"
	"testing"
)

func TestResolverHasUnresolvedVariables(t *testing.T) {
	t.Setenv("FETCHFORM_TEST_TOKEN", "abc")

	tests := []struct {
		name      string
		input     string
		variables map[string]any
		expected  bool
	}{
		{
			name:      "no variables",
			input:     "hello world",
			variables: nil,
			expected:  false,
		},
		{
			name:      "resolved variable",
			input:     "{{foo}}",
			variables: map[string]any{"foo": "bar"},
			expected:  false,
		},
		{
			name:      "unresolved variable",
			input:     "{{foo}}",
			variables: nil,
			expected:  true,
		},
		{
			name:      "mixed resolved and unresolved",
			input:     "{{foo}} and {{bar}}",
			variables: map[string]any{"foo": "hello"},
			expected:  true,
		},
		{
			name:      "all resolved",
			input:     "{{foo}} and {{bar}}",
			variables: map[string]any{"foo": "hello", "bar": "world"},
			expected:  false,
		},
		{
			name:     "environment variable",
			input:    "Bearer {{$FETCHFORM_TEST_TOKEN}}",
			expected: false,
		},
		{
			name:     "missing environment variable",
			input:    "{{$FETCHFORM_TEST_MISSING}}",
			expected: true,
		},
		{
			name:     "known function",
			input:    "{{uuid()}}",
			expected: false,
		},
		{
			name:     "unknown function",
			input:    "{{nope()}}",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			if tt.variables != nil {
				r.SetVariables(tt.variables)
			}

			got := r.HasUnresolvedVariables(tt.input)
			if got != tt.expected {
				t.Errorf("HasUnresolvedVariables(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestResolverGetUnresolvedVariables(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		variables map[string]any
		expected  []string
	}{
		{
			name:      "no variables",
			input:     "hello world",
			variables: nil,
			expected:  nil,
		},
		{
			name:      "resolved variable",
			input:     "{{foo}}",
			variables: map[string]any{"foo": "bar"},
			expected:  nil,
		},
		{
			name:      "single unresolved variable",
			input:     "{{foo}}",
			variables: nil,
			expected:  []string{"foo"},
		},
		{
			name:      "multiple unresolved variables",
			input:     "{{foo}} and {{ bar }}",
			variables: nil,
			expected:  []string{"foo", "bar"},
		},
		{
			name:      "mixed resolved and unresolved",
			input:     "{{foo}} and {{bar}} and {{baz}}",
			variables: map[string]any{"bar": "middle"},
			expected:  []string{"foo", "baz"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			if tt.variables != nil {
				r.SetVariables(tt.variables)
			}

			got := r.GetUnresolvedVariables(tt.input)

			if tt.expected == nil {
				if got != nil {
					t.Errorf("GetUnresolvedVariables(%q) = %v, want nil", tt.input, got)
				}
				return
			}

			if len(got) != len(tt.expected) {
				t.Errorf("GetUnresolvedVariables(%q) returned %d vars, want %d", tt.input, len(got), len(tt.expected))
				return
			}

			for i, v := range tt.expected {
				if got[i] != v {
					t.Errorf("GetUnresolvedVariables(%q)[%d] = %q, want %q", tt.input, i, got[i], v)
				}
			}
		})
	}
}

func TestResolverResolve(t *testing.T) {
	t.Setenv("FETCHFORM_TEST_HOST", "api.example.com")

	tests := []struct {
		name      string
		input     string
		variables map[string]any
		expected  string
	}{
		{
			name:     "no variables",
			input:    "hello world",
			expected: "hello world",
		},
		{
			name:      "simple variable",
			input:     "hello {{name}}",
			variables: map[string]any{"name": "world"},
			expected:  "hello world",
		},
		{
			name:      "multiple variables",
			input:     "{{greeting}} {{name}}!",
			variables: map[string]any{"greeting": "Hello", "name": "World"},
			expected:  "Hello World!",
		},
		{
			name:      "non-string variable",
			input:     "port {{port}}",
			variables: map[string]any{"port": 8080},
			expected:  "port 8080",
		},
		{
			name:     "environment variable",
			input:    "https://{{$FETCHFORM_TEST_HOST}}/upload",
			expected: "https://api.example.com/upload",
		},
		{
			name:     "function call",
			input:    "{{base64('user:pass')}}",
			expected: "dXNlcjpwYXNz",
		},
		{
			name:     "unresolved stays as-is",
			input:    "hello {{unknown}}",
			expected: "hello {{unknown}}",
		},
		{
			name:     "failed function stays as-is",
			input:    "{{random(a, b)}}",
			expected: "{{random(a, b)}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			if tt.variables != nil {
				r.SetVariables(tt.variables)
			}

			got := r.Resolve(tt.input)
			if got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestResolverResolveValue(t *testing.T) {
	r := NewResolver()
	r.SetVariable("user", "zoe")
	r.SetVariable("dir", "/srv/uploads")

	input := map[string]any{
		"name":   "{{user}}",
		"avatar": "file:///{{dir}}/avatar.png",
		"tags":   []any{"a", "{{user}}"},
		"meta":   map[string]any{"count": 3, "owner": "{{user}}"},
	}

	got := r.ResolveValue(input).(map[string]any)

	if got["name"] != "zoe" {
		t.Errorf("name = %v, want zoe", got["name"])
	}
	if got["avatar"] != "file:////srv/uploads/avatar.png" {
		t.Errorf("avatar = %v", got["avatar"])
	}
	if tags := got["tags"].([]any); tags[1] != "zoe" {
		t.Errorf("tags = %v", tags)
	}
	meta := got["meta"].(map[string]any)
	if meta["count"] != 3 || meta["owner"] != "zoe" {
		t.Errorf("meta = %v", meta)
	}
	if input["name"] != "{{user}}" {
		t.Errorf("input was mutated: %v", input["name"])
	}
}

func TestResolverWarnFunc(t *testing.T) {
	var warnings []string
	r := NewResolver()
	r.SetWarnFunc(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})

	r.Resolve("{{missing}} {{nope()}}")

	if len(warnings) != 2 {
		t.Fatalf("got %d warnings, want 2: %v", len(warnings), warnings)
	}
	if warnings[0] != "unresolved variable: missing" {
		t.Errorf("warnings[0] = %q", warnings[0])
	}
}

func TestResolverClone(t *testing.T) {
	r := NewResolver()
	r.SetVariable("a", "1")

	clone := r.Clone()
	clone.SetVariable("b", "2")

	if r.HasVariable("b") {
		t.Error("clone leaked variable into original")
	}
	if v, ok := clone.GetVariable("a"); !ok || v != "1" {
		t.Errorf("clone a = %v, %v", v, ok)
	}
	if names := clone.Names(); len(names) != 2 || names[0] != "a" {
		t.Errorf("Names() = %v", names)
	}
}
