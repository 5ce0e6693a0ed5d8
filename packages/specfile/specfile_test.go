package specfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/fetchform/packages/core/env"
	"github.com/abdul-hamid-achik/fetchform/packages/http"
)

const uploadYAML = `
name: upload avatar
url: https://api.example.com/users/{{userId}}/avatar?v=2
method: post
headers:
  Content-Type: multipart/form-data
  X-Retry: 3
body:
  caption: "{{caption}}"
  image: url:///https://cdn.example.com/pic.png
  tags: [a, b]
timeout: 30s
`

func TestParse_YAML(t *testing.T) {
	resolver := env.NewResolver()
	resolver.SetVariables(map[string]any{"userId": 42, "caption": "hello"})

	doc, err := Parse([]byte(uploadYAML), resolver)
	require.NoError(t, err)

	spec := doc.Request
	assert.Equal(t, "upload avatar", doc.Name)
	assert.Equal(t, "https:", spec.Protocol)
	assert.Equal(t, "api.example.com", spec.Host)
	assert.Zero(t, spec.Port)
	assert.Equal(t, "/users/42/avatar?v=2", spec.Path)
	assert.Equal(t, "post", spec.Method)
	assert.Equal(t, map[string]string{"Content-Type": "multipart/form-data", "X-Retry": "3"}, spec.Headers)
	assert.Equal(t, "hello", spec.Body["caption"])
	assert.Equal(t, "url:///https://cdn.example.com/pic.png", spec.Body["image"])
	assert.Equal(t, []any{"a", "b"}, spec.Body["tags"])
	assert.Equal(t, 30*time.Second, spec.Timeout)

	normalized := http.Normalize(spec)
	assert.Equal(t, 443, normalized.Port)
	assert.Equal(t, "POST", normalized.Method)
}

func TestParse_JSON(t *testing.T) {
	data := `{
		"host": "localhost",
		"port": 8080,
		"path": "/search",
		"query": {"q": "a b", "page": 2},
		"encoding": "latin1",
		"timeout": 1500
	}`

	doc, err := Parse([]byte(data), nil)
	require.NoError(t, err)

	spec := doc.Request
	assert.Equal(t, "localhost", spec.Host)
	assert.Equal(t, 8080, spec.Port)
	assert.Equal(t, map[string]any{"q": "a b", "page": 2}, spec.Query)
	assert.Nil(t, spec.Body)
	assert.Equal(t, "latin1", spec.Encoding)
	assert.Equal(t, 1500*time.Millisecond, spec.Timeout)
}

func TestParse_ExplicitFieldsOverrideURL(t *testing.T) {
	data := `
url: http://example.com:9000/a
host: internal.example.com
path: /b
`
	doc, err := Parse([]byte(data), nil)
	require.NoError(t, err)

	assert.Equal(t, "http:", doc.Request.Protocol)
	assert.Equal(t, "internal.example.com", doc.Request.Host)
	assert.Equal(t, 9000, doc.Request.Port)
	assert.Equal(t, "/b", doc.Request.Path)
}

func TestParse_ResolvedPort(t *testing.T) {
	resolver := env.NewResolver()
	resolver.SetVariable("port", "8443")

	doc, err := Parse([]byte(`port: "{{port}}"`), resolver)
	require.NoError(t, err)
	assert.Equal(t, 8443, doc.Request.Port)

	_, err = Parse([]byte(`port: "{{port}}"`), nil)
	assert.Error(t, err)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not yaml", "host: [unclosed"},
		{"scalar document", "just a string"},
		{"bad url scheme", "url: ftp://example.com/file"},
		{"url without host", "url: http:///path"},
		{"bad duration", "timeout: soon"},
		{"port out of range string", `port: "70000"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), nil)
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte(""), nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid yaml", uploadYAML, false},
		{"valid minimal", "host: localhost", false},
		{"unknown field", "hots: localhost", true},
		{"port out of range", "port: 70000", true},
		{"body must be mapping", "body: [1, 2]", true},
		{"unsupported encoding", "encoding: ebcdic", true},
		{"negative timeout", "timeout: -5", true},
		{"header object value", "headers:\n  X-A:\n    nested: true", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(tt.data))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Issues)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "upload.yaml")
	require.NoError(t, os.WriteFile(path, []byte(uploadYAML), 0644))

	doc, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Path)
	assert.Equal(t, "/users/%7B%7BuserId%7D%7D/avatar?v=2", doc.Request.Path)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("nope: true"), 0644))
	_, err = Load(bad, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, bad, verr.Path)
	assert.Contains(t, err.Error(), bad)

	_, err = Load(filepath.Join(dir, "absent.yaml"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"method": ""}`), 0644))

	err := ValidateFile(path)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, path, verr.Path)
}

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		in      any
		want    time.Duration
		wantErr bool
	}{
		{250, 250 * time.Millisecond, false},
		{1.5, 1500 * time.Microsecond, false},
		{"2s", 2 * time.Second, false},
		{"750", 750 * time.Millisecond, false},
		{"1m30s", 90 * time.Second, false},
		{-1, 0, true},
		{"-1s", 0, true},
		{"later", 0, true},
		{true, 0, true},
	}

	for _, tt := range tests {
		got, err := ParseTimeout(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.in)
			continue
		}
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.yaml")
	require.NoError(t, os.WriteFile(path, []byte(uploadYAML+"query:\n  id: \"{{userId}}\"\n  ts: \"{{timestamp()}}\"\n"), 0644))

	resolver := env.NewResolver()
	got, err := Variables(path, resolver)
	require.NoError(t, err)
	assert.Equal(t, []string{"caption", "userId"}, got)

	resolver.SetVariable("caption", "hi")
	got, err = Variables(path, resolver)
	require.NoError(t, err)
	assert.Equal(t, []string{"userId"}, got)
}
