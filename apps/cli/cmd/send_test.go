package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/fetchform/packages/core/config"
)

// resetFlags zeroes the package-level flag values for one test.
func resetFlags(t *testing.T) {
	t.Helper()
	clear := func() {
		envFileFlag, configFlag, timeoutFlag, fetchTimeoutFlag = "", "", "", ""
		tempDirFlag, selectFlag, outputFlag, metricsFileFlag = "", "", "", ""
		varFlags = nil
		fetchRateFlag, fetchBurstFlag, maxFieldsFlag, verboseFlag = 0, 0, 0, 0
		noColorFlag, watchFlag = true, false
	}
	clear()
	t.Cleanup(clear)
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestSender(t *testing.T) (*sender, *bytes.Buffer) {
	t.Helper()
	cfg, err := applyFlags(config.DefaultConfig())
	require.NoError(t, err)
	var out, logs bytes.Buffer
	s, err := newSender(&out, &logs, cfg)
	require.NoError(t, err)
	return s, &out
}

func TestApplyFlags(t *testing.T) {
	resetFlags(t)
	timeoutFlag = "5s"
	fetchTimeoutFlag = "1500"
	fetchRateFlag = 4
	outputFlag = "JSON"
	verboseFlag = 1

	base := config.DefaultConfig()
	base.TempDir = "/from/file"
	base.Headers = map[string]string{"X-Team": "media"}

	cfg, err := applyFlags(base)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.TimeoutDuration())
	assert.Equal(t, 1500*time.Millisecond, cfg.FetchTimeoutDuration())
	assert.Equal(t, 4.0, cfg.FetchRate)
	assert.Equal(t, 1, cfg.FetchBurst)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, "/from/file", cfg.TempDir)
	assert.Equal(t, "media", cfg.Headers["X-Team"])
	assert.True(t, cfg.GetVerbose())
	assert.True(t, cfg.GetNoColor())
}

func TestApplyFlags_Invalid(t *testing.T) {
	resetFlags(t)
	timeoutFlag = "soon"
	_, err := applyFlags(config.DefaultConfig())
	assert.Error(t, err)

	resetFlags(t)
	outputFlag = "junit"
	_, err = applyFlags(config.DefaultConfig())
	assert.Error(t, err)
}

func TestSender_SendFile(t *testing.T) {
	resetFlags(t)
	var gotCaption, gotToken, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/upload":
			gotAuth = r.Header.Get("Authorization")
			if assert.NoError(t, r.ParseMultipartForm(1<<20)) {
				gotCaption = r.FormValue("caption")
				gotToken = r.FormValue("token")
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":7}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	t.Setenv("FETCHFORM_VAR_TOKEN", "s3cret")
	varFlags = []string{"caption=hello there"}
	dir := t.TempDir()
	doc := writeDoc(t, dir, "upload.yaml", `
name: upload
url: `+server.URL+`/upload
method: POST
headers:
  Content-Type: multipart/form-data
  Authorization: Bearer {{TOKEN}}
body:
  caption: "{{caption}}"
  token: "{{TOKEN}}"
`)
	missing := writeDoc(t, dir, "missing.yaml", "url: "+server.URL+"/nope\n")

	s, out := newTestSender(t)

	assert.Equal(t, ExitSuccess, s.sendFile(context.Background(), doc))
	assert.Equal(t, "hello there", gotCaption)
	assert.Equal(t, "s3cret", gotToken)
	assert.Empty(t, gotAuth, "multipart requests carry only the form headers")
	assert.Contains(t, out.String(), "201")
	assert.Contains(t, out.String(), `{"id":7}`)

	assert.Equal(t, ExitRequestFailure, s.sendFile(context.Background(), missing))
}

func TestSender_ExitCodes(t *testing.T) {
	resetFlags(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closedAddr := listener.Addr().String()
	listener.Close()

	dir := t.TempDir()
	refused := writeDoc(t, dir, "refused.yaml", "url: http://"+closedAddr+"/\n")
	unresolvable := writeDoc(t, dir, "unresolvable.yaml", `
url: http://`+closedAddr+`/upload
method: POST
headers:
  Content-Type: multipart/form-data
body:
  report: file:///definitely/not/here.pdf
`)
	invalid := writeDoc(t, dir, "invalid.yaml", "hots: typo\n")

	s, _ := newTestSender(t)
	ctx := context.Background()

	assert.Equal(t, ExitNetworkError, s.sendFile(ctx, refused))
	assert.Equal(t, ExitResolutionError, s.sendFile(ctx, unresolvable))
	assert.Equal(t, ExitParseError, s.sendFile(ctx, invalid))
	assert.Equal(t, ExitResolutionError, s.sendFiles(ctx, []string{refused, unresolvable}))
}

func TestSender_JSONOutputWithSelect(t *testing.T) {
	resetFlags(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user":{"id":42}}`))
	}))
	defer server.Close()

	outputFlag = "json"
	selectFlag = "body.user.id"
	doc := writeDoc(t, t.TempDir(), "get.json", `{"url": "`+server.URL+`/me"}`)

	s, out := newTestSender(t)
	require.Equal(t, ExitSuccess, s.sendFile(context.Background(), doc))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, float64(42), decoded["selected"])
	assert.Equal(t, "GET", decoded["request"].(map[string]any)["method"])
}

func TestSender_MetricsFile(t *testing.T) {
	resetFlags(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	dir := t.TempDir()
	metricsFileFlag = filepath.Join(dir, "fetchform.prom")
	doc := writeDoc(t, dir, "ping.yaml", "url: "+server.URL+"/ping\n")

	s, _ := newTestSender(t)
	require.Equal(t, ExitSuccess, s.sendFiles(context.Background(), []string{doc}))

	data, err := os.ReadFile(metricsFileFlag)
	require.NoError(t, err)
	assert.Contains(t, string(data), `fetchform_requests_total{method="GET",outcome="success"} 1`)
}

func TestNewSender_TempDir(t *testing.T) {
	resetFlags(t)
	tempDirFlag = t.TempDir()
	verboseFlag = 1

	cfg, err := applyFlags(config.DefaultConfig())
	require.NoError(t, err)
	var logs bytes.Buffer
	s, err := newSender(&bytes.Buffer{}, &logs, cfg)
	require.NoError(t, err)

	assert.Equal(t, tempDirFlag, s.client.TempDir())
	assert.Contains(t, logs.String(), tempDirFlag)
}

func TestNewSender_InvalidVar(t *testing.T) {
	resetFlags(t)
	varFlags = []string{"novalue"}

	_, err := newSender(&bytes.Buffer{}, &bytes.Buffer{}, config.DefaultConfig())

	var ee *exitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, ExitUsageError, ee.code)
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.yaml", "host: a")
	b := writeDoc(t, dir, "b.json", "{}")
	writeDoc(t, dir, "notes.txt", "ignored")
	writeDoc(t, dir, ".fetchform.json", "{}")
	explicit := writeDoc(t, t.TempDir(), "request.doc", "host: c")

	files, err := collectFiles([]string{dir, explicit})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b, explicit}, files)

	_, err = collectFiles([]string{filepath.Join(dir, "absent")})
	assert.Error(t, err)
}

func TestIsWatched(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	sent := filepath.Join(dir, "sent.yaml")
	metricsFileFlag = filepath.Join(dir, "metrics.json")

	assert.True(t, isWatched(sent, []string{sent}, []string{sent}))
	assert.True(t, isWatched(filepath.Join(dir, "new.yml"), nil, []string{dir}))
	assert.False(t, isWatched(filepath.Join(dir, "notes.txt"), nil, []string{dir}))
	assert.False(t, isWatched(metricsFileFlag, nil, []string{dir}))
	assert.False(t, isWatched(filepath.Join(t.TempDir(), "elsewhere.yaml"), nil, []string{dir}))
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := writeDoc(t, dir, "good.yaml", "url: http://localhost/{{id}}\n")
	bad := writeDoc(t, dir, "bad.yaml", "port: 0\n")

	var out, errOut bytes.Buffer
	validateCmd.SetOut(&out)
	validateCmd.SetErr(&errOut)
	defer validateCmd.SetOut(nil)
	defer validateCmd.SetErr(nil)

	require.NoError(t, validateCommand(validateCmd, []string{good}))
	assert.Contains(t, out.String(), "Valid: "+good)
	assert.Contains(t, out.String(), "needs: [id]")

	err := validateCommand(validateCmd, []string{good, bad})
	var ee *exitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, ExitParseError, ee.code)
	assert.Contains(t, errOut.String(), "Error in "+bad)
}
