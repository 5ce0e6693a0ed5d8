package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/fetchform/packages/capture"
	"github.com/abdul-hamid-achik/fetchform/packages/core/config"
	"github.com/abdul-hamid-achik/fetchform/packages/core/env"
	"github.com/abdul-hamid-achik/fetchform/packages/export/metrics"
	"github.com/abdul-hamid-achik/fetchform/packages/http"
	"github.com/abdul-hamid-achik/fetchform/packages/output"
	"github.com/abdul-hamid-achik/fetchform/packages/specfile"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <file|directory>...",
	Short: "Send the requests described by request documents",
	Long: `Send the requests described by YAML or JSON request documents.

Form fields starting with file:/// are read from disk, fields starting with
url:/// are downloaded first. Downloads are removed once the request is done.

Examples:
  fetchform send upload.yaml
  fetchform send upload.yaml --var userId=42 --env-file .env
  fetchform send ./requests/ --output json
  fetchform send upload.yaml --select body.id
  fetchform send upload.yaml --watch --metrics-file fetchform.prom`,
	Args: cobra.MinimumNArgs(1),
	RunE: sendCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond

	// VariableEnvPrefix marks OS environment entries exposed as template variables
	VariableEnvPrefix = "FETCHFORM_VAR_"
)

var (
	envFileFlag      string
	varFlags         []string
	configFlag       string
	timeoutFlag      string
	fetchTimeoutFlag string
	fetchRateFlag    float64
	fetchBurstFlag   int
	maxFieldsFlag    int
	tempDirFlag      string
	selectFlag       string
	outputFlag       string
	noColorFlag      bool
	verboseFlag      int // 0=off, 1=-v (debug logs, headers)
	watchFlag        bool
	metricsFileFlag  string
)

func init() {
	sendCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("FETCHFORM_ENV_FILE", ""), "Path to .env file for variable interpolation (env: FETCHFORM_ENV_FILE)")
	sendCmd.Flags().StringArrayVar(&varFlags, "var", nil, "Template variable as key=value (repeatable)")
	sendCmd.Flags().StringVar(&configFlag, "config", getEnvString("FETCHFORM_CONFIG", ""), "Path to config file (env: FETCHFORM_CONFIG)")
	sendCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("FETCHFORM_TIMEOUT", ""), "Idle timeout for documents without one, e.g. 30s or 30000 (env: FETCHFORM_TIMEOUT)")
	sendCmd.Flags().StringVar(&fetchTimeoutFlag, "fetch-timeout", getEnvString("FETCHFORM_FETCH_TIMEOUT", ""), "Timeout for each url:/// download (env: FETCHFORM_FETCH_TIMEOUT)")
	sendCmd.Flags().Float64Var(&fetchRateFlag, "fetch-rate", getEnvFloat("FETCHFORM_FETCH_RATE", 0), "Max url:/// downloads per second, 0 = unlimited (env: FETCHFORM_FETCH_RATE)")
	sendCmd.Flags().IntVar(&fetchBurstFlag, "fetch-burst", getEnvInt("FETCHFORM_FETCH_BURST", 0), "Burst allowed above --fetch-rate (env: FETCHFORM_FETCH_BURST)")
	sendCmd.Flags().IntVar(&maxFieldsFlag, "max-fields", getEnvInt("FETCHFORM_MAX_FIELDS", 0), "Max form fields resolved concurrently, 0 = all (env: FETCHFORM_MAX_FIELDS)")
	sendCmd.Flags().StringVar(&tempDirFlag, "temp-dir", getEnvString("FETCHFORM_TEMP_DIR", ""), "Directory for downloaded resources (env: FETCHFORM_TEMP_DIR)")
	sendCmd.Flags().StringVarP(&selectFlag, "select", "s", getEnvString("FETCHFORM_SELECT", ""), "Print only this value: status, header.<name>, body.<path> (env: FETCHFORM_SELECT)")
	sendCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("FETCHFORM_OUTPUT", ""), "Output format: console, json (env: FETCHFORM_OUTPUT)")
	sendCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("FETCHFORM_NO_COLOR", false), "Disable colored output (env: FETCHFORM_NO_COLOR)")
	sendCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output with debug logging")
	sendCmd.Flags().BoolVarP(&watchFlag, "watch", "w", getEnvBool("FETCHFORM_WATCH", false), "Send again whenever a request document changes (env: FETCHFORM_WATCH)")
	sendCmd.Flags().StringVar(&metricsFileFlag, "metrics-file", getEnvString("FETCHFORM_METRICS_FILE", ""), "Write metrics after each run; .json for a summary, anything else for Prometheus textfile (env: FETCHFORM_METRICS_FILE)")
}

func sendCommand(cmd *cobra.Command, args []string) error {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return withExitCode(ExitConfigError, fmt.Errorf("cannot load config: %w", err))
	}

	cfg, err := applyFlags(fileConfig)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	if len(files) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("no request documents (.yaml, .yml, .json) found"))
	}

	s, err := newSender(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := s.sendFiles(ctx, files)

	if !watchFlag {
		if code != ExitSuccess {
			return &exitError{code: code, reported: true}
		}
		return nil
	}

	return s.watch(ctx, cmd.OutOrStdout(), args, files)
}

// applyFlags layers explicitly set flags (or their FETCHFORM_* variables)
// over the config file.
func applyFlags(fileConfig *config.Config) (*config.Config, error) {
	overrides := &config.Config{
		FetchRate:           fetchRateFlag,
		FetchBurst:          fetchBurstFlag,
		MaxConcurrentFields: maxFieldsFlag,
		TempDir:             tempDirFlag,
		Output:              strings.ToLower(outputFlag),
	}

	if timeoutFlag != "" {
		d, err := specfile.ParseTimeout(timeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid --timeout: %w", err)
		}
		overrides.Timeout = int(d / time.Millisecond)
	}
	if fetchTimeoutFlag != "" {
		d, err := specfile.ParseTimeout(fetchTimeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid --fetch-timeout: %w", err)
		}
		overrides.FetchTimeout = int(d / time.Millisecond)
	}
	if verboseFlag > 0 {
		overrides.Verbose = config.BoolPtr(true)
	}
	if noColorFlag {
		overrides.NoColor = config.BoolPtr(true)
	}

	cfg := fileConfig.Merge(overrides)
	switch cfg.Output {
	case "", "console", "json":
	default:
		return nil, fmt.Errorf("unsupported output format %q (use console or json)", cfg.Output)
	}
	return cfg, nil
}

type sender struct {
	cfg       *config.Config
	client    *http.Client
	resolver  *env.Resolver
	formatter output.Formatter
	logger    *slog.Logger
	collector *metrics.Collector
	exporter  metrics.Exporter
}

func newSender(stdout, stderr io.Writer, cfg *config.Config) (*sender, error) {
	level := slog.LevelWarn
	if cfg.GetVerbose() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	resolver, err := newResolver(logger)
	if err != nil {
		return nil, err
	}

	var sel *capture.Selector
	if selectFlag != "" {
		parsed, err := capture.ParseSelector(selectFlag)
		if err != nil {
			return nil, withExitCode(ExitUsageError, err)
		}
		sel = &parsed
	}

	s := &sender{
		cfg:       cfg,
		resolver:  resolver,
		formatter: newFormatter(stdout, cfg, sel),
		logger:    logger,
	}

	clientOpts := []http.ClientOption{
		http.WithLogger(logger),
		http.WithDefaultHeaders(cfg.Headers),
		http.WithTempDir(cfg.TempDir),
		http.WithFetchTimeout(cfg.FetchTimeoutDuration()),
		http.WithMaxConcurrentFields(cfg.MaxConcurrentFields),
	}
	if cfg.FetchRate > 0 {
		clientOpts = append(clientOpts, http.WithFetchRate(cfg.FetchRate, cfg.FetchBurst))
	}
	if metricsFileFlag != "" {
		s.collector = metrics.NewCollector()
		s.exporter = metrics.ExporterFor(metricsFileFlag)
		clientOpts = append(clientOpts, http.WithObserver(s.collector))
	}
	s.client = http.NewClient(clientOpts...)
	logger.Debug("remote fields download to", "dir", s.client.TempDir())

	return s, nil
}

func newResolver(logger *slog.Logger) (*env.Resolver, error) {
	resolver := env.NewResolver()
	resolver.SetWarnFunc(func(format string, args ...any) {
		logger.Warn(fmt.Sprintf(format, args...))
	})
	resolver.SetVariables(env.LoadSystemEnv(VariableEnvPrefix))

	if envFileFlag != "" {
		vars, err := env.LoadAndExportDotEnv(envFileFlag)
		if err != nil {
			return nil, withExitCode(ExitConfigError, err)
		}
		resolver.SetVariables(env.StringVariables(vars))
	}

	assigned, invalid := env.ParseAssignments(varFlags)
	if len(invalid) > 0 {
		return nil, withExitCode(ExitUsageError, fmt.Errorf("invalid --var %q (use key=value)", invalid[0]))
	}
	resolver.SetVariables(env.StringVariables(assigned))

	return resolver, nil
}

func newFormatter(w io.Writer, cfg *config.Config, sel *capture.Selector) output.Formatter {
	if cfg.Output == "json" {
		opts := []output.JSONOption{output.JSONWithWriter(w)}
		if sel != nil {
			opts = append(opts, output.JSONWithSelector(*sel))
		}
		return output.NewJSONFormatter(opts...)
	}

	opts := []output.ConsoleOption{
		output.WithWriter(w),
		output.WithVerbose(cfg.GetVerbose()),
		output.WithNoColor(cfg.GetNoColor()),
	}
	if sel != nil {
		opts = append(opts, output.WithSelector(*sel))
	}
	return output.NewConsoleFormatter(opts...)
}

// sendFiles sends every document in order and returns the highest exit code
// seen.
func (s *sender) sendFiles(ctx context.Context, files []string) int {
	worst := ExitSuccess
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		if code := s.sendFile(ctx, file); code > worst {
			worst = code
		}
	}

	if s.exporter != nil {
		if err := s.exporter.Export(s.collector); err != nil {
			s.logger.Warn("failed to export metrics", "file", metricsFileFlag, "error", err)
		}
	}
	return worst
}

func (s *sender) sendFile(ctx context.Context, file string) int {
	doc, err := specfile.Load(file, s.resolver)
	if err != nil {
		s.formatter.FormatError(err)
		return ExitParseError
	}

	spec := doc.Request
	if spec.Timeout == 0 {
		spec.Timeout = s.cfg.TimeoutDuration()
	}
	target := http.Normalize(spec)

	start := time.Now()
	resp, err := s.client.Do(ctx, spec)
	s.formatter.FormatResult(&output.Result{
		File:     file,
		Name:     doc.Name,
		Method:   target.Method,
		URL:      target.URL(),
		Response: resp,
		Error:    err,
		Duration: time.Since(start),
	})

	var resErr *http.ResolutionError
	switch {
	case errors.As(err, &resErr):
		return ExitResolutionError
	case err != nil:
		return ExitNetworkError
	case resp.StatusCode >= 400:
		return ExitRequestFailure
	default:
		return ExitSuccess
	}
}

func (s *sender) watch(ctx context.Context, out io.Writer, args, files []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watchedDirs := make(map[string]bool)
	addDir := func(dir string) {
		if watchedDirs[dir] {
			return
		}
		if err := watcher.Add(dir); err != nil {
			s.formatter.FormatError(fmt.Errorf("failed to watch %s: %w", dir, err))
		}
		watchedDirs[dir] = true
	}
	for _, file := range files {
		addDir(filepath.Dir(file))
	}
	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && info.IsDir() {
			_ = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if info.IsDir() {
					addDir(path)
				}
				return nil
			})
		}
	}

	fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	var (
		debounce *time.Timer
		fire     <-chan time.Time
		changed  string
	)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isWatched(event.Name, files, args) {
				continue
			}
			// Debounce: reset timer on each event
			changed = event.Name
			if debounce == nil {
				debounce = time.NewTimer(WatchDebounceDelay)
			} else {
				debounce.Reset(WatchDebounceDelay)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			if latest, err := collectFiles(args); err == nil && len(latest) > 0 {
				files = latest
			}
			fmt.Fprintf(out, "\n\nFile changed: %s\nSending again...\n\n", changed)
			s.sendFiles(ctx, files)
			fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.formatter.FormatError(fmt.Errorf("watcher error: %w", err))
		}
	}
}

// isWatched reports whether a change to name should trigger a resend: it is
// one of the sent files, or a new request document under a directory
// argument. The metrics file never counts.
func isWatched(name string, files, args []string) bool {
	clean := filepath.Clean(name)
	if metricsFileFlag != "" && clean == filepath.Clean(metricsFileFlag) {
		return false
	}
	for _, f := range files {
		if filepath.Clean(f) == clean {
			return true
		}
	}
	if !isRequestFile(clean) {
		return false
	}
	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && info.IsDir() {
			rel, err := filepath.Rel(filepath.Clean(arg), clean)
			if err == nil && !strings.HasPrefix(rel, "..") {
				return true
			}
		}
	}
	return false
}
