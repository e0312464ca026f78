package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/smithyrt/cli/config"
	"github.com/pithecene-io/smithyrt/cli/render"
	"github.com/pithecene-io/smithyrt/iox"
	"github.com/pithecene-io/smithyrt/log"
	"github.com/pithecene-io/smithyrt/metrics"
	"github.com/pithecene-io/smithyrt/orchestrator"
	"github.com/pithecene-io/smithyrt/retry"
)

// InvokeCommand returns the invoke command.
func InvokeCommand() *cli.Command {
	return &cli.Command{
		Name:  "invoke",
		Usage: "Send one HTTP request through the orchestrator",
		Description: `Invoke runs a single operation against a static endpoint with the
standard retry strategy, auth, timeouts, attempt capture and event publishing.

Exit codes:
  0  the invocation succeeded
  1  the invocation failed
  2  the configuration is invalid`,
		Flags: []cli.Flag{
			ConfigFlag,
			FormatFlag,
			NoColorFlag,
			&cli.StringFlag{Name: "service", Usage: "Service name (required)"},
			&cli.StringFlag{Name: "operation", Usage: "Operation name (required)"},
			&cli.StringFlag{Name: "url", Usage: "Endpoint URL (required)"},
			&cli.StringFlag{Name: "endpoint-prefix", Usage: "Host prefix prepended to the endpoint host"},
			&cli.StringFlag{Name: "method", Value: "POST", Usage: "HTTP method"},
			&cli.StringFlag{Name: "path", Value: "/", Usage: "Request path, appended to the endpoint path"},
			&cli.StringSliceFlag{Name: "header", Aliases: []string{"H"}, Usage: "Request header as 'Name: value' (repeatable)"},
			&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "Request body, or @file to read it from a file"},
			&cli.StringFlag{Name: "retry-mode", Value: config.RetryModeStandard, Usage: "Retry mode: standard, never"},
			&cli.IntFlag{Name: "max-attempts", Value: retry.DefaultMaxAttempts, Usage: "Maximum attempts including the first"},
			&cli.DurationFlag{Name: "initial-backoff", Value: retry.DefaultInitialBackoff, Usage: "Initial retry backoff"},
			&cli.DurationFlag{Name: "max-backoff", Value: retry.DefaultMaxBackoff, Usage: "Maximum retry backoff"},
			&cli.BoolFlag{Name: "no-token-bucket", Usage: "Disable retry admission control"},
			&cli.DurationFlag{Name: "operation-timeout", Usage: "Bound on the whole invocation, retries included"},
			&cli.DurationFlag{Name: "attempt-timeout", Usage: "Bound on each attempt"},
			&cli.StringFlag{Name: "auth-scheme", Value: config.AuthSchemeNone, Usage: "Auth scheme: none, bearer"},
			&cli.StringFlag{Name: "auth-token", Usage: "Bearer token", EnvVars: []string{"SMITHYRT_AUTH_TOKEN"}},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Log level: debug, info, warn, error"},
			&cli.StringFlag{Name: "capture-backend", Usage: "Attempt capture backend: fs, s3, memory"},
			&cli.StringFlag{Name: "capture-path", Usage: "Capture path (fs: directory, s3: bucket/prefix)"},
			&cli.StringFlag{Name: "capture-dataset", Usage: "Capture dataset ID (default: smithyrt)"},
			&cli.StringFlag{Name: "capture-s3-region", Usage: "AWS region for the S3 capture backend"},
			&cli.StringFlag{Name: "capture-s3-endpoint", Usage: "Custom S3 endpoint (MinIO, R2)"},
			&cli.BoolFlag{Name: "capture-s3-path-style", Usage: "Use path-style S3 addressing"},
			&cli.StringFlag{Name: "adapter", Usage: "Event adapter: redis, webhook"},
			&cli.StringFlag{Name: "adapter-url", Usage: "Adapter URL (redis://... or https://...)"},
			&cli.StringFlag{Name: "adapter-channel", Usage: "Redis pub/sub channel"},
			&cli.StringFlag{Name: "adapter-encoding", Usage: "Event encoding: json, msgpack"},
			&cli.StringSliceFlag{Name: "adapter-header", Usage: "Webhook header as 'Name: value' (repeatable)"},
			&cli.DurationFlag{Name: "adapter-timeout", Usage: "Per-publish timeout"},
			&cli.IntFlag{Name: "adapter-retries", Value: 3, Usage: "Publish retries"},
			&cli.StringFlag{Name: "metrics-listen", Usage: "Serve prometheus metrics on this address during the invocation"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Suppress result output"},
		},
		Action: invokeAction,
	}
}

func invokeAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	choice, err := parseInvokeChoice(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	level, err := log.ParseLevel(choice.logLevel)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	logger := log.NewLogger(log.Context{Service: choice.service, Operation: choice.operation}).WithOutput(c.App.ErrWriter)
	logger.SetLevel(level)
	defer iox.DiscardErr(logger.Sync)

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := newInvokeClient(ctx, choice, logger)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	defer iox.DiscardClose(client)

	if choice.metricsListen != "" {
		stop, err := serveMetrics(choice.metricsListen, metrics.NewExporter(client.collector, client.retryStats), logger)
		if err != nil {
			return cli.Exit(err.Error(), exitConfigError)
		}
		defer stop()
	}

	result := client.invoke(ctx)

	if !c.Bool("quiet") {
		if err := r.Render(result); err != nil {
			return err
		}
	}
	if result.Outcome != outcomeSuccess {
		return cli.Exit("", exitFailure)
	}
	return nil
}

// invokeChoice holds the resolved invoke settings.
type invokeChoice struct {
	service        string
	operation      string
	url            string
	endpointPrefix string
	method         string
	path           string
	headers        map[string]string
	body           []byte

	retry    retryChoice
	timeouts orchestrator.TimeoutConfig

	authScheme string
	authToken  string
	logLevel   string

	capture captureChoice
	adapter adapterChoice

	metricsListen string
}

// retryChoice holds the resolved retry strategy settings.
type retryChoice struct {
	mode           string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	bucket         config.TokenBucketConfig
	bucketEnabled  bool
}

func parseInvokeChoice(c *cli.Context, cfg *config.Config) (invokeChoice, error) {
	choice := invokeChoice{
		service:        resolveString(c, "service", configVal(cfg, func(c *config.Config) string { return c.Service })),
		operation:      c.String("operation"),
		url:            resolveString(c, "url", configVal(cfg, func(c *config.Config) string { return c.Endpoint.URL })),
		endpointPrefix: resolveString(c, "endpoint-prefix", configVal(cfg, func(c *config.Config) string { return c.Endpoint.Prefix })),
		method:         strings.ToUpper(c.String("method")),
		path:           c.String("path"),
		authScheme:     resolveString(c, "auth-scheme", configVal(cfg, func(c *config.Config) string { return c.Auth.Scheme })),
		authToken:      resolveString(c, "auth-token", configVal(cfg, func(c *config.Config) string { return c.Auth.Token })),
		logLevel:       resolveString(c, "log-level", configVal(cfg, func(c *config.Config) string { return c.Log.Level })),
		metricsListen:  resolveString(c, "metrics-listen", configVal(cfg, func(c *config.Config) string { return c.Metrics.Listen })),
		timeouts: orchestrator.TimeoutConfig{
			Operation: resolveDuration(c, "operation-timeout", configVal(cfg, func(c *config.Config) time.Duration { return c.Timeouts.Operation.Duration })),
			Attempt:   resolveDuration(c, "attempt-timeout", configVal(cfg, func(c *config.Config) time.Duration { return c.Timeouts.Attempt.Duration })),
		},
	}

	if choice.service == "" {
		return choice, errors.New("--service is required (or set service in config)")
	}
	if choice.operation == "" {
		return choice, errors.New("--operation is required")
	}
	if choice.url == "" {
		return choice, errors.New("--url is required (or set endpoint.url in config)")
	}

	var err error
	choice.headers, err = resolveMap(c, "header", configVal(cfg, func(c *config.Config) map[string]string { return c.Endpoint.Headers }))
	if err != nil {
		return choice, err
	}
	if choice.body, err = readData(c.String("data")); err != nil {
		return choice, err
	}

	bucket := configVal(cfg, func(c *config.Config) config.TokenBucketConfig { return c.Retry.TokenBucket })
	choice.retry = retryChoice{
		mode:           resolveString(c, "retry-mode", configVal(cfg, func(c *config.Config) string { return c.Retry.Mode })),
		maxAttempts:    resolveIntPtr(c, "max-attempts", configVal(cfg, func(c *config.Config) *int { return c.Retry.MaxAttempts })),
		initialBackoff: resolveDuration(c, "initial-backoff", configVal(cfg, func(c *config.Config) time.Duration { return c.Retry.InitialBackoff.Duration })),
		maxBackoff:     resolveDuration(c, "max-backoff", configVal(cfg, func(c *config.Config) time.Duration { return c.Retry.MaxBackoff.Duration })),
		bucket:         bucket,
		bucketEnabled:  !c.Bool("no-token-bucket") && bucket.IsEnabled(),
	}

	if choice.capture, err = parseCaptureChoice(c, cfg); err != nil {
		return choice, err
	}
	if choice.adapter, err = parseAdapterChoice(c, cfg); err != nil {
		return choice, err
	}

	// Flag values get the same checks as file values.
	check := config.Config{
		Retry: config.RetryConfig{
			Mode:           choice.retry.mode,
			MaxAttempts:    &choice.retry.maxAttempts,
			InitialBackoff: config.Duration{Duration: choice.retry.initialBackoff},
			MaxBackoff:     config.Duration{Duration: choice.retry.maxBackoff},
			TokenBucket:    bucket,
		},
		Auth:    config.AuthConfig{Scheme: choice.authScheme, Token: choice.authToken},
		Log:     config.LogConfig{Level: choice.logLevel},
		Capture: config.CaptureConfig{Backend: choice.capture.backend},
		Adapter: config.AdapterConfig{
			Type:     choice.adapter.adapterType,
			Encoding: choice.adapter.encoding,
			Retries:  &choice.adapter.retries,
		},
	}
	return choice, check.Validate()
}

// readData returns the request body. "@path" reads a file, "@-" reads stdin.
func readData(data string) ([]byte, error) {
	name, ok := strings.CutPrefix(data, "@")
	if !ok {
		return []byte(data), nil
	}
	if name == "-" {
		return iox.ReadAllLimit(os.Stdin, maxInputSize)
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("invalid --data: %w", err)
	}
	defer iox.DiscardClose(f)
	return iox.ReadAllLimit(f, maxInputSize)
}

// maxInputSize bounds request bodies and event-stream inputs read by the CLI.
const maxInputSize = 64 << 20

// parseHeaderFlag splits "Name: value".
func parseHeaderFlag(s string) (name, value string, err error) {
	name, value, ok := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("header %q must be 'Name: value'", s)
	}
	return name, strings.TrimSpace(value), nil
}

// captureChoice holds the resolved attempt capture settings.
type captureChoice struct {
	backend     string
	path        string
	dataset     string
	s3Region    string
	s3Endpoint  string
	s3PathStyle bool
}

func parseCaptureChoice(c *cli.Context, cfg *config.Config) (captureChoice, error) {
	cc := captureChoice{
		backend:     resolveString(c, "capture-backend", configVal(cfg, func(c *config.Config) string { return c.Capture.Backend })),
		path:        resolveString(c, "capture-path", configVal(cfg, func(c *config.Config) string { return c.Capture.Path })),
		dataset:     resolveString(c, "capture-dataset", configVal(cfg, func(c *config.Config) string { return c.Capture.Dataset })),
		s3Region:    resolveString(c, "capture-s3-region", configVal(cfg, func(c *config.Config) string { return c.Capture.Region })),
		s3Endpoint:  resolveString(c, "capture-s3-endpoint", configVal(cfg, func(c *config.Config) string { return c.Capture.Endpoint })),
		s3PathStyle: resolveBool(c, "capture-s3-path-style", configVal(cfg, func(c *config.Config) bool { return c.Capture.S3PathStyle })),
	}
	if (cc.backend == "fs" || cc.backend == "s3") && cc.path == "" {
		return cc, fmt.Errorf("--capture-path is required for the %s capture backend", cc.backend)
	}
	return cc, nil
}

// adapterChoice holds the resolved event adapter settings.
type adapterChoice struct {
	adapterType string
	url         string
	channel     string
	encoding    string
	headers     map[string]string
	timeout     time.Duration
	retries     int
}

func parseAdapterChoice(c *cli.Context, cfg *config.Config) (adapterChoice, error) {
	ac := adapterChoice{
		adapterType: resolveString(c, "adapter", configVal(cfg, func(c *config.Config) string { return c.Adapter.Type })),
		url:         resolveString(c, "adapter-url", configVal(cfg, func(c *config.Config) string { return c.Adapter.URL })),
		channel:     resolveString(c, "adapter-channel", configVal(cfg, func(c *config.Config) string { return c.Adapter.Channel })),
		encoding:    resolveString(c, "adapter-encoding", configVal(cfg, func(c *config.Config) string { return c.Adapter.Encoding })),
		timeout:     resolveDuration(c, "adapter-timeout", configVal(cfg, func(c *config.Config) time.Duration { return c.Adapter.Timeout.Duration })),
		retries:     resolveIntPtr(c, "adapter-retries", configVal(cfg, func(c *config.Config) *int { return c.Adapter.Retries })),
	}
	if ac.adapterType == "" {
		return ac, nil
	}
	if ac.url == "" {
		return ac, fmt.Errorf("--adapter-url is required for the %s adapter", ac.adapterType)
	}
	var err error
	ac.headers, err = resolveMap(c, "adapter-header", configVal(cfg, func(c *config.Config) map[string]string { return c.Adapter.Headers }))
	return ac, err
}

// shutdownTimeout bounds the metrics server shutdown.
const shutdownTimeout = 5 * time.Second

func withShutdownTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), shutdownTimeout)
}
