package cmd

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/smithyrt/capture"
	"github.com/pithecene-io/smithyrt/cli/reader"
	"github.com/pithecene-io/smithyrt/cli/render"
	"github.com/pithecene-io/smithyrt/cli/tui"
)

// AttemptsCommand returns the attempts command.
func AttemptsCommand() *cli.Command {
	return &cli.Command{
		Name:  "attempts",
		Usage: "Query captured attempt records",
		Description: `Attempts reads the records written by invoke --capture-backend and lists
them oldest first. --summary aggregates them per invocation.`,
		Flags: append(ReadOnlyFlags(),
			ConfigFlag,
			&cli.StringFlag{Name: "capture-backend", Usage: "Capture backend: fs, s3"},
			&cli.StringFlag{Name: "capture-path", Usage: "Capture path (fs: directory, s3: bucket/prefix)"},
			&cli.StringFlag{Name: "capture-dataset", Usage: "Capture dataset ID (default: smithyrt)"},
			&cli.StringFlag{Name: "capture-s3-region", Usage: "AWS region for the S3 capture backend"},
			&cli.StringFlag{Name: "capture-s3-endpoint", Usage: "Custom S3 endpoint (MinIO, R2)"},
			&cli.BoolFlag{Name: "capture-s3-path-style", Usage: "Use path-style S3 addressing"},
			&cli.StringFlag{Name: "service", Usage: "Filter by service"},
			&cli.StringFlag{Name: "operation", Usage: "Filter by operation"},
			&cli.StringFlag{Name: "day", Usage: "Filter by partition day (YYYY-MM-DD, UTC)"},
			&cli.StringFlag{Name: "invocation-id", Usage: "Filter by invocation ID"},
			&cli.IntFlag{Name: "limit", Usage: "Keep only the most recent N records"},
			&cli.BoolFlag{Name: "summary", Usage: "Aggregate records per invocation"},
		),
		Action: attemptsAction,
	}
}

func attemptsAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	if c.Bool("tui") && !c.Bool("summary") {
		return cli.Exit("--tui is only supported with --summary for attempts command", exitConfigError)
	}

	cc, err := parseCaptureChoice(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	switch cc.backend {
	case "":
		return cli.Exit("--capture-backend is required (or set capture.backend in config)", exitConfigError)
	case "memory":
		return cli.Exit("the memory capture backend does not persist records; use fs or s3", exitConfigError)
	}
	if c.Int("limit") < 0 {
		return cli.Exit("--limit must be >= 0", exitConfigError)
	}

	store, err := buildCaptureStore(c.Context, cc)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to open capture store: %v", err), exitConfigError)
	}

	filter := capture.Filter{
		Service:      c.String("service"),
		Operation:    c.String("operation"),
		Day:          c.String("day"),
		InvocationID: c.String("invocation-id"),
		Limit:        c.Int("limit"),
	}
	views, err := reader.ReadAttempts(c.Context, store.Dataset(), filter)
	if err != nil && !errors.Is(err, capture.ErrNoAttempts) {
		return cli.Exit(fmt.Sprintf("failed to query attempts: %v", err), exitFailure)
	}
	if views == nil {
		views = []reader.AttemptView{}
	}

	if !c.Bool("summary") {
		return r.Render(views)
	}
	stats := reader.SummarizeAttempts(views)
	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewAttemptsSummary, stats)
	}
	return r.Render(stats)
}
