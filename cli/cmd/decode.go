package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/smithyrt/adapter"
	"github.com/pithecene-io/smithyrt/cli/config"
	"github.com/pithecene-io/smithyrt/cli/reader"
	"github.com/pithecene-io/smithyrt/cli/render"
	"github.com/pithecene-io/smithyrt/cli/tui"
	"github.com/pithecene-io/smithyrt/eventstream"
	"github.com/pithecene-io/smithyrt/iox"
	"github.com/pithecene-io/smithyrt/log"
	"github.com/pithecene-io/smithyrt/metrics"
)

// DecodeCommand returns the decode command.
func DecodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Decode event-stream messages from a file or stdin",
		ArgsUsage: "[file]",
		Description: `Decode reads framed event-stream messages and renders them. With no
file argument, or with "-", messages are read from stdin.

With --publish every decoded message is sent to the configured adapter as a
message_decoded event.`,
		Flags: append(ReadOnlyFlags(),
			ConfigFlag,
			&cli.IntFlag{Name: "max-message-size", Usage: "Reject messages larger than this many bytes (default 16 MiB)"},
			&cli.BoolFlag{Name: "publish", Usage: "Publish each decoded message to the adapter"},
			&cli.StringFlag{Name: "adapter", Usage: "Event adapter: redis, webhook"},
			&cli.StringFlag{Name: "adapter-url", Usage: "Adapter URL (redis://... or https://...)"},
			&cli.StringFlag{Name: "adapter-channel", Usage: "Redis pub/sub channel"},
			&cli.StringFlag{Name: "adapter-encoding", Usage: "Event encoding: json, msgpack"},
			&cli.StringSliceFlag{Name: "adapter-header", Usage: "Webhook header as 'Name: value' (repeatable)"},
			&cli.DurationFlag{Name: "adapter-timeout", Usage: "Per-publish timeout"},
			&cli.IntFlag{Name: "adapter-retries", Value: 3, Usage: "Publish retries"},
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "Log level: debug, info, warn, error"},
		),
		Action: decodeAction,
	}
}

func decodeAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	var pub adapter.Adapter
	if c.Bool("publish") {
		ac, err := parseAdapterChoice(c, cfg)
		if err != nil {
			return cli.Exit(err.Error(), exitConfigError)
		}
		if ac.adapterType == "" {
			return cli.Exit("--publish requires --adapter (or adapter.type in config)", exitConfigError)
		}
		if pub, err = buildAdapter(ac); err != nil {
			return cli.Exit(fmt.Sprintf("failed to create adapter: %v", err), exitConfigError)
		}
		defer iox.DiscardClose(pub)
	}

	level, err := log.ParseLevel(resolveString(c, "log-level", configVal(cfg, func(c *config.Config) string { return c.Log.Level })))
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	logger := log.NewLogger(log.Context{}).WithOutput(c.App.ErrWriter)
	logger.SetLevel(level)
	defer iox.DiscardErr(logger.Sync)

	in, closeIn, err := openInput(c)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	defer closeIn()

	var opts []eventstream.ReaderOption
	if n := c.Int("max-message-size"); n > 0 {
		opts = append(opts, eventstream.WithMaxMessageSize(n))
	}

	collector := metrics.NewCollector("", "", "")
	msgs, decodeErr := reader.ReadMessages(in, opts...)
	collector.AddMessagesDecoded(int64(len(msgs)))
	if decodeErr != nil {
		collector.IncDecodeErrors()
	}

	if pub != nil {
		publishMessages(c.Context, pub, msgs, collector, logger)
	}

	if c.Bool("tui") {
		if decodeErr != nil {
			return cli.Exit(decodeError(len(msgs), decodeErr), exitFailure)
		}
		return r.RenderTUI(tui.ViewDecodeMessages, msgs)
	}
	if msgs == nil {
		msgs = []reader.MessageView{}
	}
	if err := r.Render(msgs); err != nil {
		return err
	}

	if decodeErr != nil {
		return cli.Exit(decodeError(len(msgs), decodeErr), exitFailure)
	}
	if s := collector.Snapshot(); s.PublishFailure > 0 {
		return cli.Exit(fmt.Sprintf("failed to publish %d of %d messages", s.PublishFailure, len(msgs)), exitFailure)
	}
	return nil
}

func decodeError(decoded int, err error) string {
	return fmt.Sprintf("decode failed after %d messages: %v", decoded, err)
}

// openInput opens the file argument, or stdin for none or "-".
func openInput(c *cli.Context) (io.Reader, func(), error) {
	name := c.Args().First()
	if name == "" || name == "-" {
		return c.App.Reader, func() {}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("input file not found: %s", name)
		}
		return nil, nil, err
	}
	return f, func() { iox.DiscardClose(f) }, nil
}

// publishMessages sends one MessageDecodedEvent per message. Failures are
// logged and counted.
func publishMessages(ctx context.Context, pub adapter.Adapter, msgs []reader.MessageView, collector *metrics.Collector, logger *log.Logger) {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, m := range msgs {
		event := &adapter.MessageDecodedEvent{
			ContractVersion: adapter.ContractVersion,
			Type:            adapter.TypeMessageDecoded,
			Sequence:        m.Sequence,
			MessageType:     m.MessageType,
			Headers:         m.HeaderMap(),
			Payload:         m.PayloadBytes(),
			Timestamp:       now,
		}
		if err := pub.Publish(ctx, event); err != nil {
			collector.IncPublishFailure()
			logger.Warn("failed to publish decoded message", map[string]any{
				"sequence": m.Sequence,
				"error":    err.Error(),
			})
			continue
		}
		collector.IncPublishSuccess()
	}
}
