package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/smithyrt/cli/reader"
	"github.com/pithecene-io/smithyrt/eventstream"
	"github.com/pithecene-io/smithyrt/iox"
)

// EncodeCommand returns the encode command.
func EncodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "encode",
		Usage: "Encode headers and a payload into one event-stream message",
		Description: `Encode writes the framed bytes of a single message. Headers are given as
name=value (a string) or name=type:value, where type is one of bool, byte,
int16, int32, int64, bytes (hex), string, timestamp (RFC 3339) or uuid.

Example:
  smithyrt encode -H :message-type=event -H :event-type=Chunk -d '{"n":1}' -o out.bin`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "header", Aliases: []string{"H"}, Usage: "Header as name=value or name=type:value (repeatable)"},
			&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "Payload, or @file to read it from a file"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to this file instead of stdout"},
			&cli.BoolFlag{Name: "append", Usage: "Append to --output instead of truncating it"},
		},
		Action: encodeAction,
	}
}

func encodeAction(c *cli.Context) error {
	headers, err := reader.ParseHeaders(c.StringSlice("header"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid --header: %v", err), exitConfigError)
	}
	payload, err := readData(c.String("data"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	m := eventstream.Message{Headers: headers, Payload: payload}

	out, closeOut, err := openOutput(c)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	if err := eventstream.WriteMessage(out, m); err != nil {
		iox.DiscardErr(closeOut)
		return cli.Exit(fmt.Sprintf("encode failed: %v", err), exitFailure)
	}
	if err := closeOut(); err != nil {
		return cli.Exit(fmt.Sprintf("encode failed: %v", err), exitFailure)
	}
	return nil
}

// openOutput opens --output, or returns the app writer when unset.
func openOutput(c *cli.Context) (io.Writer, func() error, error) {
	name := c.String("output")
	if name == "" || name == "-" {
		return c.App.Writer, func() error { return nil }, nil
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if c.Bool("append") {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(name, flags, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
