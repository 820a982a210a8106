package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/lambda-feedback/edgeprefix/edge"
	"github.com/lambda-feedback/edgeprefix/util/logging"
	"github.com/urfave/cli/v2"
)

var (
	invokeCmdDescription = `The invoke command rewrites a single edge event and prints
the rewritten request as json. The event is read from the
file given by --event, or from stdin if --event is "-".

This mirrors what CloudFront receives from the deployed
function and is intended for local testing.`
	invokeCmd = &cli.Command{
		Name:        "invoke",
		Usage:       "Rewrite a single event and print the result.",
		Description: invokeCmdDescription,
		Action:      invokeAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "event",
				Aliases:  []string{"e"},
				Usage:    "path to the event json, or - for stdin.",
				Value:    "-",
				Category: "invoke",
			},
			&cli.BoolFlag{
				Name:     "pretty",
				Usage:    "indent the printed request.",
				Category: "invoke",
			},
		},
	}
)

func invokeAction(ctx *cli.Context) error {
	log, err := logging.FromContext(ctx.Context)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	rewriter, err := edge.NewRewriter(edge.RewriterParams{
		Config: cfg.Rewrite,
		Log:    log.Named("invoke"),
	})
	if err != nil {
		return err
	}

	payload, err := readEvent(ctx)
	if err != nil {
		return fmt.Errorf("read event: %w", err)
	}

	request, err := rewriter.HandleJSON(ctx.Context, payload)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(ctx.App.Writer)
	if ctx.Bool("pretty") {
		enc.SetIndent("", "  ")
	}

	return enc.Encode(request)
}

func readEvent(ctx *cli.Context) ([]byte, error) {
	path := ctx.String("event")
	if path == "-" {
		reader := ctx.App.Reader
		if reader == nil {
			reader = os.Stdin
		}
		return io.ReadAll(reader)
	}

	return os.ReadFile(path)
}

func init() {
	rootApp.Commands = append(rootApp.Commands, invokeCmd)
}
