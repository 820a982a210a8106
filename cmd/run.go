package cmd

import (
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/lambda-feedback/edgeprefix/util/logging"
)

// runtimeAPIEnv is set by the Lambda service in every function
// environment.
const runtimeAPIEnv = "AWS_LAMBDA_RUNTIME_API"

var (
	runCmdDescription = `The run command picks the entrypoint from the environment,
	so a single binary can be shipped both as a Lambda function
	and as a plain http service.

	Inside AWS Lambda, where AWS_LAMBDA_RUNTIME_API is set, it
	behaves like the lambda command. Everywhere else it behaves
	like the serve command.

	The flags of both commands are accepted.`
	runCmd = &cli.Command{
		Name:        "run",
		Usage:       "Start as lambda function or http server, depending on the environment.",
		Description: runCmdDescription,
		Action:      runAction,
	}
)

func runAction(ctx *cli.Context) error {
	log, err := logging.FromContext(ctx.Context)
	if err != nil {
		return err
	}

	if api, ok := lambdaRuntimeAPI(); ok {
		log.Info("starting as lambda function", zap.String("runtime_api", api))
		return lambdaAction(ctx)
	}

	log.Info("starting as http server")
	return serveAction(ctx)
}

// lambdaRuntimeAPI returns the address of the Lambda runtime API. ok is
// false outside of Lambda.
func lambdaRuntimeAPI() (api string, ok bool) {
	api = os.Getenv(runtimeAPIEnv)
	return api, api != ""
}

func init() {
	// both commands declare api-key, keep the first
	flags := append([]cli.Flag{}, serveCmd.Flags...)
	flags = append(flags, lambdaCmd.Flags...)

	seen := map[string]bool{}
	for _, flag := range flags {
		name := flag.Names()[0]
		if !seen[name] {
			seen[name] = true
			runCmd.Flags = append(runCmd.Flags, flag)
		}
	}

	rootApp.Commands = append(rootApp.Commands, runCmd)
}
