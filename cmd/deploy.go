package cmd

import (
	"fmt"

	"github.com/lambda-feedback/edgeprefix/deploy"
	"github.com/lambda-feedback/edgeprefix/util/logging"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	deployCmdDescription = `The deploy command provisions everything needed to serve
the rewriter at the edge: an origin bucket, a bucket for the
function code, the execution role, the Lambda function and a
CloudFront distribution invoking the function.

The function archive must be built beforehand. Credentials
are taken from the default AWS credential chain.`
	deployCmd = &cli.Command{
		Name:        "deploy",
		Usage:       "Provision the edge function and its distribution.",
		Description: deployCmdDescription,
		Action:      deployAction,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "region", Usage: "the AWS region.", Category: "deploy", EnvVars: []string{"DEPLOY__REGION"}},
			&cli.StringFlag{Name: "origin-bucket", Usage: "the origin bucket name.", Category: "deploy", EnvVars: []string{"DEPLOY__ORIGIN_BUCKET"}},
			&cli.StringFlag{Name: "source-bucket", Usage: "the bucket the archive is uploaded to.", Category: "deploy", EnvVars: []string{"DEPLOY__SOURCE_BUCKET"}},
			&cli.StringFlag{Name: "bucket-acl", Usage: "the canned ACL of both buckets.", Category: "deploy", EnvVars: []string{"DEPLOY__BUCKET_ACL"}},
			&cli.PathFlag{Name: "archive", Usage: "the zipped function code.", Category: "deploy", EnvVars: []string{"DEPLOY__ARCHIVE"}},
			&cli.StringFlag{Name: "role-name", Usage: "the execution role name.", Category: "deploy", EnvVars: []string{"DEPLOY__ROLE_NAME"}},
			&cli.StringFlag{Name: "function-name", Usage: "the Lambda function name.", Category: "deploy", EnvVars: []string{"DEPLOY__FUNCTION_NAME"}},
			&cli.StringFlag{Name: "runtime", Usage: "the Lambda runtime.", Category: "deploy", EnvVars: []string{"DEPLOY__RUNTIME"}},
			&cli.StringFlag{Name: "event-type", Usage: "the CloudFront event type. Options: viewer-request, origin-request.", Category: "deploy", EnvVars: []string{"DEPLOY__EVENT_TYPE"}},
			&cli.DurationFlag{Name: "role-settle-delay", Usage: "time to wait for the new role to become assumable.", Category: "deploy", EnvVars: []string{"DEPLOY__ROLE_SETTLE_DELAY"}},
		},
	}
)

// deployConfigKeys maps deploy flag names to config keys.
var deployConfigKeys = map[string]string{
	"region":            "deploy.region",
	"origin-bucket":     "deploy.origin_bucket",
	"source-bucket":     "deploy.source_bucket",
	"bucket-acl":        "deploy.bucket_acl",
	"archive":           "deploy.archive",
	"role-name":         "deploy.role_name",
	"function-name":     "deploy.function_name",
	"runtime":           "deploy.runtime",
	"event-type":        "deploy.event_type",
	"role-settle-delay": "deploy.role_settle_delay",
}

func deployAction(ctx *cli.Context) error {
	log, err := logging.FromContext(ctx.Context)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	if err := cfg.Deploy.Validate(); err != nil {
		return err
	}

	sess, err := deploy.OpenSession(cfg.Deploy.Region)
	if err != nil {
		return fmt.Errorf("open aws session: %w", err)
	}

	deployer, err := deploy.New(deploy.Params{
		Config:  cfg.Deploy,
		Clients: deploy.NewClients(sess),
		Log:     log.Named("deploy"),
	})
	if err != nil {
		return err
	}

	res, err := deployer.Deploy(ctx.Context)
	if err != nil {
		return err
	}

	log.Info("deployed",
		zap.String("function_version_arn", res.VersionARN),
		zap.String("distribution_id", res.DistributionID),
		zap.String("domain_name", res.DistributionDomain),
	)

	_, err = fmt.Fprintf(ctx.App.Writer, "https://%s\n", res.DistributionDomain)
	return err
}

func init() {
	rootApp.Commands = append(rootApp.Commands, deployCmd)
}
