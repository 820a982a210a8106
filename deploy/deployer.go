package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudfront"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/zap"
)

const originID = "ORIGIN_ID"

// Params defines the dependencies for the deployer.
type Params struct {
	Config  Config
	Clients Clients
	Log     *zap.Logger
}

// Result describes the provisioned resources.
type Result struct {
	RoleARN            string
	FunctionARN        string
	VersionARN         string
	DistributionID     string
	DistributionDomain string
}

// Deployer provisions the buckets, role, function and distribution
// that serve the rewriter at the edge.
type Deployer struct {
	cfg     Config
	clients Clients
	log     *zap.Logger

	// sleep is swapped out in tests
	sleep func(context.Context, time.Duration) error
}

// New creates a new deployer. An error is returned if the config is
// incomplete.
func New(params Params) (*Deployer, error) {
	if err := params.Config.Validate(); err != nil {
		return nil, err
	}

	log := params.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Deployer{
		cfg:     params.Config,
		clients: params.Clients,
		log:     log,
		sleep:   sleepContext,
	}, nil
}

// Deploy runs all provisioning steps in order and stops at the first
// failing step.
func (d *Deployer) Deploy(ctx context.Context) (*Result, error) {
	if err := d.createBuckets(ctx); err != nil {
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	key, err := d.uploadArchive(ctx)
	if err != nil {
		return nil, fmt.Errorf("upload archive: %w", err)
	}

	roleARN, err := d.createRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}

	functionARN, versionARN, err := d.createFunction(ctx, roleARN, key)
	if err != nil {
		return nil, fmt.Errorf("create function: %w", err)
	}

	dist, err := d.createDistribution(ctx, versionARN)
	if err != nil {
		return nil, fmt.Errorf("create distribution: %w", err)
	}

	return &Result{
		RoleARN:            roleARN,
		FunctionARN:        functionARN,
		VersionARN:         versionARN,
		DistributionID:     aws.StringValue(dist.Id),
		DistributionDomain: aws.StringValue(dist.DomainName),
	}, nil
}

func (d *Deployer) createBuckets(ctx context.Context) error {
	for _, bucket := range []string{d.cfg.OriginBucket, d.cfg.SourceBucket} {
		input := &s3.CreateBucketInput{
			Bucket: aws.String(bucket),
			ACL:    aws.String(d.cfg.BucketACL),
		}

		// us-east-1 rejects an explicit location constraint
		if d.cfg.Region != "us-east-1" {
			input.CreateBucketConfiguration = &s3.CreateBucketConfiguration{
				LocationConstraint: aws.String(d.cfg.Region),
			}
		}

		if _, err := d.clients.S3.CreateBucketWithContext(ctx, input); err != nil {
			return fmt.Errorf("bucket %s: %w", bucket, err)
		}

		d.log.Info("created bucket", zap.String("bucket", bucket))
	}

	return nil
}

func (d *Deployer) uploadArchive(ctx context.Context) (string, error) {
	file, err := os.Open(d.cfg.Archive)
	if err != nil {
		return "", err
	}
	defer file.Close()

	key := filepath.Base(d.cfg.Archive)

	_, err = d.clients.Uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(d.cfg.SourceBucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return "", err
	}

	d.log.Info("uploaded archive",
		zap.String("bucket", d.cfg.SourceBucket),
		zap.String("key", key),
	)

	return key, nil
}

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Effect    string           `json:"Effect"`
	Principal *policyPrincipal `json:"Principal,omitempty"`
	Action    []string         `json:"Action"`
	Resource  []string         `json:"Resource,omitempty"`
}

type policyPrincipal struct {
	Service []string `json:"Service"`
}

var (
	assumeRolePolicy = policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect: "Allow",
			Principal: &policyPrincipal{
				Service: []string{"lambda.amazonaws.com", "edgelambda.amazonaws.com"},
			},
			Action: []string{"sts:AssumeRole"},
		}},
	}

	logsPolicy = policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:   "Allow",
			Action:   []string{"logs:CreateLogGroup", "logs:CreateLogStream", "logs:PutLogEvents"},
			Resource: []string{"arn:aws:logs:*:*:*"},
		}},
	}
)

func (d *Deployer) createRole(ctx context.Context) (string, error) {
	assumeRole, err := json.Marshal(assumeRolePolicy)
	if err != nil {
		return "", err
	}

	role, err := d.clients.IAM.CreateRoleWithContext(ctx, &iam.CreateRoleInput{
		Path:                     aws.String("/service-role/"),
		AssumeRolePolicyDocument: aws.String(string(assumeRole)),
		RoleName:                 aws.String(d.cfg.RoleName),
	})
	if err != nil {
		return "", err
	}

	logs, err := json.Marshal(logsPolicy)
	if err != nil {
		return "", err
	}

	_, err = d.clients.IAM.PutRolePolicyWithContext(ctx, &iam.PutRolePolicyInput{
		PolicyName:     aws.String(d.cfg.PolicyName),
		PolicyDocument: aws.String(string(logs)),
		RoleName:       aws.String(d.cfg.RoleName),
	})
	if err != nil {
		return "", fmt.Errorf("put role policy: %w", err)
	}

	err = d.clients.IAM.WaitUntilRoleExistsWithContext(ctx, &iam.GetRoleInput{
		RoleName: aws.String(d.cfg.RoleName),
	})
	if err != nil {
		return "", fmt.Errorf("wait for role: %w", err)
	}

	// a freshly created role is not assumable by lambda right away
	d.log.Debug("waiting for role to settle", zap.Duration("delay", d.cfg.RoleSettleDelay))
	if err := d.sleep(ctx, d.cfg.RoleSettleDelay); err != nil {
		return "", err
	}

	roleARN := aws.StringValue(role.Role.Arn)

	d.log.Info("created role", zap.String("role_arn", roleARN))

	return roleARN, nil
}

func (d *Deployer) createFunction(ctx context.Context, roleARN, key string) (string, string, error) {
	created, err := d.clients.Lambda.CreateFunctionWithContext(ctx, &lambda.CreateFunctionInput{
		FunctionName: aws.String(d.cfg.FunctionName),
		Handler:      aws.String(d.cfg.Handler),
		Runtime:      aws.String(d.cfg.Runtime),
		Role:         aws.String(roleARN),
		Code: &lambda.FunctionCode{
			S3Bucket: aws.String(d.cfg.SourceBucket),
			S3Key:    aws.String(key),
		},
	})
	if err != nil {
		return "", "", err
	}

	functionARN := aws.StringValue(created.FunctionArn)

	published, err := d.clients.Lambda.PublishVersionWithContext(ctx, &lambda.PublishVersionInput{
		FunctionName: aws.String(functionARN),
		Description:  aws.String(d.cfg.Description),
	})
	if err != nil {
		return "", "", fmt.Errorf("publish version: %w", err)
	}

	// edge associations require a qualified function arn
	versionARN := fmt.Sprintf("%s:%s", functionARN, aws.StringValue(published.Version))

	d.log.Info("published function", zap.String("version_arn", versionARN))

	return functionARN, versionARN, nil
}

func (d *Deployer) createDistribution(ctx context.Context, versionARN string) (*cloudfront.Distribution, error) {
	out, err := d.clients.CloudFront.CreateDistributionWithContext(ctx, &cloudfront.CreateDistributionInput{
		DistributionConfig: d.distributionConfig(versionARN),
	})
	if err != nil {
		return nil, err
	}

	if out.Distribution == nil {
		return nil, fmt.Errorf("empty distribution in response")
	}

	d.log.Info("created distribution",
		zap.String("distribution_id", aws.StringValue(out.Distribution.Id)),
		zap.String("domain_name", aws.StringValue(out.Distribution.DomainName)),
	)

	return out.Distribution, nil
}

func (d *Deployer) distributionConfig(versionARN string) *cloudfront.DistributionConfig {
	return &cloudfront.DistributionConfig{
		CallerReference: aws.String(d.cfg.OriginBucket),
		Comment:         aws.String(d.cfg.OriginBucket),
		Enabled:         aws.Bool(true),
		Origins: &cloudfront.Origins{
			Quantity: aws.Int64(1),
			Items: []*cloudfront.Origin{
				{
					S3OriginConfig: &cloudfront.S3OriginConfig{
						OriginAccessIdentity: aws.String(""),
					},
					Id:         aws.String(originID),
					DomainName: aws.String(d.cfg.OriginBucket + ".s3.amazonaws.com"),
				},
			},
		},
		DefaultCacheBehavior: &cloudfront.DefaultCacheBehavior{
			MinTTL:               aws.Int64(10),
			Compress:             aws.Bool(true),
			TargetOriginId:       aws.String(originID),
			ViewerProtocolPolicy: aws.String(cloudfront.ViewerProtocolPolicyRedirectToHttps),
			LambdaFunctionAssociations: &cloudfront.LambdaFunctionAssociations{
				Quantity: aws.Int64(1),
				Items: []*cloudfront.LambdaFunctionAssociation{
					{
						LambdaFunctionARN: aws.String(versionARN),
						IncludeBody:       aws.Bool(false),
						EventType:         aws.String(d.cfg.EventType),
					},
				},
			},
			ForwardedValues: &cloudfront.ForwardedValues{
				QueryString: aws.Bool(false),
				Cookies: &cloudfront.CookiePreference{
					Forward: aws.String(cloudfront.ItemSelectionNone),
				},
			},
			TrustedSigners: &cloudfront.TrustedSigners{
				Quantity: aws.Int64(0),
				Enabled:  aws.Bool(false),
			},
		},
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
