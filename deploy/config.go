package deploy

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingConfig is returned when a required deploy setting is empty.
var ErrMissingConfig = errors.New("missing deploy config")

type Config struct {
	// Region is the AWS region to provision in. Lambda@Edge functions
	// must live in us-east-1.
	Region string `conf:"region"`

	// OriginBucket is the S3 bucket serving as the distribution origin.
	OriginBucket string `conf:"origin_bucket"`

	// SourceBucket is the S3 bucket the function archive is uploaded to.
	SourceBucket string `conf:"source_bucket"`

	// BucketACL is the canned ACL applied to both buckets.
	BucketACL string `conf:"bucket_acl"`

	// Archive is the path to the zipped function code.
	Archive string `conf:"archive"`

	// RoleName is the name of the function execution role.
	RoleName string `conf:"role_name"`

	// PolicyName is the name of the inline logging policy of the role.
	PolicyName string `conf:"policy_name"`

	// FunctionName is the name of the Lambda function.
	FunctionName string `conf:"function_name"`

	// Runtime is the Lambda runtime identifier.
	Runtime string `conf:"runtime"`

	// Handler is the Lambda handler entrypoint.
	Handler string `conf:"handler"`

	// Description is attached to the published function version.
	Description string `conf:"description"`

	// EventType is the CloudFront event the function is associated with.
	EventType string `conf:"event_type"`

	// RoleSettleDelay is the time to wait after the role exists before
	// it can be assumed by Lambda.
	RoleSettleDelay time.Duration `conf:"role_settle_delay"`
}

// DefaultConfig holds the deploy defaults, keyed relative to the
// deploy section.
var DefaultConfig = map[string]any{
	"region":            "us-east-1",
	"bucket_acl":        "public-read",
	"archive":           "source.zip",
	"policy_name":       "edgeprefix-exec-policy",
	"runtime":           "provided.al2023",
	"handler":           "bootstrap",
	"description":       "edgeprefix uri rewriter",
	"event_type":        "viewer-request",
	"role_settle_delay": 20 * time.Second,
}

// Validate checks that all settings without a default are set.
func (c Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"origin_bucket", c.OriginBucket},
		{"source_bucket", c.SourceBucket},
		{"role_name", c.RoleName},
		{"function_name", c.FunctionName},
		{"archive", c.Archive},
		{"region", c.Region},
	}

	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingConfig, r.name)
		}
	}

	return nil
}
