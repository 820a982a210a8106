package deploy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/cloudfront"
	"github.com/aws/aws-sdk-go/service/cloudfront/cloudfrontiface"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/aws/aws-sdk-go/service/iam/iamiface"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/lambda/lambdaiface"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// --- Mock clients ---

type mockS3 struct {
	s3iface.S3API
	mock.Mock
}

func (m *mockS3) CreateBucketWithContext(ctx aws.Context, in *s3.CreateBucketInput, _ ...request.Option) (*s3.CreateBucketOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.CreateBucketOutput)
	return out, args.Error(1)
}

type mockUploader struct {
	s3manageriface.UploaderAPI
	mock.Mock
}

func (m *mockUploader) UploadWithContext(ctx aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3manager.UploadOutput)
	return out, args.Error(1)
}

type mockIAM struct {
	iamiface.IAMAPI
	mock.Mock
}

func (m *mockIAM) CreateRoleWithContext(ctx aws.Context, in *iam.CreateRoleInput, _ ...request.Option) (*iam.CreateRoleOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*iam.CreateRoleOutput)
	return out, args.Error(1)
}

func (m *mockIAM) PutRolePolicyWithContext(ctx aws.Context, in *iam.PutRolePolicyInput, _ ...request.Option) (*iam.PutRolePolicyOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*iam.PutRolePolicyOutput)
	return out, args.Error(1)
}

func (m *mockIAM) WaitUntilRoleExistsWithContext(ctx aws.Context, in *iam.GetRoleInput, _ ...request.WaiterOption) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

type mockLambda struct {
	lambdaiface.LambdaAPI
	mock.Mock
}

func (m *mockLambda) CreateFunctionWithContext(ctx aws.Context, in *lambda.CreateFunctionInput, _ ...request.Option) (*lambda.FunctionConfiguration, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*lambda.FunctionConfiguration)
	return out, args.Error(1)
}

func (m *mockLambda) PublishVersionWithContext(ctx aws.Context, in *lambda.PublishVersionInput, _ ...request.Option) (*lambda.FunctionConfiguration, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*lambda.FunctionConfiguration)
	return out, args.Error(1)
}

type mockCloudFront struct {
	cloudfrontiface.CloudFrontAPI
	mock.Mock
}

func (m *mockCloudFront) CreateDistributionWithContext(ctx aws.Context, in *cloudfront.CreateDistributionInput, _ ...request.Option) (*cloudfront.CreateDistributionOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cloudfront.CreateDistributionOutput)
	return out, args.Error(1)
}

// --- Helpers ---

type mocks struct {
	s3         *mockS3
	uploader   *mockUploader
	iam        *mockIAM
	lambda     *mockLambda
	cloudfront *mockCloudFront
}

func (m mocks) clients() Clients {
	return Clients{
		S3:         m.s3,
		Uploader:   m.uploader,
		IAM:        m.iam,
		Lambda:     m.lambda,
		CloudFront: m.cloudfront,
	}
}

func (m mocks) assertExpectations(t *testing.T) {
	m.s3.AssertExpectations(t)
	m.uploader.AssertExpectations(t)
	m.iam.AssertExpectations(t)
	m.lambda.AssertExpectations(t)
	m.cloudfront.AssertExpectations(t)
}

func testConfig(t *testing.T) Config {
	archive := filepath.Join(t.TempDir(), "function.zip")
	require.NoError(t, os.WriteFile(archive, []byte("PK"), 0o600))

	return Config{
		Region:          "us-east-1",
		OriginBucket:    "edge-origin",
		SourceBucket:    "edge-source",
		BucketACL:       "public-read",
		Archive:         archive,
		RoleName:        "edge-role",
		PolicyName:      "edge-policy",
		FunctionName:    "edge-rewriter",
		Runtime:         "provided.al2023",
		Handler:         "bootstrap",
		Description:     "test",
		EventType:       "viewer-request",
		RoleSettleDelay: time.Minute,
	}
}

func createDeployer(t *testing.T, cfg Config) (*Deployer, mocks) {
	m := mocks{
		s3:         new(mockS3),
		uploader:   new(mockUploader),
		iam:        new(mockIAM),
		lambda:     new(mockLambda),
		cloudfront: new(mockCloudFront),
	}

	d, err := New(Params{
		Config:  cfg,
		Clients: m.clients(),
		Log:     zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	d.sleep = func(context.Context, time.Duration) error { return nil }

	return d, m
}

func expectAll(m mocks) {
	m.s3.On("CreateBucketWithContext", mock.Anything, mock.Anything).Return(&s3.CreateBucketOutput{}, nil)
	m.uploader.On("UploadWithContext", mock.Anything, mock.Anything).Return(&s3manager.UploadOutput{}, nil)
	m.iam.On("CreateRoleWithContext", mock.Anything, mock.Anything).Return(&iam.CreateRoleOutput{
		Role: &iam.Role{Arn: aws.String("arn:aws:iam::123456789012:role/service-role/edge-role")},
	}, nil)
	m.iam.On("PutRolePolicyWithContext", mock.Anything, mock.Anything).Return(&iam.PutRolePolicyOutput{}, nil)
	m.iam.On("WaitUntilRoleExistsWithContext", mock.Anything, mock.Anything).Return(nil)
	m.lambda.On("CreateFunctionWithContext", mock.Anything, mock.Anything).Return(&lambda.FunctionConfiguration{
		FunctionArn: aws.String("arn:aws:lambda:us-east-1:123456789012:function:edge-rewriter"),
	}, nil)
	m.lambda.On("PublishVersionWithContext", mock.Anything, mock.Anything).Return(&lambda.FunctionConfiguration{
		Version: aws.String("3"),
	}, nil)
	m.cloudfront.On("CreateDistributionWithContext", mock.Anything, mock.Anything).Return(&cloudfront.CreateDistributionOutput{
		Distribution: &cloudfront.Distribution{
			Id:         aws.String("EDFDVBD6EXAMPLE"),
			DomainName: aws.String("d111111abcdef8.cloudfront.net"),
		},
	}, nil)
}

// --- Tests ---

func TestNew_FailsOnMissingConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.FunctionName = ""

	d, err := New(Params{Config: cfg})
	assert.ErrorIs(t, err, ErrMissingConfig)
	assert.ErrorContains(t, err, "function_name")
	assert.Nil(t, d)
}

func TestDeployer_Deploy(t *testing.T) {
	cfg := testConfig(t)
	d, m := createDeployer(t, cfg)
	expectAll(m)

	res, err := d.Deploy(context.Background())
	require.NoError(t, err)

	assert.Equal(t, &Result{
		RoleARN:            "arn:aws:iam::123456789012:role/service-role/edge-role",
		FunctionARN:        "arn:aws:lambda:us-east-1:123456789012:function:edge-rewriter",
		VersionARN:         "arn:aws:lambda:us-east-1:123456789012:function:edge-rewriter:3",
		DistributionID:     "EDFDVBD6EXAMPLE",
		DistributionDomain: "d111111abcdef8.cloudfront.net",
	}, res)

	m.assertExpectations(t)

	// buckets
	m.s3.AssertNumberOfCalls(t, "CreateBucketWithContext", 2)
	for i, bucket := range []string{"edge-origin", "edge-source"} {
		in := m.s3.Calls[i].Arguments.Get(1).(*s3.CreateBucketInput)
		assert.Equal(t, bucket, aws.StringValue(in.Bucket))
		assert.Equal(t, "public-read", aws.StringValue(in.ACL))
		assert.Nil(t, in.CreateBucketConfiguration)
	}

	// upload
	upload := m.uploader.Calls[0].Arguments.Get(1).(*s3manager.UploadInput)
	assert.Equal(t, "edge-source", aws.StringValue(upload.Bucket))
	assert.Equal(t, "function.zip", aws.StringValue(upload.Key))

	// role
	role := m.iam.Calls[0].Arguments.Get(1).(*iam.CreateRoleInput)
	assert.Equal(t, "/service-role/", aws.StringValue(role.Path))
	assert.Contains(t, aws.StringValue(role.AssumeRolePolicyDocument), "edgelambda.amazonaws.com")
	policy := m.iam.Calls[1].Arguments.Get(1).(*iam.PutRolePolicyInput)
	assert.Equal(t, "edge-policy", aws.StringValue(policy.PolicyName))
	assert.Contains(t, aws.StringValue(policy.PolicyDocument), "logs:PutLogEvents")

	// function
	fn := m.lambda.Calls[0].Arguments.Get(1).(*lambda.CreateFunctionInput)
	assert.Equal(t, "provided.al2023", aws.StringValue(fn.Runtime))
	assert.Equal(t, "bootstrap", aws.StringValue(fn.Handler))
	assert.Equal(t, res.RoleARN, aws.StringValue(fn.Role))
	assert.Equal(t, "function.zip", aws.StringValue(fn.Code.S3Key))

	// distribution
	dist := m.cloudfront.Calls[0].Arguments.Get(1).(*cloudfront.CreateDistributionInput)
	behavior := dist.DistributionConfig.DefaultCacheBehavior
	require.Len(t, behavior.LambdaFunctionAssociations.Items, 1)
	assoc := behavior.LambdaFunctionAssociations.Items[0]
	assert.Equal(t, res.VersionARN, aws.StringValue(assoc.LambdaFunctionARN))
	assert.Equal(t, "viewer-request", aws.StringValue(assoc.EventType))
	assert.False(t, aws.BoolValue(assoc.IncludeBody))
	assert.Equal(t, "redirect-to-https", aws.StringValue(behavior.ViewerProtocolPolicy))
	assert.Equal(t, "edge-origin.s3.amazonaws.com", aws.StringValue(dist.DistributionConfig.Origins.Items[0].DomainName))
}

func TestDeployer_Deploy_LocationConstraintOutsideUSEast1(t *testing.T) {
	cfg := testConfig(t)
	cfg.Region = "eu-west-1"
	d, m := createDeployer(t, cfg)
	expectAll(m)

	_, err := d.Deploy(context.Background())
	require.NoError(t, err)

	in := m.s3.Calls[0].Arguments.Get(1).(*s3.CreateBucketInput)
	require.NotNil(t, in.CreateBucketConfiguration)
	assert.Equal(t, "eu-west-1", aws.StringValue(in.CreateBucketConfiguration.LocationConstraint))
}

func TestDeployer_Deploy_FailsToCreateBucket(t *testing.T) {
	d, m := createDeployer(t, testConfig(t))
	m.s3.On("CreateBucketWithContext", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	res, err := d.Deploy(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
	assert.ErrorContains(t, err, "create buckets")
	assert.Nil(t, res)

	m.s3.AssertNumberOfCalls(t, "CreateBucketWithContext", 1)
	m.uploader.AssertNotCalled(t, "UploadWithContext", mock.Anything, mock.Anything)
}

func TestDeployer_Deploy_FailsOnMissingArchive(t *testing.T) {
	cfg := testConfig(t)
	cfg.Archive = filepath.Join(t.TempDir(), "missing.zip")
	d, m := createDeployer(t, cfg)
	m.s3.On("CreateBucketWithContext", mock.Anything, mock.Anything).Return(&s3.CreateBucketOutput{}, nil)

	_, err := d.Deploy(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorContains(t, err, "upload archive")

	m.iam.AssertNotCalled(t, "CreateRoleWithContext", mock.Anything, mock.Anything)
}

func TestDeployer_Deploy_FailsToPublishVersion(t *testing.T) {
	d, m := createDeployer(t, testConfig(t))
	m.s3.On("CreateBucketWithContext", mock.Anything, mock.Anything).Return(&s3.CreateBucketOutput{}, nil)
	m.uploader.On("UploadWithContext", mock.Anything, mock.Anything).Return(&s3manager.UploadOutput{}, nil)
	m.iam.On("CreateRoleWithContext", mock.Anything, mock.Anything).Return(&iam.CreateRoleOutput{
		Role: &iam.Role{Arn: aws.String("arn:role")},
	}, nil)
	m.iam.On("PutRolePolicyWithContext", mock.Anything, mock.Anything).Return(&iam.PutRolePolicyOutput{}, nil)
	m.iam.On("WaitUntilRoleExistsWithContext", mock.Anything, mock.Anything).Return(nil)
	m.lambda.On("CreateFunctionWithContext", mock.Anything, mock.Anything).Return(&lambda.FunctionConfiguration{
		FunctionArn: aws.String("arn:function"),
	}, nil)
	m.lambda.On("PublishVersionWithContext", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	_, err := d.Deploy(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
	assert.ErrorContains(t, err, "create function: publish version")

	m.cloudfront.AssertNotCalled(t, "CreateDistributionWithContext", mock.Anything, mock.Anything)
}

func TestDeployer_Deploy_WaitsForRole(t *testing.T) {
	cfg := testConfig(t)
	d, m := createDeployer(t, cfg)
	expectAll(m)

	var slept time.Duration
	d.sleep = func(_ context.Context, delay time.Duration) error {
		slept = delay
		return nil
	}

	_, err := d.Deploy(context.Background())
	require.NoError(t, err)

	assert.Equal(t, time.Minute, slept)
}

func TestSleepContext_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sleepContext(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepContext_ZeroDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, sleepContext(ctx, 0))
}
