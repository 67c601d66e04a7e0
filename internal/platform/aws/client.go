// Package aws drives the aws and eksctl CLIs for the EKS installer and the
// EKS teardown. Caller identity comes from the STS API.
package aws

import (
	"context"
	"fmt"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/shell"
)

// CallerIdentityAPI is the part of the STS client used here.
type CallerIdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Client runs aws and eksctl commands for one profile and region.
type Client struct {
	run     shell.Runner
	sts     CallerIdentityAPI
	http    *retryablehttp.Client
	profile string
	region  string
}

// NewClient loads the shared AWS configuration for profile and region.
func NewClient(ctx context.Context, run shell.Runner, profile, region string) (*Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for profile %q: %w", profile, err)
	}
	return NewClientWithIdentity(run, sts.NewFromConfig(cfg), profile, region), nil
}

// NewClientWithIdentity creates a client with an explicit identity source.
func NewClientWithIdentity(run shell.Runner, identity CallerIdentityAPI, profile, region string) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 3
	hc.Logger = nil
	return &Client{run: run, sts: identity, http: hc, profile: profile, region: region}
}

// Profile returns the AWS profile.
func (c *Client) Profile() string {
	return c.profile
}

// Region returns the AWS region.
func (c *Client) Region() string {
	return c.region
}

func (c *Client) scope() []string {
	var args []string
	if c.profile != "" {
		args = append(args, "--profile", c.profile)
	}
	if c.region != "" {
		args = append(args, "--region", c.region)
	}
	return args
}

// aws runs an aws CLI command scoped to the profile and region.
func (c *Client) aws(ctx context.Context, args ...string) (*shell.Result, error) {
	return c.run.Run(ctx, "aws", append(args, c.scope()...)...)
}

// awsJSON runs an aws CLI command and decodes its JSON output into v.
func (c *Client) awsJSON(ctx context.Context, v any, args ...string) error {
	args = append(args, c.scope()...)
	return shell.RunJSON(ctx, c.run, v, "aws", append(args, "--output", "json")...)
}

// Identity is the caller identity of the configured credentials.
type Identity struct {
	Account string
	Arn     string
	UserID  string
}

// Identity verifies the credentials and returns the caller identity.
func (c *Client) Identity(ctx context.Context) (*Identity, error) {
	out, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("AWS credentials are not configured, run 'aws configure': %w", err)
	}
	return &Identity{
		Account: sdkaws.ToString(out.Account),
		Arn:     sdkaws.ToString(out.Arn),
		UserID:  sdkaws.ToString(out.UserId),
	}, nil
}

func errorCode(err error, codes ...string) bool {
	msg := shell.Stderr(err)
	for _, code := range codes {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}
