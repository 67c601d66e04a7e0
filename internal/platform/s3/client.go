package s3

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/go-logr/logr"
)

// deleteBatch is the DeleteObjects request limit.
const deleteBatch = 1000

// Client wraps the S3 API. Requests for a bucket living outside the
// client's region are signed for the bucket's own region.
type Client struct {
	s3     *s3.Client
	region string
	log    logr.Logger

	mu      sync.Mutex
	regions map[string]string
}

// NewClient creates a client from the shared AWS configuration. An empty
// profile uses the default credential chain.
func NewClient(ctx context.Context, profile, region string) (*Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Client{s3: s3.NewFromConfig(cfg), region: region, log: logr.Discard()}, nil
}

// WithLogger sets the logger used for buckets skipped while listing.
func (c *Client) WithLogger(log logr.Logger) *Client {
	c.log = log
	return c
}

func (c *Client) remember(bucket, region string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.regions == nil {
		c.regions = map[string]string{}
	}
	c.regions[bucket] = region
}

// in signs the request for the bucket's region when it is known.
func (c *Client) in(bucket string) func(*s3.Options) {
	c.mu.Lock()
	region := c.regions[bucket]
	c.mu.Unlock()
	return func(o *s3.Options) {
		if region != "" {
			o.Region = region
		}
	}
}

// lookupRegion asks S3 where bucket lives.
func (c *Client) lookupRegion(ctx context.Context, bucket string) error {
	out, err := c.s3.GetBucketLocation(ctx, &s3.GetBucketLocationInput{Bucket: aws.String(bucket)})
	if err != nil {
		return fmt.Errorf("failed to locate bucket %s: %w", bucket, err)
	}
	region := string(out.LocationConstraint)
	switch region {
	case "":
		region = "us-east-1"
	case "EU":
		region = "eu-west-1"
	}
	c.remember(bucket, region)
	return nil
}

// Bucket is a bucket returned by ListTaggedBuckets.
type Bucket struct {
	Name    string
	Created time.Time
}

// CreateBucket creates a versioned bucket carrying tags. A bucket we
// already own is updated in place.
func (c *Client) CreateBucket(ctx context.Context, name string, tags map[string]string) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	// us-east-1 rejects an explicit location constraint.
	if c.region != "" && c.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}
	if _, err := c.s3.CreateBucket(ctx, input); err != nil && !isBucketAlreadyOwnedByYou(err) {
		return fmt.Errorf("failed to create bucket %s: %w", name, err)
	}

	_, err := c.s3.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket: aws.String(name),
		VersioningConfiguration: &types.VersioningConfiguration{
			Status: types.BucketVersioningStatusEnabled,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to enable versioning on bucket %s: %w", name, err)
	}

	if len(tags) == 0 {
		return nil
	}
	tagSet := make([]types.Tag, 0, len(tags))
	for k, v := range tags {
		tagSet = append(tagSet, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	_, err = c.s3.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
		Bucket:  aws.String(name),
		Tagging: &types.Tagging{TagSet: tagSet},
	})
	if err != nil {
		return fmt.Errorf("failed to tag bucket %s: %w", name, err)
	}
	return nil
}

// ListTaggedBuckets returns the buckets whose tag key has value. Buckets
// without tags are skipped, and so are buckets whose tags cannot be read,
// which are logged at V(1).
func (c *Client) ListTaggedBuckets(ctx context.Context, key, value string) ([]Bucket, error) {
	out, err := c.s3.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	var buckets []Bucket
	for _, b := range out.Buckets {
		name := aws.ToString(b.Name)
		if region := aws.ToString(b.BucketRegion); region != "" {
			c.remember(name, region)
		}
		tags, err := c.bucketTags(ctx, name)
		if err != nil {
			var apiErr smithy.APIError
			if !errors.As(err, &apiErr) {
				return nil, fmt.Errorf("failed to read tags of bucket %s: %w", name, err)
			}
			if apiErr.ErrorCode() != "NoSuchTagSet" {
				c.log.V(1).Info("skipping bucket", "bucket", name, "code", apiErr.ErrorCode())
			}
			continue
		}
		for _, t := range tags {
			if aws.ToString(t.Key) == key && aws.ToString(t.Value) == value {
				buckets = append(buckets, Bucket{Name: name, Created: aws.ToTime(b.CreationDate)})
				break
			}
		}
	}
	return buckets, nil
}

// bucketTags reads the tag set of a bucket, locating the bucket once when
// S3 answers that it lives in another region.
func (c *Client) bucketTags(ctx context.Context, name string) ([]types.Tag, error) {
	input := &s3.GetBucketTaggingInput{Bucket: aws.String(name)}
	out, err := c.s3.GetBucketTagging(ctx, input, c.in(name))
	if isWrongRegion(err) {
		if lerr := c.lookupRegion(ctx, name); lerr != nil {
			return nil, err
		}
		out, err = c.s3.GetBucketTagging(ctx, input, c.in(name))
	}
	if err != nil {
		return nil, err
	}
	return out.TagSet, nil
}

// EmptyBucket deletes every object version and delete marker in a bucket.
func (c *Client) EmptyBucket(ctx context.Context, name string) error {
	input := &s3.ListObjectVersionsInput{Bucket: aws.String(name)}
	for {
		page, err := c.s3.ListObjectVersions(ctx, input, c.in(name))
		if err != nil {
			return fmt.Errorf("failed to list objects in bucket %s: %w", name, err)
		}

		ids := make([]types.ObjectIdentifier, 0, len(page.Versions)+len(page.DeleteMarkers))
		for _, v := range page.Versions {
			ids = append(ids, types.ObjectIdentifier{Key: v.Key, VersionId: v.VersionId})
		}
		for _, m := range page.DeleteMarkers {
			ids = append(ids, types.ObjectIdentifier{Key: m.Key, VersionId: m.VersionId})
		}
		if err := c.deleteObjects(ctx, name, ids); err != nil {
			return err
		}

		if !aws.ToBool(page.IsTruncated) {
			return nil
		}
		input.KeyMarker = page.NextKeyMarker
		input.VersionIdMarker = page.NextVersionIdMarker
	}
}

func (c *Client) deleteObjects(ctx context.Context, bucket string, ids []types.ObjectIdentifier) error {
	for start := 0; start < len(ids); start += deleteBatch {
		end := min(start+deleteBatch, len(ids))
		out, err := c.s3.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: ids[start:end], Quiet: aws.Bool(true)},
		}, c.in(bucket))
		if err != nil {
			return fmt.Errorf("failed to delete objects in bucket %s: %w", bucket, err)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("failed to delete %d objects in bucket %s: %s: %s",
				len(out.Errors), bucket, aws.ToString(e.Key), aws.ToString(e.Message))
		}
	}
	return nil
}

// DeleteBucket empties and deletes a bucket. A bucket that no longer
// exists is not an error.
func (c *Client) DeleteBucket(ctx context.Context, name string) error {
	if err := c.EmptyBucket(ctx, name); err != nil {
		if isNotFoundError(err) {
			return nil
		}
		return err
	}
	_, err := c.s3.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(name)}, c.in(name))
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete bucket %s: %w", name, err)
	}
	return nil
}

func isBucketAlreadyOwnedByYou(err error) bool {
	var owned *types.BucketAlreadyOwnedByYou
	if errors.As(err, &owned) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "BucketAlreadyOwnedByYou"
}

func isWrongRegion(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PermanentRedirect", "AuthorizationHeaderMalformed":
		return true
	}
	return false
}

func isNotFoundError(err error) bool {
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchBucket"
	}
	return false
}
