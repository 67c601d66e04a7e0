package teardown

import (
	"context"
	"sync"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/aws"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/s3"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/util/naming"
)

// AWSClient is the aws/eksctl wrapper used by the EKS plan.
type AWSClient interface {
	DescribeCluster(ctx context.Context, name string) (*aws.EKSCluster, error)
	DeleteCluster(ctx context.Context, name string, wait bool) error
	ListLoadBalancers(ctx context.Context, cluster, vpcID string) ([]aws.LoadBalancer, error)
	DeleteLoadBalancer(ctx context.Context, lb aws.LoadBalancer) error
	ListTargetGroups(ctx context.Context, cluster string) ([]aws.TargetGroup, error)
	DeleteTargetGroup(ctx context.Context, arn string) error
	ListSecurityGroups(ctx context.Context, cluster, vpcID string) ([]aws.SecurityGroup, error)
	DeleteSecurityGroup(ctx context.Context, id string) error
	RoleExists(ctx context.Context, name string) (bool, error)
	DeleteRole(ctx context.Context, name string) error
	ListPolicies(ctx context.Context, cluster string) ([]aws.Policy, error)
	DeletePolicy(ctx context.Context, arn string) error
	ListRepositories(ctx context.Context, cluster string) ([]aws.Repository, error)
	DeleteRepository(ctx context.Context, name string) error
}

// BucketClient lists and removes the S3 buckets of an installation.
type BucketClient interface {
	ListTaggedBuckets(ctx context.Context, key, value string) ([]s3.Bucket, error)
	DeleteBucket(ctx context.Context, name string) error
}

const (
	lbClassic     = "classic"
	lbApplication = "application/network"
)

// EKSPlan removes the load balancers and target groups created by the
// load balancer controller before the cluster, then the security groups
// the cluster leaves in its VPC, the controller IAM role and policies, the
// ECR repositories and the tagged S3 buckets. buckets may be nil.
//
// Load balancers and security groups are found through the cluster VPC.
// When the cluster no longer exists, or cannot be described, they cannot
// be attributed and are not listed. A describe failure is reported once,
// under the cluster kind.
func EKSPlan(c AWSClient, buckets BucketClient, cluster string, opts Options) Plan {
	describe := sync.OnceValues(func() (*aws.EKSCluster, error) {
		// Shared by parallel listings, so not bound to any one of their
		// contexts.
		return c.DescribeCluster(context.Background(), cluster)
	})
	vpc := func() string {
		cl, err := describe()
		if err != nil || cl == nil {
			return ""
		}
		return cl.VpcID
	}

	kinds := []Kind{
		NewKind("load balancers",
			func(ctx context.Context) ([]Resource, error) {
				vpcID := vpc()
				if vpcID == "" {
					return nil, nil
				}
				items, err := c.ListLoadBalancers(ctx, cluster, vpcID)
				return listOf(items, err, func(lb aws.LoadBalancer) Resource {
					detail := lbApplication
					if lb.Classic {
						detail = lbClassic
					}
					return Resource{Name: lb.Name, ID: lb.ARN, Detail: detail}
				})
			},
			func(ctx context.Context, r Resource) error {
				return c.DeleteLoadBalancer(ctx, aws.LoadBalancer{Name: r.Name, ARN: r.ID, Classic: r.Detail == lbClassic})
			}),
		NewKind("target groups",
			func(ctx context.Context) ([]Resource, error) {
				items, err := c.ListTargetGroups(ctx, cluster)
				return listOf(items, err, func(tg aws.TargetGroup) Resource {
					return Resource{Name: tg.Name, ID: tg.ARN}
				})
			},
			func(ctx context.Context, r Resource) error {
				return c.DeleteTargetGroup(ctx, r.ID)
			}),
		NewKind("EKS clusters",
			func(ctx context.Context) ([]Resource, error) {
				cl, err := describe()
				if err != nil || cl == nil {
					return nil, err
				}
				return []Resource{{Name: cl.Name, ID: cl.VpcID, Detail: cl.Status}}, nil
			},
			func(ctx context.Context, r Resource) error {
				return c.DeleteCluster(ctx, r.Name, !opts.NoWait)
			}),
		NewKind("security groups",
			func(ctx context.Context) ([]Resource, error) {
				vpcID := vpc()
				if vpcID == "" {
					return nil, nil
				}
				items, err := c.ListSecurityGroups(ctx, cluster, vpcID)
				return listOf(items, err, func(sg aws.SecurityGroup) Resource {
					return Resource{Name: sg.Name, ID: sg.ID, Detail: sg.Description}
				})
			},
			func(ctx context.Context, r Resource) error {
				return c.DeleteSecurityGroup(ctx, r.ID)
			}),
		NewKind("IAM roles",
			func(ctx context.Context) ([]Resource, error) {
				name := naming.ALBRole(cluster)
				ok, err := c.RoleExists(ctx, name)
				if err != nil || !ok {
					return nil, err
				}
				return []Resource{{Name: name}}, nil
			},
			func(ctx context.Context, r Resource) error {
				return c.DeleteRole(ctx, r.Name)
			}),
		NewKind("IAM policies",
			func(ctx context.Context) ([]Resource, error) {
				items, err := c.ListPolicies(ctx, cluster)
				return listOf(items, err, func(p aws.Policy) Resource {
					return Resource{Name: p.Name, ID: p.ARN}
				})
			},
			func(ctx context.Context, r Resource) error {
				return c.DeletePolicy(ctx, r.ID)
			}),
		NewKind("ECR repositories",
			func(ctx context.Context) ([]Resource, error) {
				items, err := c.ListRepositories(ctx, cluster)
				return listOf(items, err, func(repo aws.Repository) Resource {
					return Resource{Name: repo.Name, Detail: repo.URI}
				})
			},
			func(ctx context.Context, r Resource) error {
				return c.DeleteRepository(ctx, r.Name)
			}),
	}

	if buckets != nil {
		kinds = append(kinds, NewKind("S3 buckets",
			func(ctx context.Context) ([]Resource, error) {
				items, err := buckets.ListTaggedBuckets(ctx, naming.BucketTagKey, cluster)
				return listOf(items, err, func(b s3.Bucket) Resource {
					return Resource{Name: b.Name, Detail: b.Created.Format("2006-01-02")}
				})
			},
			func(ctx context.Context, r Resource) error {
				return buckets.DeleteBucket(ctx, r.Name)
			}))
	}

	return Plan{Provider: "eks", Kinds: kinds}
}
