package teardown

import (
	"context"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/gcp"
)

// GCPClient is the gcloud wrapper used by the GKE plan.
type GCPClient interface {
	ListClusters(ctx context.Context, prefix, region string) ([]gcp.Cluster, error)
	DeleteCluster(ctx context.Context, name, location string, async bool) error
	ListForwardingRules(ctx context.Context, region string) ([]gcp.LoadBalancerPart, error)
	DeleteForwardingRule(ctx context.Context, name, region string) error
	ListTargetPools(ctx context.Context, region string) ([]gcp.LoadBalancerPart, error)
	DeleteTargetPool(ctx context.Context, name, region string) error
	ListFirewallRules(ctx context.Context, clusterPrefix string) ([]gcp.FirewallRule, error)
	DeleteFirewallRule(ctx context.Context, name string) error
	ListArtifactRepositories(ctx context.Context, clusterPrefix, region string) ([]gcp.Repository, error)
	DeleteArtifactRepository(ctx context.Context, name, location string, async bool) error
	ListCustomRoles(ctx context.Context) ([]gcp.Role, error)
	DeleteCustomRole(ctx context.Context, id string) error
	ListServiceAccounts(ctx context.Context) ([]gcp.ServiceAccount, error)
	DeleteServiceAccount(ctx context.Context, email string) error
}

// GKEScope selects the GKE resources to remove.
type GKEScope struct {
	// Region limits clusters, load balancers and repositories to one
	// region; empty means all regions.
	Region        string
	ClusterPrefix string
}

// GKEPlan removes clusters first, then the load balancer pieces and
// firewall rules GKE created for them, the Artifact Registry
// repositories, and finally the IAM role and service account.
func GKEPlan(c GCPClient, scope GKEScope, opts Options) Plan {
	return Plan{
		Provider: "gke",
		Kinds: []Kind{
			NewKind("GKE clusters",
				func(ctx context.Context) ([]Resource, error) {
					items, err := c.ListClusters(ctx, scope.ClusterPrefix, scope.Region)
					return listOf(items, err, func(cl gcp.Cluster) Resource {
						return Resource{Name: cl.Name, Location: cl.Location, Detail: cl.Status}
					})
				},
				func(ctx context.Context, r Resource) error {
					return c.DeleteCluster(ctx, r.Name, r.Location, opts.NoWait)
				}),
			NewKind("forwarding rules",
				func(ctx context.Context) ([]Resource, error) {
					items, err := c.ListForwardingRules(ctx, scope.Region)
					return listOf(items, err, lbPart)
				},
				func(ctx context.Context, r Resource) error {
					return c.DeleteForwardingRule(ctx, r.Name, r.Location)
				}),
			NewKind("target pools",
				func(ctx context.Context) ([]Resource, error) {
					items, err := c.ListTargetPools(ctx, scope.Region)
					return listOf(items, err, lbPart)
				},
				func(ctx context.Context, r Resource) error {
					return c.DeleteTargetPool(ctx, r.Name, r.Location)
				}),
			NewKind("firewall rules",
				func(ctx context.Context) ([]Resource, error) {
					items, err := c.ListFirewallRules(ctx, scope.ClusterPrefix)
					return listOf(items, err, func(fw gcp.FirewallRule) Resource {
						return Resource{Name: fw.Name, Detail: lastPathSegment(fw.Network)}
					})
				},
				func(ctx context.Context, r Resource) error {
					return c.DeleteFirewallRule(ctx, r.Name)
				}),
			NewKind("artifact repositories",
				func(ctx context.Context) ([]Resource, error) {
					items, err := c.ListArtifactRepositories(ctx, scope.ClusterPrefix, scope.Region)
					return listOf(items, err, func(repo gcp.Repository) Resource {
						return Resource{Name: repo.ID(), Location: repo.Location(), Detail: repo.Format}
					})
				},
				func(ctx context.Context, r Resource) error {
					return c.DeleteArtifactRepository(ctx, r.Name, r.Location, opts.NoWait)
				}),
			NewKind("custom IAM roles",
				func(ctx context.Context) ([]Resource, error) {
					items, err := c.ListCustomRoles(ctx)
					return listOf(items, err, func(role gcp.Role) Resource {
						return Resource{Name: role.ID(), Detail: role.Title}
					})
				},
				func(ctx context.Context, r Resource) error {
					return c.DeleteCustomRole(ctx, r.Name)
				}),
			NewKind("service accounts",
				func(ctx context.Context) ([]Resource, error) {
					items, err := c.ListServiceAccounts(ctx)
					return listOf(items, err, func(sa gcp.ServiceAccount) Resource {
						return Resource{Name: sa.Email, Detail: sa.DisplayName}
					})
				},
				func(ctx context.Context, r Resource) error {
					return c.DeleteServiceAccount(ctx, r.Name)
				}),
		},
	}
}

func lbPart(p gcp.LoadBalancerPart) Resource {
	return Resource{Name: p.Name, Location: p.RegionName(), Detail: p.IPAddress}
}

func lastPathSegment(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return s[i+1:]
		}
	}
	return s
}
