package teardown

import (
	"context"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/azure"
)

// AzureClient is the az wrapper used by the AKS plan.
type AzureClient interface {
	ResourceGroup() string
	ListRoleAssignments(ctx context.Context) ([]azure.RoleAssignment, error)
	DeleteRoleAssignment(ctx context.Context, id string) error
	ListClusters(ctx context.Context, prefix string) ([]azure.ManagedCluster, error)
	DeleteCluster(ctx context.Context, name string, noWait bool) error
	ListIdentities(ctx context.Context) ([]azure.Identity, error)
	DeleteIdentity(ctx context.Context, id string) error
	ListNetwork(ctx context.Context, kind azure.NetworkKind) ([]azure.Resource, error)
	DeleteNetwork(ctx context.Context, kind azure.NetworkKind, id string, noWait bool) error
	ResourceGroupExists(ctx context.Context) (bool, error)
	DeleteResourceGroup(ctx context.Context, noWait bool) error
}

// AKSScope selects the AKS resources to remove.
type AKSScope struct {
	ClusterPrefix string
	// DeleteResourceGroup also removes the resource group itself.
	DeleteResourceGroup bool
}

// AKSPlan removes role assignments before the clusters and identities
// they reference. Only assignments held by those identities and clusters
// are touched. Load balancers go before public IPs because an IP stays
// attached to a load balancer frontend, and VNets go last.
func AKSPlan(c AzureClient, scope AKSScope, opts Options) Plan {
	kinds := []Kind{
		NewKind("role assignments",
			func(ctx context.Context) ([]Resource, error) {
				items, err := ownedRoleAssignments(ctx, c, scope.ClusterPrefix)
				return listOf(items, err, func(ra azure.RoleAssignment) Resource {
					return Resource{Name: ra.Name, ID: ra.ID, Detail: ra.RoleDefinitionName + " for " + ra.PrincipalName}
				})
			},
			func(ctx context.Context, r Resource) error {
				return c.DeleteRoleAssignment(ctx, r.ID)
			}),
		NewKind("AKS clusters",
			func(ctx context.Context) ([]Resource, error) {
				items, err := c.ListClusters(ctx, scope.ClusterPrefix)
				return listOf(items, err, func(cl azure.ManagedCluster) Resource {
					return Resource{Name: cl.Name, ID: cl.ID, Location: cl.Location, Detail: cl.ProvisioningState}
				})
			},
			func(ctx context.Context, r Resource) error {
				return c.DeleteCluster(ctx, r.Name, opts.NoWait)
			}),
		NewKind("managed identities",
			func(ctx context.Context) ([]Resource, error) {
				items, err := c.ListIdentities(ctx)
				return listOf(items, err, func(id azure.Identity) Resource { return azureResource(id.Resource) })
			},
			func(ctx context.Context, r Resource) error {
				return c.DeleteIdentity(ctx, r.ID)
			}),
		networkKind(c, "load balancers", azure.LoadBalancers, opts),
		networkKind(c, "public IPs", azure.PublicIPs, opts),
		networkKind(c, "network security groups", azure.NetworkSecurityGroups, opts),
		networkKind(c, "virtual networks", azure.VirtualNetworks, opts),
	}

	if scope.DeleteResourceGroup {
		kinds = append(kinds, NewKind("resource groups",
			func(ctx context.Context) ([]Resource, error) {
				ok, err := c.ResourceGroupExists(ctx)
				if err != nil || !ok {
					return nil, err
				}
				return []Resource{{Name: c.ResourceGroup()}}, nil
			},
			func(ctx context.Context, _ Resource) error {
				return c.DeleteResourceGroup(ctx, opts.NoWait)
			}))
	}

	return Plan{Provider: "aks", Kinds: kinds}
}

// ownedRoleAssignments keeps the assignments whose principal is a managed
// identity in the group or one of the prefixed clusters.
func ownedRoleAssignments(ctx context.Context, c AzureClient, prefix string) ([]azure.RoleAssignment, error) {
	assignments, err := c.ListRoleAssignments(ctx)
	if err != nil || len(assignments) == 0 {
		return nil, err
	}
	identities, err := c.ListIdentities(ctx)
	if err != nil {
		return nil, err
	}
	clusters, err := c.ListClusters(ctx, prefix)
	if err != nil {
		return nil, err
	}

	owned := map[string]bool{}
	for _, id := range identities {
		if id.PrincipalID != "" {
			owned[id.PrincipalID] = true
		}
	}
	for _, cl := range clusters {
		for _, p := range cl.Principals() {
			owned[p] = true
		}
	}

	var out []azure.RoleAssignment
	for _, ra := range assignments {
		if owned[ra.PrincipalID] {
			out = append(out, ra)
		}
	}
	return out, nil
}

func networkKind(c AzureClient, name string, kind azure.NetworkKind, opts Options) Kind {
	return NewKind(name,
		func(ctx context.Context) ([]Resource, error) {
			items, err := c.ListNetwork(ctx, kind)
			return listOf(items, err, azureResource)
		},
		func(ctx context.Context, r Resource) error {
			return c.DeleteNetwork(ctx, kind, r.ID, opts.NoWait)
		})
}

func azureResource(r azure.Resource) Resource {
	return Resource{Name: r.Name, ID: r.ID, Location: r.Location}
}
