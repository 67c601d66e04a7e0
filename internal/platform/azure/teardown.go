package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/shell"
)

// Resource is the common shape of az list output.
type Resource struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// PrincipalServicePrincipal is the principalType az reports for managed
// identities and app registrations.
const PrincipalServicePrincipal = "ServicePrincipal"

// RoleAssignment is an RBAC assignment scoped to the resource group.
type RoleAssignment struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	PrincipalID        string `json:"principalId"`
	PrincipalName      string `json:"principalName"`
	PrincipalType      string `json:"principalType"`
	RoleDefinitionName string `json:"roleDefinitionName"`
}

// Identity is a user assigned managed identity.
type Identity struct {
	Resource
	PrincipalID string `json:"principalId"`
}

type clusterIdentity struct {
	PrincipalID string `json:"principalId"`
	ObjectID    string `json:"objectId"`
}

// ManagedCluster is an AKS cluster.
type ManagedCluster struct {
	Resource
	NodeResourceGroup string                     `json:"nodeResourceGroup"`
	ProvisioningState string                     `json:"provisioningState"`
	Identity          *clusterIdentity           `json:"identity"`
	IdentityProfile   map[string]clusterIdentity `json:"identityProfile"`
}

// Principals returns the object IDs the cluster acts as: its system
// assigned identity and the kubelet identity.
func (m ManagedCluster) Principals() []string {
	var out []string
	if m.Identity != nil && m.Identity.PrincipalID != "" {
		out = append(out, m.Identity.PrincipalID)
	}
	for _, id := range m.IdentityProfile {
		if id.ObjectID != "" {
			out = append(out, id.ObjectID)
		}
	}
	return out
}

func (c *Client) list(ctx context.Context, v any, args ...string) error {
	return c.azJSON(ctx, v, append(args, "--resource-group", c.resourceGroup)...)
}

// ListRoleAssignments returns the service principal assignments on the
// resource group. Grants to users and groups are never returned.
func (c *Client) ListRoleAssignments(ctx context.Context) ([]RoleAssignment, error) {
	var all []RoleAssignment
	if err := c.list(ctx, &all, "role", "assignment", "list"); err != nil {
		return nil, fmt.Errorf("failed to list role assignments: %w", err)
	}
	var out []RoleAssignment
	for _, ra := range all {
		if ra.PrincipalType == PrincipalServicePrincipal {
			out = append(out, ra)
		}
	}
	return out, nil
}

// DeleteRoleAssignment deletes one role assignment.
func (c *Client) DeleteRoleAssignment(ctx context.Context, id string) error {
	_, err := c.run.Run(ctx, "az", "role", "assignment", "delete", "--ids", id)
	return err
}

// ListClusters returns AKS clusters whose name starts with prefix.
func (c *Client) ListClusters(ctx context.Context, prefix string) ([]ManagedCluster, error) {
	var all []ManagedCluster
	if err := c.list(ctx, &all, "aks", "list"); err != nil {
		return nil, fmt.Errorf("failed to list AKS clusters: %w", err)
	}
	var out []ManagedCluster
	for _, cl := range all {
		if strings.HasPrefix(cl.Name, prefix) {
			out = append(out, cl)
		}
	}
	return out, nil
}

// DeleteCluster deletes an AKS cluster; noWait returns immediately.
func (c *Client) DeleteCluster(ctx context.Context, name string, noWait bool) error {
	args := []string{"aks", "delete", "--resource-group", c.resourceGroup, "--name", name, "--yes"}
	if noWait {
		args = append(args, "--no-wait")
	}
	_, err := c.run.Run(ctx, "az", args...)
	return err
}

// ListIdentities returns user assigned managed identities.
func (c *Client) ListIdentities(ctx context.Context) ([]Identity, error) {
	var out []Identity
	if err := c.list(ctx, &out, "identity", "list"); err != nil {
		return nil, fmt.Errorf("failed to list managed identities: %w", err)
	}
	return out, nil
}

// DeleteIdentity deletes a managed identity.
func (c *Client) DeleteIdentity(ctx context.Context, id string) error {
	_, err := c.run.Run(ctx, "az", "identity", "delete", "--ids", id)
	return err
}

// NetworkKind names an az network resource type that supports list and
// delete --ids.
type NetworkKind string

// Network resource types removed by teardown.
const (
	LoadBalancers         NetworkKind = "lb"
	PublicIPs             NetworkKind = "public-ip"
	NetworkSecurityGroups NetworkKind = "nsg"
	VirtualNetworks       NetworkKind = "vnet"
)

// ListNetwork returns the network resources of one kind.
func (c *Client) ListNetwork(ctx context.Context, kind NetworkKind) ([]Resource, error) {
	var out []Resource
	if err := c.list(ctx, &out, "network", string(kind), "list"); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	return out, nil
}

// DeleteNetwork deletes a network resource; noWait returns immediately.
func (c *Client) DeleteNetwork(ctx context.Context, kind NetworkKind, id string, noWait bool) error {
	args := []string{"network", string(kind), "delete", "--ids", id}
	if noWait {
		args = append(args, "--no-wait")
	}
	_, err := c.run.Run(ctx, "az", args...)
	return err
}

// ResourceGroupExists reports whether the resource group exists.
func (c *Client) ResourceGroupExists(ctx context.Context) (bool, error) {
	out, err := shell.Output(ctx, c.run, "az", "group", "exists", "--name", c.resourceGroup)
	if err != nil {
		return false, fmt.Errorf("failed to check resource group: %w", err)
	}
	return strings.TrimSpace(out) == "true", nil
}

// DeleteResourceGroup deletes the resource group and everything left in
// it. A group that is already gone is not an error.
func (c *Client) DeleteResourceGroup(ctx context.Context, noWait bool) error {
	args := []string{"group", "delete", "--name", c.resourceGroup, "--yes"}
	if noWait {
		args = append(args, "--no-wait")
	}
	_, err := c.run.Run(ctx, "az", args...)
	if err != nil && notFound(err) {
		return nil
	}
	return err
}
