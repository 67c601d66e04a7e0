package gcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/util/naming"
)

// serviceDescriptionKey marks load balancer resources created by GKE for a
// Kubernetes service.
const serviceDescriptionKey = "kubernetes.io/service-name"

// Cluster is a GKE cluster.
type Cluster struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Status   string `json:"status"`
}

// ListClusters returns clusters whose name starts with prefix. A non-empty
// region limits the listing to that region and its zones.
func (c *Client) ListClusters(ctx context.Context, prefix, region string) ([]Cluster, error) {
	args := []string{"container", "clusters", "list"}
	if region != "" {
		args = append(args, "--region="+region)
	}
	var all []Cluster
	if err := c.gcloudJSON(ctx, &all, args...); err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}
	var out []Cluster
	for _, cl := range all {
		if strings.HasPrefix(cl.Name, prefix) {
			out = append(out, cl)
		}
	}
	return out, nil
}

// DeleteCluster deletes a cluster; async returns before it is gone.
func (c *Client) DeleteCluster(ctx context.Context, name, location string, async bool) error {
	args := []string{"container", "clusters", "delete", name, "--location=" + location, "--quiet"}
	if async {
		args = append(args, "--async")
	}
	_, err := c.gcloud(ctx, args...)
	return err
}

// LoadBalancerPart is a forwarding rule or target pool created for a
// Kubernetes LoadBalancer service.
type LoadBalancerPart struct {
	Name        string `json:"name"`
	Region      string `json:"region"`
	IPAddress   string `json:"IPAddress"`
	Description string `json:"description"`
}

// RegionName returns the short region name.
func (p LoadBalancerPart) RegionName() string {
	return lastSegment(p.Region)
}

func (c *Client) listLBParts(ctx context.Context, resource, region string) ([]LoadBalancerPart, error) {
	args := []string{"compute", resource, "list"}
	if region != "" {
		args = append(args, "--regions="+region)
	}
	var all []LoadBalancerPart
	if err := c.gcloudJSON(ctx, &all, args...); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", resource, err)
	}
	var out []LoadBalancerPart
	for _, p := range all {
		if strings.Contains(p.Description, serviceDescriptionKey) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListForwardingRules returns forwarding rules created by GKE services.
func (c *Client) ListForwardingRules(ctx context.Context, region string) ([]LoadBalancerPart, error) {
	return c.listLBParts(ctx, "forwarding-rules", region)
}

// DeleteForwardingRule deletes a regional forwarding rule.
func (c *Client) DeleteForwardingRule(ctx context.Context, name, region string) error {
	_, err := c.gcloud(ctx, "compute", "forwarding-rules", "delete", name, "--region="+region, "--quiet")
	return err
}

// ListTargetPools returns target pools created by GKE services.
func (c *Client) ListTargetPools(ctx context.Context, region string) ([]LoadBalancerPart, error) {
	return c.listLBParts(ctx, "target-pools", region)
}

// DeleteTargetPool deletes a regional target pool.
func (c *Client) DeleteTargetPool(ctx context.Context, name, region string) error {
	_, err := c.gcloud(ctx, "compute", "target-pools", "delete", name, "--region="+region, "--quiet")
	return err
}

// FirewallRule is a VPC firewall rule.
type FirewallRule struct {
	Name       string   `json:"name"`
	Network    string   `json:"network"`
	TargetTags []string `json:"targetTags"`
}

// ListFirewallRules returns rules GKE created for clusters matching
// prefix: the gke-<cluster>-* rules and k8s-* service rules targeting the
// cluster's nodes.
func (c *Client) ListFirewallRules(ctx context.Context, clusterPrefix string) ([]FirewallRule, error) {
	var all []FirewallRule
	if err := c.gcloudJSON(ctx, &all, "compute", "firewall-rules", "list"); err != nil {
		return nil, fmt.Errorf("failed to list firewall rules: %w", err)
	}
	nodeTag := "gke-" + clusterPrefix
	var out []FirewallRule
	for _, r := range all {
		if strings.HasPrefix(r.Name, nodeTag) || (strings.HasPrefix(r.Name, "k8s-") && targetsTag(r.TargetTags, nodeTag)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func targetsTag(tags []string, prefix string) bool {
	for _, t := range tags {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

// DeleteFirewallRule deletes a firewall rule.
func (c *Client) DeleteFirewallRule(ctx context.Context, name string) error {
	_, err := c.gcloud(ctx, "compute", "firewall-rules", "delete", name, "--quiet")
	return err
}

// Repository is an Artifact Registry repository.
type Repository struct {
	// Name is the full resource name projects/p/locations/l/repositories/r.
	Name   string `json:"name"`
	Format string `json:"format"`
}

// ID returns the short repository name.
func (r Repository) ID() string {
	return lastSegment(r.Name)
}

// Location returns the repository location.
func (r Repository) Location() string {
	parts := strings.Split(r.Name, "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "locations" {
			return parts[i+1]
		}
	}
	return ""
}

// ListArtifactRepositories returns the docker repositories the installer
// created (hopsworks-<cluster>-<ts>). A non-empty region limits the
// listing to that location.
func (c *Client) ListArtifactRepositories(ctx context.Context, clusterPrefix, region string) ([]Repository, error) {
	args := []string{"artifacts", "repositories", "list"}
	if region != "" {
		args = append(args, "--location="+region)
	}
	var all []Repository
	if err := c.gcloudJSON(ctx, &all, args...); err != nil {
		return nil, fmt.Errorf("failed to list artifact repositories: %w", err)
	}
	prefix := naming.ArtifactRepositoryPrefix(clusterPrefix)
	var out []Repository
	for _, r := range all {
		if strings.HasPrefix(r.ID(), prefix) {
			out = append(out, r)
		}
	}
	return out, nil
}

// DeleteArtifactRepository deletes a repository and its images.
func (c *Client) DeleteArtifactRepository(ctx context.Context, name, location string, async bool) error {
	args := []string{"artifacts", "repositories", "delete", name, "--location=" + location, "--quiet"}
	if async {
		args = append(args, "--async")
	}
	_, err := c.gcloud(ctx, args...)
	return err
}

// Role is a project level custom IAM role.
type Role struct {
	// Name is projects/p/roles/<id>.
	Name    string `json:"name"`
	Title   string `json:"title"`
	Deleted bool   `json:"deleted"`
}

// ID returns the role id.
func (r Role) ID() string {
	return lastSegment(r.Name)
}

// ListCustomRoles returns live hopsworksai.instances.* roles.
func (c *Client) ListCustomRoles(ctx context.Context) ([]Role, error) {
	var all []Role
	if err := c.gcloudJSON(ctx, &all, "iam", "roles", "list"); err != nil {
		return nil, fmt.Errorf("failed to list custom roles: %w", err)
	}
	var out []Role
	for _, r := range all {
		if !r.Deleted && strings.HasPrefix(r.ID(), naming.GCPRolePrefix) {
			out = append(out, r)
		}
	}
	return out, nil
}

// DeleteCustomRole deletes a custom role.
func (c *Client) DeleteCustomRole(ctx context.Context, id string) error {
	_, err := c.gcloud(ctx, "iam", "roles", "delete", id, "--quiet")
	return err
}

// ServiceAccount is an IAM service account.
type ServiceAccount struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// ListServiceAccounts returns the Hopsworks node service accounts.
func (c *Client) ListServiceAccounts(ctx context.Context) ([]ServiceAccount, error) {
	var all []ServiceAccount
	if err := c.gcloudJSON(ctx, &all, "iam", "service-accounts", "list"); err != nil {
		return nil, fmt.Errorf("failed to list service accounts: %w", err)
	}
	var out []ServiceAccount
	for _, sa := range all {
		if strings.HasPrefix(sa.Email, naming.GCPServiceAccount+"@") {
			out = append(out, sa)
		}
	}
	return out, nil
}

// DeleteServiceAccount deletes a service account.
func (c *Client) DeleteServiceAccount(ctx context.Context, email string) error {
	_, err := c.gcloud(ctx, "iam", "service-accounts", "delete", email, "--quiet")
	return err
}
