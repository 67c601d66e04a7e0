package gcp

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/util/naming"
)

// artifactPermissions are granted to the node service account so Hopsworks
// can push and pull images in Artifact Registry.
var artifactPermissions = []string{
	"artifactregistry.repositories.create",
	"artifactregistry.repositories.get",
	"artifactregistry.repositories.uploadArtifacts",
	"artifactregistry.repositories.downloadArtifacts",
	"artifactregistry.tags.list",
	"artifactregistry.repositories.list",
}

type roleDefinition struct {
	Title               string   `yaml:"title"`
	Description         string   `yaml:"description"`
	Stage               string   `yaml:"stage"`
	IncludedPermissions []string `yaml:"includedPermissions"`
}

// RoleFile renders the custom role definition passed to gcloud.
func RoleFile() ([]byte, error) {
	return yaml.Marshal(roleDefinition{
		Title:               "Hopsworks AI Instances",
		Description:         "Role for Hopsworks instances",
		Stage:               "GA",
		IncludedPermissions: artifactPermissions,
	})
}

// CreateRole creates the custom Artifact Registry role. The definition is
// written to a temporary file that is removed afterwards.
func (c *Client) CreateRole(ctx context.Context, roleID string) error {
	data, err := RoleFile()
	if err != nil {
		return fmt.Errorf("failed to render role definition: %w", err)
	}

	f, err := os.CreateTemp("", "hopsworks-role-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create role file: %w", err)
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write role file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write role file: %w", err)
	}

	if _, err := c.gcloud(ctx, "iam", "roles", "create", roleID, "--file="+f.Name()); err != nil {
		return fmt.Errorf("failed to create role %s: %w", roleID, err)
	}
	return nil
}

// EnsureServiceAccount makes sure the node service account exists and
// returns its email. It reports whether the account was created.
func (c *Client) EnsureServiceAccount(ctx context.Context) (string, bool, error) {
	email := naming.GCPServiceAccountEmail(c.project)
	if _, err := c.gcloud(ctx, "iam", "service-accounts", "describe", email); err == nil {
		return email, false, nil
	}

	_, err := c.gcloud(ctx, "iam", "service-accounts", "create", naming.GCPServiceAccount,
		"--description=Service account for Hopsworks",
		"--display-name=Hopsworks Service Account",
	)
	if err != nil && !alreadyExists(err) {
		return "", false, fmt.Errorf("failed to create service account: %w", err)
	}
	return email, err == nil, nil
}

// BindRole grants roleID to the service account, dropping a stale binding
// of the same role first.
func (c *Client) BindRole(ctx context.Context, email, roleID string) error {
	member := "--member=serviceAccount:" + email
	role := "--role=" + naming.GCPRoleRef(c.project, roleID)

	// A missing binding is fine here.
	_, _ = c.run.Run(ctx, "gcloud", "projects", "remove-iam-policy-binding", c.project, member, role)

	if _, err := c.run.Run(ctx, "gcloud", "projects", "add-iam-policy-binding", c.project, member, role); err != nil {
		return fmt.Errorf("failed to bind role %s: %w", roleID, err)
	}
	return nil
}

// ClusterSpec sizes a new GKE cluster.
type ClusterSpec struct {
	Name           string
	Zone           string
	MachineType    string
	Nodes          int
	ServiceAccount string
}

// CreateCluster creates a zonal GKE cluster running as the given service
// account.
func (c *Client) CreateCluster(ctx context.Context, spec ClusterSpec) error {
	_, err := c.gcloud(ctx, "container", "clusters", "create", spec.Name,
		"--zone="+spec.Zone,
		"--machine-type="+spec.MachineType,
		"--num-nodes="+strconv.Itoa(spec.Nodes),
		"--enable-ip-alias",
		"--service-account="+spec.ServiceAccount,
	)
	if err != nil {
		return fmt.Errorf("failed to create GKE cluster %s: %w", spec.Name, err)
	}
	return nil
}

// GetCredentials writes kubeconfig credentials for a cluster. location is
// a zone or a region.
func (c *Client) GetCredentials(ctx context.Context, name, location string) error {
	if _, err := c.gcloud(ctx, "container", "clusters", "get-credentials", name, "--location="+location); err != nil {
		return fmt.Errorf("failed to get credentials for %s: %w", name, err)
	}
	return nil
}

// CreateArtifactRepository creates a docker repository. An existing
// repository with the same name is reused.
func (c *Client) CreateArtifactRepository(ctx context.Context, name, region string) error {
	_, err := c.gcloud(ctx, "artifacts", "repositories", "create", name,
		"--repository-format=docker",
		"--location="+region,
	)
	if err != nil && !alreadyExists(err) {
		return fmt.Errorf("failed to create artifact repository %s: %w", name, err)
	}
	return nil
}

// BindWorkloadIdentity lets the hopsworks-sa Kubernetes service account of
// namespace act as the GCP service account.
func (c *Client) BindWorkloadIdentity(ctx context.Context, email, namespace string) error {
	_, err := c.gcloud(ctx, "iam", "service-accounts", "add-iam-policy-binding", email,
		"--role=roles/iam.workloadIdentityUser",
		"--member="+naming.WorkloadIdentityMember(c.project, namespace),
	)
	if err != nil {
		return fmt.Errorf("failed to bind workload identity: %w", err)
	}
	return nil
}

// ConfigureDocker registers gcloud as docker credential helper for domain.
func (c *Client) ConfigureDocker(ctx context.Context, domain string) error {
	if _, err := c.run.Run(ctx, "gcloud", "auth", "configure-docker", domain, "--quiet"); err != nil {
		return fmt.Errorf("failed to configure docker for %s: %w", domain, err)
	}
	return nil
}

// DockerConfig is the config.json mounted into Hopsworks so image builds
// authenticate against Artifact Registry through the gcloud helper.
func DockerConfig(domain string) string {
	return fmt.Sprintf(`{"credHelpers":{%q:"gcloud"}}`, domain)
}
