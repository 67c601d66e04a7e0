// Package azure drives the az CLI for the AKS installer and for tearing
// down the resources of a Hopsworks resource group.
package azure

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/shell"
)

// Provisioning states reported by az aks show.
const (
	StateSucceeded = "Succeeded"
	StateFailed    = "Failed"
)

// ErrProvisioningFailed is returned when AKS reports a failed cluster.
var ErrProvisioningFailed = errors.New("AKS cluster provisioning failed")

// Client runs az commands scoped to one resource group.
type Client struct {
	run           shell.Runner
	resourceGroup string
}

// NewClient creates a client for resourceGroup.
func NewClient(run shell.Runner, resourceGroup string) *Client {
	return &Client{run: run, resourceGroup: resourceGroup}
}

// ResourceGroup returns the group the client is scoped to.
func (c *Client) ResourceGroup() string {
	return c.resourceGroup
}

func (c *Client) azJSON(ctx context.Context, v any, args ...string) error {
	return shell.RunJSON(ctx, c.run, v, "az", append(args, "--output", "json")...)
}

// Account is the active az login.
type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	TenantID string `json:"tenantId"`
}

// Account returns the active subscription and fails when az is not
// logged in.
func (c *Client) Account(ctx context.Context) (*Account, error) {
	var acct Account
	if err := c.azJSON(ctx, &acct, "account", "show"); err != nil {
		return nil, fmt.Errorf("azure CLI is not logged in, run 'az login': %w", err)
	}
	return &acct, nil
}

// EnsureResourceGroup creates the resource group when it does not exist.
// It reports whether the group was created.
func (c *Client) EnsureResourceGroup(ctx context.Context, location string) (bool, error) {
	if _, err := c.run.Run(ctx, "az", "group", "show", "--name", c.resourceGroup, "--output", "none"); err == nil {
		return false, nil
	}
	if _, err := c.run.Run(ctx, "az", "group", "create", "--name", c.resourceGroup, "--location", location, "--output", "none"); err != nil {
		return false, fmt.Errorf("failed to create resource group %s: %w", c.resourceGroup, err)
	}
	return true, nil
}

// ClusterSpec sizes a new AKS cluster.
type ClusterSpec struct {
	Name        string
	Location    string
	Nodes       int
	MachineType string
}

// CreateCluster starts AKS cluster creation without waiting for it.
func (c *Client) CreateCluster(ctx context.Context, spec ClusterSpec) error {
	_, err := c.run.Run(ctx, "az", "aks", "create",
		"--resource-group", c.resourceGroup,
		"--name", spec.Name,
		"--node-count", strconv.Itoa(spec.Nodes),
		"--node-vm-size", spec.MachineType,
		"--location", spec.Location,
		"--network-plugin", "azure",
		"--generate-ssh-keys",
		"--load-balancer-sku", "standard",
		"--enable-managed-identity",
		"--network-policy", "azure",
		"--no-wait",
	)
	if err != nil {
		return fmt.Errorf("failed to start AKS cluster creation: %w", err)
	}
	return nil
}

// ProvisioningState returns the provisioning state of a cluster.
func (c *Client) ProvisioningState(ctx context.Context, name string) (string, error) {
	return shell.Output(ctx, c.run, "az", "aks", "show",
		"--resource-group", c.resourceGroup,
		"--name", name,
		"--query", "provisioningState",
		"--output", "tsv",
	)
}

// WaitForCluster polls the provisioning state every interval until the
// cluster succeeded, failed or timeout elapsed. report, when set, is called
// with every observed state.
func (c *Client) WaitForCluster(ctx context.Context, name string, interval, timeout time.Duration, report func(state string)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		state, err := c.ProvisioningState(ctx, name)
		if err == nil {
			if report != nil {
				report(state)
			}
			switch state {
			case StateSucceeded:
				return nil
			case StateFailed:
				return ErrProvisioningFailed
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for AKS cluster %s: %w", name, ctx.Err())
		case <-ticker.C:
		}
	}
}

// GetCredentials merges the cluster credentials into the kubeconfig.
func (c *Client) GetCredentials(ctx context.Context, name string) error {
	_, err := c.run.Run(ctx, "az", "aks", "get-credentials",
		"--resource-group", c.resourceGroup,
		"--name", name,
		"--overwrite-existing",
	)
	if err != nil {
		return fmt.Errorf("failed to get AKS credentials: %w", err)
	}
	return nil
}

func notFound(err error) bool {
	msg := strings.ToLower(shell.Stderr(err))
	return strings.Contains(msg, "could not be found") || strings.Contains(msg, "resourcenotfound") || strings.Contains(msg, "resourcegroupnotfound")
}
