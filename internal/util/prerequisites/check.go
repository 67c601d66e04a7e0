// Package prerequisites checks that the command line tools a provider
// flow shells out to are installed.
package prerequisites

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config"
)

// Tool is a binary that must be on PATH.
type Tool struct {
	Name        string
	Required    bool
	Description string
	InstallURL  string
	// VersionArgs prints a one-line version, e.g. ["version", "--client"].
	VersionArgs []string
}

var (
	kubectl = Tool{
		Name:        "kubectl",
		Required:    true,
		Description: "Kubernetes command line tool",
		InstallURL:  "https://kubernetes.io/docs/tasks/tools/",
		VersionArgs: []string{"version", "--client"},
	}
	helm = Tool{
		Name:        "helm",
		Required:    true,
		Description: "Kubernetes package manager",
		InstallURL:  "https://helm.sh/docs/intro/install/",
		VersionArgs: []string{"version", "--short"},
	}
	gcloud = Tool{
		Name:        "gcloud",
		Required:    true,
		Description: "Google Cloud CLI",
		InstallURL:  "https://cloud.google.com/sdk/docs/install",
		VersionArgs: []string{"version"},
	}
	aws = Tool{
		Name:        "aws",
		Required:    true,
		Description: "AWS CLI",
		InstallURL:  "https://aws.amazon.com/cli/",
		VersionArgs: []string{"--version"},
	}
	eksctl = Tool{
		Name:        "eksctl",
		Required:    true,
		Description: "Creates and deletes EKS clusters",
		InstallURL:  "https://eksctl.io/installation/",
		VersionArgs: []string{"version"},
	}
	az = Tool{
		Name:        "az",
		Required:    true,
		Description: "Azure CLI",
		InstallURL:  "https://learn.microsoft.com/cli/azure/install-azure-cli",
		VersionArgs: []string{"version", "--output", "tsv"},
	}
)

// ToolsFor returns the tools the installer needs for provider.
func ToolsFor(p config.Provider) []Tool {
	tools := []Tool{kubectl, helm}
	switch p {
	case config.ProviderGCP:
		tools = append(tools, gcloud)
	case config.ProviderAWS:
		tools = append(tools, aws, eksctl)
	case config.ProviderAzure:
		tools = append(tools, az)
	}
	return tools
}

// TeardownTools returns the tools a cleanup command for provider needs.
// Teardowns talk to the cloud only, so kubectl and helm are not required.
func TeardownTools(p config.Provider) []Tool {
	switch p {
	case config.ProviderGCP:
		return []Tool{gcloud}
	case config.ProviderAWS:
		return []Tool{aws, eksctl}
	case config.ProviderAzure:
		return []Tool{az}
	}
	return nil
}

// CheckResult is the outcome for one tool.
type CheckResult struct {
	Tool    Tool
	Found   bool
	Path    string
	Version string
}

// CheckResults collects the outcome for a set of tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any required tools are missing.
func (r *CheckResults) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns an error naming every missing required tool.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, fmt.Sprintf("%s (%s)", tool.Name, tool.InstallURL))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools, install them and try again: %s", strings.Join(missing, ", "))
}

// LookPath is swapped in tests.
var LookPath = exec.LookPath

// Check verifies that tools are on PATH. Versions are resolved only when
// withVersions is set since some CLIs (gcloud, az) are slow to start.
func Check(ctx context.Context, tools []Tool, withVersions bool) *CheckResults {
	results := &CheckResults{}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		path, err := LookPath(tool.Name)
		if err != nil {
			results.Missing = append(results.Missing, tool)
		} else {
			result.Found = true
			result.Path = path
			if withVersions {
				result.Version = toolVersion(ctx, path, tool.VersionArgs)
			}
		}

		results.Results = append(results.Results, result)
	}

	return results
}

func toolVersion(ctx context.Context, path string, args []string) string {
	if len(args) == 0 {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// #nosec G204 - path and args come from the static tool table
	out, err := exec.CommandContext(ctx, path, args...).Output()
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line)
}
