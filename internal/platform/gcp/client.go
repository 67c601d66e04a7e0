// Package gcp drives the gcloud CLI: the GKE installer setup and the
// listing and deletion of everything a Hopsworks GKE install leaves behind.
package gcp

import (
	"context"
	"path"
	"strings"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/shell"
)

// Client runs gcloud commands scoped to one project.
type Client struct {
	run     shell.Runner
	project string
}

// NewClient creates a client for project.
func NewClient(run shell.Runner, project string) *Client {
	return &Client{run: run, project: project}
}

// Project returns the project the client is scoped to.
func (c *Client) Project() string {
	return c.project
}

func (c *Client) gcloud(ctx context.Context, args ...string) (*shell.Result, error) {
	return c.run.Run(ctx, "gcloud", append(args, "--project="+c.project)...)
}

func (c *Client) gcloudJSON(ctx context.Context, v any, args ...string) error {
	return shell.RunJSON(ctx, c.run, v, "gcloud", append(args, "--project="+c.project, "--format=json")...)
}

// lastSegment returns the final path element of a resource URL or name.
func lastSegment(s string) string {
	if s == "" {
		return ""
	}
	return path.Base(s)
}

func alreadyExists(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(shell.Stderr(err)), "already exists")
}
