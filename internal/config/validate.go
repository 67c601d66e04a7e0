package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
)

var (
	namespaceRE   = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]{0,61}[a-z0-9])?$`)
	clusterNameRE = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]{0,38}[a-z0-9])?$`)
)

// ValidateNamespace reports whether ns can be used as a Kubernetes namespace.
func ValidateNamespace(ns string) error {
	if !namespaceRE.MatchString(ns) {
		return fmt.Errorf("%w: %q", ErrInvalidNamespace, ns)
	}
	return nil
}

// ValidateClusterName reports whether name is accepted by every provider.
func ValidateClusterName(name string) error {
	if !clusterNameRE.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidClusterName, name)
	}
	return nil
}

// Validate checks a fully resolved configuration. It collects every problem
// so the user can fix them in one go.
func (c *Config) Validate() error {
	var errs []error

	if _, err := ParseProvider(string(c.Provider)); err != nil || c.Provider == "" {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider))
	}
	if err := ValidateNamespace(c.Namespace); err != nil {
		errs = append(errs, err)
	}

	switch c.Provider {
	case ProviderGCP:
		if c.GCP.ProjectID == "" {
			errs = append(errs, ErrMissingProject)
		}
		if c.Zone == "" && c.Region == "" {
			errs = append(errs, ErrMissingRegion)
		}
		errs = append(errs, c.validateCluster()...)
	case ProviderAWS:
		if c.Region == "" {
			errs = append(errs, ErrMissingRegion)
		}
		errs = append(errs, c.validateCluster()...)
	case ProviderAzure:
		if c.Azure.ResourceGroup == "" {
			errs = append(errs, ErrMissingResourceGrp)
		}
		errs = append(errs, c.validateCluster()...)
	case ProviderOVH:
		if c.Kubeconfig != "" {
			if _, err := os.Stat(c.Kubeconfig); err != nil {
				errs = append(errs, fmt.Errorf("%w: %s", ErrKubeconfigNotFound, c.Kubeconfig))
			}
		}
	}

	return errors.Join(errs...)
}

func (c *Config) validateCluster() []error {
	var errs []error
	if err := ValidateClusterName(c.ClusterName); err != nil {
		errs = append(errs, err)
	}
	if c.Nodes.Count <= 0 {
		errs = append(errs, ErrInvalidNodeCount)
	}
	return errs
}
