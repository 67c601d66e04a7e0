package config

import "errors"

// Validation errors.
var (
	ErrUnknownProvider     = errors.New("unknown provider")
	ErrInvalidNamespace    = errors.New("namespace must be a lowercase RFC 1123 label")
	ErrInvalidClusterName  = errors.New("cluster name must be 1-40 lowercase alphanumeric characters or hyphens")
	ErrInvalidNodeCount    = errors.New("node count must be positive")
	ErrMissingProject      = errors.New("project ID is required for GCP")
	ErrMissingResourceGrp  = errors.New("resource group is required for Azure")
	ErrMissingRegion       = errors.New("region is required")
	ErrKubeconfigNotFound  = errors.New("kubeconfig file does not exist")
	ErrValuesFileNotObject = errors.New("values file must contain a YAML mapping")
)
