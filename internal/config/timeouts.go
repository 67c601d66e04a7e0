package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable wait and retry values.
type Timeouts struct {
	Deployment        time.Duration // Wait for the Hopsworks chart to become ready
	LoadBalancer      time.Duration // Wait for a LoadBalancer address
	AKSProvisioning   time.Duration // Wait for az aks create --no-wait to finish
	Ingress           time.Duration // Wait for the ingress controller address
	HelmInstall       time.Duration // Helm install/upgrade timeout
	RetryMaxAttempts  int           // Teardown delete attempts for blocked resources
	RetryInitialDelay time.Duration // Initial delay between teardown retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - HOPSWORKS_TIMEOUT_DEPLOYMENT (default: 45m)
//   - HOPSWORKS_TIMEOUT_LOADBALANCER (default: 2m)
//   - HOPSWORKS_TIMEOUT_AKS (default: 30m)
//   - HOPSWORKS_TIMEOUT_INGRESS (default: 5m)
//   - HOPSWORKS_TIMEOUT_HELM (default: 60m)
//   - HOPSWORKS_RETRY_MAX_ATTEMPTS (default: 6)
//   - HOPSWORKS_RETRY_INITIAL_DELAY (default: 10s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Deployment:        parseDuration("HOPSWORKS_TIMEOUT_DEPLOYMENT", 45*time.Minute),
		LoadBalancer:      parseDuration("HOPSWORKS_TIMEOUT_LOADBALANCER", 2*time.Minute),
		AKSProvisioning:   parseDuration("HOPSWORKS_TIMEOUT_AKS", 30*time.Minute),
		Ingress:           parseDuration("HOPSWORKS_TIMEOUT_INGRESS", 5*time.Minute),
		HelmInstall:       parseDuration("HOPSWORKS_TIMEOUT_HELM", 60*time.Minute),
		RetryMaxAttempts:  parseInt("HOPSWORKS_RETRY_MAX_ATTEMPTS", 6),
		RetryInitialDelay: parseDuration("HOPSWORKS_RETRY_INITIAL_DELAY", 10*time.Second),
	}
}

func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}
