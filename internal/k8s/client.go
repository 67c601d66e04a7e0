// Package k8s wraps client-go for the objects the installer creates and
// inspects: namespaces, accounts, registry secrets, storage classes,
// ingresses and the status of the Hopsworks deployment.
package k8s

import (
	"context"
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

const defaultPollInterval = 2 * time.Second

// Client is a thin wrapper around a Kubernetes clientset.
type Client struct {
	clientset    kubernetes.Interface
	pollInterval time.Duration
}

// NewClient builds a client from a kubeconfig file. An empty path falls back
// to KUBECONFIG and ~/.kube/config; an empty context uses the current one.
func NewClient(kubeconfigPath, kubeContext string) (*Client, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		rules.ExplicitPath = kubeconfigPath
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: kubeContext}

	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return NewFromClientset(clientset), nil
}

// NewFromClientset wraps an existing clientset. Tests pass a fake.
func NewFromClientset(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset, pollInterval: defaultPollInterval}
}

// Clientset exposes the underlying clientset.
func (c *Client) Clientset() kubernetes.Interface {
	return c.clientset
}

// Verify checks that the cluster answers by listing its namespaces.
func (c *Client) Verify(ctx context.Context) ([]string, error) {
	list, err := c.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	names := make([]string, 0, len(list.Items))
	for _, ns := range list.Items {
		names = append(names, ns.Name)
	}
	return names, nil
}
