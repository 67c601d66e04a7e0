package k8s

import (
	"context"
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
)

// WaitForDeploymentReady waits until every desired replica of a deployment
// is ready.
func (c *Client) WaitForDeploymentReady(ctx context.Context, namespace, name string, interval, timeout time.Duration) error {
	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		dep, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, nil
		}
		desired := int32(1)
		if dep.Spec.Replicas != nil {
			desired = *dep.Spec.Replicas
		}
		return desired > 0 && dep.Status.ReadyReplicas >= desired, nil
	})
	if err != nil {
		return fmt.Errorf("deployment %s/%s not ready: %w", namespace, name, err)
	}
	return nil
}

// WaitForPodsRunning waits until PodsRunning holds for selector.
func (c *Client) WaitForPodsRunning(ctx context.Context, namespace, selector string, interval, timeout time.Duration) error {
	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		ok, err := c.PodsRunning(ctx, namespace, selector)
		if err != nil {
			return false, nil
		}
		return ok, nil
	})
	if err != nil {
		return fmt.Errorf("pods %q in %s not running: %w", selector, namespace, err)
	}
	return nil
}

// WaitForLoadBalancerAddress polls LoadBalancerAddress until an address is
// assigned.
func (c *Client) WaitForLoadBalancerAddress(ctx context.Context, namespace, service string, interval, timeout time.Duration) (string, error) {
	var addr string
	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		a, err := c.LoadBalancerAddress(ctx, namespace, service)
		if err != nil {
			return false, nil
		}
		addr = a
		return addr != "", nil
	})
	if err != nil {
		return "", fmt.Errorf("no load balancer address for %s/%s: %w", namespace, service, err)
	}
	return addr, nil
}
