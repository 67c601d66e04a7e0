package k8s

import (
	"context"
	"fmt"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// JobSummary counts the jobs of a namespace and how many have finished
// successfully.
func (c *Client) JobSummary(ctx context.Context, namespace string) (complete, total int, err error) {
	jobs, err := c.clientset.BatchV1().Jobs(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	for i := range jobs.Items {
		if jobSucceeded(&jobs.Items[i]) {
			complete++
		}
	}
	return complete, len(jobs.Items), nil
}

func jobSucceeded(job *batchv1.Job) bool {
	for _, cond := range job.Status.Conditions {
		if cond.Status != corev1.ConditionTrue {
			continue
		}
		if cond.Type == batchv1.JobComplete || cond.Type == batchv1.JobSuccessCriteriaMet {
			return true
		}
	}
	return false
}

// PodPhase returns the phase of the first pod matching selector, or an
// empty phase when none exists yet.
func (c *Client) PodPhase(ctx context.Context, namespace, selector string) (corev1.PodPhase, error) {
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return "", fmt.Errorf("failed to list pods: %w", err)
	}
	if len(pods.Items) == 0 {
		return "", nil
	}
	return pods.Items[0].Status.Phase, nil
}

// PodCount returns the number of pods in a namespace.
func (c *Client) PodCount(ctx context.Context, namespace string) (int, error) {
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to list pods: %w", err)
	}
	return len(pods.Items), nil
}

// PodsRunning reports whether at least one pod matches selector and every
// matching pod is Running.
func (c *Client) PodsRunning(ctx context.Context, namespace, selector string) (bool, error) {
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return false, fmt.Errorf("failed to list pods: %w", err)
	}
	if len(pods.Items) == 0 {
		return false, nil
	}
	for _, pod := range pods.Items {
		if pod.Status.Phase != corev1.PodRunning {
			return false, nil
		}
	}
	return true, nil
}

// Healthy reports whether any pod of the namespace is Running.
func (c *Client) Healthy(ctx context.Context, namespace string) (bool, error) {
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return false, fmt.Errorf("failed to list pods: %w", err)
	}
	for _, pod := range pods.Items {
		if pod.Status.Phase == corev1.PodRunning {
			return true, nil
		}
	}
	return false, nil
}

// LoadBalancerAddress returns the external address of the named service,
// preferring a hostname over an IP. When that service has none yet, any
// other LoadBalancer service of the namespace with an address is used.
// An empty string means no address has been assigned so far.
func (c *Client) LoadBalancerAddress(ctx context.Context, namespace, service string) (string, error) {
	services := c.clientset.CoreV1().Services(namespace)

	svc, err := services.Get(ctx, service, metav1.GetOptions{})
	switch {
	case err == nil:
		if addr := serviceAddress(svc); addr != "" {
			return addr, nil
		}
	case !apierrors.IsNotFound(err):
		return "", fmt.Errorf("failed to get service %s/%s: %w", namespace, service, err)
	}

	list, err := services.List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to list services: %w", err)
	}
	for i := range list.Items {
		if list.Items[i].Spec.Type != corev1.ServiceTypeLoadBalancer {
			continue
		}
		if addr := serviceAddress(&list.Items[i]); addr != "" {
			return addr, nil
		}
	}
	return "", nil
}

func serviceAddress(svc *corev1.Service) string {
	if len(svc.Status.LoadBalancer.Ingress) == 0 {
		return ""
	}
	ing := svc.Status.LoadBalancer.Ingress[0]
	if ing.Hostname != "" {
		return ing.Hostname
	}
	return ing.IP
}
