package k8s

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
)

// ListPersistentVolumes returns every persistent volume of the cluster.
func (c *Client) ListPersistentVolumes(ctx context.Context) ([]corev1.PersistentVolume, error) {
	list, err := c.clientset.CoreV1().PersistentVolumes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list persistent volumes: %w", err)
	}
	return list.Items, nil
}

// ListPersistentVolumeClaims returns the claims of a namespace.
func (c *Client) ListPersistentVolumeClaims(ctx context.Context, namespace string) ([]corev1.PersistentVolumeClaim, error) {
	list, err := c.clientset.CoreV1().PersistentVolumeClaims(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list persistent volume claims: %w", err)
	}
	return list.Items, nil
}

// VolumesClaimedBy returns the names of persistent volumes bound to claims
// in namespace.
func (c *Client) VolumesClaimedBy(ctx context.Context, namespace string) ([]string, error) {
	pvs, err := c.ListPersistentVolumes(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, pv := range pvs {
		if pv.Spec.ClaimRef != nil && pv.Spec.ClaimRef.Namespace == namespace {
			names = append(names, pv.Name)
		}
	}
	return names, nil
}

// DeletePersistentVolume deletes a volume, ignoring volumes already gone.
func (c *Client) DeletePersistentVolume(ctx context.Context, name string) error {
	err := c.clientset.CoreV1().PersistentVolumes().Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete persistent volume %s: %w", name, err)
	}
	return nil
}

// DeleteNamespace deletes a namespace and, when timeout is positive, waits
// for it to disappear. A missing namespace is not an error.
func (c *Client) DeleteNamespace(ctx context.Context, name string, timeout time.Duration) error {
	namespaces := c.clientset.CoreV1().Namespaces()
	err := namespaces.Delete(ctx, name, metav1.DeleteOptions{})
	if apierrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete namespace %s: %w", name, err)
	}
	if timeout <= 0 {
		return nil
	}

	err = wait.PollUntilContextTimeout(ctx, c.pollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		_, err := namespaces.Get(ctx, name, metav1.GetOptions{})
		return apierrors.IsNotFound(err), nil
	})
	if err != nil {
		return fmt.Errorf("namespace %s still terminating: %w", name, err)
	}
	return nil
}
