package k8s

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	storagev1 "k8s.io/api/storage/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
)

// EnsureNamespace creates the namespace when missing and waits until it is
// Active. It reports whether the namespace was created.
func (c *Client) EnsureNamespace(ctx context.Context, name string, timeout time.Duration) (bool, error) {
	namespaces := c.clientset.CoreV1().Namespaces()

	created := false
	_, err := namespaces.Get(ctx, name, metav1.GetOptions{})
	switch {
	case apierrors.IsNotFound(err):
		ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
		if _, err := namespaces.Create(ctx, ns, metav1.CreateOptions{}); err != nil && !apierrors.IsAlreadyExists(err) {
			return false, fmt.Errorf("failed to create namespace %s: %w", name, err)
		}
		created = true
	case err != nil:
		return false, fmt.Errorf("failed to get namespace %s: %w", name, err)
	}

	err = wait.PollUntilContextTimeout(ctx, c.pollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		ns, err := namespaces.Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, nil
		}
		return ns.Status.Phase == corev1.NamespaceActive, nil
	})
	if err != nil {
		return created, fmt.Errorf("namespace %s did not become active: %w", name, err)
	}
	return created, nil
}

// EnsureServiceAccount creates a service account or merges the given
// annotations into an existing one.
func (c *Client) EnsureServiceAccount(ctx context.Context, namespace, name string, annotations map[string]string) error {
	accounts := c.clientset.CoreV1().ServiceAccounts(namespace)

	existing, err := accounts.Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		sa := &corev1.ServiceAccount{
			ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Annotations: annotations},
		}
		if _, err := accounts.Create(ctx, sa, metav1.CreateOptions{}); err != nil {
			return fmt.Errorf("failed to create service account %s/%s: %w", namespace, name, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get service account %s/%s: %w", namespace, name, err)
	}

	if len(annotations) == 0 {
		return nil
	}
	if existing.Annotations == nil {
		existing.Annotations = map[string]string{}
	}
	for k, v := range annotations {
		existing.Annotations[k] = v
	}
	if _, err := accounts.Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to annotate service account %s/%s: %w", namespace, name, err)
	}
	return nil
}

// EnsureAdminRoleBinding binds the admin ClusterRole to a service account
// within its namespace.
func (c *Client) EnsureAdminRoleBinding(ctx context.Context, namespace, name, serviceAccount string) error {
	binding := &rbacv1.RoleBinding{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		RoleRef: rbacv1.RoleRef{
			APIGroup: rbacv1.GroupName,
			Kind:     "ClusterRole",
			Name:     "admin",
		},
		Subjects: []rbacv1.Subject{{
			Kind:      rbacv1.ServiceAccountKind,
			Name:      serviceAccount,
			Namespace: namespace,
		}},
	}

	_, err := c.clientset.RbacV1().RoleBindings(namespace).Create(ctx, binding, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create role binding %s/%s: %w", namespace, name, err)
	}
	return nil
}

// EnsureGP3StorageClass creates the EBS gp3 storage class used by the
// Hopsworks chart on EKS.
func (c *Client) EnsureGP3StorageClass(ctx context.Context, name string) error {
	reclaim := corev1.PersistentVolumeReclaimDelete
	binding := storagev1.VolumeBindingWaitForFirstConsumer
	sc := &storagev1.StorageClass{
		ObjectMeta:  metav1.ObjectMeta{Name: name},
		Provisioner: "ebs.csi.aws.com",
		Parameters: map[string]string{
			"type":                      "gp3",
			"csi.storage.k8s.io/fstype": "xfs",
		},
		ReclaimPolicy:     &reclaim,
		VolumeBindingMode: &binding,
	}

	_, err := c.clientset.StorageV1().StorageClasses().Create(ctx, sc, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create storage class %s: %w", name, err)
	}
	return nil
}

// ApplyConfigMap creates or replaces the data of a config map.
func (c *Client) ApplyConfigMap(ctx context.Context, namespace, name string, data map[string]string) error {
	maps := c.clientset.CoreV1().ConfigMaps(namespace)

	existing, err := maps.Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		cm := &corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
			Data:       data,
		}
		if _, err := maps.Create(ctx, cm, metav1.CreateOptions{}); err != nil {
			return fmt.Errorf("failed to create config map %s/%s: %w", namespace, name, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get config map %s/%s: %w", namespace, name, err)
	}

	existing.Data = data
	if _, err := maps.Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to update config map %s/%s: %w", namespace, name, err)
	}
	return nil
}

// EnsureDeploymentArg appends arg to the named container of a deployment
// unless it is already present. It reports whether the deployment changed.
func (c *Client) EnsureDeploymentArg(ctx context.Context, namespace, name, container, arg string) (bool, error) {
	deployments := c.clientset.AppsV1().Deployments(namespace)

	dep, err := deployments.Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return false, fmt.Errorf("failed to get deployment %s/%s: %w", namespace, name, err)
	}

	for i := range dep.Spec.Template.Spec.Containers {
		ctr := &dep.Spec.Template.Spec.Containers[i]
		if ctr.Name != container {
			continue
		}
		for _, a := range ctr.Args {
			if a == arg {
				return false, nil
			}
		}
		ctr.Args = append(ctr.Args, arg)
		if _, err := deployments.Update(ctx, dep, metav1.UpdateOptions{}); err != nil {
			return false, fmt.Errorf("failed to update deployment %s/%s: %w", namespace, name, err)
		}
		return true, nil
	}
	return false, fmt.Errorf("container %s not found in deployment %s/%s", container, namespace, name)
}
