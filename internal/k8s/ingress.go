package k8s

import (
	"context"
	"fmt"

	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// IngressSpec describes a single-host ingress routing / to one service port.
type IngressSpec struct {
	Namespace   string
	Name        string
	Host        string
	ClassName   string
	ServiceName string
	ServicePort int32
	Annotations map[string]string
}

func (s IngressSpec) object() *networkingv1.Ingress {
	pathType := networkingv1.PathTypePrefix
	className := s.ClassName
	return &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:        s.Name,
			Namespace:   s.Namespace,
			Annotations: s.Annotations,
		},
		Spec: networkingv1.IngressSpec{
			IngressClassName: &className,
			Rules: []networkingv1.IngressRule{{
				Host: s.Host,
				IngressRuleValue: networkingv1.IngressRuleValue{
					HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{{
							Path:     "/",
							PathType: &pathType,
							Backend: networkingv1.IngressBackend{
								Service: &networkingv1.IngressServiceBackend{
									Name: s.ServiceName,
									Port: networkingv1.ServiceBackendPort{Number: s.ServicePort},
								},
							},
						}},
					},
				},
			}},
		},
	}
}

// ApplyIngress creates the ingress or replaces the spec and annotations of
// an existing one. It reports whether the ingress was created.
func (c *Client) ApplyIngress(ctx context.Context, spec IngressSpec) (bool, error) {
	ingresses := c.clientset.NetworkingV1().Ingresses(spec.Namespace)
	desired := spec.object()

	existing, err := ingresses.Get(ctx, spec.Name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		if _, err := ingresses.Create(ctx, desired, metav1.CreateOptions{}); err != nil {
			return false, fmt.Errorf("failed to create ingress %s/%s: %w", spec.Namespace, spec.Name, err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get ingress %s/%s: %w", spec.Namespace, spec.Name, err)
	}

	existing.Annotations = desired.Annotations
	existing.Spec = desired.Spec
	if _, err := ingresses.Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
		return false, fmt.Errorf("failed to update ingress %s/%s: %w", spec.Namespace, spec.Name, err)
	}
	return false, nil
}

// IngressExists reports whether the named ingress exists.
func (c *Client) IngressExists(ctx context.Context, namespace, name string) (bool, error) {
	_, err := c.clientset.NetworkingV1().Ingresses(namespace).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get ingress %s/%s: %w", namespace, name, err)
	}
	return true, nil
}
