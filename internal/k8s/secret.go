package k8s

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// RegistryCredentials describe one docker registry login.
type RegistryCredentials struct {
	Server   string
	Username string
	Password string
	Email    string
}

type dockerConfigEntry struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	Auth     string `json:"auth"`
}

type dockerConfigJSON struct {
	Auths map[string]dockerConfigEntry `json:"auths"`
}

// DockerConfigJSON renders the .dockerconfigjson payload for creds.
func DockerConfigJSON(creds RegistryCredentials) ([]byte, error) {
	auth := base64.StdEncoding.EncodeToString([]byte(creds.Username + ":" + creds.Password))
	return json.Marshal(dockerConfigJSON{
		Auths: map[string]dockerConfigEntry{
			creds.Server: {
				Username: creds.Username,
				Password: creds.Password,
				Email:    creds.Email,
				Auth:     auth,
			},
		},
	})
}

// ReplaceRegistrySecret deletes and recreates a docker-registry secret so
// its content is exactly creds.
func (c *Client) ReplaceRegistrySecret(ctx context.Context, namespace, name string, creds RegistryCredentials) error {
	payload, err := DockerConfigJSON(creds)
	if err != nil {
		return fmt.Errorf("failed to encode registry credentials: %w", err)
	}

	secrets := c.clientset.CoreV1().Secrets(namespace)
	if err := secrets.Delete(ctx, name, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete existing secret %s/%s: %w", namespace, name, err)
	}

	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Type:       corev1.SecretTypeDockerConfigJson,
		Data:       map[string][]byte{corev1.DockerConfigJsonKey: payload},
	}
	if _, err := secrets.Create(ctx, secret, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("failed to create secret %s/%s: %w", namespace, name, err)
	}
	return nil
}
