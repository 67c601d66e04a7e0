package k8s

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"k8s.io/client-go/tools/clientcmd"
)

// ErrNoContexts is returned when a kubeconfig defines no contexts.
var ErrNoContexts = errors.New("kubeconfig defines no contexts")

// Contexts returns the current context and all context names of a
// kubeconfig file, sorted by name.
func Contexts(kubeconfigPath string) (string, []string, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		rules.ExplicitPath = kubeconfigPath
	}
	cfg, err := rules.Load()
	if err != nil {
		return "", nil, fmt.Errorf("failed to read kubeconfig: %w", err)
	}
	if len(cfg.Contexts) == 0 {
		return "", nil, ErrNoContexts
	}

	names := make([]string, 0, len(cfg.Contexts))
	for name := range cfg.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return cfg.CurrentContext, names, nil
}

// UseContext switches the current context of a kubeconfig file.
func UseContext(kubeconfigPath, kubeContext string) error {
	cfg, err := clientcmd.LoadFromFile(kubeconfigPath)
	if err != nil {
		return fmt.Errorf("failed to read kubeconfig: %w", err)
	}
	if _, ok := cfg.Contexts[kubeContext]; !ok {
		return fmt.Errorf("context %q not found in %s", kubeContext, kubeconfigPath)
	}
	cfg.CurrentContext = kubeContext
	if err := clientcmd.WriteToFile(*cfg, kubeconfigPath); err != nil {
		return fmt.Errorf("failed to write kubeconfig: %w", err)
	}
	return nil
}

// DefaultKubeconfigPath returns $KUBECONFIG when it names a single file,
// otherwise ~/.kube/config.
func DefaultKubeconfigPath() string {
	if p := os.Getenv(clientcmd.RecommendedConfigPathEnvVar); p != "" {
		if list := clientcmd.NewDefaultClientConfigLoadingRules().Precedence; len(list) == 1 {
			return p
		}
	}
	return clientcmd.RecommendedHomeFile
}
