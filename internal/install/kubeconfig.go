package install

import (
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/client-go/tools/clientcmd"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/k8s"
)

// KubeconfigScript is written next to the log so the user can point their
// shell at the installer's cluster.
const KubeconfigScript = "set_kubeconfig.sh"

func kubeconfigPhase() Phase {
	return NewPhase("kubeconfig", "Connecting to the cluster", func(ctx *Context) error {
		return useKubeconfig(ctx, ctx.Config.Kubeconfig, true)
	})
}

// exportKubeconfig makes provider CLIs write credentials to path.
func exportKubeconfig(path string) {
	if path != "" {
		_ = os.Setenv(clientcmd.RecommendedConfigPathEnvVar, path)
	}
}

// useKubeconfig points every later call at path, optionally lets the user
// choose a context, writes the shell helper and checks the cluster answers.
func useKubeconfig(ctx *Context, path string, selectContext bool) error {
	if path == "" {
		path = k8s.DefaultKubeconfigPath()
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("kubeconfig %s is not readable: %w", path, err)
	}
	ctx.State.Kubeconfig = path
	ctx.Config.Kubeconfig = path
	exportKubeconfig(path)

	if selectContext {
		if err := chooseContext(ctx, path); err != nil {
			return err
		}
	}

	if err := writeKubeconfigScript(ctx.Deps.WorkDir, path); err != nil {
		ctx.Out.Warn("Could not write %s: %v", KubeconfigScript, err)
	} else {
		ctx.Out.Info("Run this to use the cluster from your shell:")
		ctx.Out.Command("source %s", KubeconfigScript)
	}

	kube, err := ctx.Kube()
	if err != nil {
		return err
	}
	namespaces, err := kube.Verify(ctx)
	if err != nil {
		return fmt.Errorf("cluster is not reachable with %s: %w", path, err)
	}
	ctx.Out.Success("Connected to the cluster (%d namespaces)", len(namespaces))
	return nil
}

// chooseContext settles the kubeconfig context. A context given in the
// configuration wins, otherwise the user picks one when several exist.
func chooseContext(ctx *Context, path string) error {
	current, names, err := k8s.Contexts(path)
	if err != nil {
		return err
	}

	chosen := ctx.Config.KubeContext
	if chosen == "" {
		chosen = current
		if len(names) > 1 && ctx.Deps.Prompter != nil {
			chosen, err = ctx.Deps.Prompter.SelectContext(ctx, names, current)
			if err != nil {
				return fmt.Errorf("context selection: %w", err)
			}
		}
	}
	if chosen == "" {
		chosen = names[0]
	}

	if chosen != current {
		if err := k8s.UseContext(path, chosen); err != nil {
			return err
		}
	}
	ctx.Config.KubeContext = chosen
	ctx.Out.Info("Using context %s", chosen)
	return nil
}

func writeKubeconfigScript(dir, kubeconfig string) error {
	abs, err := filepath.Abs(kubeconfig)
	if err != nil {
		abs = kubeconfig
	}
	script := fmt.Sprintf("export KUBECONFIG=%s\n", abs)
	// #nosec G306 - the script is meant to be sourced by the user
	return os.WriteFile(filepath.Join(dir, KubeconfigScript), []byte(script), 0o755)
}
