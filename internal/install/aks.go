package install

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/hopsworks"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/k8s"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/azure"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/util/naming"
)

const aksPollInterval = 30 * time.Second

// ErrRegistryCredentials is returned when the Azure flow has no
// docker.hops.works credentials and cannot ask for them.
var ErrRegistryCredentials = errors.New("registry username and password are required for Azure")

// setupAKS creates the resource group and cluster, then the service
// account and role binding the chart expects.
func setupAKS(ctx *Context) error {
	const phase = "environment"
	cfg := ctx.Config
	client := azure.NewClient(ctx.Deps.Runner, cfg.Azure.ResourceGroup)

	acct, err := client.Account(ctx)
	if err != nil {
		return err
	}
	ctx.Out.Success("Using Azure subscription %s", acct.Name)

	made, err := client.EnsureResourceGroup(ctx, cfg.Azure.Location)
	if err != nil {
		return err
	}
	if made {
		created(ctx.Observer, phase, "resource group", client.ResourceGroup())
	} else {
		exists(ctx.Observer, phase, "resource group", client.ResourceGroup())
	}

	creating(ctx.Observer, phase, "AKS cluster", cfg.ClusterName)
	err = client.CreateCluster(ctx, azure.ClusterSpec{
		Name:        cfg.ClusterName,
		Location:    cfg.Azure.Location,
		Nodes:       cfg.Nodes.Count,
		MachineType: cfg.Nodes.MachineType,
	})
	if err != nil {
		return err
	}
	last := ""
	err = client.WaitForCluster(ctx, cfg.ClusterName, aksPollInterval, ctx.Timeouts.AKSProvisioning, func(state string) {
		if state != last {
			ctx.Out.Info("Cluster state: %s", state)
			last = state
		}
	})
	if err != nil {
		return err
	}
	created(ctx.Observer, phase, "AKS cluster", cfg.ClusterName)

	exportKubeconfig(cfg.Kubeconfig)
	if err := client.GetCredentials(ctx, cfg.ClusterName); err != nil {
		return err
	}
	if err := useKubeconfig(ctx, cfg.Kubeconfig, false); err != nil {
		return err
	}

	kube, err := ctx.Kube()
	if err != nil {
		return err
	}
	if _, err := kube.EnsureNamespace(ctx, cfg.Namespace, namespaceTimeout); err != nil {
		return err
	}
	if err := kube.EnsureServiceAccount(ctx, cfg.Namespace, naming.ServiceAccount, nil); err != nil {
		return err
	}
	if err := kube.EnsureAdminRoleBinding(ctx, cfg.Namespace, naming.AdminRoleBinding, naming.ServiceAccount); err != nil {
		return err
	}
	created(ctx.Observer, phase, "service account", cfg.Namespace+"/"+naming.ServiceAccount)
	return nil
}

// aksRegistry stores the docker.hops.works credentials as pull secrets.
// regcred is required, the backup secret is best effort.
func aksRegistry(ctx *Context) error {
	cfg := ctx.Config
	user, pass := cfg.Registry.Username, cfg.Registry.Password
	if user == "" || pass == "" {
		if ctx.Deps.Prompter == nil {
			return ErrRegistryCredentials
		}
		var err error
		user, pass, err = ctx.Deps.Prompter.RegistryCredentials(ctx)
		if err != nil {
			return fmt.Errorf("registry credentials: %w", err)
		}
	}
	if strings.TrimSpace(user) == "" || pass == "" {
		return ErrRegistryCredentials
	}

	kube, err := ctx.Kube()
	if err != nil {
		return err
	}
	if _, err := kube.EnsureNamespace(ctx, cfg.Namespace, namespaceTimeout); err != nil {
		return err
	}
	creds := k8s.RegistryCredentials{
		Server:   hopsworks.RegistryServer,
		Username: user,
		Password: pass,
		Email:    hopsworks.RegistryEmail,
	}
	if err := kube.ReplaceRegistrySecret(ctx, cfg.Namespace, naming.RegistrySecret, creds); err != nil {
		return err
	}
	created(ctx.Observer, "registry", "secret", naming.RegistrySecret)
	if err := kube.ReplaceRegistrySecret(ctx, cfg.Namespace, naming.BackupRegistry, creds); err != nil {
		ctx.Out.Warn("Backup registry secret was not created: %v", err)
	}
	return nil
}
