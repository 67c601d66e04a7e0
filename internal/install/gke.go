package install

import (
	"fmt"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/hopsworks"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/gcp"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/util/naming"
)

// gkeServiceAccountAnnotation binds hopsworks-sa to a GCP service account.
const gkeServiceAccountAnnotation = "iam.gke.io/gcp-service-account"

func gkeLocation(cfg *config.Config) string {
	if cfg.Zone != "" {
		return cfg.Zone
	}
	return cfg.Region
}

// setupGKE creates the Artifact Registry role and node service account,
// then the cluster running as that account.
func setupGKE(ctx *Context) error {
	const phase = "environment"
	cfg := ctx.Config
	client := gcp.NewClient(ctx.Deps.Runner, cfg.GCP.ProjectID)

	role := naming.GCPRole(ctx.State.Timestamp)
	creating(ctx.Observer, phase, "IAM role", role)
	if err := client.CreateRole(ctx, role); err != nil {
		return err
	}
	created(ctx.Observer, phase, "IAM role", role)

	email, made, err := client.EnsureServiceAccount(ctx)
	if err != nil {
		return err
	}
	if made {
		created(ctx.Observer, phase, "service account", email)
	} else {
		exists(ctx.Observer, phase, "service account", email)
	}
	if err := client.BindRole(ctx, email, role); err != nil {
		return err
	}
	ctx.State.GCPServiceAccount = email

	location := gkeLocation(cfg)
	creating(ctx.Observer, phase, "GKE cluster", cfg.ClusterName)
	ctx.Out.Info("This takes several minutes")
	err = client.CreateCluster(ctx, gcp.ClusterSpec{
		Name:           cfg.ClusterName,
		Zone:           location,
		MachineType:    cfg.Nodes.MachineType,
		Nodes:          cfg.Nodes.Count,
		ServiceAccount: email,
	})
	if err != nil {
		return err
	}
	created(ctx.Observer, phase, "GKE cluster", cfg.ClusterName)

	exportKubeconfig(cfg.Kubeconfig)
	if err := client.GetCredentials(ctx, cfg.ClusterName, location); err != nil {
		return err
	}
	return useKubeconfig(ctx, cfg.Kubeconfig, false)
}

// gkeRegistry creates the Artifact Registry repository Hopsworks pushes
// images to and lets hopsworks-sa use it through workload identity.
func gkeRegistry(ctx *Context) error {
	const phase = "registry"
	cfg := ctx.Config
	client := gcp.NewClient(ctx.Deps.Runner, cfg.GCP.ProjectID)

	email := ctx.State.GCPServiceAccount
	if email == "" {
		email = naming.GCPServiceAccountEmail(cfg.GCP.ProjectID)
		ctx.State.GCPServiceAccount = email
	}

	region := config.RegionFromZone(gkeLocation(cfg))
	repo := naming.ArtifactRepository(cfg.ClusterName, ctx.State.Timestamp)
	creating(ctx.Observer, phase, "artifact repository", repo)
	if err := client.CreateArtifactRepository(ctx, repo, region); err != nil {
		return err
	}
	created(ctx.Observer, phase, "artifact repository", repo)

	domain := naming.ArtifactRegistryDomain(region)
	ctx.State.Registry = &hopsworks.ManagedRegistry{
		Domain:    domain,
		Namespace: cfg.GCP.ProjectID + "/" + repo,
	}

	kube, err := ctx.Kube()
	if err != nil {
		return err
	}
	if _, err := kube.EnsureNamespace(ctx, cfg.Namespace, namespaceTimeout); err != nil {
		return err
	}
	annotations := map[string]string{gkeServiceAccountAnnotation: email}
	if err := kube.EnsureServiceAccount(ctx, cfg.Namespace, naming.ServiceAccount, annotations); err != nil {
		return err
	}
	if err := client.BindWorkloadIdentity(ctx, email, cfg.Namespace); err != nil {
		return err
	}
	data := map[string]string{"config.json": gcp.DockerConfig(domain)}
	if err := kube.ApplyConfigMap(ctx, cfg.Namespace, naming.DockerConfigMap, data); err != nil {
		return err
	}
	ctx.Out.Success("Workload identity for %s/%s bound to %s", cfg.Namespace, naming.ServiceAccount, email)

	// Only the local docker CLI depends on this.
	if err := client.ConfigureDocker(ctx, domain); err != nil {
		ctx.Out.Warn("%v", err)
		ctx.Out.Command("gcloud auth configure-docker %s", domain)
	}
	ctx.Out.Success("Registry %s", fmt.Sprintf("%s/%s", domain, ctx.State.Registry.Namespace))
	return nil
}
