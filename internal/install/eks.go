package install

import (
	"fmt"
	"time"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/helm"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/hopsworks"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/aws"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/util/naming"
)

const (
	// iamPropagation is how long a new IAM policy takes to be usable.
	iamPropagation = 10 * time.Second

	albNamespace     = "kube-system"
	albInstallWait   = 10 * time.Minute
	albReadyInterval = 10 * time.Second
	albReadyTimeout  = 2 * time.Minute

	metricsServer        = "metrics-server"
	metricsServerTLSFlag = "--kubelet-insecure-tls"
)

func (c *Context) awsClient() (*aws.Client, error) {
	if c.State.awsClient != nil {
		return c.State.awsClient, nil
	}
	client, err := c.Deps.NewAWS(c, c.Deps.Runner, c.Config.AWS.Profile, c.Config.Region)
	if err != nil {
		return nil, err
	}
	c.State.awsClient = client
	return client, nil
}

// setupEKS creates the data bucket, the node policy and the cluster, then
// installs the load balancer controller Hopsworks relies on.
func setupEKS(ctx *Context) error {
	const phase = "environment"
	cfg := ctx.Config

	client, err := ctx.awsClient()
	if err != nil {
		return err
	}
	id, err := client.Identity(ctx)
	if err != nil {
		return err
	}
	cfg.AWS.AccountID = id.Account
	ctx.Out.Success("Using AWS account %s as %s", id.Account, id.Arn)

	if cfg.AWS.BucketName == "" {
		cfg.AWS.BucketName = naming.Bucket(cfg.ClusterName, ctx.State.Timestamp)
	}
	buckets, err := ctx.Deps.NewBuckets(ctx, cfg.AWS.Profile, cfg.Region)
	if err != nil {
		return err
	}
	creating(ctx.Observer, phase, "S3 bucket", cfg.AWS.BucketName)
	tags := map[string]string{naming.BucketTagKey: cfg.ClusterName}
	if err := buckets.CreateBucket(ctx, cfg.AWS.BucketName, tags); err != nil {
		return err
	}
	created(ctx.Observer, phase, "S3 bucket", cfg.AWS.BucketName)

	doc, err := aws.PolicyDocument(cfg.AWS.BucketName, cfg.Region, id.Account)
	if err != nil {
		return fmt.Errorf("failed to render IAM policy: %w", err)
	}
	policy := naming.AWSPolicy(ctx.State.Timestamp)
	creating(ctx.Observer, phase, "IAM policy", policy)
	policyARN, err := client.CreatePolicy(ctx, id.Account, policy, doc)
	if err != nil {
		return err
	}
	created(ctx.Observer, phase, "IAM policy", policy)
	ctx.Out.Info("Waiting for the IAM policy to propagate")
	if err := ctx.Deps.Sleep(ctx, iamPropagation); err != nil {
		return err
	}

	creating(ctx.Observer, phase, "EKS cluster", cfg.ClusterName)
	ctx.Out.Info("eksctl takes 15 to 20 minutes")
	err = client.CreateCluster(ctx, aws.ClusterSpec{
		Name:              cfg.ClusterName,
		KubernetesVersion: cfg.AWS.KubernetesVersion,
		InstanceType:      cfg.Nodes.MachineType,
		Nodes:             cfg.Nodes.Count,
		PolicyARN:         policyARN,
	})
	if err != nil {
		return err
	}
	created(ctx.Observer, phase, "EKS cluster", cfg.ClusterName)

	exportKubeconfig(cfg.Kubeconfig)
	if err := client.UpdateKubeconfig(ctx, cfg.ClusterName); err != nil {
		return err
	}
	if err := useKubeconfig(ctx, cfg.Kubeconfig, false); err != nil {
		return err
	}

	kube, err := ctx.Kube()
	if err != nil {
		return err
	}
	if err := kube.EnsureGP3StorageClass(ctx, naming.GP3StorageClass); err != nil {
		return err
	}
	created(ctx.Observer, phase, "storage class", naming.GP3StorageClass)

	return installALBController(ctx, client, id.Account)
}

// installALBController sets up the AWS Load Balancer Controller with its
// IRSA role, and metrics-server.
func installALBController(ctx *Context, client *aws.Client, account string) error {
	const phase = "environment"
	cluster := ctx.Config.ClusterName

	doc, err := client.FetchALBPolicy(ctx, ctx.Deps.ALBPolicyURL)
	if err != nil {
		return err
	}
	policy := naming.ALBPolicy(cluster, ctx.State.Timestamp)
	creating(ctx.Observer, phase, "IAM policy", policy)
	policyARN, err := client.CreatePolicy(ctx, account, policy, doc)
	if err != nil {
		return err
	}
	created(ctx.Observer, phase, "IAM policy", policy)

	if err := client.CreateALBServiceAccount(ctx, cluster, policyARN); err != nil {
		return err
	}
	created(ctx.Observer, phase, "IAM role", naming.ALBRole(cluster))

	vpcID, err := client.ClusterVPC(ctx, cluster)
	if err != nil {
		return err
	}

	h, err := ctx.Helm(albNamespace)
	if err != nil {
		return err
	}
	if err := h.AddRepo(aws.EKSChartsRepoName, aws.EKSChartsRepoURL); err != nil {
		return err
	}
	if err := h.UpdateRepos(); err != nil {
		return err
	}
	values, err := helm.ParseSetArgs(aws.ALBControllerSettings(cluster, client.Region(), vpcID))
	if err != nil {
		return err
	}
	creating(ctx.Observer, phase, "helm release", naming.LBControllerName)
	_, err = h.InstallOrUpgrade(ctx, helm.InstallOptions{
		ReleaseName: naming.LBControllerName,
		Chart:       aws.ALBControllerChart,
		Timeout:     albInstallWait,
		Values:      values,
	})
	if err != nil {
		return err
	}
	created(ctx.Observer, phase, "helm release", naming.LBControllerName)

	kube, err := ctx.Kube()
	if err != nil {
		return err
	}
	if err := client.ApplyMetricsServer(ctx, ctx.kubeconfig()); err != nil {
		ctx.Out.Warn("metrics-server was not installed: %v", err)
	} else if _, err := kube.EnsureDeploymentArg(ctx, albNamespace, metricsServer, metricsServer, metricsServerTLSFlag); err != nil {
		ctx.Out.Warn("Could not patch metrics-server: %v", err)
	}

	err = kube.WaitForDeploymentReady(ctx, albNamespace, naming.LBControllerName, albReadyInterval, albReadyTimeout)
	if err != nil {
		ctx.Out.Warn("%v", err)
		ctx.Out.Command("kubectl get deployment -n %s %s", albNamespace, naming.LBControllerName)
		return nil
	}
	ctx.Out.Success("Load balancer controller is ready")
	return nil
}

// eksRegistry creates the ECR repository Hopsworks pushes images to.
func eksRegistry(ctx *Context) error {
	client, err := ctx.awsClient()
	if err != nil {
		return err
	}
	cluster := ctx.Config.ClusterName
	repo := naming.ECRRepository(cluster)

	creating(ctx.Observer, "registry", "ECR repository", repo)
	uri, err := client.EnsureECRRepository(ctx, repo)
	if err != nil {
		return err
	}
	created(ctx.Observer, "registry", "ECR repository", repo)

	ctx.State.Registry = &hopsworks.ManagedRegistry{
		Domain:    aws.RegistryDomain(uri),
		Namespace: naming.ECRNamespace(cluster),
	}
	return nil
}
