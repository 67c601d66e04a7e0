package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"gopkg.in/yaml.v3"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/util/naming"
)

// Upstream locations of the load balancer controller policy and the
// metrics-server manifest.
const (
	ALBPolicyURL        = "https://raw.githubusercontent.com/kubernetes-sigs/aws-load-balancer-controller/v2.7.2/docs/install/iam_policy.json"
	MetricsServerURL    = "https://github.com/kubernetes-sigs/metrics-server/releases/latest/download/high-availability-1.21+.yaml"
	EKSChartsRepoName   = "eks"
	EKSChartsRepoURL    = "https://aws.github.io/eks-charts"
	ALBControllerChart  = "eks/aws-load-balancer-controller"
	DefaultEKSVersion   = "1.29"
	albControllerImages = "602401143452.dkr.ecr.%s.amazonaws.com/amazon/aws-load-balancer-controller"
)

// EnsureECRRepository returns the URI of an ECR repository, creating it
// when it does not exist yet.
func (c *Client) EnsureECRRepository(ctx context.Context, name string) (string, error) {
	var described struct {
		Repositories []struct {
			RepositoryURI string `json:"repositoryUri"`
		} `json:"repositories"`
	}
	err := c.awsJSON(ctx, &described, "ecr", "describe-repositories", "--repository-names", name)
	if err == nil && len(described.Repositories) > 0 {
		return described.Repositories[0].RepositoryURI, nil
	}
	if err != nil && !errorCode(err, "RepositoryNotFoundException") {
		return "", fmt.Errorf("failed to describe ECR repository %s: %w", name, err)
	}

	var created struct {
		Repository struct {
			RepositoryURI string `json:"repositoryUri"`
		} `json:"repository"`
	}
	if err := c.awsJSON(ctx, &created, "ecr", "create-repository", "--repository-name", name); err != nil {
		return "", fmt.Errorf("failed to create ECR repository %s: %w", name, err)
	}
	return created.Repository.RepositoryURI, nil
}

// RegistryDomain returns the registry host of an ECR repository URI.
func RegistryDomain(repositoryURI string) string {
	host, _, _ := strings.Cut(repositoryURI, "/")
	return host
}

type policyStatement struct {
	Sid      string   `json:"Sid"`
	Effect   string   `json:"Effect"`
	Action   []string `json:"Action"`
	Resource any      `json:"Resource"`
}

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

// PolicyDocument renders the node group policy granting access to the
// data bucket, the Hopsworks ECR repositories and load balancer APIs.
func PolicyDocument(bucket, region, account string) ([]byte, error) {
	doc := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{
			{
				Sid:    "HopsworksS3Access",
				Effect: "Allow",
				Action: []string{
					"S3:PutObject", "S3:ListBucket", "S3:GetObject", "S3:DeleteObject",
					"S3:AbortMultipartUpload", "S3:ListBucketMultipartUploads",
					"S3:PutLifecycleConfiguration", "S3:GetLifecycleConfiguration",
					"S3:PutBucketVersioning", "S3:GetBucketVersioning",
					"S3:ListBucketVersions", "S3:DeleteObjectVersion",
				},
				Resource: []string{
					fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
					fmt.Sprintf("arn:aws:s3:::%s", bucket),
				},
			},
			{
				Sid:    "HopsworksECRAccess",
				Effect: "Allow",
				Action: []string{
					"ecr:GetDownloadUrlForLayer", "ecr:BatchGetImage",
					"ecr:CompleteLayerUpload", "ecr:UploadLayerPart",
					"ecr:InitiateLayerUpload", "ecr:BatchCheckLayerAvailability",
					"ecr:PutImage", "ecr:ListImages", "ecr:BatchDeleteImage",
					"ecr:GetLifecyclePolicy", "ecr:PutLifecyclePolicy",
					"ecr:TagResource",
				},
				Resource: []string{
					fmt.Sprintf("arn:aws:ecr:%s:%s:repository/*/%s", region, account, naming.ECRRepositoryImage),
				},
			},
			{
				Sid:      "HopsworksECRAuthToken",
				Effect:   "Allow",
				Action:   []string{"ecr:GetAuthorizationToken"},
				Resource: "*",
			},
			{
				Sid:    "LoadBalancerAccess",
				Effect: "Allow",
				Action: []string{
					"elasticloadbalancing:*", "ec2:CreateTags", "ec2:DeleteTags",
					"ec2:DescribeAccountAttributes", "ec2:DescribeAddresses",
					"ec2:DescribeInstances", "ec2:DescribeInternetGateways",
					"ec2:DescribeNetworkInterfaces", "ec2:DescribeSecurityGroups",
					"ec2:DescribeSubnets", "ec2:DescribeTags", "ec2:DescribeVpcs",
					"ec2:ModifyNetworkInterfaceAttribute",
					"ec2:DescribeInstanceTypes", "ec2:DescribeInstanceTypeOfferings",
					"iam:CreateServiceLinkedRole", "iam:ListServerCertificates",
					"cognito-idp:DescribeUserPoolClient",
					"acm:ListCertificates", "acm:DescribeCertificate",
					"waf-regional:*", "wafv2:*", "shield:*",
				},
				Resource: "*",
			},
		},
	}
	return json.MarshalIndent(doc, "", "  ")
}

// CreatePolicy creates a customer managed IAM policy and returns its ARN.
// A policy that already exists under the same name is reused.
func (c *Client) CreatePolicy(ctx context.Context, account, name string, document []byte) (string, error) {
	path, cleanup, err := writeTemp("hopsworks-policy-*.json", document)
	if err != nil {
		return "", err
	}
	defer cleanup()

	var out struct {
		Policy struct {
			Arn string `json:"Arn"`
		} `json:"Policy"`
	}
	err = c.awsJSON(ctx, &out, "iam", "create-policy", "--policy-name", name, "--policy-document", "file://"+path)
	switch {
	case err == nil:
		return out.Policy.Arn, nil
	case errorCode(err, "EntityAlreadyExists"):
		return naming.PolicyARN(account, name), nil
	default:
		return "", fmt.Errorf("failed to create IAM policy %s: %w", name, err)
	}
}

// ClusterSpec sizes a new EKS cluster.
type ClusterSpec struct {
	Name              string
	KubernetesVersion string
	InstanceType      string
	Nodes             int
	// PolicyARN is attached to the node group next to the EKS worker
	// policies.
	PolicyARN string
}

type eksctlConfig struct {
	APIVersion        string            `yaml:"apiVersion"`
	Kind              string            `yaml:"kind"`
	Metadata          eksctlMetadata    `yaml:"metadata"`
	IAM               eksctlClusterIAM  `yaml:"iam"`
	Addons            []eksctlAddon     `yaml:"addons"`
	ManagedNodeGroups []eksctlNodeGroup `yaml:"managedNodeGroups"`
}

type eksctlMetadata struct {
	Name    string `yaml:"name"`
	Region  string `yaml:"region"`
	Version string `yaml:"version"`
}

type eksctlClusterIAM struct {
	WithOIDC bool `yaml:"withOIDC"`
}

type eksctlAddon struct {
	Name              string          `yaml:"name"`
	WellKnownPolicies map[string]bool `yaml:"wellKnownPolicies"`
}

type eksctlNodeGroup struct {
	Name         string          `yaml:"name"`
	AMIFamily    string          `yaml:"amiFamily"`
	InstanceType string          `yaml:"instanceType"`
	MinSize      int             `yaml:"minSize"`
	MaxSize      int             `yaml:"maxSize"`
	VolumeSize   int             `yaml:"volumeSize"`
	SSH          map[string]bool `yaml:"ssh"`
	IAM          eksctlNodeIAM   `yaml:"iam"`
}

type eksctlNodeIAM struct {
	AttachPolicyARNs  []string        `yaml:"attachPolicyARNs"`
	WithAddonPolicies map[string]bool `yaml:"withAddonPolicies"`
}

// ClusterConfig renders the eksctl ClusterConfig for spec in the client's
// region.
func (c *Client) ClusterConfig(spec ClusterSpec) ([]byte, error) {
	version := spec.KubernetesVersion
	if version == "" {
		version = DefaultEKSVersion
	}
	cfg := eksctlConfig{
		APIVersion: "eksctl.io/v1alpha5",
		Kind:       "ClusterConfig",
		Metadata:   eksctlMetadata{Name: spec.Name, Region: c.region, Version: version},
		IAM:        eksctlClusterIAM{WithOIDC: true},
		Addons: []eksctlAddon{{
			Name:              "aws-ebs-csi-driver",
			WellKnownPolicies: map[string]bool{"ebsCSIController": true},
		}},
		ManagedNodeGroups: []eksctlNodeGroup{{
			Name:         "ng-1",
			AMIFamily:    "AmazonLinux2023",
			InstanceType: spec.InstanceType,
			MinSize:      spec.Nodes,
			MaxSize:      spec.Nodes,
			VolumeSize:   100,
			SSH:          map[string]bool{"allow": true},
			IAM: eksctlNodeIAM{
				AttachPolicyARNs: []string{
					"arn:aws:iam::aws:policy/AmazonEKSWorkerNodePolicy",
					"arn:aws:iam::aws:policy/AmazonEKS_CNI_Policy",
					"arn:aws:iam::aws:policy/AmazonEC2ContainerRegistryReadOnly",
					spec.PolicyARN,
				},
				WithAddonPolicies: map[string]bool{"awsLoadBalancerController": true},
			},
		}},
	}
	return yaml.Marshal(cfg)
}

// CreateCluster creates an EKS cluster with eksctl and waits for it.
func (c *Client) CreateCluster(ctx context.Context, spec ClusterSpec) error {
	data, err := c.ClusterConfig(spec)
	if err != nil {
		return fmt.Errorf("failed to render eksctl config: %w", err)
	}
	path, cleanup, err := writeTemp("eksctl-*.yaml", data)
	if err != nil {
		return err
	}
	defer cleanup()

	args := []string{"create", "cluster", "-f", path}
	if c.profile != "" {
		args = append(args, "--profile", c.profile)
	}
	if _, err := c.run.Run(ctx, "eksctl", args...); err != nil {
		return fmt.Errorf("failed to create EKS cluster %s: %w", spec.Name, err)
	}
	return nil
}

// UpdateKubeconfig writes kubeconfig credentials for a cluster.
func (c *Client) UpdateKubeconfig(ctx context.Context, name string) error {
	if _, err := c.aws(ctx, "eks", "update-kubeconfig", "--name", name); err != nil {
		return fmt.Errorf("failed to update kubeconfig for %s: %w", name, err)
	}
	return nil
}

// ClusterVPC returns the VPC id of an EKS cluster.
func (c *Client) ClusterVPC(ctx context.Context, name string) (string, error) {
	var out struct {
		Cluster struct {
			ResourcesVpcConfig struct {
				VpcID string `json:"vpcId"`
			} `json:"resourcesVpcConfig"`
		} `json:"cluster"`
	}
	if err := c.awsJSON(ctx, &out, "eks", "describe-cluster", "--name", name); err != nil {
		return "", fmt.Errorf("failed to describe EKS cluster %s: %w", name, err)
	}
	return out.Cluster.ResourcesVpcConfig.VpcID, nil
}

// FetchALBPolicy downloads the IAM policy document of the AWS Load
// Balancer Controller.
func (c *Client) FetchALBPolicy(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download load balancer controller policy: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download load balancer controller policy: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read load balancer controller policy: %w", err)
	}
	return body, nil
}

// CreateALBServiceAccount creates the IRSA service account of the load
// balancer controller in kube-system.
func (c *Client) CreateALBServiceAccount(ctx context.Context, cluster, policyARN string) error {
	args := []string{"create", "iamserviceaccount",
		"--cluster=" + cluster,
		"--namespace=kube-system",
		"--name=" + naming.LBControllerName,
		"--role-name=" + naming.ALBRole(cluster),
		"--attach-policy-arn=" + policyARN,
		"--override-existing-serviceaccounts",
		"--approve",
		"--region=" + c.region,
	}
	if c.profile != "" {
		args = append(args, "--profile="+c.profile)
	}
	if _, err := c.run.Run(ctx, "eksctl", args...); err != nil {
		return fmt.Errorf("failed to create load balancer controller service account: %w", err)
	}
	return nil
}

// ALBControllerSettings are the chart values of the load balancer
// controller as key=value pairs.
func ALBControllerSettings(cluster, region, vpcID string) []string {
	return []string{
		"clusterName=" + cluster,
		"serviceAccount.create=false",
		"serviceAccount.name=" + naming.LBControllerName,
		"region=" + region,
		"vpcId=" + vpcID,
		"image.repository=" + fmt.Sprintf(albControllerImages, region),
		"enableServiceMutatorWebhook=false",
	}
}

// ApplyMetricsServer applies the upstream metrics-server manifest.
func (c *Client) ApplyMetricsServer(ctx context.Context, kubeconfig string) error {
	args := []string{"apply", "-f", MetricsServerURL}
	if kubeconfig != "" {
		args = append(args, "--kubeconfig", kubeconfig)
	}
	if _, err := c.run.Run(ctx, "kubectl", args...); err != nil {
		return fmt.Errorf("failed to apply metrics-server: %w", err)
	}
	return nil
}

// writeTemp writes data to a new temporary file. The returned cleanup
// removes it.
func writeTemp(pattern string, data []byte) (string, func(), error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to write %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to write %s: %w", f.Name(), err)
	}
	return f.Name(), cleanup, nil
}
