package naming

import (
	"fmt"
	"strconv"
	"time"
)

// Kubernetes objects created in the Hopsworks namespace.
const (
	ServiceAccount     = "hopsworks-sa"
	AdminRoleBinding   = "hopsworks-admin"
	DockerConfigMap    = "docker-config"
	RegistrySecret     = "regcred"
	BackupRegistry     = "hopsworks-registry-secret"
	GP3StorageClass    = "ebs-gp3"
	LBControllerName   = "aws-load-balancer-controller"
	GCPServiceAccount  = "hopsworksai-instances"
	GCPRolePrefix      = "hopsworksai.instances."
	AWSPolicyPrefix    = "hopsworks-policy-"
	BucketTagKey       = "hopsworks-cluster"
	ECRRepositoryImage = "hopsworks-base"
)

// Timestamp returns the suffix used for per-run resource names.
func Timestamp(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

// GCPRole is the custom IAM role granting Artifact Registry access.
func GCPRole(ts string) string {
	return GCPRolePrefix + ts
}

// GCPServiceAccountEmail is the email of the node service account.
func GCPServiceAccountEmail(project string) string {
	return fmt.Sprintf("%s@%s.iam.gserviceaccount.com", GCPServiceAccount, project)
}

// GCPRoleRef is the fully qualified custom role name used in bindings.
func GCPRoleRef(project, role string) string {
	return fmt.Sprintf("projects/%s/roles/%s", project, role)
}

// ArtifactRepository is the docker repository created per GKE cluster.
func ArtifactRepository(cluster, ts string) string {
	return ArtifactRepositoryPrefix(cluster) + "-" + ts
}

// ArtifactRepositoryPrefix matches the repositories of clusters whose name
// starts with cluster.
func ArtifactRepositoryPrefix(cluster string) string {
	return "hopsworks-" + cluster
}

// ArtifactRegistryDomain is the docker host for a region.
func ArtifactRegistryDomain(region string) string {
	return region + "-docker.pkg.dev"
}

// WorkloadIdentityMember binds a GCP service account to hopsworks-sa.
func WorkloadIdentityMember(project, namespace string) string {
	return fmt.Sprintf("serviceAccount:%s.svc.id.goog[%s/%s]", project, namespace, ServiceAccount)
}

// AWSPolicy is the IAM policy attached to the EKS node group.
func AWSPolicy(ts string) string {
	return AWSPolicyPrefix + ts
}

// ALBPolicyPrefix is the prefix of the load balancer controller policies
// of a cluster.
func ALBPolicyPrefix(cluster string) string {
	return fmt.Sprintf("AWSLoadBalancerControllerIAMPolicy-%s-", cluster)
}

// ALBPolicy is the IAM policy of the AWS Load Balancer Controller.
func ALBPolicy(cluster, ts string) string {
	return ALBPolicyPrefix(cluster) + ts
}

// ALBRole is the IRSA role of the AWS Load Balancer Controller.
func ALBRole(cluster string) string {
	return "AmazonEKSLoadBalancerControllerRole-" + cluster
}

// ECRNamespace is the repository namespace Hopsworks pushes images to.
func ECRNamespace(cluster string) string {
	return "hopsworks-" + cluster
}

// ECRRepository is the base image repository of a cluster.
func ECRRepository(cluster string) string {
	return ECRNamespace(cluster) + "/" + ECRRepositoryImage
}

// LegacyECRRepository is the repository name used by older installers.
func LegacyECRRepository(cluster string) string {
	return cluster + "/" + ECRRepositoryImage
}

// ClusterTag is the tag Kubernetes puts on cloud resources it owns.
func ClusterTag(cluster string) string {
	return "kubernetes.io/cluster/" + cluster
}

// PolicyARN builds a customer managed policy ARN.
func PolicyARN(account, policy string) string {
	return fmt.Sprintf("arn:aws:iam::%s:policy/%s", account, policy)
}

// Bucket is the default data bucket of an EKS installation.
func Bucket(cluster, ts string) string {
	return fmt.Sprintf("hopsworks-%s-%s", cluster, ts)
}
