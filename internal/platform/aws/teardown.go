package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/util/naming"
)

type tag struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

type tagDescriptions struct {
	TagDescriptions []struct {
		Tags []tag `json:"Tags"`
	} `json:"TagDescriptions"`
}

func (t tagDescriptions) has(key string) bool {
	for _, d := range t.TagDescriptions {
		for _, tg := range d.Tags {
			if tg.Key == key {
				return true
			}
		}
	}
	return false
}

// EKSCluster is an EKS control plane.
type EKSCluster struct {
	Name   string
	Status string
	VpcID  string
}

// DescribeCluster returns the cluster or nil when it does not exist.
func (c *Client) DescribeCluster(ctx context.Context, name string) (*EKSCluster, error) {
	var out struct {
		Cluster struct {
			Name               string `json:"name"`
			Status             string `json:"status"`
			ResourcesVpcConfig struct {
				VpcID string `json:"vpcId"`
			} `json:"resourcesVpcConfig"`
		} `json:"cluster"`
	}
	if err := c.awsJSON(ctx, &out, "eks", "describe-cluster", "--name", name); err != nil {
		if errorCode(err, "ResourceNotFoundException") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to describe EKS cluster %s: %w", name, err)
	}
	return &EKSCluster{
		Name:   out.Cluster.Name,
		Status: out.Cluster.Status,
		VpcID:  out.Cluster.ResourcesVpcConfig.VpcID,
	}, nil
}

// DeleteCluster deletes the cluster and its eksctl stacks. wait blocks
// until CloudFormation finished.
func (c *Client) DeleteCluster(ctx context.Context, name string, wait bool) error {
	args := []string{"delete", "cluster", "--name", name, "--region", c.region}
	if c.profile != "" {
		args = append(args, "--profile", c.profile)
	}
	if wait {
		args = append(args, "--wait")
	}
	_, err := c.run.Run(ctx, "eksctl", args...)
	return err
}

// LoadBalancer is a classic ELB or an ALB/NLB.
type LoadBalancer struct {
	Name    string
	ARN     string
	DNSName string
	Classic bool
}

// ListLoadBalancers returns the load balancers in vpcID tagged for cluster.
func (c *Client) ListLoadBalancers(ctx context.Context, cluster, vpcID string) ([]LoadBalancer, error) {
	key := naming.ClusterTag(cluster)

	var classic struct {
		LoadBalancerDescriptions []struct {
			LoadBalancerName string `json:"LoadBalancerName"`
			DNSName          string `json:"DNSName"`
			VPCId            string `json:"VPCId"`
		} `json:"LoadBalancerDescriptions"`
	}
	if err := c.awsJSON(ctx, &classic, "elb", "describe-load-balancers"); err != nil {
		return nil, fmt.Errorf("failed to list classic load balancers: %w", err)
	}

	var out []LoadBalancer
	for _, lb := range classic.LoadBalancerDescriptions {
		if lb.VPCId != vpcID {
			continue
		}
		var tags tagDescriptions
		if err := c.awsJSON(ctx, &tags, "elb", "describe-tags", "--load-balancer-names", lb.LoadBalancerName); err != nil {
			return nil, fmt.Errorf("failed to read tags of %s: %w", lb.LoadBalancerName, err)
		}
		if tags.has(key) {
			out = append(out, LoadBalancer{Name: lb.LoadBalancerName, DNSName: lb.DNSName, Classic: true})
		}
	}

	var v2 struct {
		LoadBalancers []struct {
			LoadBalancerArn  string `json:"LoadBalancerArn"`
			LoadBalancerName string `json:"LoadBalancerName"`
			DNSName          string `json:"DNSName"`
			VpcID            string `json:"VpcId"`
		} `json:"LoadBalancers"`
	}
	if err := c.awsJSON(ctx, &v2, "elbv2", "describe-load-balancers"); err != nil {
		return nil, fmt.Errorf("failed to list load balancers: %w", err)
	}
	for _, lb := range v2.LoadBalancers {
		if lb.VpcID != vpcID {
			continue
		}
		ok, err := c.elbv2Tagged(ctx, lb.LoadBalancerArn, key)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, LoadBalancer{Name: lb.LoadBalancerName, ARN: lb.LoadBalancerArn, DNSName: lb.DNSName})
		}
	}
	return out, nil
}

func (c *Client) elbv2Tagged(ctx context.Context, arn, key string) (bool, error) {
	var tags tagDescriptions
	if err := c.awsJSON(ctx, &tags, "elbv2", "describe-tags", "--resource-arns", arn); err != nil {
		return false, fmt.Errorf("failed to read tags of %s: %w", arn, err)
	}
	return tags.has(key), nil
}

// DeleteLoadBalancer deletes a classic or v2 load balancer.
func (c *Client) DeleteLoadBalancer(ctx context.Context, lb LoadBalancer) error {
	var err error
	if lb.Classic {
		_, err = c.aws(ctx, "elb", "delete-load-balancer", "--load-balancer-name", lb.Name)
	} else {
		_, err = c.aws(ctx, "elbv2", "delete-load-balancer", "--load-balancer-arn", lb.ARN)
	}
	return err
}

// TargetGroup is an ELBv2 target group.
type TargetGroup struct {
	Name string
	ARN  string
}

// ListTargetGroups returns the target groups tagged for cluster.
func (c *Client) ListTargetGroups(ctx context.Context, cluster string) ([]TargetGroup, error) {
	var groups struct {
		TargetGroups []struct {
			TargetGroupArn  string `json:"TargetGroupArn"`
			TargetGroupName string `json:"TargetGroupName"`
		} `json:"TargetGroups"`
	}
	if err := c.awsJSON(ctx, &groups, "elbv2", "describe-target-groups"); err != nil {
		return nil, fmt.Errorf("failed to list target groups: %w", err)
	}

	key := naming.ClusterTag(cluster)
	var out []TargetGroup
	for _, tg := range groups.TargetGroups {
		ok, err := c.elbv2Tagged(ctx, tg.TargetGroupArn, key)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, TargetGroup{Name: tg.TargetGroupName, ARN: tg.TargetGroupArn})
		}
	}
	return out, nil
}

// DeleteTargetGroup deletes a target group.
func (c *Client) DeleteTargetGroup(ctx context.Context, arn string) error {
	_, err := c.aws(ctx, "elbv2", "delete-target-group", "--target-group-arn", arn)
	return err
}

// SecurityGroup is an EC2 security group.
type SecurityGroup struct {
	ID          string `json:"GroupId"`
	Name        string `json:"GroupName"`
	Description string `json:"Description"`
}

// ListSecurityGroups returns security groups in vpcID that Kubernetes
// created for cluster (tag value owned or shared).
func (c *Client) ListSecurityGroups(ctx context.Context, cluster, vpcID string) ([]SecurityGroup, error) {
	var out struct {
		SecurityGroups []SecurityGroup `json:"SecurityGroups"`
	}
	err := c.awsJSON(ctx, &out, "ec2", "describe-security-groups", "--filters",
		"Name=vpc-id,Values="+vpcID,
		"Name=tag:"+naming.ClusterTag(cluster)+",Values=owned,shared",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list security groups: %w", err)
	}
	return out.SecurityGroups, nil
}

// DeleteSecurityGroup deletes a security group. A group that is already
// gone is not an error.
func (c *Client) DeleteSecurityGroup(ctx context.Context, id string) error {
	_, err := c.aws(ctx, "ec2", "delete-security-group", "--group-id", id)
	if err != nil && errorCode(err, "InvalidGroup.NotFound") {
		return nil
	}
	return err
}

// RoleExists reports whether an IAM role exists.
func (c *Client) RoleExists(ctx context.Context, name string) (bool, error) {
	if _, err := c.aws(ctx, "iam", "get-role", "--role-name", name); err != nil {
		if errorCode(err, "NoSuchEntity") {
			return false, nil
		}
		return false, fmt.Errorf("failed to get IAM role %s: %w", name, err)
	}
	return true, nil
}

// DeleteRole detaches every managed policy, removes inline policies and
// deletes the role.
func (c *Client) DeleteRole(ctx context.Context, name string) error {
	var attached struct {
		AttachedPolicies []struct {
			PolicyArn string `json:"PolicyArn"`
		} `json:"AttachedPolicies"`
	}
	if err := c.awsJSON(ctx, &attached, "iam", "list-attached-role-policies", "--role-name", name); err != nil {
		return fmt.Errorf("failed to list policies of role %s: %w", name, err)
	}
	for _, p := range attached.AttachedPolicies {
		if _, err := c.aws(ctx, "iam", "detach-role-policy", "--role-name", name, "--policy-arn", p.PolicyArn); err != nil {
			return fmt.Errorf("failed to detach %s from role %s: %w", p.PolicyArn, name, err)
		}
	}

	var inline struct {
		PolicyNames []string `json:"PolicyNames"`
	}
	if err := c.awsJSON(ctx, &inline, "iam", "list-role-policies", "--role-name", name); err != nil {
		return fmt.Errorf("failed to list inline policies of role %s: %w", name, err)
	}
	for _, p := range inline.PolicyNames {
		if _, err := c.aws(ctx, "iam", "delete-role-policy", "--role-name", name, "--policy-name", p); err != nil {
			return fmt.Errorf("failed to delete inline policy %s: %w", p, err)
		}
	}

	_, err := c.aws(ctx, "iam", "delete-role", "--role-name", name)
	return err
}

// Policy is a customer managed IAM policy.
type Policy struct {
	Name            string `json:"PolicyName"`
	ARN             string `json:"Arn"`
	AttachmentCount int    `json:"AttachmentCount"`
}

type policyEntities struct {
	PolicyGroups []struct {
		GroupName string `json:"GroupName"`
	} `json:"PolicyGroups"`
	PolicyUsers []struct {
		UserName string `json:"UserName"`
	} `json:"PolicyUsers"`
	PolicyRoles []struct {
		RoleName string `json:"RoleName"`
	} `json:"PolicyRoles"`
}

// ListPolicies returns the policies the installer created for cluster:
// its load balancer controller policies and every hopsworks-policy-* that
// is unattached or attached only to roles of this cluster.
func (c *Client) ListPolicies(ctx context.Context, cluster string) ([]Policy, error) {
	var all struct {
		Policies []Policy `json:"Policies"`
	}
	if err := c.awsJSON(ctx, &all, "iam", "list-policies", "--scope", "Local"); err != nil {
		return nil, fmt.Errorf("failed to list IAM policies: %w", err)
	}

	var out []Policy
	for _, p := range all.Policies {
		switch {
		case strings.HasPrefix(p.Name, naming.ALBPolicyPrefix(cluster)):
			out = append(out, p)
		case strings.HasPrefix(p.Name, naming.AWSPolicyPrefix):
			ok, err := c.ownedByCluster(ctx, p, cluster)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (c *Client) ownedByCluster(ctx context.Context, p Policy, cluster string) (bool, error) {
	if p.AttachmentCount == 0 {
		return true, nil
	}
	entities, err := c.policyEntities(ctx, p.ARN)
	if err != nil {
		return false, err
	}
	if len(entities.PolicyGroups) > 0 || len(entities.PolicyUsers) > 0 {
		return false, nil
	}
	for _, r := range entities.PolicyRoles {
		if !strings.HasPrefix(r.RoleName, "eksctl-"+cluster+"-") {
			return false, nil
		}
	}
	return true, nil
}

func (c *Client) policyEntities(ctx context.Context, arn string) (*policyEntities, error) {
	var entities policyEntities
	if err := c.awsJSON(ctx, &entities, "iam", "list-entities-for-policy", "--policy-arn", arn); err != nil {
		return nil, fmt.Errorf("failed to list entities of %s: %w", arn, err)
	}
	return &entities, nil
}

// DeletePolicy detaches a policy from every entity, deletes its
// non-default versions and then the policy itself.
func (c *Client) DeletePolicy(ctx context.Context, arn string) error {
	entities, err := c.policyEntities(ctx, arn)
	if err != nil {
		return err
	}
	for _, r := range entities.PolicyRoles {
		if _, err := c.aws(ctx, "iam", "detach-role-policy", "--role-name", r.RoleName, "--policy-arn", arn); err != nil {
			return fmt.Errorf("failed to detach %s from role %s: %w", arn, r.RoleName, err)
		}
	}
	for _, u := range entities.PolicyUsers {
		if _, err := c.aws(ctx, "iam", "detach-user-policy", "--user-name", u.UserName, "--policy-arn", arn); err != nil {
			return fmt.Errorf("failed to detach %s from user %s: %w", arn, u.UserName, err)
		}
	}
	for _, g := range entities.PolicyGroups {
		if _, err := c.aws(ctx, "iam", "detach-group-policy", "--group-name", g.GroupName, "--policy-arn", arn); err != nil {
			return fmt.Errorf("failed to detach %s from group %s: %w", arn, g.GroupName, err)
		}
	}

	var versions struct {
		Versions []struct {
			VersionID        string `json:"VersionId"`
			IsDefaultVersion bool   `json:"IsDefaultVersion"`
		} `json:"Versions"`
	}
	if err := c.awsJSON(ctx, &versions, "iam", "list-policy-versions", "--policy-arn", arn); err != nil {
		return fmt.Errorf("failed to list versions of %s: %w", arn, err)
	}
	for _, v := range versions.Versions {
		if v.IsDefaultVersion {
			continue
		}
		if _, err := c.aws(ctx, "iam", "delete-policy-version", "--policy-arn", arn, "--version-id", v.VersionID); err != nil {
			return fmt.Errorf("failed to delete version %s of %s: %w", v.VersionID, arn, err)
		}
	}

	_, err = c.aws(ctx, "iam", "delete-policy", "--policy-arn", arn)
	return err
}

// Repository is an ECR repository.
type Repository struct {
	Name string `json:"repositoryName"`
	URI  string `json:"repositoryUri"`
}

// ListRepositories returns the base image repositories of cluster under
// the current and the legacy naming scheme.
func (c *Client) ListRepositories(ctx context.Context, cluster string) ([]Repository, error) {
	var out []Repository
	for _, name := range []string{naming.ECRRepository(cluster), naming.LegacyECRRepository(cluster)} {
		var described struct {
			Repositories []Repository `json:"repositories"`
		}
		err := c.awsJSON(ctx, &described, "ecr", "describe-repositories", "--repository-names", name)
		if err != nil {
			if errorCode(err, "RepositoryNotFoundException") {
				continue
			}
			return nil, fmt.Errorf("failed to describe ECR repository %s: %w", name, err)
		}
		out = append(out, described.Repositories...)
	}
	return out, nil
}

// DeleteRepository deletes a repository including its images.
func (c *Client) DeleteRepository(ctx context.Context, name string) error {
	_, err := c.aws(ctx, "ecr", "delete-repository", "--repository-name", name, "--force")
	return err
}
