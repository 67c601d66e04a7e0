package teardown

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/aws"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/azure"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/gcp"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/s3"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/shell"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/ui"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/util/naming"
)

func runPlan(plan Plan, opts Options) (*Summary, string, error) {
	var out bytes.Buffer
	opts.AssumeYes = true
	opts.Retry = fastRetry
	e := NewEngine(ui.NewPrinter(&out, logr.Discard()), nil, nil, opts)
	summary, err := e.Run(context.Background(), plan)
	return summary, out.String(), err
}

// deletions returns the recorded calls that delete something, in order.
func deletions(calls []string) []string {
	var out []string
	for _, c := range calls {
		if strings.Contains(c, " delete") {
			out = append(out, c)
		}
	}
	return out
}

var _ = Describe("GKEPlan", func() {
	var fake *shell.Fake

	BeforeEach(func() {
		fake = shell.NewFake().
			On("gcloud container clusters list", `[
				{"name":"hops-prod","location":"us-central1","status":"RUNNING"},
				{"name":"other","location":"us-central1","status":"RUNNING"}]`).
			On("gcloud compute forwarding-rules list", `[
				{"name":"a1b2","region":"https://www.googleapis.com/compute/v1/projects/p/regions/us-central1","IPAddress":"34.1.2.3","description":"{\"kubernetes.io/service-name\":\"hopsworks/ingress\"}"},
				{"name":"manual","region":"us-central1","description":""}]`).
			On("gcloud compute firewall-rules list", `[
				{"name":"gke-hops-prod-1234-all","network":"projects/p/global/networks/default"},
				{"name":"k8s-fw-a1b2","network":"projects/p/global/networks/default","targetTags":["gke-hops-prod-1234-node"]},
				{"name":"default-allow-ssh","network":"projects/p/global/networks/default"}]`).
			On("gcloud artifacts repositories list", `[
				{"name":"projects/p/locations/us-central1/repositories/hopsworks-hops-prod-1700000000","format":"DOCKER"}]`).
			On("gcloud iam roles list", `[
				{"name":"projects/p/roles/hopsworksai.instances.1700000000","title":"Hopsworks"},
				{"name":"projects/p/roles/hopsworksai.instances.1600000000","title":"Old","deleted":true}]`).
			On("gcloud iam service-accounts list", `[
				{"email":"hopsworksai-instances@p.iam.gserviceaccount.com","displayName":"Hopsworks"},
				{"email":"ci@p.iam.gserviceaccount.com"}]`)
	})

	It("deletes the installation resources in dependency order", func() {
		plan := GKEPlan(gcp.NewClient(fake, "p"), GKEScope{Region: "us-central1", ClusterPrefix: "hops"}, Options{})

		summary, _, err := runPlan(plan, Options{})

		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Deleted).To(Equal(7))
		Expect(deletions(fake.Calls())).To(Equal([]string{
			"gcloud container clusters delete hops-prod --location=us-central1 --quiet --project=p",
			"gcloud compute forwarding-rules delete a1b2 --region=us-central1 --quiet --project=p",
			"gcloud compute firewall-rules delete gke-hops-prod-1234-all --quiet --project=p",
			"gcloud compute firewall-rules delete k8s-fw-a1b2 --quiet --project=p",
			"gcloud artifacts repositories delete hopsworks-hops-prod-1700000000 --location=us-central1 --quiet --project=p",
			"gcloud iam roles delete hopsworksai.instances.1700000000 --quiet --project=p",
			"gcloud iam service-accounts delete hopsworksai-instances@p.iam.gserviceaccount.com --quiet --project=p",
		}))
	})

	It("passes --async for clusters and repositories with no-wait", func() {
		plan := GKEPlan(gcp.NewClient(fake, "p"), GKEScope{Region: "us-central1", ClusterPrefix: "hops"}, Options{NoWait: true})

		_, _, err := runPlan(plan, Options{NoWait: true})

		Expect(err).NotTo(HaveOccurred())
		Expect(fake.Called("gcloud container clusters delete hops-prod --location=us-central1 --quiet --async")).To(BeTrue())
		Expect(fake.Called("gcloud artifacts repositories delete hopsworks-hops-prod-1700000000 --location=us-central1 --quiet --async")).To(BeTrue())
	})

	It("retries a firewall rule still in use", func() {
		fake.OnError("gcloud compute firewall-rules delete k8s-fw-a1b2", 1, "The firewall rule is already being used by a forwarding rule")
		fake.On("gcloud compute firewall-rules delete k8s-fw-a1b2", "")
		plan := GKEPlan(gcp.NewClient(fake, "p"), GKEScope{ClusterPrefix: "hops"}, Options{})

		_, _, err := runPlan(plan, Options{})

		Expect(err).NotTo(HaveOccurred())
		Expect(fake.Count("gcloud compute firewall-rules delete k8s-fw-a1b2")).To(Equal(2))
	})
})

var _ = Describe("AKSPlan", func() {
	var fake *shell.Fake

	BeforeEach(func() {
		fake = shell.NewFake().
			On("az role assignment list", `[
				{"id":"/ra/1","name":"1","principalId":"mi-1","principalName":"hops-agentpool","principalType":"ServicePrincipal","roleDefinitionName":"AcrPull"},
				{"id":"/ra/2","name":"2","principalId":"sys-1","principalName":"hops","principalType":"ServicePrincipal","roleDefinitionName":"Network Contributor"},
				{"id":"/ra/owner","name":"owner","principalId":"u-1","principalName":"alice@example.com","principalType":"User","roleDefinitionName":"Owner"},
				{"id":"/ra/ci","name":"ci","principalId":"sp-ci","principalName":"ci-deployer","principalType":"ServicePrincipal","roleDefinitionName":"Contributor"},
				{"id":"/ra/x","name":"x","principalId":"sys-x","principalName":"x","principalType":"ServicePrincipal","roleDefinitionName":"Reader"}]`).
			On("az aks list", `[{"id":"/aks/hops","name":"hops","location":"westeurope","provisioningState":"Succeeded","identity":{"principalId":"sys-1"}},{"id":"/aks/x","name":"x","identity":{"principalId":"sys-x"}}]`).
			On("az identity list", `[{"id":"/id/hops","name":"hops-id","principalId":"mi-1"}]`).
			On("az network lb list", `[{"id":"/lb/kubernetes","name":"kubernetes"}]`).
			On("az network public-ip list", `[{"id":"/ip/1","name":"kubernetes-a1"}]`).
			On("az network nsg list", `[{"id":"/nsg/1","name":"aks-agentpool-nsg"}]`).
			On("az network vnet list", `[{"id":"/vnet/1","name":"aks-vnet"}]`)
	})

	It("deletes role assignments first and the resource group last", func() {
		fake.On("az group exists", "true")
		plan := AKSPlan(azure.NewClient(fake, "hops-rg"), AKSScope{ClusterPrefix: "hops", DeleteResourceGroup: true}, Options{})

		summary, _, err := runPlan(plan, Options{})

		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Deleted).To(Equal(9))
		Expect(deletions(fake.Calls())).To(Equal([]string{
			"az role assignment delete --ids /ra/1",
			"az role assignment delete --ids /ra/2",
			"az aks delete --resource-group hops-rg --name hops --yes",
			"az identity delete --ids /id/hops",
			"az network lb delete --ids /lb/kubernetes",
			"az network public-ip delete --ids /ip/1",
			"az network nsg delete --ids /nsg/1",
			"az network vnet delete --ids /vnet/1",
			"az group delete --name hops-rg --yes",
		}))
	})

	It("leaves grants it does not own", func() {
		plan := AKSPlan(azure.NewClient(fake, "hops-rg"), AKSScope{ClusterPrefix: "hops"}, Options{})

		_, out, err := runPlan(plan, Options{DryRun: true})

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("AcrPull for hops-agentpool"))
		Expect(out).NotTo(ContainSubstring("alice@example.com"))
		Expect(out).NotTo(ContainSubstring("ci-deployer"))
		Expect(out).NotTo(ContainSubstring("Reader for x"))
		Expect(fake.Called("az role assignment delete")).To(BeFalse())
	})

	It("keeps the resource group unless asked", func() {
		plan := AKSPlan(azure.NewClient(fake, "hops-rg"), AKSScope{ClusterPrefix: "hops"}, Options{NoWait: true})

		_, _, err := runPlan(plan, Options{NoWait: true})

		Expect(err).NotTo(HaveOccurred())
		Expect(fake.Called("az group")).To(BeFalse())
		Expect(fake.Called("az aks delete --resource-group hops-rg --name hops --yes --no-wait")).To(BeTrue())
		Expect(fake.Called("az network vnet delete --ids /vnet/1 --no-wait")).To(BeTrue())
	})

	It("skips a resource group that is already gone", func() {
		fake.On("az group exists", "false")
		plan := AKSPlan(azure.NewClient(fake, "hops-rg"), AKSScope{ClusterPrefix: "hops", DeleteResourceGroup: true}, Options{})

		_, _, err := runPlan(plan, Options{})

		Expect(err).NotTo(HaveOccurred())
		Expect(fake.Called("az group delete")).To(BeFalse())
	})
})

type fakeAWS struct {
	mu       sync.Mutex
	cluster  *aws.EKSCluster
	descErr  error
	describe int
	lbs      []aws.LoadBalancer
	sgs      []aws.SecurityGroup
	sgErrs   []error
	role     bool
	calls    []string
}

func (f *fakeAWS) record(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
}

func (f *fakeAWS) DescribeCluster(context.Context, string) (*aws.EKSCluster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.describe++
	return f.cluster, f.descErr
}

func (f *fakeAWS) DeleteCluster(_ context.Context, name string, wait bool) error {
	if wait {
		f.record("cluster " + name + " wait")
	} else {
		f.record("cluster " + name)
	}
	return nil
}

func (f *fakeAWS) ListLoadBalancers(_ context.Context, _, vpcID string) ([]aws.LoadBalancer, error) {
	if vpcID != "vpc-1" {
		return nil, errors.New("unexpected vpc " + vpcID)
	}
	return f.lbs, nil
}

func (f *fakeAWS) DeleteLoadBalancer(_ context.Context, lb aws.LoadBalancer) error {
	if lb.Classic {
		f.record("elb " + lb.Name)
	} else {
		f.record("elbv2 " + lb.ARN)
	}
	return nil
}

func (f *fakeAWS) ListTargetGroups(context.Context, string) ([]aws.TargetGroup, error) {
	return []aws.TargetGroup{{Name: "k8s-tg", ARN: "arn:tg"}}, nil
}

func (f *fakeAWS) DeleteTargetGroup(_ context.Context, arn string) error {
	f.record("tg " + arn)
	return nil
}

func (f *fakeAWS) ListSecurityGroups(_ context.Context, _, vpcID string) ([]aws.SecurityGroup, error) {
	if vpcID != "vpc-1" {
		return nil, errors.New("unexpected vpc " + vpcID)
	}
	return f.sgs, nil
}

func (f *fakeAWS) DeleteSecurityGroup(_ context.Context, id string) error {
	f.mu.Lock()
	if len(f.sgErrs) > 0 {
		err := f.sgErrs[0]
		f.sgErrs = f.sgErrs[1:]
		f.mu.Unlock()
		return err
	}
	f.mu.Unlock()
	f.record("sg " + id)
	return nil
}

func (f *fakeAWS) RoleExists(context.Context, string) (bool, error) { return f.role, nil }

func (f *fakeAWS) DeleteRole(_ context.Context, name string) error {
	f.record("role " + name)
	return nil
}

func (f *fakeAWS) ListPolicies(context.Context, string) ([]aws.Policy, error) {
	return []aws.Policy{{Name: "hopsworks-policy-1", ARN: "arn:policy"}}, nil
}

func (f *fakeAWS) DeletePolicy(_ context.Context, arn string) error {
	f.record("policy " + arn)
	return nil
}

func (f *fakeAWS) ListRepositories(context.Context, string) ([]aws.Repository, error) {
	return []aws.Repository{{Name: "hopsworks-prod/hopsworks-base"}}, nil
}

func (f *fakeAWS) DeleteRepository(_ context.Context, name string) error {
	f.record("ecr " + name)
	return nil
}

type fakeBuckets struct {
	key, value string
	deleted    []string
}

func (b *fakeBuckets) ListTaggedBuckets(_ context.Context, key, value string) ([]s3.Bucket, error) {
	b.key, b.value = key, value
	return []s3.Bucket{{Name: "hopsworks-prod-data", Created: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}}, nil
}

func (b *fakeBuckets) DeleteBucket(_ context.Context, name string) error {
	b.deleted = append(b.deleted, name)
	return nil
}

var _ = Describe("EKSPlan", func() {
	var (
		fake    *fakeAWS
		buckets *fakeBuckets
	)

	BeforeEach(func() {
		fake = &fakeAWS{
			cluster: &aws.EKSCluster{Name: "prod", Status: "ACTIVE", VpcID: "vpc-1"},
			lbs: []aws.LoadBalancer{
				{Name: "a1b2", Classic: true},
				{Name: "k8s-hopswork", ARN: "arn:alb"},
			},
			sgs:  []aws.SecurityGroup{{ID: "sg-1", Name: "k8s-elb-a1b2"}},
			role: true,
		}
		buckets = &fakeBuckets{}
	})

	It("removes load balancers before the cluster and its leftovers after", func() {
		summary, _, err := runPlan(EKSPlan(fake, buckets, "prod", Options{}), Options{})

		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Deleted).To(Equal(9))
		Expect(fake.calls).To(Equal([]string{
			"elb a1b2",
			"elbv2 arn:alb",
			"tg arn:tg",
			"cluster prod wait",
			"sg sg-1",
			"role " + naming.ALBRole("prod"),
			"policy arn:policy",
			"ecr hopsworks-prod/hopsworks-base",
		}))
		Expect(buckets.deleted).To(Equal([]string{"hopsworks-prod-data"}))
		Expect(buckets.key).To(Equal(naming.BucketTagKey))
		Expect(buckets.value).To(Equal("prod"))
	})

	It("describes the cluster once", func() {
		_, _, err := runPlan(EKSPlan(fake, nil, "prod", Options{NoWait: true}), Options{NoWait: true})

		Expect(err).NotTo(HaveOccurred())
		Expect(fake.describe).To(Equal(1))
		Expect(fake.calls).To(ContainElement("cluster prod"))
	})

	It("retries security groups blocked by a dependency", func() {
		fake.sgErrs = []error{errors.New("DependencyViolation: resource sg-1 has a dependent object")}

		_, _, err := runPlan(EKSPlan(fake, nil, "prod", Options{}), Options{})

		Expect(err).NotTo(HaveOccurred())
		Expect(fake.calls).To(ContainElement("sg sg-1"))
	})

	It("reports a describe failure once", func() {
		fake.descErr = errors.New("AccessDeniedException: not authorized")

		_, out, err := runPlan(EKSPlan(fake, nil, "prod", Options{}), Options{})

		Expect(err).To(MatchError(ContainSubstring("list EKS clusters")))
		Expect(strings.Count(err.Error(), "AccessDeniedException")).To(Equal(1))
		Expect(out).To(ContainSubstring("Failed to list EKS clusters"))
		Expect(out).NotTo(ContainSubstring("Failed to list load balancers"))
		Expect(out).NotTo(ContainSubstring("Failed to list security groups"))
		Expect(fake.calls).To(ContainElement("tg arn:tg"))
	})

	It("skips VPC scoped kinds when the cluster is gone", func() {
		fake.cluster = nil
		fake.role = false

		summary, out, err := runPlan(EKSPlan(fake, nil, "prod", Options{}), Options{})

		Expect(err).NotTo(HaveOccurred())
		Expect(fake.calls).NotTo(ContainElement(HavePrefix("elb")))
		Expect(fake.calls).NotTo(ContainElement(HavePrefix("sg")))
		Expect(fake.calls).NotTo(ContainElement(HavePrefix("cluster")))
		Expect(summary.Deleted).To(Equal(3))
		Expect(out).To(ContainSubstring("No EKS clusters found."))
	})
})
