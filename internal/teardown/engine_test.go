package teardown

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/metrics"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/ui"
)

// journal records deletions across kinds in call order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type fakeKind struct {
	name      string
	resources []Resource
	listErr   error
	// failures are returned by successive Delete calls per resource name.
	failures map[string][]error
	journal  *journal
	attempts map[string]int
	mu       sync.Mutex
}

func newFakeKind(j *journal, name string, names ...string) *fakeKind {
	k := &fakeKind{name: name, journal: j, failures: map[string][]error{}, attempts: map[string]int{}}
	for _, n := range names {
		k.resources = append(k.resources, Resource{Name: n, ID: "id-" + n})
	}
	return k
}

func (k *fakeKind) Name() string { return k.name }

func (k *fakeKind) List(context.Context) ([]Resource, error) {
	if k.listErr != nil {
		return nil, k.listErr
	}
	return append([]Resource(nil), k.resources...), nil
}

func (k *fakeKind) Delete(_ context.Context, r Resource) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.attempts[r.Name]++
	if errs := k.failures[r.Name]; len(errs) > 0 {
		k.failures[r.Name] = errs[1:]
		return errs[0]
	}
	k.journal.add(k.name + "/" + r.Name)
	return nil
}

func (k *fakeKind) tries(name string) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.attempts[name]
}

type fakeConfirmer struct {
	answers map[string]bool
	err     error
	asked   []string
}

func (c *fakeConfirmer) Confirm(_ context.Context, title, _ string) (bool, error) {
	c.asked = append(c.asked, title)
	if c.err != nil {
		return false, c.err
	}
	ok, set := c.answers[title]
	return !set || ok, nil
}

var fastRetry = Retry{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

var _ = Describe("Engine", func() {
	var (
		out     *bytes.Buffer
		printer *ui.Printer
		j       *journal
		confirm *fakeConfirmer
		rec     *metrics.Recorder
		ctx     context.Context
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		printer = ui.NewPrinter(out, logr.Discard())
		j = &journal{}
		confirm = &fakeConfirmer{answers: map[string]bool{}}
		rec = metrics.NewRecorder()
		ctx = context.Background()
	})

	newEngine := func(opts Options) *Engine {
		if opts.Retry.MaxAttempts == 0 {
			opts.Retry = fastRetry
		}
		return NewEngine(printer, confirm, rec, opts)
	}

	It("deletes kinds in plan order", func() {
		clusters := newFakeKind(j, "clusters", "c1")
		rules := newFakeKind(j, "firewall rules", "fw1", "fw2")
		vnets := newFakeKind(j, "vnets", "v1")
		plan := Plan{Provider: "gke", Kinds: []Kind{clusters, rules, vnets}}

		summary, err := newEngine(Options{AssumeYes: true}).Run(ctx, plan)

		Expect(err).NotTo(HaveOccurred())
		Expect(j.all()).To(Equal([]string{"clusters/c1", "firewall rules/fw1", "firewall rules/fw2", "vnets/v1"}))
		Expect(summary.Found).To(Equal(4))
		Expect(summary.Deleted).To(Equal(4))
		Expect(summary.Failed).To(BeZero())
		Expect(confirm.asked).To(BeEmpty())
	})

	It("reports kinds with nothing to delete", func() {
		plan := Plan{Provider: "aks", Kinds: []Kind{newFakeKind(j, "public IPs")}}

		summary, err := newEngine(Options{AssumeYes: true}).Run(ctx, plan)

		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Found).To(BeZero())
		Expect(out.String()).To(ContainSubstring("No public IPs found."))
		Expect(out.String()).To(ContainSubstring("No aks resources left to clean up."))
	})

	It("lists without deleting on a dry run", func() {
		plan := Plan{Provider: "eks", Kinds: []Kind{newFakeKind(j, "target groups", "tg1", "tg2")}}

		summary, err := newEngine(Options{DryRun: true}).Run(ctx, plan)

		Expect(err).NotTo(HaveOccurred())
		Expect(j.all()).To(BeEmpty())
		Expect(summary.Skipped).To(Equal(2))
		Expect(confirm.asked).To(BeEmpty())
		Expect(out.String()).To(ContainSubstring("tg1"))
	})

	It("asks once per kind and skips declined kinds", func() {
		confirm.answers["Delete these 1 clusters?"] = false
		plan := Plan{Provider: "gke", Kinds: []Kind{
			newFakeKind(j, "clusters", "c1"),
			newFakeKind(j, "roles", "r1"),
		}}

		summary, err := newEngine(Options{}).Run(ctx, plan)

		Expect(err).NotTo(HaveOccurred())
		Expect(confirm.asked).To(Equal([]string{"Delete these 1 clusters?", "Delete these 1 roles?"}))
		Expect(j.all()).To(Equal([]string{"roles/r1"}))
		Expect(summary.Skipped).To(Equal(1))
		Expect(summary.Deleted).To(Equal(1))
	})

	It("stops when confirmation fails", func() {
		confirm.err = errors.New("no tty")
		plan := Plan{Provider: "gke", Kinds: []Kind{newFakeKind(j, "clusters", "c1")}}

		_, err := newEngine(Options{}).Run(ctx, plan)

		Expect(err).To(MatchError(ContainSubstring("confirmation failed")))
		Expect(j.all()).To(BeEmpty())
	})

	It("keeps going when a kind cannot be listed", func() {
		broken := newFakeKind(j, "load balancers")
		broken.listErr = errors.New("AccessDenied")
		plan := Plan{Provider: "eks", Kinds: []Kind{broken, newFakeKind(j, "repositories", "repo")}}

		summary, err := newEngine(Options{AssumeYes: true}).Run(ctx, plan)

		Expect(err).To(MatchError(ContainSubstring("list load balancers: AccessDenied")))
		Expect(j.all()).To(Equal([]string{"repositories/repo"}))
		Expect(summary.Deleted).To(Equal(1))
	})

	It("retries deletions blocked by a dependency", func() {
		sg := newFakeKind(j, "security groups", "sg-1")
		sg.failures["sg-1"] = []error{
			errors.New("DependencyViolation: resource sg-1 has a dependent object"),
			errors.New("resource is in use"),
		}
		plan := Plan{Provider: "eks", Kinds: []Kind{sg}}

		summary, err := newEngine(Options{AssumeYes: true}).Run(ctx, plan)

		Expect(err).NotTo(HaveOccurred())
		Expect(sg.tries("sg-1")).To(Equal(3))
		Expect(summary.Deleted).To(Equal(1))
		Expect(out.String()).To(ContainSubstring("still in use"))
	})

	It("gives up after the configured attempts", func() {
		sg := newFakeKind(j, "security groups", "sg-1")
		busy := errors.New("DependencyViolation")
		sg.failures["sg-1"] = []error{busy, busy, busy, busy}
		plan := Plan{Provider: "eks", Kinds: []Kind{sg}}

		summary, err := newEngine(Options{AssumeYes: true}).Run(ctx, plan)

		Expect(err).To(HaveOccurred())
		Expect(sg.tries("sg-1")).To(Equal(fastRetry.MaxAttempts))
		Expect(summary.Failed).To(Equal(1))
	})

	It("does not retry other failures and aggregates them", func() {
		roles := newFakeKind(j, "roles", "r1", "r2", "r3")
		roles.failures["r1"] = []error{errors.New("permission denied")}
		roles.failures["r3"] = []error{errors.New("quota exceeded")}
		plan := Plan{Provider: "gke", Kinds: []Kind{roles}}

		summary, err := newEngine(Options{AssumeYes: true}).Run(ctx, plan)

		Expect(err).To(MatchError(And(ContainSubstring("permission denied"), ContainSubstring("quota exceeded"))))
		Expect(roles.tries("r1")).To(Equal(1))
		Expect(j.all()).To(Equal([]string{"roles/r2"}))
		Expect(summary.Failed).To(Equal(2))
		Expect(summary.Deleted).To(Equal(1))
	})

	It("suppresses progress lines when quiet", func() {
		plan := Plan{Provider: "aks", Kinds: []Kind{newFakeKind(j, "vnets", "v1"), newFakeKind(j, "nsgs")}}

		_, err := newEngine(Options{AssumeYes: true, Quiet: true}).Run(ctx, plan)

		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).NotTo(ContainSubstring("Deleting vnets"))
		Expect(out.String()).NotTo(ContainSubstring("No nsgs found."))
		Expect(out.String()).To(ContainSubstring("Deleted 1 of 1 resources"))
	})

	It("records results as metrics", func() {
		confirm.answers["Delete these 1 roles?"] = false
		plan := Plan{Provider: "gke", Kinds: []Kind{newFakeKind(j, "clusters", "c1"), newFakeKind(j, "roles", "r1")}}

		_, err := newEngine(Options{}).Run(ctx, plan)
		Expect(err).NotTo(HaveOccurred())

		path := filepath.Join(GinkgoT().TempDir(), "teardown.prom")
		Expect(rec.WriteTextfile(path)).To(Succeed())
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`hopsctl_teardown_resources_total{kind="clusters",provider="gke",result="deleted"} 1`))
		Expect(string(data)).To(ContainSubstring(`hopsctl_teardown_resources_total{kind="roles",provider="gke",result="skipped"} 1`))
	})

	It("aborts discovery when the context is cancelled", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		plan := Plan{Provider: "gke", Kinds: []Kind{newFakeKind(j, "clusters", "c1")}}

		_, err := newEngine(Options{AssumeYes: true}).Run(cctx, plan)

		Expect(err).To(MatchError(context.Canceled))
		Expect(j.all()).To(BeEmpty())
	})

	It("bounds discovery concurrency", func() {
		kinds := make([]Kind, 0, 5)
		for _, n := range []string{"a", "b", "c", "d", "e"} {
			kinds = append(kinds, newFakeKind(j, n, n+"1"))
		}

		summary, err := newEngine(Options{AssumeYes: true, Concurrency: 2}).Run(ctx, Plan{Provider: "aks", Kinds: kinds})

		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Deleted).To(Equal(5))
		Expect(j.all()).To(Equal([]string{"a/a1", "b/b1", "c/c1", "d/d1", "e/e1"}))
	})
})

var _ = DescribeTable("IsRetryable",
	func(err error, want bool) {
		Expect(IsRetryable(err)).To(Equal(want))
	},
	Entry("nil", nil, false),
	Entry("EC2 dependency violation", errors.New("An error occurred (DependencyViolation) when calling DeleteSecurityGroup"), true),
	Entry("ELB resource in use", errors.New("ResourceInUse: target group is currently in use by a listener"), true),
	Entry("GCP resource in use", errors.New("The firewall 'x' is already being used by 'y'"), true),
	Entry("Azure in use by", errors.New("InUseByVirtualMachineScaleSet"), true),
	Entry("Azure conflict", errors.New("(Conflict) Operation is not allowed"), true),
	Entry("Azure delete in progress", errors.New("CannotDeleteResource: operation still in progress"), true),
	Entry("permission denied", errors.New("AccessDenied: not authorized"), false),
	Entry("not found", errors.New("NotFound"), false),
)
