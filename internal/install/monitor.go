package install

import (
	"context"
	"time"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/hopsworks"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/k8s"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/ui"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/ui/tui"

	corev1 "k8s.io/api/core/v1"
)

// deploymentStatus reads job completion and the core pod phase of the
// Hopsworks namespace.
func deploymentStatus(kube *k8s.Client, namespace string) tui.StatusFunc {
	return func(ctx context.Context) (tui.Status, error) {
		complete, total, err := kube.JobSummary(ctx, namespace)
		if err != nil {
			return tui.Status{}, err
		}
		phase, err := kube.PodPhase(ctx, namespace, hopsworks.CorePodSelector)
		if err != nil {
			return tui.Status{}, err
		}
		pods, err := kube.PodCount(ctx, namespace)
		if err != nil {
			return tui.Status{}, err
		}
		return tui.Status{
			CompleteJobs: complete,
			TotalJobs:    total,
			CoreRunning:  phase == corev1.PodRunning,
			Pods:         pods,
		}, nil
	}
}

// pollMonitor reports progress as plain lines, at most once a minute
// unless the job count changes.
func pollMonitor(out *ui.Printer) MonitorFunc {
	return func(ctx context.Context, check tui.StatusFunc, opts tui.Options) (tui.Outcome, error) {
		lastJobs := -1
		var lastReport time.Duration
		return tui.Poll(ctx, check, opts, func(st tui.Status, elapsed time.Duration, err error) {
			if err != nil {
				out.Logger().V(1).Info("status check failed", "error", err.Error())
				return
			}
			if st.CompleteJobs == lastJobs && elapsed-lastReport < time.Minute {
				return
			}
			lastJobs, lastReport = st.CompleteJobs, elapsed
			out.Info("Jobs %d/%d complete, %d pods, core running: %t (%s elapsed)",
				st.CompleteJobs, st.TotalJobs, st.Pods, st.CoreRunning, elapsed.Round(time.Second))
		})
	}
}
