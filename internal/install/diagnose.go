package install

import (
	"strconv"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
)

// DiagnosePhases report storage and helm state for troubleshooting.
func DiagnosePhases() []Phase {
	return []Phase{
		kubeconfigPhase(),
		NewPhase("storage", "Persistent storage", diagnoseStorage),
		NewPhase("releases", "Helm releases", diagnoseReleases),
		NewPhase("pods", "Pod health", diagnosePods),
	}
}

// RunDiagnose executes the diagnose flow. Nothing is modified.
func RunDiagnose(ctx *Context) error {
	ctx.Command = "diagnose"
	return RunPhases(ctx, DiagnosePhases())
}

func quantity(q resource.Quantity, ok bool) string {
	if !ok {
		return "-"
	}
	return q.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func diagnoseStorage(ctx *Context) error {
	kube, err := ctx.Kube()
	if err != nil {
		return err
	}

	pvs, err := kube.ListPersistentVolumes(ctx)
	if err != nil {
		return err
	}
	ctx.Out.Info("%d persistent volumes", len(pvs))
	if len(pvs) > 0 {
		rows := make([][]string, 0, len(pvs))
		for _, pv := range pvs {
			capacity, ok := pv.Spec.Capacity[corev1.ResourceStorage]
			claim := "-"
			if ref := pv.Spec.ClaimRef; ref != nil {
				claim = ref.Namespace + "/" + ref.Name
			}
			rows = append(rows, []string{
				pv.Name,
				quantity(capacity, ok),
				string(pv.Status.Phase),
				claim,
				orDash(pv.Spec.StorageClassName),
			})
		}
		ctx.Out.Table([]string{"Name", "Capacity", "Status", "Claim", "Storage class"}, rows)
	}

	ns := ctx.Config.Namespace
	pvcs, err := kube.ListPersistentVolumeClaims(ctx, ns)
	if err != nil {
		return err
	}
	ctx.Out.Info("%d persistent volume claims in %s", len(pvcs), ns)
	if len(pvcs) > 0 {
		rows := make([][]string, 0, len(pvcs))
		for _, pvc := range pvcs {
			capacity, ok := pvc.Status.Capacity[corev1.ResourceStorage]
			rows = append(rows, []string{
				pvc.Name,
				string(pvc.Status.Phase),
				orDash(pvc.Spec.VolumeName),
				quantity(capacity, ok),
			})
		}
		ctx.Out.Table([]string{"Name", "Status", "Volume", "Capacity"}, rows)
	}
	return nil
}

func diagnoseReleases(ctx *Context) error {
	// An empty namespace lists releases of every namespace.
	h, err := ctx.Helm("")
	if err != nil {
		return err
	}
	releases, err := h.List()
	if err != nil {
		return err
	}
	ctx.Out.Info("%d helm releases", len(releases))
	if len(releases) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(releases))
	for _, r := range releases {
		updated := "-"
		if !r.Updated.IsZero() {
			updated = r.Updated.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []string{
			r.Name,
			r.Namespace,
			strconv.Itoa(r.Revision),
			r.Status,
			r.Chart,
			orDash(r.AppVersion),
			updated,
		})
	}
	ctx.Out.Table([]string{"Name", "Namespace", "Revision", "Status", "Chart", "App version", "Updated"}, rows)
	return nil
}

func diagnosePods(ctx *Context) error {
	kube, err := ctx.Kube()
	if err != nil {
		return err
	}
	ns := ctx.Config.Namespace
	pods, err := kube.PodCount(ctx, ns)
	if err != nil {
		return err
	}
	healthy, err := kube.Healthy(ctx, ns)
	if err != nil {
		return err
	}
	if healthy {
		ctx.Out.Success("%d pods in %s, healthy", pods, ns)
	} else {
		ctx.Out.Warn("%d pods in %s, none running", pods, ns)
	}
	return nil
}
