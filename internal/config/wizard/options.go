package wizard

import (
	"github.com/charmbracelet/huh"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/telemetry"
)

// ProviderOptions returns the deployment environments in menu order.
func ProviderOptions() []huh.Option[config.Provider] {
	opts := make([]huh.Option[config.Provider], 0, len(config.Providers))
	for _, p := range config.Providers {
		opts = append(opts, huh.NewOption(p.DisplayName(), p))
	}
	return opts
}

// LicenseOptions lists the license agreements on offer.
var LicenseOptions = []huh.Option[telemetry.LicenseType]{
	huh.NewOption("Startup Software License", telemetry.LicenseStartup),
	huh.NewOption("Evaluation Agreement", telemetry.LicenseEvaluation),
}

// zoneHint is shown next to the GCP zone question. Picking a region
// instead of a zone creates nodes in every sub-zone.
const zoneHint = "e.g. europe-west1-b. A region like europe-west1 spreads nodes over all sub-zones and multiplies the node count"
