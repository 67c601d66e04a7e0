package telemetry

// LicenseType is the license the user agreed to during install.
type LicenseType string

const (
	LicenseStartup    LicenseType = "Startup"
	LicenseEvaluation LicenseType = "Evaluation"
)

const (
	StartupLicenseURL    = "https://www.hopsworks.ai/startup-license"
	EvaluationLicenseURL = "https://www.hopsworks.ai/evaluation-license"
)

// URL returns where the license text can be reviewed.
func (l LicenseType) URL() string {
	switch l {
	case LicenseStartup:
		return StartupLicenseURL
	case LicenseEvaluation:
		return EvaluationLicenseURL
	}
	return ""
}

// License is the outcome of the license step. A skipped license step
// leaves Type empty and Agreed false.
type License struct {
	Type   LicenseType
	Agreed bool
}

// UserInfo identifies who is installing.
type UserInfo struct {
	Name    string
	Email   string
	Company string
}
