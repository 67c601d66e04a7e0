package wizard

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config"
)

func validateRequired(s string) error {
	if strings.TrimSpace(s) == "" {
		return errRequired
	}
	return nil
}

func validateName(s string) error {
	if len(strings.TrimSpace(s)) < 2 {
		return errNameTooShort
	}
	return nil
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if len(s) < 5 || !strings.Contains(s, "@") || !strings.Contains(s, ".") {
		return errEmailInvalid
	}
	return nil
}

func validateClusterName(s string) error {
	if strings.TrimSpace(s) == "" {
		return errRequired
	}
	return config.ValidateClusterName(strings.TrimSpace(s))
}

func validateNodeCount(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return errNodeCount
	}
	return nil
}

func validateKubeconfigPath(s string) error {
	if _, err := os.Stat(ExpandHome(strings.TrimSpace(s))); err != nil {
		return errKubeconfigPath
	}
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// DefaultKubeconfig returns $KUBECONFIG or ~/.kube/config.
func DefaultKubeconfig() string {
	if env := os.Getenv("KUBECONFIG"); env != "" {
		return env
	}
	return ExpandHome("~/.kube/config")
}

// sizing collects node pool answers as strings so huh can edit them.
type sizing struct {
	count       string
	machineType string
}

func newSizing(cfg *config.Config) *sizing {
	d := config.DefaultNodes(cfg.Provider)
	s := &sizing{count: strconv.Itoa(d.Count), machineType: d.MachineType}
	if cfg.Nodes.Count > 0 {
		s.count = strconv.Itoa(cfg.Nodes.Count)
	}
	if cfg.Nodes.MachineType != "" {
		s.machineType = cfg.Nodes.MachineType
	}
	return s
}

func (s *sizing) fields() []huh.Field {
	return []huh.Field{
		huh.NewInput().
			Title("Number of nodes").
			Value(&s.count).
			Validate(validateNodeCount),
		huh.NewInput().
			Title("Machine type").
			Value(&s.machineType).
			Validate(validateRequired),
	}
}

func (s *sizing) apply(cfg *config.Config) {
	if n, err := strconv.Atoi(strings.TrimSpace(s.count)); err == nil {
		cfg.Nodes.Count = n
	}
	cfg.Nodes.MachineType = strings.TrimSpace(s.machineType)
}

func gcpFields(cfg *config.Config) []huh.Field {
	var fields []huh.Field
	if cfg.GCP.ProjectID == "" {
		fields = append(fields, huh.NewInput().
			Title("GCP project ID").
			Value(&cfg.GCP.ProjectID).
			Validate(validateRequired))
	}
	if cfg.Zone == "" {
		fields = append(fields, huh.NewInput().
			Title("GCP zone").
			Description(zoneHint).
			Placeholder("europe-west1-b").
			Value(&cfg.Zone).
			Validate(validateRequired))
	}
	if cfg.ClusterName == "" {
		cfg.ClusterName = "hopsworks-cluster"
		fields = append(fields, huh.NewInput().
			Title("GKE cluster name").
			Value(&cfg.ClusterName).
			Validate(validateClusterName))
	}
	return fields
}

func awsFields(cfg *config.Config) []huh.Field {
	var fields []huh.Field
	if cfg.AWS.Profile == "" {
		cfg.AWS.Profile = config.DefaultAWSProfile
		fields = append(fields, huh.NewInput().
			Title("AWS profile name").
			Value(&cfg.AWS.Profile).
			Validate(validateRequired))
	}
	if cfg.Region == "" {
		fields = append(fields, huh.NewInput().
			Title("AWS region").
			Placeholder("us-east-2").
			Value(&cfg.Region).
			Validate(validateRequired))
	}
	if cfg.ClusterName == "" {
		fields = append(fields, huh.NewInput().
			Title("EKS cluster name").
			Value(&cfg.ClusterName).
			Validate(validateClusterName))
	}
	return fields
}

func awsBucketField(cfg *config.Config) huh.Field {
	return huh.NewInput().
		Title("S3 bucket name for Hopsworks data").
		Value(&cfg.AWS.BucketName).
		Validate(validateRequired)
}

func azureFields(cfg *config.Config, create bool) []huh.Field {
	var fields []huh.Field
	if cfg.Azure.ResourceGroup == "" {
		fields = append(fields, huh.NewInput().
			Title("Azure resource group").
			Value(&cfg.Azure.ResourceGroup).
			Validate(validateRequired))
	}
	if create && cfg.Azure.Location == "" {
		cfg.Azure.Location = config.DefaultAzureLocation
		fields = append(fields, huh.NewInput().
			Title("Azure region").
			Value(&cfg.Azure.Location).
			Validate(validateRequired))
	}
	if cfg.ClusterName == "" {
		fields = append(fields, huh.NewInput().
			Title("AKS cluster name").
			Value(&cfg.ClusterName).
			Validate(validateClusterName))
	}
	return fields
}

func ovhFields(cfg *config.Config) []huh.Field {
	if cfg.Kubeconfig != "" {
		return nil
	}
	cfg.Kubeconfig = DefaultKubeconfig()
	return []huh.Field{
		huh.NewInput().
			Title("Path to your kubeconfig file").
			Value(&cfg.Kubeconfig).
			Validate(validateKubeconfigPath),
	}
}
