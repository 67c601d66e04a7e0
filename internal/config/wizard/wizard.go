package wizard

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/telemetry"
)

// Mode selects which questions Complete asks.
type Mode int

const (
	// ModeCreate asks everything needed to create a new cluster.
	ModeCreate Mode = iota
	// ModeExisting asks only what is needed to reach an existing cluster.
	ModeExisting
)

// Complete asks for every value cfg is missing for its provider. It asks
// for the provider first when none is set.
func Complete(ctx context.Context, cfg *config.Config, mode Mode) error {
	if cfg.Provider == "" {
		if err := runProviderGroup(ctx, cfg); err != nil {
			return fmt.Errorf("provider: %w", err)
		}
	}

	var fields []huh.Field
	var size *sizing
	askSizing := mode == ModeCreate && (cfg.Nodes.Count == 0 || cfg.Nodes.MachineType == "")

	switch cfg.Provider {
	case config.ProviderGCP:
		fields = gcpFields(cfg)
	case config.ProviderAWS:
		fields = awsFields(cfg)
		if mode == ModeCreate && cfg.AWS.BucketName == "" {
			fields = append(fields, awsBucketField(cfg))
		}
	case config.ProviderAzure:
		fields = azureFields(cfg, mode == ModeCreate)
	case config.ProviderOVH:
		fields = ovhFields(cfg)
		askSizing = false
	}

	if askSizing {
		size = newSizing(cfg)
		fields = append(fields, size.fields()...)
	}

	if len(fields) > 0 {
		err := huh.NewForm(
			huh.NewGroup(fields...).Title(cfg.Provider.DisplayName() + " settings"),
		).RunWithContext(ctx)
		if err != nil {
			return fmt.Errorf("%s settings: %w", cfg.Provider.DisplayName(), err)
		}
	}

	if size != nil {
		size.apply(cfg)
	}
	cfg.ClusterName = strings.TrimSpace(cfg.ClusterName)
	cfg.Kubeconfig = ExpandHome(strings.TrimSpace(cfg.Kubeconfig))
	if mode == ModeCreate {
		cfg.ApplyProviderDefaults()
	}
	return nil
}

func runProviderGroup(ctx context.Context, cfg *config.Config) error {
	cfg.Provider = config.ProviderAWS
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[config.Provider]().
				Title("Deployment environment").
				Options(ProviderOptions()...).
				Value(&cfg.Provider),
		).Title("Select your deployment environment"),
	).RunWithContext(ctx)
}

// Interactive answers installer prompts through huh forms.
type Interactive struct{}

// License asks which license applies and whether the user agrees to it.
func (Interactive) License(ctx context.Context) (telemetry.License, error) {
	lic := telemetry.License{Type: telemetry.LicenseStartup}

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[telemetry.LicenseType]().
				Title("Choose a license agreement").
				Options(LicenseOptions...).
				Value(&lic.Type),
		),
		huh.NewGroup(
			huh.NewConfirm().
				TitleFunc(func() string {
					return fmt.Sprintf("Review the %s License Agreement at %s", lic.Type, lic.Type.URL())
				}, &lic.Type).
				Description("Do you agree to the terms and conditions?").
				Affirmative("Yes").
				Negative("No").
				Value(&lic.Agreed),
		),
	).RunWithContext(ctx)
	if err != nil {
		return lic, err
	}
	if !lic.Agreed {
		return lic, ErrLicenseDeclined
	}
	return lic, nil
}

// UserInfo asks for the user's name, email and optional company.
func (Interactive) UserInfo(ctx context.Context) (telemetry.UserInfo, error) {
	var u telemetry.UserInfo
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Your name").Value(&u.Name).Validate(validateName),
			huh.NewInput().Title("Your email address").Value(&u.Email).Validate(validateEmail),
			huh.NewInput().Title("Your company name (optional)").Value(&u.Company),
		).Title("Provide the following information"),
	).RunWithContext(ctx)
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.TrimSpace(u.Email)
	u.Company = strings.TrimSpace(u.Company)
	return u, err
}

// RegistryCredentials asks for the docker.hops.works credentials.
func (Interactive) RegistryCredentials(ctx context.Context) (string, string, error) {
	var user, pass string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Hopsworks Docker registry username").
				Value(&user).
				Validate(validateRequired),
			huh.NewInput().
				Title("Hopsworks Docker registry password").
				EchoMode(huh.EchoModePassword).
				Value(&pass).
				Validate(validateRequired),
		).Title("Registry credentials"),
	).RunWithContext(ctx)
	return strings.TrimSpace(user), pass, err
}

// Confirm asks a yes/no question.
func (Interactive) Confirm(ctx context.Context, title, description string) (bool, error) {
	var ok bool
	c := huh.NewConfirm().Title(title).Affirmative("Yes").Negative("No").Value(&ok)
	if description != "" {
		c = c.Description(description)
	}
	err := huh.NewForm(huh.NewGroup(c)).RunWithContext(ctx)
	return ok, err
}

// SelectContext asks which kubeconfig context to use. The current context
// is preselected.
func (Interactive) SelectContext(ctx context.Context, contexts []string, current string) (string, error) {
	if len(contexts) == 1 {
		return contexts[0], nil
	}
	choice := current
	opts := make([]huh.Option[string], 0, len(contexts))
	for _, c := range contexts {
		label := c
		if c == current {
			label += " (current)"
		}
		opts = append(opts, huh.NewOption(label, c))
	}
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Kubernetes context").
				Options(opts...).
				Value(&choice),
		),
	).RunWithContext(ctx)
	return choice, err
}
