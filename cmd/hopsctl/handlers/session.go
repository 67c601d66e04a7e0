// Package handlers implements the business logic for CLI commands.
//
// Each handler resolves configuration, opens the log file and delegates to
// the install or teardown packages. External dependencies are package-level
// factory variables so tests can replace them.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config/wizard"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/install"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/logging"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/ui"
)

// ErrNotInteractive is returned when a command needs an answer but no
// terminal is attached.
var ErrNotInteractive = errors.New("no terminal to ask on")

// Globals are the flags shared by every command.
type Globals struct {
	// ConfigPath is an optional answers file.
	ConfigPath  string
	Namespace   string
	Kubeconfig  string
	KubeContext string
	Verbosity   int
}

// Factory function variables shared by the handlers - can be replaced in
// tests.
var (
	loadConfig     = config.Load
	completeConfig = wizard.Complete
	openLog        = logging.Open

	stdout io.Writer = os.Stdout

	// isInteractive reports whether questions can be asked.
	isInteractive = func() bool {
		return ui.IsTerminal(os.Stdout) && isatty.IsTerminal(os.Stdin.Fd())
	}

	newPrompter = func() install.Prompter { return wizard.Interactive{} }
)

// resolveConfig loads the answers file and environment, then applies the
// global flags on top.
func resolveConfig(g Globals) (*config.Config, error) {
	cfg, err := loadConfig(g.ConfigPath)
	if err != nil {
		return nil, err
	}
	if g.Namespace != "" {
		cfg.Namespace = g.Namespace
	}
	if g.Kubeconfig != "" {
		cfg.Kubeconfig = wizard.ExpandHome(g.Kubeconfig)
	}
	if g.KubeContext != "" {
		cfg.KubeContext = g.KubeContext
	}
	if err := config.ValidateNamespace(cfg.Namespace); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is the output of one command: the terminal printer and the log
// file it mirrors to.
type session struct {
	out *ui.Printer
	log *logging.File
}

func openSession(logPath string, verbosity int) (*session, error) {
	f, err := openLog(logPath, verbosity)
	if err != nil {
		return nil, err
	}
	return &session{out: ui.NewPrinter(stdout, f.Logger), log: f}, nil
}

// close reports where the log went and closes it.
func (s *session) close() {
	s.out.Info("Log written to %s", s.log.Path)
	if err := s.log.Close(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to close log: %v\n", err)
	}
}

// newInstallContext builds the context the existing-cluster commands run
// in. The prompter is only set when a terminal is attached.
func newInstallContext(ctx context.Context, cfg *config.Config, s *session) *install.Context {
	deps := install.Deps{}
	if isInteractive() {
		deps.Prompter = newPrompter()
	}
	return newContext(ctx, cfg, s.out, deps)
}

var newContext = install.NewContext
