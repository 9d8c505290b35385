package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/eda-labs/clab-connector/pkg/config"
	"github.com/eda-labs/clab-connector/pkg/settings"
	"github.com/eda-labs/clab-connector/pkg/util"
)

// connFlags are the EDA connection flags shared by the commands that talk
// to a cluster.
type connFlags struct {
	config.Flags
	verify bool
}

func (f *connFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.EDAURL, "eda-url", "e", "", "EDA API URL, e.g. https://eda.example.com")
	fs.StringVar(&f.EDAUser, "eda-user", "", "EDA user (default \"admin\")")
	fs.StringVar(&f.EDAPassword, "eda-password", "", "EDA password (prompted when unset)")
	fs.StringVar(&f.KCUser, "kc-user", "", "Keycloak admin user (default \"admin\")")
	fs.StringVar(&f.KCPassword, "kc-password", "", "Keycloak admin password (default \"admin\")")
	fs.StringVar(&f.KCSecret, "kc-secret", "", "EDA Keycloak client secret; fetched with the admin account when unset")
	fs.BoolVar(&f.verify, "verify", false, "verify the EDA TLS certificate")
	fs.StringVar(&f.Kubeconfig, "kubeconfig", "", "kubeconfig of the EDA cluster")
}

// resolve merges flags, environment and settings into a run configuration,
// prompting for the EDA password when none was given.
func (f *connFlags) resolve(cmd *cobra.Command) (*config.Config, error) {
	if cmd.Flags().Changed("verify") {
		v := f.verify
		f.Verify = &v
	}

	s, err := settings.Load()
	if err != nil {
		util.Warnf("Could not load settings: %v", err)
		s = &settings.Settings{}
	}
	cfg, err := config.Resolve(f.Flags, s)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateEDA(); err != nil {
		return nil, err
	}
	if cfg.EDA.Password == "" {
		pw, err := promptPassword(fmt.Sprintf("EDA password for %s: ", cfg.EDA.User))
		if err != nil {
			return nil, err
		}
		cfg.EDA.Password = pw
	}
	return cfg, nil
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("EDA password required: use --eda-password or set %s", config.EnvEDAPassword)
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

// signalContext returns a context cancelled on Ctrl-C.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt)
}

func requireTopology(path string) error {
	if path == "" {
		return fmt.Errorf("topology file required: use -t <topology-data.json>")
	}
	return nil
}
