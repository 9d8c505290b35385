package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eda-labs/clab-connector/pkg/eda"
	"github.com/eda-labs/clab-connector/pkg/health"
	"github.com/eda-labs/clab-connector/pkg/kube"
)

// Exit codes of health-check.
const (
	exitUnhealthy = 1
	exitDegraded  = 2
)

func newHealthCheckCmd() *cobra.Command {
	var (
		conn    connFlags
		skipK8s bool
	)

	cmd := &cobra.Command{
		Use:   "health-check",
		Short: "Check EDA and Kubernetes connectivity",
		Long: `Check that the EDA API answers, that the credentials log in, that the
EDA version is supported, and that the Kubernetes cluster hosting EDA is
reachable with ready nodes. Exits 1 when a check is unhealthy and 2 when a
check is degraded.

  clab-connector health-check -e https://eda.example.com
  clab-connector health-check -e https://eda.example.com --skip-k8s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := conn.resolve(cmd)
			if err != nil {
				return err
			}
			client, err := eda.New(cfg.EDA)
			if err != nil {
				return err
			}

			checker := &health.Checker{EDA: client, SkipKubernetes: skipK8s}
			if !skipK8s {
				cluster, err := kube.NewFromKubeconfig(cfg.Kubeconfig)
				if err != nil {
					checker.ClusterErr = err
				} else {
					checker.Cluster = cluster
				}
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Running health check...")
			report := checker.Run(ctx)
			fmt.Fprintln(out)
			report.Print(out)
			return healthExit(report.Overall)
		},
	}

	conn.bind(cmd)
	cmd.Flags().BoolVar(&skipK8s, "skip-k8s", false, "skip the Kubernetes checks")
	return cmd
}

// healthExit maps the overall status to the command result.
func healthExit(s health.Status) error {
	switch s {
	case health.StatusHealthy:
		return nil
	case health.StatusDegraded:
		return &exitError{code: exitDegraded, err: fmt.Errorf("health check degraded")}
	}
	return &exitError{code: exitUnhealthy, err: fmt.Errorf("health check %s", s)}
}
