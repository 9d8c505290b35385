package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eda-labs/clab-connector/pkg/eda"
	"github.com/eda-labs/clab-connector/pkg/integrate"
	"github.com/eda-labs/clab-connector/pkg/topology"
)

func newCheckSyncCmd() *cobra.Command {
	var (
		conn     connFlags
		topoFile string
		wait     bool
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "check-sync",
		Short: "Show the EDA sync state of the nodes of a topology",
		Long: `Read the TopoNode status of every EDA-managed node of an integrated
topology and print a status table. Exits non-zero unless all nodes are ready.

  clab-connector check-sync -t clab-dc1/topology-data.json
  clab-connector check-sync -t clab-dc1/topology-data.json --wait --timeout 5m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireTopology(topoFile); err != nil {
				return err
			}
			topo, err := topology.ParseFile(topoFile, topology.Options{})
			if err != nil {
				return err
			}
			cfg, err := conn.resolve(cmd)
			if err != nil {
				return err
			}
			client, err := eda.New(cfg.EDA)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			if err := integrate.Prechecks(ctx, client); err != nil {
				return err
			}
			checker := &integrate.SyncChecker{
				EDA:       client,
				Namespace: topo.Namespace(),
				Interval:  integrate.DefaultSyncInterval,
				Out:       cmd.OutOrStdout(),
			}
			names := integrate.NodeNames(topo)
			if wait {
				if !checker.Wait(ctx, names, timeout) {
					return fmt.Errorf("not all nodes of %s are ready", topo.Namespace())
				}
				return nil
			}
			statuses := checker.Status(ctx, names)
			checker.Print(statuses)
			if !integrate.AllReady(statuses) {
				return fmt.Errorf("not all nodes of %s are ready", topo.Namespace())
			}
			return nil
		},
	}

	conn.bind(cmd)
	cmd.Flags().StringVarP(&topoFile, "topology-data", "t", "", "containerlab topology-data.json")
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until all nodes are ready or --timeout elapses")
	cmd.Flags().DurationVar(&timeout, "timeout", integrate.DefaultSyncTimeout, "how long --wait polls")
	return cmd
}
