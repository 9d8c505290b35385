package main

import (
	"github.com/spf13/cobra"

	"github.com/eda-labs/clab-connector/pkg/eda"
	"github.com/eda-labs/clab-connector/pkg/integrate"
	"github.com/eda-labs/clab-connector/pkg/kube"
)

func newIntegrateCmd() *cobra.Command {
	var (
		conn        connFlags
		opts        integrate.Options
		disableSync bool
	)

	cmd := &cobra.Command{
		Use:   "integrate",
		Short: "Integrate a containerlab topology into EDA",
		Long: `Create the EDA resources for every SR Linux and SR OS node of a deployed
containerlab topology: namespace, artifacts, init, node users, node profiles,
toponodes, interfaces and topolinks.

  clab-connector integrate -t clab-dc1/topology-data.json -e https://eda.example.com
  clab-connector integrate -t clab-dc1/topology-data.json --skip-edge-intfs --sync-timeout 5m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireTopology(opts.TopologyFile); err != nil {
				return err
			}
			if disableSync {
				opts.EnableSyncCheck = false
			}
			cfg, err := conn.resolve(cmd)
			if err != nil {
				return err
			}
			client, err := eda.New(cfg.EDA)
			if err != nil {
				return err
			}
			cluster, err := kube.NewFromKubeconfig(cfg.Kubeconfig)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			integ := integrate.New(client, cluster)
			integ.Credentials = cfg.Credentials
			integ.Out = cmd.OutOrStdout()
			return integ.Run(ctx, opts)
		},
	}

	conn.bind(cmd)
	cmd.Flags().StringVarP(&opts.TopologyFile, "topology-data", "t", "", "containerlab topology-data.json")
	cmd.Flags().BoolVar(&opts.SkipEdgeInterfaces, "skip-edge-intfs", false, "skip interfaces and topolinks towards linux nodes")
	cmd.Flags().BoolVar(&opts.EnableSyncCheck, "enable-sync-check", true, "wait for the nodes to sync after integration")
	cmd.Flags().BoolVar(&disableSync, "disable-sync-check", false, "skip the node sync check")
	cmd.Flags().DurationVar(&opts.SyncTimeout, "sync-timeout", integrate.DefaultSyncTimeout, "how long to wait for node sync")
	cmd.Flags().BoolVar(&opts.PushBootstrapConfig, "push-bootstrap-config", false, "push the gNMI discovery config to SR Linux nodes")
	return cmd
}
