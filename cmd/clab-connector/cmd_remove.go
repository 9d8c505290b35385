package main

import (
	"github.com/spf13/cobra"

	"github.com/eda-labs/clab-connector/pkg/eda"
	"github.com/eda-labs/clab-connector/pkg/integrate"
)

func newRemoveCmd() *cobra.Command {
	var (
		conn     connFlags
		topoFile string
	)

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove an integrated topology from EDA",
		Long: `Delete the EDA namespace of a containerlab topology, together with every
resource integrate created in it.

  clab-connector remove -t clab-dc1/topology-data.json -e https://eda.example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireTopology(topoFile); err != nil {
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

			r := integrate.NewRemover(client)
			r.Credentials = cfg.Credentials
			return r.Run(ctx, topoFile)
		},
	}

	conn.bind(cmd)
	cmd.Flags().StringVarP(&topoFile, "topology-data", "t", "", "containerlab topology-data.json")
	return cmd
}
