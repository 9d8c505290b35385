package main

import (
	"github.com/spf13/cobra"

	"github.com/eda-labs/clab-connector/pkg/config"
	"github.com/eda-labs/clab-connector/pkg/integrate"
)

func newGenerateCmd() *cobra.Command {
	var opts integrate.GenerateOptions

	cmd := &cobra.Command{
		Use:   "generate-crs",
		Short: "Render the EDA resources of a topology without applying them",
		Long: `Render every manifest integrate would create, for review or for applying
with kubectl. No connection to EDA or the cluster is made.

  clab-connector generate-crs -t clab-dc1/topology-data.json              # stdout
  clab-connector generate-crs -t clab-dc1/topology-data.json -o dc1.yaml
  clab-connector generate-crs -t clab-dc1/topology-data.json --separate -o crs/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireTopology(opts.TopologyFile); err != nil {
				return err
			}
			opts.Out = cmd.OutOrStdout()
			opts.Credentials = config.ResolveCredentials()
			return integrate.Generate(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.TopologyFile, "topology-data", "t", "", "containerlab topology-data.json")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file, or directory with --separate (default <namespace>-crs)")
	cmd.Flags().BoolVar(&opts.Separate, "separate", false, "write one file per resource")
	cmd.Flags().BoolVar(&opts.SkipEdgeInterfaces, "skip-edge-intfs", false, "skip interfaces and topolinks towards linux nodes")
	return cmd
}
