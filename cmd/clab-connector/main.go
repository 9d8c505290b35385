// clab-connector integrates a containerlab topology into an EDA cluster.
//
// It reads the topology-data.json that containerlab writes next to a
// deployed lab and creates the EDA resources that manage its SR Linux and
// SR OS nodes: namespace, artifacts, node profiles, users, toponodes and
// topolinks.
//
// Usage:
//
//	clab-connector integrate -t <topology-data.json> -e <eda-url>
//	clab-connector remove -t <topology-data.json> -e <eda-url>
//	clab-connector generate-crs -t <topology-data.json> -o <file>
//	clab-connector check-sync -t <topology-data.json> -e <eda-url>
//	clab-connector health-check -e <eda-url>
//	clab-connector settings show
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/eda-labs/clab-connector/pkg/cli"
	"github.com/eda-labs/clab-connector/pkg/config"
	"github.com/eda-labs/clab-connector/pkg/util"
	"github.com/eda-labs/clab-connector/pkg/version"
)

const defaultEnvFile = ".env"

var (
	logLevel string
	logFile  string
	logJSON  bool
	envFile  string

	logCloser io.Closer
)

func main() {
	err := newRootCmd().Execute()
	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, red("Error:"), err)
		os.Exit(exitCode(err))
	}
}

// exitError carries a process exit code other than 1.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "clab-connector",
		Short:             "Integrate containerlab topologies with EDA",
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
		Long: `clab-connector onboards the nodes of a deployed containerlab topology
into an EDA cluster, and removes them again.

  clab-connector integrate -t clab-dc1/topology-data.json -e https://eda.example.com`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warning, error)")
	root.PersistentFlags().StringVarP(&logFile, "log-file", "f", "", "also write logs to this file")
	root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log in JSON format")
	root.PersistentFlags().StringVar(&envFile, "env-file", defaultEnvFile, "load environment variables from this file")

	root.AddCommand(
		newIntegrateCmd(),
		newRemoveCmd(),
		newGenerateCmd(),
		newCheckSyncCmd(),
		newHealthCheckCmd(),
		newSettingsCmd(),
		newVersionCmd(),
	)
	return root
}

func setupLogging(cmd *cobra.Command) error {
	if err := util.SetLogLevel(logLevel); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	if logJSON {
		util.SetJSONFormat()
	}
	if logFile != "" {
		c, err := util.SetLogFile(logFile)
		if err != nil {
			return err
		}
		logCloser = c
	}
	// Only an explicitly named env file has to exist.
	return config.LoadEnvFile(envFile, cmd.Flags().Changed("env-file"))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if version.Version == "dev" {
				fmt.Println("clab-connector dev build (use 'make build' for version info)")
			} else {
				fmt.Printf("clab-connector %s\n", version.Info())
			}
		},
	}
}

// Color helpers, delegate to pkg/cli
func green(s string) string  { return cli.Green(s) }
func red(s string) string    { return cli.Red(s) }
