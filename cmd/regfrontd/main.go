package main

import (
	"fmt"
	"os"

	"github.com/moby/term"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/regfront/regfront/daemon/config"
	"github.com/regfront/regfront/version"
)

// flagDaemonConfigFile names the flag so loading errors can tell an
// explicitly requested file apart from the missing default one.
const flagDaemonConfigFile = "config-file"

type daemonOptions struct {
	version      bool
	configFile   string
	daemonConfig *config.Config
	flags        *pflag.FlagSet
}

func newDaemonCommand() *cobra.Command {
	opts := &daemonOptions{
		daemonConfig: config.New(),
	}

	cmd := &cobra.Command{
		Use:           "regfrontd [OPTIONS]",
		Short:         "A pull-through front for container registries.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.flags = cmd.Flags()
			return runDaemon(opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.version, "version", "v", false, "Print version information and quit")
	flags.StringVar(&opts.configFile, flagDaemonConfigFile, defaultDaemonConfigFile, "Daemon configuration file")
	installConfigFlags(opts.daemonConfig, flags)

	return cmd
}

func runDaemon(opts *daemonOptions) error {
	if opts.version {
		showVersion()
		return nil
	}
	return NewDaemonCli().start(opts)
}

func showVersion() {
	fmt.Printf("regfrontd version %s, build %s\n", version.Version, version.GitCommit)
}

func main() {
	// Set terminal emulation based on platform as required.
	_, stdout, stderr := term.StdStreams()
	logrus.SetOutput(stderr)

	cmd := newDaemonCommand()
	cmd.SetOut(stdout)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		os.Exit(1)
	}
}
