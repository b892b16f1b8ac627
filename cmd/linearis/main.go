// Command linearis is the node-local CLI entrypoint: it wires the runtime
// subcommands (publish, call-function, instantiate, call-method, inspect)
// under a single root command.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"linearis/cmd/cli"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("failed to load .env")
	}

	rootCmd := &cobra.Command{
		Use:   "linearis",
		Short: "Linear-resource smart-contract execution core",
	}
	rootCmd.AddCommand(cli.RuntimeCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
