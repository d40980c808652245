package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/templui/fileshare/cmd/do/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "do",
		Short:        "Operator and development tools for fileshare",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.DevCmd())
	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.NotifyCmd())
	rootCmd.AddCommand(cmd.AdminCmd())
	rootCmd.AddCommand(cmd.RemoteCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
