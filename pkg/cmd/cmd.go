// Package cmd contains the command line applications for the project.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/picvault/pkg/app"
)

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "picvault",
		Short: "A multi-backend image hosting service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.NewApp(configPath).Run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print debug details")

	rootCmd.AddCommand(serveCmd)
	registerConfigsCommands()
	registerDBCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
