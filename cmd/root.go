package cmd

import (
	"github.com/spf13/cobra"

	"course-media/config"
)

func Root(config *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{}
	rootCmd.AddCommand(server(config))
	rootCmd.AddCommand(token(config))
	return rootCmd
}
