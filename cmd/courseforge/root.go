package main

import (
	"github.com/spf13/cobra"
)

var (
	flagProjectDir string
	flagVerbose    bool
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "courseforge",
		Short: "Generate weekly course content through iterative draft-and-review",
		Long: `courseforge drafts each section of a week's course content, has two
independent reviewers score it, and revises until both approve or the
iteration budget runs out. Drafts that get worse are rolled back to the
best earlier version.`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flagProjectDir, "project", "C", ".", "project directory")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose console logging")
	rootCmd.AddCommand(newRunCommand())
	return rootCmd
}
