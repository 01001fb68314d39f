package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "askdesk",
	Short: "Support agent that answers from internal documentation or escalates",
	Long: `askdesk answers user questions grounded in an internal documentation
corpus. Questions the documentation cannot answer are escalated to a human
team with a mock ticket.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
