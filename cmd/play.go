package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/quizcraft/internal/app"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Skip the menu and set up a new quiz",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, app.StartConfigure, true)
	},
}
