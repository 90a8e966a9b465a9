package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizcraft/internal/selfupdate"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update quizcraft to the latest release",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		checker := selfupdate.NewChecker(selfupdate.WithTimeout(2 * time.Minute))

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		if only, _ := cmd.Flags().GetBool("check"); only {
			res, err := checker.Check(ctx, &selfupdate.CheckInput{Version: version})
			if errors.Is(err, selfupdate.ErrDevBuild) {
				fmt.Fprintln(out, "Development build; no release to compare against.")
				return nil
			}
			if err != nil {
				return err
			}
			if res.UpdateAvailable {
				fmt.Fprintf(out, "%s is available (running %s): %s\n", res.LatestVersion, version, res.ReleaseURL)
			} else {
				fmt.Fprintf(out, "quizcraft %s is up to date.\n", version)
			}
			return nil
		}

		err := checker.Update(ctx, &selfupdate.UpdateInput{CurrentVersion: version}, func(p selfupdate.UpdateProgress) {
			fmt.Fprintln(out, p.Message)
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, selfupdate.ErrDevBuild):
			fmt.Fprintln(out, "Cannot update a development build. Install a release build first.")
			return nil
		case errors.Is(err, selfupdate.ErrAlreadyLatest):
			fmt.Fprintln(out, "Already running the latest version.")
			return nil
		case errors.Is(err, os.ErrPermission):
			return fmt.Errorf("%w\n\nTry running: sudo quizcraft update", err)
		}
		return err
	},
}

func init() {
	updateCmd.Flags().Bool("check", false, "Only report whether a newer release exists")
}
