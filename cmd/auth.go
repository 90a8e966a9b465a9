package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizcraft/internal/api"
	"github.com/abhisek/quizcraft/internal/auth"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in without opening the app",
	Long:  "Sign in with email and password. The password is read from stdin when --password is not given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		in := bufio.NewReader(cmd.InOrStdin())
		out := cmd.OutOrStdout()
		var err error
		if email == "" {
			if email, err = prompt(in, out, "Email: "); err != nil {
				return err
			}
		}
		if password == "" {
			if password, err = prompt(in, out, "Password: "); err != nil {
				return err
			}
		}
		if err := auth.ValidateLogin(email, password); err != nil {
			return err
		}

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		token, err := e.client.Login(cmd.Context(), api.Credentials{Email: email, Password: password})
		if err != nil {
			var fe *api.FetchError
			if errors.As(err, &fe) {
				return errors.New(fe.UserMessage())
			}
			return err
		}
		if err := e.session.SignIn(cmd.Context(), token); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		u, _ := e.session.User()
		fmt.Fprintf(out, "Signed in as %s\n", u.Username)
		return nil
	},
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.session.SignOut(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		u, ok := e.session.User()
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", u.Username, u.Email)
		return nil
	},
}

func init() {
	loginCmd.Flags().String("email", "", "Account email")
	loginCmd.Flags().String("password", "", "Account password (prompted when empty)")
}
