package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/theirongolddev/exptrack/internal/cli"
	"github.com/theirongolddev/exptrack/internal/dashboard"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var timeNow = time.Now

var (
	flagAuthEmail         string
	flagAuthUsername      string
	flagAuthPasswordStdin bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and remember the session",
	RunE:  runLogin,
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	RunE:  runSignup,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE:  runWhoami,
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, signupCmd} {
		c.Flags().StringVar(&flagAuthEmail, "email", "", "Account email")
		c.Flags().BoolVar(&flagAuthPasswordStdin, "password-stdin", false, "Read the password from stdin")
	}
	signupCmd.Flags().StringVar(&flagAuthUsername, "username", "", "Display name")

	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, whoamiCmd)
}

// runForm runs an interactive form, mapping an abort onto ErrCancelled.
func runForm(groups ...*huh.Group) error {
	err := huh.NewForm(groups...).WithShowHelp(true).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return dashboard.ErrCancelled
	}
	return err
}

func requiredField(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func readPasswordStdin() (string, error) {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func passwordInput(password *string) huh.Field {
	return huh.NewInput().
		Title("Password").
		EchoMode(huh.EchoModePassword).
		Value(password).
		Validate(requiredField("password"))
}

func runLogin(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	email := flagAuthEmail
	var password string
	if flagAuthPasswordStdin {
		if password, err = readPasswordStdin(); err != nil {
			return err
		}
	}

	var fields []huh.Field
	if email == "" {
		fields = append(fields, huh.NewInput().Title("Email").Value(&email).Validate(requiredField("email")))
	}
	if !flagAuthPasswordStdin {
		fields = append(fields, passwordInput(&password))
	}
	if len(fields) > 0 {
		if err := runForm(huh.NewGroup(fields...).Title("Log in")); err != nil {
			return commandError(cli.ActionLogin, err)
		}
	}

	sess, err := e.mgr.Login(cmd.Context(), email, password)
	if err != nil {
		return commandError(cli.ActionLogin, err)
	}
	fmt.Printf("  Logged in as %s\n", sess.User.DisplayName())
	return nil
}

func runSignup(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	email, username := flagAuthEmail, flagAuthUsername
	var password, answer string
	if flagAuthPasswordStdin {
		if password, err = readPasswordStdin(); err != nil {
			return err
		}
	}

	var fields []huh.Field
	if email == "" {
		fields = append(fields, huh.NewInput().Title("Email").Value(&email).Validate(requiredField("email")))
	}
	if username == "" {
		fields = append(fields, huh.NewInput().Title("Username").Value(&username).Validate(requiredField("username")))
	}
	if !flagAuthPasswordStdin {
		fields = append(fields, passwordInput(&password))
	}
	fields = append(fields, huh.NewInput().
		Title(e.mgr.Challenge().Question()).
		Value(&answer).
		Validate(requiredField("answer")))

	if err := runForm(huh.NewGroup(fields...).Title("Sign up")); err != nil {
		return commandError(cli.ActionSignup, err)
	}

	sess, err := e.mgr.Signup(cmd.Context(), email, username, password, answer)
	if err != nil {
		return commandError(cli.ActionSignup, err)
	}
	fmt.Printf("  Welcome, %s! You are logged in.\n", sess.User.DisplayName())
	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	e, err := openEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	e.mgr.Logout()
	fmt.Println("  Logged out. Cached data stays on disk until the next login.")
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	sess, err := e.resume(cmd.Context())
	if err != nil {
		return err
	}

	const labelW = 9
	fmt.Println()
	fmt.Println(cli.RenderKeyValue("User", sess.User.DisplayName(), labelW))
	fmt.Println(cli.RenderKeyValue("Email", sess.User.Email, labelW))
	fmt.Println(cli.RenderKeyValue("ID", fmt.Sprintf("%d", sess.User.ID), labelW))
	fmt.Println(cli.RenderKeyValue("Server", e.client.BaseURL(), labelW))
	fmt.Println()
	return nil
}
