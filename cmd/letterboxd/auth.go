package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gkmur/letterboxd-cli/internal/core"
)

var loginUsername string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Signs in and stores the credential. Without --username the stored or configured credential is used.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cred := core.Credential{Username: loginUsername}
		if cred.Username != "" {
			secret, err := readPassword()
			if err != nil {
				return err
			}
			cred.Secret = secret
		}

		res, err := current.svc.Login(cmd.Context(), cred)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(res)
		}
		if res.ScrapedUsername != "" {
			fmt.Printf("Signed in as %s\n", res.ScrapedUsername)
		} else {
			fmt.Println("Signed in")
		}
		return nil
	},
}

// readPassword takes LETTERBOXD_PASSWORD, then prompts on a terminal, then
// reads one line from stdin
func readPassword() (string, error) {
	if v := os.Getenv("LETTERBOXD_PASSWORD"); v != "" {
		return v, nil
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forgets the stored credential and the browser profile.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.svc.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Signed out")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Reports whether the browser session is signed in.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := current.svc.Status(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]string{"state": status.State.String(), "username": status.Username})
		}
		if status.Username != "" {
			fmt.Printf("%s as %s\n", status.State, status.Username)
		} else {
			fmt.Println(status.State)
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "username or email address")
	rootCmd.AddCommand(loginCmd, logoutCmd, statusCmd)
}
