package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the session token in the OS keyring",
	Long: `Stores the Coursewire session token in the OS keyring so the other
commands can authenticate. Pass the token with --token or on stdin.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := credentialStore().DeleteToken(); err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "session token (read from stdin if omitted)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	token := loginToken
	if token == "" {
		fmt.Fprint(os.Stderr, "Session token: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}
		token = strings.TrimSpace(line)
	}
	if token == "" {
		return fmt.Errorf("no token provided")
	}

	if err := credentialStore().SetToken(token); err != nil {
		return err
	}
	fmt.Println("Logged in")
	return nil
}
