package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dlpctl/pkg/auth"
	"dlpctl/pkg/output"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored API credentials",
	Long: `Manage stored API credentials.

Profiles are kept in the system keychain when one is available, and in
an encrypted file otherwise. The DLPCTL_API_CLIENT_ID,
DLPCTL_API_CLIENT_SECRET, and DLPCTL_URL environment variables override
stored profiles.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login [profile]",
	Short: "Store API credentials for a profile",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthLogin,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored credential profiles",
	Args:  cobra.NoArgs,
	RunE:  runAuthList,
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove <profile>",
	Short: "Remove a stored credential profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthRemove,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(authRemoveCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	name := "default"
	if len(args) == 1 {
		name = args[0]
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Gateway URL: ")
	url, err := reader.ReadString('\n')
	if err != nil {
		return err
	}

	fmt.Print("API client ID: ")
	clientID, err := reader.ReadString('\n')
	if err != nil {
		return err
	}

	fmt.Print("API client secret: ")
	secret, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read secret: %w", err)
	}

	profile := &auth.Profile{
		Name:         name,
		ClientID:     strings.TrimSpace(clientID),
		ClientSecret: strings.TrimSpace(string(secret)),
		URL:          strings.TrimSpace(url),
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	if err := manager.Store(profile); err != nil {
		return err
	}

	fmt.Printf("Credentials stored for profile %q.\n", name)
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	profiles, err := manager.List()
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		fmt.Println("No stored profiles.")
		return nil
	}

	table := output.NewTable(os.Stdout, []string{"name", "client_id", "client_secret", "url"})
	for _, p := range profiles {
		s := auth.SanitizeProfile(p)
		if err := table.WriteRow([]string{s.Name, s.ClientID, s.ClientSecret, s.URL}); err != nil {
			return err
		}
	}
	return table.Flush()
}

func runAuthRemove(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Profile %q removed.\n", args[0])
	return nil
}
