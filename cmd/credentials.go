package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"telly/internal/credentials"
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Inspect or clear stored pairing credentials",
}

var credentialsClearCmd = &cobra.Command{
	Use:   "clear [tv]",
	Short: "Forget every credential and pending pairing for a TV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		profile, err := a.profile(args[0], "", "")
		if err != nil {
			return err
		}
		if err := a.router.ClearCredentials(profile); err != nil {
			return fmt.Errorf("failed to clear credentials: %w", err)
		}
		fmt.Printf("cleared credentials for %s\n", profile.DisplayName())
		return nil
	},
}

var credentialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the credential keys held per namespace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		for _, ns := range credentials.Namespaces() {
			for _, key := range a.store.Keys(ns) {
				fmt.Printf("%s\t%s\n", ns, key)
			}
		}
		return nil
	},
}

func init() {
	credentialsCmd.AddCommand(credentialsClearCmd)
	credentialsCmd.AddCommand(credentialsListCmd)
}
