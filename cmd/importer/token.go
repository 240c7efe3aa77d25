package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ResourceImporter/internal/auth"
)

var tokenRole string

var tokenCmd = &cobra.Command{
	Use:   "token <name>",
	Short: "Issue a bearer token for the HTTP trigger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(memoryStore)
		if err != nil {
			return err
		}

		authz, err := auth.NewAuthorizer(auth.Config{
			JWTSecret:     cfg.Security.JWTSecret,
			TokenDuration: cfg.Security.TokenDuration,
			ImportRole:    cfg.Security.ImportRole,
		})
		if err != nil {
			return err
		}

		role := tokenRole
		if role == "" {
			role = authz.ImportRole()
		}

		token, err := authz.GenerateToken(args[0], role)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenRole, "role", "", "role claim (default: the import role)")
	rootCmd.AddCommand(tokenCmd)
}
