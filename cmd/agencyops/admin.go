package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/domain/user"
	"github.com/rpggio/agencyops/internal/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(os.Stderr)
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Info().Str("db", cfg.DB.Path).Msg("schema up to date")
		return nil
	},
}

var (
	userName  string
	userEmail string
	userRole  string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	Args:  cobra.NoArgs,
	RunE:  runUserCreate,
}

var tokenCmd = &cobra.Command{
	Use:   "token <user id or email>",
	Short: "Issue an API bearer token for a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func init() {
	userCreateCmd.Flags().StringVar(&userName, "name", "", "Display name")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "Email address")
	userCreateCmd.Flags().StringVar(&userRole, "role", string(auth.RoleTech), "admin, pm or tech")
	_ = userCreateCmd.MarkFlagRequired("name")
	_ = userCreateCmd.MarkFlagRequired("email")
	userCmd.AddCommand(userCreateCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	logger := newLogger(os.Stderr)
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	users := user.NewService(sqlite.NewUserRepository(db), logger)
	u, err := users.Create(cmd.Context(), auth.System, user.CreateRequest{
		Name:  userName,
		Email: userEmail,
		Role:  auth.Role(userRole),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), u.ID)
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	if !cfg.AuthEnabled() {
		return errors.New("auth.jwt_secret is not configured")
	}
	logger := newLogger(os.Stderr)
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	users := user.NewService(sqlite.NewUserRepository(db), logger)
	u, err := users.Lookup(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	token, err := issuer.Issue(auth.Context{UserID: u.ID, Role: u.Role})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
