package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storefront/internal/config"
	"storefront/internal/docstore"
	"storefront/internal/domain"
	"storefront/internal/repos"
)

// seedUsers is the account set OpenDB creates when missing.
func seedUsers(cfg config.Config) []repos.SeedUser {
	return []repos.SeedUser{
		{ID: "u-admin", Email: cfg.SeedAdminEmail, Name: "Admin", Role: domain.RoleAdmin, Password: cfg.SeedPassword},
		{ID: "u-clerk", Email: cfg.SeedClerkEmail, Name: "Clerk", Role: domain.RoleUser, Password: cfg.SeedPassword},
	}
}

func newSeedCmd() *cobra.Command {
	var (
		dsn    string
		brands []string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default users and brands",
		Long: "Seed creates the accounts named by SEED_ADMIN_EMAIL and SEED_CLERK_EMAIL " +
			"(password SEED_PASSWORD) when missing, and adds brands when none exist yet.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig("", dsn)
			if err != nil {
				return err
			}
			db, err := repos.OpenDB(cfg.DBDSN, seedUsers(cfg)...)
			if err != nil {
				return err
			}
			defer db.Close()
			docs, err := docstore.Open(db)
			if err != nil {
				return err
			}
			defer docs.Close()

			n, err := repos.SeedBrands(cmd.Context(), repos.NewBrandRepo(docs), brands...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d brands into %s\n", n, cfg.DBDSN)
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "db", "", "sqlite DSN (overrides DB_DSN)")
	cmd.Flags().StringSliceVar(&brands, "brand", defaultBrands, "brand names to seed")
	return cmd
}
