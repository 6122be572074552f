package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/frahmantamala/reimbursement-management/internal"
	"github.com/frahmantamala/reimbursement-management/internal/user"
	"github.com/spf13/cobra"
)

var (
	clearData    bool
	seedPassword string
)

// tables in delete order; children before parents
var seededTables = []string{
	"payments",
	"ocr_extractions",
	"receipts",
	"application_comments",
	"expense_applications",
	"categories",
	"users",
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		deps, err := initializeDependencies(cfg)
		if err != nil {
			log.Fatalf("failed to init dependencies: %v", err)
		}
		defer deps.Close()

		if err := seed(cmd.Context(), deps); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	},
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")
	seedCmd.Flags().StringVar(&seedPassword, "password", "password", "Password given to the seeded users")
}

func seed(ctx context.Context, deps *Dependencies) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if clearData {
		for _, table := range seededTables {
			if _, err := deps.DB.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		fmt.Println("Cleared existing data")
	}

	hash, err := deps.Auth.HashPassword(seedPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	users := []*user.User{
		{
			Email:    "admin@example.com",
			Name:     "Admin",
			Role:     internal.RoleAdmin,
			IsActive: true,
		},
		{
			Email:    "member@example.com",
			Name:     "Yamada Taro",
			Role:     internal.RoleMember,
			IsActive: true,
			BankAccount: &user.BankAccount{
				BankCode:          "0001",
				BranchCode:        "001",
				AccountType:       "1",
				AccountNumber:     "1234567",
				AccountHolderKana: "ﾔﾏﾀﾞ ﾀﾛｳ",
			},
		},
	}

	for _, u := range users {
		seeded, created, err := deps.Users.EnsureUser(ctx, u, hash)
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.Email, err)
		}
		if created {
			fmt.Println("Seeded user:", seeded.Email, "role:", seeded.Role)
		} else {
			fmt.Println("User already exists:", seeded.Email)
		}
	}

	categories := []struct {
		Name string
		Desc string
	}{
		{"travel", "business travel and transportation"},
		{"meals", "meals and entertainment"},
		{"office", "office supplies and equipment"},
		{"training", "books, courses and conferences"},
		{"other", "other expenses"},
	}

	for _, c := range categories {
		if _, err := deps.Categories.EnsureCategory(ctx, c.Name, c.Desc); err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c.Name, err)
		}
	}

	fmt.Println("Categories seeded successfully")
	return nil
}
