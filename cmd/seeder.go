package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/school-admin/internal/auth"
	userDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/user"
	"github.com/frahmantamala/school-admin/internal/permission"
)

var resetPasswords bool

type seedUser struct {
	Username string
	Email    string
	Name     string
	Role     string
}

var seedUsers = []seedUser{
	{Username: "admin", Email: "admin@school.local", Name: "School Administrator", Role: permission.RoleAdmin},
	{Username: "teacher", Email: "teacher@school.local", Name: "Demo Teacher", Role: permission.RoleTeacher},
}

const seedPassword = "password"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with default roles and demo users",
	Long:  `Create the default role templates plus an admin and a teacher account (password "password"). Safe to re-run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := initializeDependencies()
		if err != nil {
			return err
		}
		defer deps.Close()

		ctx := context.Background()
		created, err := deps.RoleService.InitializeDefaults(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed default roles: %w", err)
		}
		fmt.Printf("Seeded %d default roles\n", len(created))

		hash, err := auth.HashPassword(seedPassword, deps.Config.Security.BCryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash seed password: %w", err)
		}

		for _, su := range seedUsers {
			existing, err := deps.Users.GetByUsername(ctx, su.Username)
			if err != nil {
				return fmt.Errorf("failed to look up %s: %w", su.Username, err)
			}

			if existing != nil {
				if resetPasswords {
					if err := deps.Users.UpdatePasswordHash(ctx, existing.ID, hash); err != nil {
						return fmt.Errorf("failed to reset password for %s: %w", su.Username, err)
					}
					fmt.Println("Reset password for", su.Username)
					continue
				}
				fmt.Println(su.Username, "already exists; skipping")
				continue
			}

			u := &userDatamodel.User{
				Username:     su.Username,
				Email:        su.Email,
				Name:         su.Name,
				PasswordHash: hash,
				Role:         su.Role,
				IsActive:     true,
				IsApproved:   true,
			}
			if err := deps.Users.Create(ctx, u); err != nil {
				return fmt.Errorf("failed to insert %s: %w", su.Username, err)
			}
			fmt.Printf("Seeded user %s (role %s)\n", su.Username, su.Role)
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&resetPasswords, "reset-passwords", false, "reset the password of seed users that already exist")
}
