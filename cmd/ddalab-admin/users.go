package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sdraeger/ddalab-core/internal/storage/postgres"
)

func newUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage institutional server user accounts",
	}
	cmd.AddCommand(newUsersCreateCommand())
	cmd.AddCommand(newUsersListCommand())
	cmd.AddCommand(newUsersDeactivateCommand())
	cmd.AddCommand(newUsersActivateCommand())
	return cmd
}

func newUsersCreateCommand() *cobra.Command {
	var email, name, password, institutionID string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if password == "" {
				password, err = generateSecurePassword()
				if err != nil {
					return fmt.Errorf("generating password: %w", err)
				}
			}

			users := postgres.NewUserRepo(db)
			id := uuid.NewString()
			if err := users.CreateUser(ctx, id, email, name, password, institutionID); err != nil {
				if errors.Is(err, postgres.ErrDuplicateEmail) {
					return fmt.Errorf("user %s already exists", email)
				}
				return err
			}

			fmt.Println("User created successfully.")
			fmt.Println()
			fmt.Printf("  Email:    %s\n", email)
			fmt.Printf("  Name:     %s\n", name)
			fmt.Printf("  Password: %s\n", password)
			fmt.Println()
			fmt.Println("Share these credentials with the user over a secure channel.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "user's email address (required)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "user's display name (required)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (random if omitted)")
	cmd.Flags().StringVar(&institutionID, "institution-id", "", "owning institution id")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newUsersListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			users, err := postgres.NewUserRepo(db).ListUsers(ctx)
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Println("No users found.")
				return nil
			}

			fmt.Printf("%-36s %-30s %-20s %-8s %-8s\n", "ID", "EMAIL", "NAME", "ADMIN", "ACTIVE")
			for _, u := range users {
				fmt.Printf("%-36s %-30s %-20s %-8s %-8s\n",
					u.ID, truncate(u.Email, 28), truncate(u.DisplayName, 18),
					yesNo(u.IsAdmin), yesNo(u.IsActive))
			}
			return nil
		},
	}
}

func newUsersDeactivateCommand() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Suspend a user, preventing further logins",
		RunE: func(cmd *cobra.Command, args []string) error {
			return setActive(userID, false)
		},
	}
	cmd.Flags().StringVar(&userID, "id", "", "user id (required)")
	cmd.MarkFlagRequired("id")
	return cmd
}

func newUsersActivateCommand() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Reactivate a suspended user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return setActive(userID, true)
		},
	}
	cmd.Flags().StringVar(&userID, "id", "", "user id (required)")
	cmd.MarkFlagRequired("id")
	return cmd
}

func setActive(userID string, active bool) error {
	ctx := context.Background()
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.NewUserRepo(db).SetActive(ctx, userID, active); err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return fmt.Errorf("no user with id %s", userID)
		}
		return err
	}
	if active {
		fmt.Printf("User %s has been activated.\n", userID)
	} else {
		fmt.Printf("User %s has been suspended.\n", userID)
	}
	return nil
}

const passwordCharset = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789!@#$%&*"

func generateSecurePassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, 16)
	for i, b := range buf {
		out[i] = passwordCharset[int(b)%len(passwordCharset)]
	}
	return string(out), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
