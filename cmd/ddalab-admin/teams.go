package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sdraeger/ddalab-core/internal/storage/postgres"
)

func newTeamsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "Manage institutional server teams",
	}
	cmd.AddCommand(newTeamsCreateCommand())
	cmd.AddCommand(newTeamsAddMemberCommand())
	cmd.AddCommand(newTeamsRemoveMemberCommand())
	return cmd
}

func newTeamsCreateCommand() *cobra.Command {
	var name, institutionID string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new team",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			id := uuid.NewString()
			if err := postgres.NewTeamRepo(db).CreateTeam(ctx, id, name, institutionID); err != nil {
				return err
			}
			fmt.Printf("Team created: %s (%s)\n", name, id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "team name (required)")
	cmd.Flags().StringVar(&institutionID, "institution-id", "", "owning institution id")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newTeamsAddMemberCommand() *cobra.Command {
	var teamID, userID, role string
	cmd := &cobra.Command{
		Use:   "add-member",
		Short: "Add a user to a team",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.NewTeamRepo(db).AddMember(ctx, teamID, userID, role); err != nil {
				return err
			}
			fmt.Printf("Added %s to team %s as %s.\n", userID, teamID, role)
			return nil
		},
	}
	cmd.Flags().StringVar(&teamID, "team-id", "", "team id (required)")
	cmd.Flags().StringVar(&userID, "user-id", "", "user id (required)")
	cmd.Flags().StringVar(&role, "role", "member", "team role")
	cmd.MarkFlagRequired("team-id")
	cmd.MarkFlagRequired("user-id")
	return cmd
}

func newTeamsRemoveMemberCommand() *cobra.Command {
	var teamID, userID string
	cmd := &cobra.Command{
		Use:   "remove-member",
		Short: "Remove a user from a team",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.NewTeamRepo(db).RemoveMember(ctx, teamID, userID); err != nil {
				return err
			}
			fmt.Printf("Removed %s from team %s.\n", userID, teamID)
			return nil
		},
	}
	cmd.Flags().StringVar(&teamID, "team-id", "", "team id (required)")
	cmd.Flags().StringVar(&userID, "user-id", "", "user id (required)")
	cmd.MarkFlagRequired("team-id")
	cmd.MarkFlagRequired("user-id")
	return cmd
}
