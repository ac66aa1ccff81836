package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update the signed-in user's profile",
	Run: run(func(ctx context.Context, a *app, args []string) error {
		user := a.ws.User()
		if user == nil {
			return fmt.Errorf("not signed in")
		}
		fmt.Printf("Name:    %s\n", user.Name)
		fmt.Printf("Email:   %s\n", user.Email)
		fmt.Printf("Avatar:  %s\n", user.Avatar)
		return nil
	}),
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update display name and optionally the avatar",
}

func init() {
	profileUpdateCmd.Run = run(func(ctx context.Context, a *app, args []string) error {
		name, _ := profileUpdateCmd.Flags().GetString("name")
		avatarPath, _ := profileUpdateCmd.Flags().GetString("avatar")

		if name == "" {
			if user := a.ws.User(); user != nil {
				name = user.Name
			}
		}

		var avatarData []byte
		var avatarName string
		if avatarPath != "" {
			data, err := os.ReadFile(avatarPath)
			if err != nil {
				return fmt.Errorf("failed to read avatar file: %w", err)
			}
			avatarData = data
			avatarName = filepath.Base(avatarPath)
		}

		if err := a.ws.UpdateProfile(ctx, name, avatarName, avatarData); err != nil {
			return err
		}
		fmt.Println("Profile updated")
		return nil
	})
}

func init() {
	profileUpdateCmd.Flags().String("name", "", "new display name")
	profileUpdateCmd.Flags().String("avatar", "", "path to a new avatar image")

	profileCmd.AddCommand(profileUpdateCmd)
	rootCmd.AddCommand(profileCmd)
}
