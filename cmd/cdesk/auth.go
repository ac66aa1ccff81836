package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	Run: run(func(ctx context.Context, a *app, args []string) error {
		email, password, err := promptCredentials(loginEmail, loginPassword)
		if err != nil {
			return err
		}
		if err := a.provider.SignInWithPassword(ctx, email, password); err != nil {
			return err
		}
		fmt.Printf("Signed in as %s\n", email)
		return nil
	}),
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Register a new user and sign in",
	Run: run(func(ctx context.Context, a *app, args []string) error {
		email, password, err := promptCredentials(loginEmail, loginPassword)
		if err != nil {
			return err
		}
		if err := a.provider.CreateAccount(ctx, email, password); err != nil {
			return err
		}
		fmt.Printf("Registered and signed in as %s\n", email)
		return nil
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the session",
	Run: run(func(ctx context.Context, a *app, args []string) error {
		if err := a.provider.SignOut(ctx); err != nil {
			return err
		}
		fmt.Println("Signed out")
		return nil
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Run: run(func(ctx context.Context, a *app, args []string) error {
		user := a.ws.User()
		if user == nil {
			fmt.Println("Not signed in")
			return nil
		}
		fmt.Printf("%s <%s>\n", user.Name, user.Email)
		return nil
	}),
}

var loginEmail, loginPassword string

// promptCredentials uses flag values when both are set, otherwise asks
// interactively.
func promptCredentials(email, password string) (string, string, error) {
	if email != "" && password != "" {
		return email, password, nil
	}
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Email").Value(&email),
		huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&password),
	))
	if err := form.Run(); err != nil {
		return "", "", fmt.Errorf("cancelled: %w", err)
	}
	return email, password, nil
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "email address")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password (prompted when omitted)")
	signupCmd.Flags().StringVar(&loginEmail, "email", "", "email address")
	signupCmd.Flags().StringVar(&loginPassword, "password", "", "password (prompted when omitted)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}
