package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func (a *app) startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Print the welcome banner and check the database",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, _ []string) error {
			a.printf("Welcome to Library CLI!\n\n")
			if err := a.lm.Database().Ping(ctx); err != nil {
				return err
			}
			a.printf("Connected to the database (%s)\n", a.cfg.DBPath)
			a.printf("You can execute the command '--help' to see the possible commands\n")
			return nil
		}),
	}
}

func (a *app) signUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign_up USER_NAME [PASSWORD]",
		Short: "Sign up a new user",
		Long:  "Sign up a new user. The password is prompted for when it is not given.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: a.run(func(ctx context.Context, args []string) error {
			name := args[0]
			password, err := a.passwordArg(args, 1, "Enter password for "+name+": ")
			if err != nil {
				return err
			}
			if _, err := a.lm.SignUp(ctx, name, password); err != nil {
				return err
			}
			a.printf("User %s signed up successfully!\n", name)
			return nil
		}),
	}
}

func (a *app) deleteUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete_user USER_NAME",
		Short: "Delete a user and everything they borrowed, read or favorited",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, args []string) error {
			if err := a.lm.DeleteUser(ctx, args[0]); err != nil {
				return err
			}
			a.printf("User '%s' deleted successfully.\n", args[0])
			return nil
		}),
	}
}

func (a *app) signInCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign_in USER_NAME [PASSWORD]",
		Short: "Verify a user's credentials",
		Args:  cobra.RangeArgs(1, 2),
		RunE: a.run(func(ctx context.Context, args []string) error {
			password, err := a.passwordArg(args, 1, "Enter your password: ")
			if err != nil {
				return err
			}
			if err := a.lm.SignIn(ctx, args[0], password); err != nil {
				return err
			}
			a.printf("Welcome back, %s!\n", args[0])
			return nil
		}),
	}
}
