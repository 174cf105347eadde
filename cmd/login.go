package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Passwordless login commands",
}

var loginRequestCmd = &cobra.Command{
	Use:   "request [email]",
	Short: "Email a login link",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		auth, err := deps.AuthService()
		if err != nil {
			fmt.Printf("Login is not configured: %v\n", err)
			return
		}

		if err := auth.RequestLogin(context.Background(), args[0]); err != nil {
			fmt.Printf("Error requesting login link: %v\n", err)
			return
		}
		fmt.Println("Login link sent")
	},
}

var loginRedeemCmd = &cobra.Command{
	Use:   "redeem [token]",
	Short: "Exchange a login token for a signed assertion",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		auth, err := deps.AuthService()
		if err != nil {
			fmt.Printf("Login is not configured: %v\n", err)
			return
		}

		assertion, err := auth.Redeem(context.Background(), args[0])
		if err != nil {
			fmt.Printf("Redeem failed: %v\n", err)
			return
		}
		fmt.Printf("%s\nExpires: %s\n", assertion.Assertion, assertion.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	},
}

var loginVerifyCmd = &cobra.Command{
	Use:   "verify [assertion]",
	Short: "Verify an assertion and show the parties it can access",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		auth, err := deps.AuthService()
		if err != nil {
			fmt.Printf("Login is not configured: %v\n", err)
			return
		}

		identity, err := auth.Verify(context.Background(), args[0])
		if err != nil {
			fmt.Printf("Verification failed: %v\n", err)
			return
		}
		fmt.Printf("Email: %s\n", identity.Email)
		for _, party := range identity.Parties {
			fmt.Printf("  %s\t%s\n", party.PartyKey, party.PartyName)
		}
	},
}

func init() {
	loginCmd.AddCommand(loginRequestCmd)
	loginCmd.AddCommand(loginRedeemCmd)
	loginCmd.AddCommand(loginVerifyCmd)
	rootCmd.AddCommand(loginCmd)
}
