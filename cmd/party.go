package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zzenonn/partyphoto/internal/domain"
	"github.com/zzenonn/partyphoto/internal/service"
)

var partyCmd = &cobra.Command{
	Use:   "party",
	Short: "Party membership commands",
}

var partyAddMemberCmd = &cobra.Command{
	Use:   "add-member [party] [email]",
	Short: "Give an email address access to a party",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")
		membership := domain.PartyMembership{
			PartyKey:  args[0],
			Email:     service.NormalizeEmail(args[1]),
			PartyName: name,
			AddedAt:   time.Now().UTC(),
		}

		if err := deps.Parties.AddMember(context.Background(), membership); err != nil {
			fmt.Printf("Error adding member: %v\n", err)
			return
		}
		fmt.Printf("Added %s to party %s\n", membership.Email, membership.PartyKey)
	},
}

var partyListCmd = &cobra.Command{
	Use:   "list [email]",
	Short: "List the parties an email address belongs to",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		parties, err := deps.Parties.ListPartiesByEmail(context.Background(), service.NormalizeEmail(args[0]))
		if err != nil {
			fmt.Printf("Error listing parties: %v\n", err)
			return
		}
		if len(parties) == 0 {
			fmt.Println("No parties found")
			return
		}
		for _, party := range parties {
			fmt.Printf("%s\t%s\n", party.PartyKey, party.PartyName)
		}
	},
}

func init() {
	partyAddMemberCmd.Flags().String("name", "", "display name of the party")
	partyCmd.AddCommand(partyAddMemberCmd)
	partyCmd.AddCommand(partyListCmd)
	rootCmd.AddCommand(partyCmd)
}
