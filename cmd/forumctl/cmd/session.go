package cmd

import (
	"errors"
	"fmt"
	"time"

	"forum/backend/internal/client"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := newGateway()
		if err != nil {
			return err
		}
		if err := gw.Logout(cmd.Context()); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
		pterm.Success.Println("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the account of the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := newGateway()
		if err != nil {
			return err
		}
		if !gw.IsAuthenticated() {
			return fmt.Errorf("not logged in")
		}
		profile, err := gw.Profile()
		if err != nil {
			return err
		}

		return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
			{"ID", "EMAIL", "NAME", "ROLE", "STATUS"},
			{
				fmt.Sprint(profile.ID),
				profile.Email,
				profile.Name + " " + profile.LastName,
				profile.Role.String(),
				string(profile.Status),
			},
		}).Render()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the local token expiry",
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := newGateway()
		if err != nil {
			return err
		}
		info, err := gw.TokenInfo()
		if err != nil {
			if errors.Is(err, client.ErrNotAuthenticated) {
				return fmt.Errorf("not logged in")
			}
			return err
		}

		pterm.DefaultSection.Println("Session")
		pterm.Info.Printf("Account: %s (id %d, %s)\n", info.Identifier, info.SubjectID, info.Role)
		pterm.Info.Printf("Expires: %s (%d minutes left)\n", info.ExpiresAt.Local().Format(time.RFC1123), info.MinutesRemaining)
		if !gw.IsAuthenticated() {
			pterm.Warning.Println("Token expired or about to expire; session cleared")
		}
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Ask the server to validate the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := newGateway()
		if err != nil {
			return err
		}
		result, err := gw.Verify(cmd.Context())
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}

		pterm.Success.Printf("Token valid for %s\n", result.Profile.Email)
		pterm.Info.Printf("Expires: %s (%d minutes left)\n", result.TokenInfo.ExpiresAt.Local().Format(time.RFC1123), result.TokenInfo.MinutesRemaining)
		if result.TokenInfo.ExpiringSoon {
			pterm.Warning.Println("Session expires soon; log in again to renew")
		}
		return nil
	},
}
