package main

import (
	"context"

	"github.com/spf13/cobra"
)

var creditsEmail string

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Print signup rates and the projected date to reach the target",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, s services) error {
			projection, err := s.Forecast.Analyze(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), projection)
		})
	},
}

var creditsCmd = &cobra.Command{
	Use:   "credits --email someone@example.com",
	Short: "Print the credit balance of one signup",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, s services) error {
			account, err := s.Credit.Lookup(ctx, creditsEmail)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"email":      account.Email,
				"first_name": account.FirstName,
				"credits": map[string]any{
					"total":          account.Credits.Total,
					"earned":         account.Credits.Earned,
					"referrals":      account.Credits.ReferralCount,
					"signup_bonus":   account.Credits.SignupBonus,
					"referral_bonus": account.Credits.ReferralBonus,
					"gift_bonus":     account.Credits.GiftBonus,
				},
			})
		})
	},
}

func init() {
	creditsCmd.Flags().StringVar(&creditsEmail, "email", "", "signup email")
	_ = creditsCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(forecastCmd, creditsCmd)
}
