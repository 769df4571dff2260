package main

import (
	"context"
	"os"

	outreachdomain "github.com/smallbiznis/outreach/internal/outreach/domain"
	signupdomain "github.com/smallbiznis/outreach/internal/signup/domain"
	"github.com/spf13/cobra"
)

var (
	dispatchIDs      []int64
	dispatchSubject  string
	dispatchTemplate string
)

var stageArgs = map[string]signupdomain.Stage{
	"invite":   signupdomain.StageInvite,
	"followup": signupdomain.StageFollowUp,
}

var dispatchCmd = &cobra.Command{
	Use:       "dispatch invite|followup --ids 1,2,3",
	Short:     "Send one outreach stage to a batch of signups",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"invite", "followup"},
	RunE: func(cmd *cobra.Command, args []string) error {
		req := outreachdomain.DispatchRequest{
			IDs:     dispatchIDs,
			Stage:   stageArgs[args[0]],
			Subject: dispatchSubject,
		}
		if dispatchTemplate != "" {
			raw, err := os.ReadFile(dispatchTemplate)
			if err != nil {
				return err
			}
			req.HTMLTemplate = string(raw)
		}

		return withServices(cmd.Context(), func(ctx context.Context, s services) error {
			report, err := s.Outreach.Dispatch(ctx, req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		})
	},
}

func init() {
	dispatchCmd.Flags().Int64SliceVar(&dispatchIDs, "ids", nil, "signup ids, in dispatch order")
	dispatchCmd.Flags().StringVar(&dispatchSubject, "subject", "", "subject template overriding the configured one (followup only)")
	dispatchCmd.Flags().StringVar(&dispatchTemplate, "template", "", "path to an HTML body template (followup only)")
	_ = dispatchCmd.MarkFlagRequired("ids")
	rootCmd.AddCommand(dispatchCmd)
}
