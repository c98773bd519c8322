package cli

import (
	"encoding/json"
	"fmt"

	"github.com/soyeahso/creatorpilot/internal/api"
	"github.com/soyeahso/creatorpilot/internal/domain"
	"github.com/soyeahso/creatorpilot/internal/render"
	"github.com/soyeahso/creatorpilot/internal/toolview"
	"github.com/spf13/cobra"
)

func newCampaignsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "campaigns",
		Short: "List campaigns on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireConfig(); err != nil {
				return err
			}
			client := api.New(cfg.Backend, log)

			campaigns, err := client.ListCampaigns(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing campaigns: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(campaigns)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.New(cfg.Chat.Width).View(campaignListView(campaigns)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func campaignListView(campaigns []domain.Campaign) toolview.CampaignList {
	v := toolview.CampaignList{Total: len(campaigns)}
	for _, c := range campaigns {
		s := toolview.CampaignSummary{
			ID:          c.ID,
			Name:        c.Name,
			Status:      c.Status,
			Niche:       c.Niche,
			Description: c.Description,
		}
		if c.Budget > 0 {
			s.Budget = toolview.FormatBudget(float64(c.Budget))
		}
		v.Campaigns = append(v.Campaigns, s)
	}
	return v
}
