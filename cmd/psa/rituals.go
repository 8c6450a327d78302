package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/TAESTUDIOS/psa3/internal/config"
	"github.com/TAESTUDIOS/psa3/internal/model"
	"github.com/TAESTUDIOS/psa3/internal/store/driver"

	"github.com/spf13/cobra"
)

var ritualsCmd = &cobra.Command{
	Use:   "rituals",
	Short: "Inspect ritual configs",
	Long:  `List ritual configs in the configured store and validate seed files.`,
}

var ritualsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List rituals",
	Long:  `Display every ritual with its trigger, webhook and active flag.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		rituals, err := listRituals(ctx, loadedCfg)
		if err != nil {
			return err
		}
		return printRituals(cmd.OutOrStdout(), rituals)
	},
}

var ritualsCheckCmd = &cobra.Command{
	Use:   "check <seed.yaml>",
	Short: "Validate a ritual seed file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rituals, err := driver.LoadSeed(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %d ritual(s) valid in %s\n", len(rituals), args[0])
		return nil
	},
}

func listRituals(ctx context.Context, c *config.Config) ([]model.RitualConfig, error) {
	st, err := driver.Open(ctx, c.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if _, err := driver.Seed(ctx, st.Rituals(), c.Rituals.SeedFile); err != nil {
		return nil, fmt.Errorf("failed to seed rituals: %w", err)
	}
	return st.Rituals().List(ctx)
}

func describeTrigger(t model.Trigger) string {
	switch t.Kind {
	case model.TriggerSchedule:
		if t.Schedule != nil {
			return fmt.Sprintf("schedule %s %s", t.Schedule.Time, t.Schedule.Repeat)
		}
	case model.TriggerChat:
		if t.Chat != nil {
			return "chat " + t.Chat.Keyword
		}
	}
	return string(t.Kind)
}

func printRituals(out io.Writer, rituals []model.RitualConfig) error {
	if len(rituals) == 0 {
		fmt.Fprintln(out, "No rituals configured.")
		fmt.Fprintln(out, "\nAdd one with POST /api/rituals or set rituals.seed_file.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTRIGGER\tACTIVE\tWEBHOOK")
	for _, r := range rituals {
		webhook := r.Webhook
		if webhook == "" {
			webhook = "(mock)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", r.ID, r.Name, describeTrigger(r.Trigger), r.Active, webhook)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	fmt.Fprintf(out, "\nTotal: %d ritual(s)\n", len(rituals))
	return nil
}

func init() {
	ritualsCmd.AddCommand(ritualsLsCmd)
	ritualsCmd.AddCommand(ritualsCheckCmd)
	rootCmd.AddCommand(ritualsCmd)
}
