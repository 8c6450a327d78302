package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/TAESTUDIOS/psa3/internal/api"
	"github.com/TAESTUDIOS/psa3/internal/assistant"
	"github.com/TAESTUDIOS/psa3/internal/config"
	"github.com/TAESTUDIOS/psa3/internal/scheduler"
	"github.com/TAESTUDIOS/psa3/internal/store/driver"

	"github.com/spf13/cobra"
)

const tickTimeout = 30 * time.Second

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Fire every ritual due this minute",
	Long: `Calls GET /api/scheduler/tick on a running server with the scheduler token,
the way an external cron would. With --local the tick runs against the configured
store directly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithTimeout(parent, tickTimeout)
		defer cancel()

		var result scheduler.TickResult
		if local, _ := cmd.Flags().GetBool("local"); local {
			result, err = localTick(ctx, loadedCfg, time.Now())
		} else {
			url, _ := cmd.Flags().GetString("url")
			result, err = remoteTick(ctx, http.DefaultClient, tickURL(loadedCfg, url), loadedCfg.Scheduler.Token)
		}
		if err != nil {
			return err
		}

		return printTick(cmd.OutOrStdout(), result)
	},
}

func tickURL(c *config.Config, override string) string {
	base := strings.TrimSpace(override)
	if base == "" {
		base = strings.TrimSpace(c.Server.BaseURL)
	}
	if base == "" {
		port := c.Server.Port
		if port == 0 {
			port = config.DefaultServerPort
		}
		base = fmt.Sprintf("http://localhost:%d", port)
	}
	return strings.TrimRight(base, "/") + "/api/scheduler/tick"
}

func remoteTick(ctx context.Context, client *http.Client, url, token string) (scheduler.TickResult, error) {
	var result scheduler.TickResult

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return result, fmt.Errorf("build tick request: %w", err)
	}
	req.Header.Set(api.HeaderSchedulerToken, token)

	resp, err := client.Do(req)
	if err != nil {
		return result, fmt.Errorf("tick %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, fmt.Errorf("read tick response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("tick %s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return result, fmt.Errorf("decode tick response: %w", err)
	}
	return result, nil
}

func localTick(ctx context.Context, c *config.Config, now time.Time) (scheduler.TickResult, error) {
	var result scheduler.TickResult

	st, err := driver.Open(ctx, c.Store)
	if err != nil {
		return result, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if _, err := driver.Seed(ctx, st.Rituals(), c.Rituals.SeedFile); err != nil {
		return result, fmt.Errorf("failed to seed rituals: %w", err)
	}

	asst, err := assistant.New(st, c)
	if err != nil {
		return result, fmt.Errorf("failed to build assistant: %w", err)
	}
	return asst.Scheduler.Tick(ctx, now), nil
}

func printTick(w io.Writer, result scheduler.TickResult) error {
	fmt.Fprintf(w, "Time: %s\n", result.Time)
	fmt.Fprintf(w, "Due: %s\n", joinOrNone(result.Due))
	fmt.Fprintf(w, "Triggered: %s\n", joinOrNone(result.Triggered))
	return nil
}

func joinOrNone(ids []string) string {
	if len(ids) == 0 {
		return "(none)"
	}
	return strings.Join(ids, ", ")
}

func init() {
	rootCmd.AddCommand(tickCmd)
	tickCmd.Flags().String("url", "", "server base URL (default server.base_url or http://localhost:<port>)")
	tickCmd.Flags().Bool("local", false, "run the tick in-process against the configured store")
	tickCmd.Flags().String("scheduler.token", "", "scheduler token sent as "+api.HeaderSchedulerToken)
}
