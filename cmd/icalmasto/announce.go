package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"icalmasto/internal/agenda"
	"icalmasto/internal/config"
	"icalmasto/internal/ics"
	appLog "icalmasto/internal/log"
	"icalmasto/internal/masto"
	"icalmasto/internal/store"
	"icalmasto/internal/watch"
)

// announcer is the fetch/select/compose/post pipeline shared by the
// announce command and watch mode.
type announcer struct {
	cfg     *config.Config
	loc     *time.Location
	fetcher *ics.Fetcher
	client  *masto.Client
	creds   *masto.Credentials
	limit   int

	// st, when non-nil, suppresses events that were already posted
	// (watch mode). One-shot announce leaves it nil.
	st *store.Store

	// dryRun prints the composed status instead of posting it.
	dryRun bool
	out    func(format string, a ...any)
}

func newAnnouncer(cfg *config.Config, limitOverride int, dryRun bool, out func(string, ...any)) (*announcer, error) {
	if cfg.Webcal == "" {
		return nil, fmt.Errorf("config has no webcal feed locator")
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	limit := cfg.Limit
	if limitOverride >= 0 {
		limit = limitOverride
	}

	a := &announcer{
		cfg:     cfg,
		loc:     loc,
		fetcher: ics.NewFetcher(loc),
		limit:   limit,
		dryRun:  dryRun,
		out:     out,
	}

	if !dryRun {
		creds, err := masto.LoadCredentials(cfg.TokenFile)
		if err != nil {
			return nil, err
		}
		a.creds = creds
		a.client = masto.NewClient(creds.Instance)
	}

	return a, nil
}

// AnnounceOnce runs one pipeline pass with now as the reference time.
func (a *announcer) AnnounceOnce(ctx context.Context, now time.Time) error {
	cal, err := a.fetcher.Fetch(ctx, a.cfg.Webcal)
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}

	events := agenda.UpcomingLimited(cal, now, a.limit)

	if a.st != nil {
		events, err = a.st.FilterNew(events)
		if err != nil {
			return fmt.Errorf("filter announced: %w", err)
		}
		if len(events) == 0 {
			// Nothing new since the last tick; stay quiet instead of
			// repeating the no-events message every hour.
			appLog.Info("announce: nothing new to post")
			return nil
		}
	}

	status := agenda.ComposeStatus(events, a.loc)

	if a.dryRun {
		a.out("%s\n", status)
		return nil
	}

	posted, err := a.client.PostStatus(ctx, a.creds.AccessToken, masto.NewStatus{
		Status:     status,
		Visibility: a.cfg.Visibility,
	})
	if err != nil {
		return fmt.Errorf("post status: %w", err)
	}

	appLog.Info("announce: status posted", "id", posted.ID, "events", len(events))
	if posted.URL != "" {
		a.out("Posted: %s\n", posted.URL)
	}

	if a.st != nil {
		if err := a.st.MarkAnnounced(events, now); err != nil {
			return fmt.Errorf("mark announced: %w", err)
		}
	}

	return nil
}

func newAnnounceCmd() *cobra.Command {
	var (
		configPath string
		limit      int
		nowStr     string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "announce",
		Short: "Fetch the calendar feed and post upcoming events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			a, err := newAnnouncer(cfg, limit, dryRun, cmd.Printf)
			if err != nil {
				return err
			}

			now := time.Now()
			if nowStr != "" {
				now, err = agenda.ParseReference(nowStr, a.loc)
				if err != nil {
					return fmt.Errorf("invalid --now value %q: %w", nowStr, err)
				}
			}

			return a.AnnounceOnce(cmd.Context(), now)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file path (default: user config dir)")
	cmd.Flags().IntVar(&limit, "limit", -1, "Maximum events to announce (overrides config)")
	cmd.Flags().StringVar(&nowStr, "now", "", "Reference time in 20060102T150405Z form (default: current time)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the status instead of posting it")

	return cmd
}

func newWatchCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Periodically announce new upcoming events on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			a, err := newAnnouncer(cfg, limit, false, cmd.Printf)
			if err != nil {
				return err
			}

			st, err := store.New(cfg.StateFile)
			if err != nil {
				return fmt.Errorf("open state store: %w", err)
			}
			defer st.Close()
			a.st = st

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return watch.New(cfg.RefreshCron, a.loc, a).Start(ctx)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file path (default: user config dir)")
	cmd.Flags().IntVar(&limit, "limit", -1, "Maximum events per announcement (overrides config)")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}
