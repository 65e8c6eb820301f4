package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"comicweek/internal/browse"
	"comicweek/internal/config"
	"comicweek/internal/infra/logx"
	"comicweek/internal/releases"
	"comicweek/internal/schedule"
)

func (a *app) state() browse.ViewState {
	return browse.New(a.now(), browse.Options{
		PageSize:    a.cfg.PageSize,
		MinQueryLen: a.cfg.MinQueryLen,
		Filter:      browse.Projection{SingleIssues: a.cfg.SingleIssues},
	})
}

// settle executes req (and any follow-up) and reports a failed status as an error.
func (a *app) settle(ctx context.Context, vs browse.ViewState, req *browse.Request) (browse.ViewState, error) {
	if req == nil {
		return vs, vs.Status.Err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*a.cfg.Timeout)
	defer cancel()
	vs = browse.Run(ctx, a.svc, vs, req)
	if vs.Status.Phase == browse.PhaseError {
		return vs, vs.Status.Err
	}
	return vs, nil
}

func newWeekCmd(a *app) *cobra.Command {
	var page int
	var singles bool
	cmd := &cobra.Command{
		Use:   "week [YYYY-MM-DD]",
		Short: "List the releases of the week containing a date (default: today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vs := a.state()
			var req *browse.Request
			if len(args) == 1 {
				d, err := releases.ParseDate(args[0])
				if err != nil {
					return err
				}
				vs, req = vs.SelectWeek(d.Time)
			} else {
				vs, req = vs.Start()
			}
			vs, err := a.settle(cmd.Context(), vs, req)
			if err != nil {
				return err
			}
			if singles {
				vs = vs.SetFilter(browse.Projection{SingleIssues: true})
			}
			return printPage(cmd.OutOrStdout(), vs.SetPage(page), a.now())
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page to show")
	cmd.Flags().BoolVar(&singles, "singles", false, "hide collected editions")
	return cmd
}

func newWeeksCmd(a *app) *cobra.Command {
	var count, limit int
	var from string
	cmd := &cobra.Command{
		Use:   "weeks",
		Short: "List several consecutive weeks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := a.now()
			if from != "" {
				d, err := releases.ParseDate(from)
				if err != nil {
					return err
				}
				start = d.Time
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 3*a.cfg.Timeout)
			defer cancel()
			results, err := schedule.FetchWeeks(ctx, a.svc, start, count, limit)
			if err != nil {
				return err
			}
			return printWeeks(cmd.OutOrStdout(), results, a.now())
		},
	}
	cmd.Flags().IntVar(&count, "count", 4, "number of weeks")
	cmd.Flags().StringVar(&from, "from", "", "first week (YYYY-MM-DD, default: today)")
	cmd.Flags().IntVar(&limit, "concurrency", schedule.DefaultLimit, "parallel requests")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "search TERM",
		Short: "Search releases by title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vs, req := a.state().Search(strings.Join(args, " "))
			vs, err := a.settle(cmd.Context(), vs, req)
			if err != nil {
				return err
			}
			return printPage(cmd.OutOrStdout(), vs.SetPage(page), a.now())
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page to show")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one release",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id < 1 {
				return fmt.Errorf("invalid id %q", args[0])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Timeout)
			defer cancel()
			r, err := a.svc.FetchDetail(ctx, id)
			if errors.Is(err, releases.ErrNotFound) {
				return fmt.Errorf("release %d not found", id)
			}
			if err != nil {
				return err
			}
			return printRelease(cmd.OutOrStdout(), r)
		},
	}
}

func newSyncCmd(a *app) *cobra.Command {
	var start, end, month string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Ask the service to ingest releases for a date range",
		Long: `sync triggers an upstream ingestion. Without flags it covers the month of
today's week; --month YYYY-MM or --start/--end pick another range.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vs := a.state()
			var req *browse.Request
			switch {
			case month != "":
				m, err := time.Parse("2006-01", month)
				if err != nil {
					return fmt.Errorf("invalid month %q: use YYYY-MM", month)
				}
				vs, req = vs.SyncRange(browse.MonthRange(m))
			case start != "" || end != "":
				s, err := releases.ParseDate(start)
				if err != nil {
					return err
				}
				e, err := releases.ParseDate(end)
				if err != nil {
					return err
				}
				vs, req = vs.SyncRange(s.Time, e.Time)
			default:
				vs, req = vs.SyncMonth()
			}
			vs, err := a.settle(cmd.Context(), vs, req)
			if vs.LastSync != nil {
				ls := vs.LastSync
				logx.Infow("sync finished", "start", ls.Start.Format(releases.DateLayout), "end", ls.End.Format(releases.DateLayout),
					"inserted", ls.Inserted, "updated", ls.Updated)
				fmt.Fprintf(cmd.OutOrStdout(), "synced %s..%s: %d inserted, %d updated\n",
					ls.Start.Format(releases.DateLayout), ls.End.Format(releases.DateLayout), ls.Inserted, ls.Updated)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now lists %d releases\n", vs.Mode, vs.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&month, "month", "", "whole month (YYYY-MM)")
	cmd.MarkFlagsRequiredTogether("start", "end")
	cmd.MarkFlagsMutuallyExclusive("month", "start")
	return cmd
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the release service answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Timeout)
			defer cancel()
			if err := a.svc.Health(ctx); err != nil {
				return fmt.Errorf("%s unreachable: %w", a.cfg.APIURL, err)
			}
			logx.Infow("health ok", "api", a.cfg.APIURL)
			fmt.Fprintf(cmd.OutOrStdout(), "%s ok\n", a.cfg.APIURL)
			return nil
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or write the configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printConfig(cmd.OutOrStdout(), a.cfg)
		},
	}, &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write the effective configuration to PATH (default ~/.comicweekrc)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultPath()
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.Save(path, a.cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	})
	return cmd
}
