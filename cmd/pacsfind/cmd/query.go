package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/radops/pacsfind/pkg/config"
	"github.com/radops/pacsfind/pkg/export"
	"github.com/radops/pacsfind/pkg/logging"
	"github.com/radops/pacsfind/pkg/pacs"
)

const dateLayout = "20060102"

// NewQueryCmd creates the query cobra command
func NewQueryCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "query all configured PACS servers for studies in a date range",
		Long:  "Runs STUDY-level C-FIND per time window against every configured server, resolves each kept study's series, and writes one CSV row per (study, server).",
		RunE: func(cmd *cobra.Command, args []string) error {
			startArg, _ := cmd.Flags().GetString("start_date")
			endArg, _ := cmd.Flags().GetString("end_date")
			include, _ := cmd.Flags().GetStringSlice("modality")
			exclude, _ := cmd.Flags().GetStringSlice("exclude")
			cfgPath, _ := cmd.Flags().GetString("cfg")
			output, _ := cmd.Flags().GetString("output")
			aet, _ := cmd.Flags().GetString("aet")
			window, _ := cmd.Flags().GetDuration("window")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			start, err := time.Parse(dateLayout, startArg)
			if err != nil {
				return fmt.Errorf("invalid --start_date %q: expected YYYYMMDD", startArg)
			}
			endDay, err := time.Parse(dateLayout, endArg)
			if err != nil {
				return fmt.Errorf("invalid --end_date %q: expected YYYYMMDD", endArg)
			}
			// end_date is inclusive: query through the end of that day
			end := endDay.AddDate(0, 0, 1)
			if !end.After(start) {
				return fmt.Errorf("--end_date %s precedes --start_date %s", endArg, startArg)
			}
			if window <= 0 {
				return fmt.Errorf("--window must be positive, got %s", window)
			}

			servers, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			ctx := logging.AppendCtx(ctx, slog.String("run_id", uuid.NewString()))
			return runQuery(ctx, queryParams{
				servers: servers,
				start:   start,
				end:     end,
				window:  window,
				timeout: timeout,
				include: include,
				exclude: exclude,
				aet:     aet,
				output:  output,
			})
		},
	}

	pf := cmd.Flags()
	pf.String("start_date", "", "range start, YYYYMMDD")
	pf.String("end_date", "", "range end, YYYYMMDD (inclusive)")
	pf.StringSlice("modality", nil, "modality codes to include (default: all)")
	pf.StringSlice("exclude", nil, "modality codes to exclude")
	pf.String("cfg", "", "path to the PACS server config file")
	pf.String("output", "", "path to the output CSV (overwritten)")
	pf.String("aet", "PACSFIND", "local calling AE title")
	pf.Duration("window", 4*time.Hour, "maximum query window per C-FIND")
	pf.Duration("timeout", 30*time.Second, "per-association network timeout")
	cmd.MarkFlagRequired("start_date")
	cmd.MarkFlagRequired("end_date")
	cmd.MarkFlagRequired("cfg")
	cmd.MarkFlagRequired("output")

	return cmd
}

type queryParams struct {
	servers []config.Server
	start   time.Time
	end     time.Time
	window  time.Duration
	timeout time.Duration
	include []string
	exclude []string
	aet     string
	output  string
}

// runQuery fans the windowed queries out across servers and exports the
// aggregate. Per-server failures are reported in the log and the result's
// error annotation; only argument/config problems abort a run.
func runQuery(ctx context.Context, p queryParams) error {
	windows := pacs.SplitWindows(p.start, p.end, p.window)
	slog.InfoContext(ctx, "starting query run",
		"servers", len(p.servers),
		"windows", len(windows),
		"start", p.start.Format(dateLayout),
		"end", p.end.Format(dateLayout),
		"calling_aet", p.aet)

	finder := &pacs.Client{
		CallingAET: p.aet,
		Timeout:    p.timeout,
		Logger:     slog.Default(),
	}
	filter := pacs.NewModalityFilter(p.include, p.exclude)

	results := pacs.QueryAll(ctx, finder, filter, p.servers, windows, slog.Default())

	studies := 0
	for _, sr := range results {
		studies += len(sr.Studies)
		if sr.Err != nil {
			slog.WarnContext(ctx, "server finished with errors",
				"server", sr.Server.Name, "studies", len(sr.Studies), "error", sr.Err)
			continue
		}
		slog.InfoContext(ctx, "server finished",
			"server", sr.Server.Name, "studies", len(sr.Studies))
	}

	if err := export.WriteFile(p.output, results); err != nil {
		return err
	}
	slog.InfoContext(ctx, "export written", "path", p.output, "rows", studies)
	return nil
}
