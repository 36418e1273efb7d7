package pacs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/radops/pacsfind/pkg/config"
)

// Orchestrator drives one server's query stream: window by window at STUDY
// level, then study by study at SERIES level, strictly sequentially so a
// single remote never sees parallel associations from this process.
type Orchestrator struct {
	Finder Finder
	Filter ModalityFilter
	Logger *slog.Logger
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Run queries srv across the given windows. Window and study failures are
// recorded on the result and never abort the remaining windows.
func (o *Orchestrator) Run(ctx context.Context, srv config.Server, windows []Window) ServerResult {
	log := o.logger().With("server", srv.Name)
	result := ServerResult{Server: srv}
	var errs []error

	for _, win := range windows {
		studies, err := o.Finder.FindStudies(ctx, srv, win)
		if err != nil {
			log.WarnContext(ctx, "study query failed, window skipped",
				"window", win.String(), "error", err)
			errs = append(errs, err)
			continue
		}
		log.DebugContext(ctx, "window queried",
			"window", win.String(), "studies", len(studies))

		for _, study := range studies {
			if !o.Filter.Keep(study.Modalities) {
				continue
			}
			sr, err := o.lookupSeries(ctx, srv, study)
			if err != nil {
				log.WarnContext(ctx, "series query failed, series left unknown",
					"study_uid", study.StudyInstanceUID, "error", err)
				errs = append(errs, err)
			}
			result.Studies = append(result.Studies, sr)
		}
	}

	result.Err = errors.Join(errs...)
	return result
}

// lookupSeries fetches the study's series and computes the missing-series
// flag. On failure the series list is unknown, which is distinct from a
// study that legitimately has zero series.
func (o *Orchestrator) lookupSeries(ctx context.Context, srv config.Server, study StudyRecord) (StudyResult, error) {
	series, err := o.Finder.FindSeries(ctx, srv, study.StudyInstanceUID)
	if err != nil {
		return StudyResult{Study: study}, err
	}
	return StudyResult{
		Study:         study,
		Series:        series,
		SeriesKnown:   true,
		MissingSeries: hasMissingSeries(study.Modalities, series),
	}, nil
}

// hasMissingSeries reports whether the study-level modality claim names a
// modality for which no series came back.
func hasMissingSeries(declared []string, series []SeriesRecord) bool {
	if len(declared) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(series))
	for _, se := range series {
		seen[se.Modality] = struct{}{}
	}
	for _, m := range declared {
		if _, ok := seen[m]; !ok {
			return true
		}
	}
	return false
}
