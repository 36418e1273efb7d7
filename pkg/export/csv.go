// Package export serializes aggregated query results to CSV. The column set
// and order are a stability contract for downstream consumers.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/radops/pacsfind/pkg/pacs"
)

// Header is the fixed first row of every export.
var Header = []string{
	"SourceServer",
	"StudyInstanceUID",
	"PatientID",
	"StudyDate",
	"StudyTime",
	"AccessionNumber",
	"Modalities",
	"SeriesCount",
	"MissingSeries",
}

// MissingSeries column values.
const (
	MissingYes = "yes"
	MissingNo  = "no"
	// MissingUnknown marks studies whose series lookup failed; not the same
	// as a study with zero series.
	MissingUnknown = "unknown"
)

// WriteFile writes the aggregate to path, replacing any existing file.
func WriteFile(path string, results []pacs.ServerResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := Write(f, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write emits the header plus one row per (study, server) pair.
func Write(w io.Writer, results []pacs.ServerResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, sr := range results {
		for _, st := range sr.Studies {
			if err := cw.Write(row(sr.Server.Name, st)); err != nil {
				return fmt.Errorf("write row for study %s: %w", st.Study.StudyInstanceUID, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(server string, st pacs.StudyResult) []string {
	return []string{
		server,
		st.Study.StudyInstanceUID,
		st.Study.PatientID,
		st.Study.StudyDate,
		st.Study.StudyTime,
		st.Study.AccessionNumber,
		joinModalities(st.Study.Modalities),
		strconv.Itoa(seriesCount(st)),
		missingFlag(st),
	}
}

// seriesCount prefers the observed series count; when the lookup failed it
// falls back to the study-level claim.
func seriesCount(st pacs.StudyResult) int {
	if st.SeriesKnown {
		return len(st.Series)
	}
	return st.Study.NumSeries
}

func missingFlag(st pacs.StudyResult) string {
	switch {
	case !st.SeriesKnown:
		return MissingUnknown
	case st.MissingSeries:
		return MissingYes
	default:
		return MissingNo
	}
}

// joinModalities renders the modality set sorted and deduplicated so rows
// are stable across servers that report the claim in different orders.
func joinModalities(codes []string) string {
	seen := make(map[string]struct{}, len(codes))
	uniq := make([]string, 0, len(codes))
	for _, c := range codes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		uniq = append(uniq, c)
	}
	sort.Strings(uniq)
	return strings.Join(uniq, ",")
}
