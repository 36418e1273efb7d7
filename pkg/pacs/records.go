package pacs

import (
	"github.com/radops/pacsfind/pkg/config"
)

// StudyRecord is one STUDY-level C-FIND match.
type StudyRecord struct {
	StudyInstanceUID string
	PatientID        string
	StudyDate        string
	StudyTime        string
	AccessionNumber  string
	// Modalities is the ModalitiesInStudy claim, upper-cased.
	Modalities []string
	// NumSeries and NumInstances are the study-level related counts as
	// reported by the server; zero when absent or unparseable.
	NumSeries    int
	NumInstances int
}

// SeriesRecord is one SERIES-level C-FIND match scoped to a study.
type SeriesRecord struct {
	SeriesInstanceUID string
	Modality          string
	SeriesNumber      string
	NumInstances      int
}

// StudyResult pairs a kept study with its series lookup outcome.
type StudyResult struct {
	Study  StudyRecord
	Series []SeriesRecord
	// SeriesKnown is false when the series lookup failed; an empty Series
	// slice with SeriesKnown true means the study genuinely has no series.
	SeriesKnown bool
	// MissingSeries is set when the study-level modality claim names a
	// modality no returned series carries. Data-quality flag, not an error.
	MissingSeries bool
}

// ServerResult is one server's complete contribution to a run.
type ServerResult struct {
	Server  config.Server
	Studies []StudyResult
	// Err aggregates every window/study failure recorded for this server.
	// Non-nil Err with a non-empty Studies slice means a partial result.
	Err error
}
