package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radops/pacsfind/pkg/config"
	"github.com/radops/pacsfind/pkg/pacs"
)

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func sampleResult() pacs.ServerResult {
	return pacs.ServerResult{
		Server: config.Server{Name: "main", Host: "10.0.0.1", Port: 104, AET: "PACS1"},
		Studies: []pacs.StudyResult{
			{
				Study: pacs.StudyRecord{
					StudyInstanceUID: "1.2.3",
					PatientID:        "PAT001",
					StudyDate:        "20240301",
					StudyTime:        "081500",
					AccessionNumber:  "ACC1",
					Modalities:       []string{"US", "CT", "US"},
					NumSeries:        3,
				},
				Series: []pacs.SeriesRecord{
					{SeriesInstanceUID: "1.2.3.1", Modality: "CT"},
					{SeriesInstanceUID: "1.2.3.2", Modality: "US"},
				},
				SeriesKnown: true,
			},
		},
	}
}

func TestWrite_HeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []pacs.ServerResult{sampleResult()}))

	rows := parseCSV(t, buf.Bytes())
	require.Len(t, rows, 2)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{
		"main", "1.2.3", "PAT001", "20240301", "081500", "ACC1", "CT,US", "2", "no",
	}, rows[1], "modalities sorted+deduplicated, observed series count wins")
}

func TestWrite_MissingSeriesStates(t *testing.T) {
	sr := pacs.ServerResult{
		Server: config.Server{Name: "main", Host: "h", Port: 104, AET: "A"},
		Studies: []pacs.StudyResult{
			{
				Study:         pacs.StudyRecord{StudyInstanceUID: "1.1", Modalities: []string{"CT", "US"}},
				Series:        []pacs.SeriesRecord{{SeriesInstanceUID: "1.1.1", Modality: "CT"}},
				SeriesKnown:   true,
				MissingSeries: true,
			},
			{
				// series lookup failed: count falls back to the study claim
				Study:       pacs.StudyRecord{StudyInstanceUID: "1.2", NumSeries: 5},
				SeriesKnown: false,
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []pacs.ServerResult{sr}))

	rows := parseCSV(t, buf.Bytes())
	require.Len(t, rows, 3)
	assert.Equal(t, MissingYes, rows[1][8])
	assert.Equal(t, MissingUnknown, rows[2][8])
	assert.Equal(t, "5", rows[2][7], "claimed count used when series unknown")
}

func TestWrite_FailedServerContributesNoRows(t *testing.T) {
	down := pacs.ServerResult{
		Server: config.Server{Name: "down", Host: "h", Port: 104, AET: "D"},
		Err:    errors.New("connection refused"),
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []pacs.ServerResult{down, sampleResult()}))

	rows := parseCSV(t, buf.Bytes())
	require.Len(t, rows, 2, "header plus the healthy server's study")
	assert.Equal(t, "main", rows[1][0])
}

func TestWriteFile_OverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale content\nstale row\n"), 0o644))

	require.NoError(t, WriteFile(path, []pacs.ServerResult{sampleResult()}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows := parseCSV(t, data)
	require.Len(t, rows, 2)
	assert.Equal(t, Header, rows[0])
	assert.NotContains(t, string(data), "stale")
}
