package pacs

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/caio-sobreiro/dicomnet/client"
	"github.com/caio-sobreiro/dicomnet/dicom"
	"github.com/caio-sobreiro/dicomnet/dimse"

	"github.com/radops/pacsfind/pkg/config"
)

// Query tags used in the C-FIND identifiers.
var (
	tagQueryRetrieveLevel        = dicom.Tag{Group: 0x0008, Element: 0x0052}
	tagStudyDate                 = dicom.Tag{Group: 0x0008, Element: 0x0020}
	tagStudyTime                 = dicom.Tag{Group: 0x0008, Element: 0x0030}
	tagAccessionNumber           = dicom.Tag{Group: 0x0008, Element: 0x0050}
	tagModality                  = dicom.Tag{Group: 0x0008, Element: 0x0060}
	tagModalitiesInStudy         = dicom.Tag{Group: 0x0008, Element: 0x0061}
	tagPatientID                 = dicom.Tag{Group: 0x0010, Element: 0x0020}
	tagStudyInstanceUID          = dicom.Tag{Group: 0x0020, Element: 0x000D}
	tagSeriesInstanceUID         = dicom.Tag{Group: 0x0020, Element: 0x000E}
	tagSeriesNumber              = dicom.Tag{Group: 0x0020, Element: 0x0011}
	tagNumStudyRelatedSeries     = dicom.Tag{Group: 0x0020, Element: 0x1206}
	tagNumStudyRelatedInstances  = dicom.Tag{Group: 0x0020, Element: 0x1208}
	tagNumSeriesRelatedInstances = dicom.Tag{Group: 0x0020, Element: 0x1209}
)

const (
	levelStudy  = "STUDY"
	levelSeries = "SERIES"

	dateFormat = "20060102"
	timeFormat = "150405"
)

// Finder issues C-FIND queries against one server. The dicomnet-backed
// Client is the production implementation; the orchestrator only depends on
// this interface so tests can substitute a transcript.
type Finder interface {
	FindStudies(ctx context.Context, srv config.Server, win Window) ([]StudyRecord, error)
	FindSeries(ctx context.Context, srv config.Server, studyUID string) ([]SeriesRecord, error)
}

// Client performs C-FIND queries over transient DICOM associations. One
// association per request: open, query, release.
type Client struct {
	// CallingAET identifies this SCU to the remote.
	CallingAET string
	// Timeout bounds dial and per-read/write operations. Zero selects the
	// transport defaults.
	Timeout time.Duration
	Logger  *slog.Logger
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// FindStudies runs one STUDY-level query constrained to the window and
// returns every matching study in response order.
func (c *Client) FindStudies(ctx context.Context, srv config.Server, win Window) ([]StudyRecord, error) {
	identifier := studyQuery(win)
	datasets, err := c.find(ctx, srv, levelStudy, identifier)
	if err != nil {
		return nil, err
	}
	studies := make([]StudyRecord, 0, len(datasets))
	for _, ds := range datasets {
		st := studyFromDataset(ds)
		if st.StudyInstanceUID == "" {
			continue
		}
		studies = append(studies, st)
	}
	return studies, nil
}

// FindSeries runs one SERIES-level query scoped to the study UID.
func (c *Client) FindSeries(ctx context.Context, srv config.Server, studyUID string) ([]SeriesRecord, error) {
	identifier := seriesQuery(studyUID)
	datasets, err := c.find(ctx, srv, levelSeries, identifier)
	if err != nil {
		return nil, err
	}
	series := make([]SeriesRecord, 0, len(datasets))
	for _, ds := range datasets {
		se := seriesFromDataset(ds)
		if se.SeriesInstanceUID == "" {
			continue
		}
		series = append(series, se)
	}
	return series, nil
}

// find opens an association, sends one C-FIND and collects the pending
// identifiers. The final status decides success.
func (c *Client) find(ctx context.Context, srv config.Server, level string, identifier *dicom.Dataset) ([]*dicom.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	assoc, err := client.Connect(srv.Addr(), client.Config{
		CallingAETitle: c.CallingAET,
		CalledAETitle:  srv.AET,
		ConnectTimeout: c.Timeout,
		ReadTimeout:    c.Timeout,
		WriteTimeout:   c.Timeout,
		Logger:         c.logger().With("server", srv.Name),
	})
	if err != nil {
		return nil, &ConnectError{Server: srv.Name, Err: err}
	}
	defer assoc.Close()

	// the association is up at this point, so failures here are query
	// failures, not connect failures
	responses, err := assoc.SendCFind(&client.CFindRequest{Dataset: identifier})
	if err != nil {
		return nil, &QueryError{Server: srv.Name, Level: level, Err: err}
	}

	var datasets []*dicom.Dataset
	final := uint16(dimse.StatusSuccess)
	for _, rsp := range responses {
		if rsp.Status == dimse.StatusPending {
			if rsp.Dataset != nil {
				datasets = append(datasets, rsp.Dataset)
			}
			continue
		}
		final = rsp.Status
	}
	if final != dimse.StatusSuccess {
		return nil, &QueryError{Server: srv.Name, Level: level, Status: final}
	}
	return datasets, nil
}

// studyQuery builds the STUDY-level identifier for one window. Universal
// matching (empty values) requests the return keys; the date and time ranges
// constrain the match. Windows covering whole days match on StudyDate alone,
// sub-day windows add an inclusive StudyTime range, mirroring how PACS
// implementations index acquisition time.
func studyQuery(win Window) *dicom.Dataset {
	ds := dicom.NewDataset()
	ds.AddElement(tagQueryRetrieveLevel, dicom.VR_CS, levelStudy)
	ds.AddElement(tagStudyInstanceUID, dicom.VR_UI, "")
	ds.AddElement(tagPatientID, dicom.VR_LO, "")
	ds.AddElement(tagAccessionNumber, dicom.VR_SH, "")
	ds.AddElement(tagModalitiesInStudy, dicom.VR_CS, "")
	ds.AddElement(tagNumStudyRelatedSeries, dicom.VR_IS, "")
	ds.AddElement(tagNumStudyRelatedInstances, dicom.VR_IS, "")

	last := win.End.Add(-time.Second) // inclusive upper bound for DICOM range matching
	switch {
	case win.Start.Format(dateFormat) != last.Format(dateFormat):
		ds.AddElement(tagStudyDate, dicom.VR_DA, win.Start.Format(dateFormat)+"-"+last.Format(dateFormat))
		ds.AddElement(tagStudyTime, dicom.VR_TM, "")
	case fullDay(win):
		ds.AddElement(tagStudyDate, dicom.VR_DA, win.Start.Format(dateFormat))
		ds.AddElement(tagStudyTime, dicom.VR_TM, "")
	default:
		ds.AddElement(tagStudyDate, dicom.VR_DA, win.Start.Format(dateFormat))
		ds.AddElement(tagStudyTime, dicom.VR_TM, win.Start.Format(timeFormat)+"-"+last.Format(timeFormat))
	}
	return ds
}

func fullDay(win Window) bool {
	h, m, s := win.Start.Clock()
	return h == 0 && m == 0 && s == 0 && win.Duration() == 24*time.Hour
}

// seriesQuery builds the SERIES-level identifier for one study.
func seriesQuery(studyUID string) *dicom.Dataset {
	ds := dicom.NewDataset()
	ds.AddElement(tagQueryRetrieveLevel, dicom.VR_CS, levelSeries)
	ds.AddElement(tagStudyInstanceUID, dicom.VR_UI, studyUID)
	ds.AddElement(tagSeriesInstanceUID, dicom.VR_UI, "")
	ds.AddElement(tagModality, dicom.VR_CS, "")
	ds.AddElement(tagSeriesNumber, dicom.VR_IS, "")
	ds.AddElement(tagNumSeriesRelatedInstances, dicom.VR_IS, "")
	return ds
}

func studyFromDataset(ds *dicom.Dataset) StudyRecord {
	return StudyRecord{
		StudyInstanceUID: ds.GetString(tagStudyInstanceUID),
		PatientID:        ds.GetString(tagPatientID),
		StudyDate:        ds.GetString(tagStudyDate),
		StudyTime:        ds.GetString(tagStudyTime),
		AccessionNumber:  ds.GetString(tagAccessionNumber),
		Modalities:       normalizeCodes(ds.GetStrings(tagModalitiesInStudy)),
		NumSeries:        atoiOrZero(ds.GetString(tagNumStudyRelatedSeries)),
		NumInstances:     atoiOrZero(ds.GetString(tagNumStudyRelatedInstances)),
	}
}

func seriesFromDataset(ds *dicom.Dataset) SeriesRecord {
	return SeriesRecord{
		SeriesInstanceUID: ds.GetString(tagSeriesInstanceUID),
		Modality:          strings.ToUpper(ds.GetString(tagModality)),
		SeriesNumber:      ds.GetString(tagSeriesNumber),
		NumInstances:      atoiOrZero(ds.GetString(tagNumSeriesRelatedInstances)),
	}
}

func normalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
