package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/maxvaer/rschunter/internal/scanner"
)

// Report is the JSON document written at the end of a scan.
type Report struct {
	ScanID       string               `json:"scan_id"`
	ScanTime     time.Time            `json:"scan_time"`
	TotalResults int                  `json:"total_results"`
	Results      []scanner.ScanResult `json:"results"`
}

// JSONWriter collects results and writes a single Report on WriteFooter.
type JSONWriter struct {
	w          io.Writer
	closer     io.Closer
	allResults bool
	results    []scanner.ScanResult
	now        func() time.Time
}

func newJSONWriter(w io.Writer, closer io.Closer, allResults bool) *JSONWriter {
	return &JSONWriter{
		w:          w,
		closer:     closer,
		allResults: allResults,
		results:    []scanner.ScanResult{},
		now:        time.Now,
	}
}

func (j *JSONWriter) WriteHeader() error { return nil }

func (j *JSONWriter) WriteResult(result *scanner.ScanResult) error {
	if reported(result, j.allResults) {
		j.results = append(j.results, *result)
	}
	return nil
}

func (j *JSONWriter) WriteFooter(_ Stats) error {
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(Report{
		ScanID:       uuid.NewString(),
		ScanTime:     j.now().UTC(),
		TotalResults: len(j.results),
		Results:      j.results,
	})
}

func (j *JSONWriter) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
