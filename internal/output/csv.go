package output

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/maxvaer/rschunter/internal/scanner"
)

var csvColumns = []string{"host", "vulnerable", "status_code", "final_url", "error", "timestamp"}

// CSVWriter streams one row per reported result.
type CSVWriter struct {
	w          *csv.Writer
	closer     io.Closer
	allResults bool
}

func newCSVWriter(w io.Writer, closer io.Closer, allResults bool) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w), closer: closer, allResults: allResults}
}

func (c *CSVWriter) WriteHeader() error {
	return c.w.Write(csvColumns)
}

func (c *CSVWriter) WriteResult(result *scanner.ScanResult) error {
	if !reported(result, c.allResults) {
		return nil
	}
	status := ""
	if result.StatusCode != 0 {
		status = strconv.Itoa(result.StatusCode)
	}
	verdict := ""
	switch result.Vulnerable {
	case scanner.Vulnerable:
		verdict = "true"
	case scanner.NotVulnerable:
		verdict = "false"
	}
	return c.w.Write([]string{
		result.Host,
		verdict,
		status,
		result.FinalURL,
		result.Error,
		result.Timestamp.Format(time.RFC3339),
	})
}

func (c *CSVWriter) WriteFooter(_ Stats) error {
	c.w.Flush()
	return c.w.Error()
}

func (c *CSVWriter) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
