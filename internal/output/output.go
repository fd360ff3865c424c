package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/maxvaer/rschunter/internal/scanner"
)

// Stats holds aggregate scan statistics. It is folded from the result list
// once the scan is over.
type Stats struct {
	Total         int
	Vulnerable    int
	NotVulnerable int
	Errors        int
	Duration      time.Duration
}

// Summarize folds results into Stats.
func Summarize(results []scanner.ScanResult, elapsed time.Duration) Stats {
	s := Stats{Total: len(results), Duration: elapsed}
	for i := range results {
		switch results[i].Vulnerable {
		case scanner.Vulnerable:
			s.Vulnerable++
		case scanner.NotVulnerable:
			s.NotVulnerable++
		default:
			s.Errors++
		}
	}
	return s
}

// Writer is implemented by each report format.
type Writer interface {
	WriteHeader() error
	WriteResult(result *scanner.ScanResult) error
	WriteFooter(stats Stats) error
	Close() error
}

// NewWriter creates the report writer for format. An empty outputFile
// writes to stdout. Unless allResults is set only vulnerable results are
// written.
func NewWriter(format, outputFile string, allResults bool) (Writer, error) {
	switch format {
	case "", "json":
		w, closer, err := openOutput(outputFile)
		if err != nil {
			return nil, err
		}
		return newJSONWriter(w, closer, allResults), nil
	case "csv":
		w, closer, err := openOutput(outputFile)
		if err != nil {
			return nil, err
		}
		return newCSVWriter(w, closer, allResults), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

func openOutput(outputFile string) (io.Writer, io.Closer, error) {
	if outputFile == "" {
		return os.Stdout, nil, nil
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

// reported reports whether a result belongs in the report.
func reported(r *scanner.ScanResult, allResults bool) bool {
	return allResults || r.IsVulnerable()
}
