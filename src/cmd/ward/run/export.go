package run

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/gocarina/gocsv"
)

// ExportToCsv writes rows, a slice of csv-tagged structs, to a timestamped
// file under outDir and returns its path.
func ExportToCsv(outDir string, rows interface{}, outFilePrefix string, now time.Time) (string, error) {
	outFilePath := path.Join(outDir, fmt.Sprintf("%s_%s.csv", outFilePrefix, now.Format("2006-01-02_15-04-05")))

	if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("ExportToCsv: failed to create directory: %w", err)
	}

	file, err := os.Create(outFilePath)
	if err != nil {
		return "", fmt.Errorf("ExportToCsv: failed to create file: %w", err)
	}
	defer file.Close()

	gocsv.SetCSVWriter(func(out io.Writer) *gocsv.SafeCSVWriter {
		return gocsv.NewSafeCSVWriter(csv.NewWriter(out))
	})

	if err := gocsv.MarshalFile(rows, file); err != nil {
		return "", fmt.Errorf("ExportToCsv: failed to write to file: %w", err)
	}

	return outFilePath, nil
}
