package perfmetrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/UW-GAC/dbgap-ftp/transfer"
)

// CsvHeader defines the CSV header for the transfer log
const CsvHeader = "Timestamp,RemotePath,LocalPath,Bytes,Attempts,Outcome,TimeSec,ThroughputMBps,Error\n"

// LogTransfer appends one row describing r to the CSV file at filePath,
// writing the header when the file is new.
func LogTransfer(filePath string, r transfer.Report) error {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Check if file exists to determine if we need to write header
	fileExists := true
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		fileExists = false
	}

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	if !fileExists {
		if _, err := file.WriteString(CsvHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	errText := ""
	if r.Err != nil {
		errText = r.Err.Error()
	}

	record := []string{
		time.Now().Format(time.RFC3339),
		r.RemotePath,
		r.LocalPath,
		strconv.FormatInt(r.Bytes, 10),
		strconv.Itoa(r.Attempts),
		r.Outcome(),
		strconv.FormatFloat(r.Elapsed.Seconds(), 'f', 2, 64),
		strconv.FormatFloat(r.ThroughputMBps(), 'f', 2, 64),
		errText,
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("failed to write CSV record: %w", err)
	}

	// Ensure data is written to disk
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}

	return nil
}
