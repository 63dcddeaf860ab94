package load

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"healthetl/internal/table"
)

// ExportCSV writes the master table as a CSV file at path, creating parent
// directories as needed. Values render the same way every run: dates as
// 2006-01-02, timestamps as RFC 3339, nil as the empty field.
func ExportCSV(path string, master table.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(master.Columns); err != nil {
		return fmt.Errorf("export: header: %w", err)
	}

	row := make([]string, len(master.Columns))
	for i, rec := range master.Rows {
		for j, c := range master.Columns {
			row[j] = renderValue(rec[c])
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("export: row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	return f.Close()
}

func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}
