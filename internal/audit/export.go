package audit

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"time"
)

// WriteCSV renders records as a CSV document, oldest first.
func WriteCSV(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "occurred_at", "actor_id", "action", "target_id", "affected_keys"}); err != nil {
		return nil, err
	}
	for _, rec := range records {
		row := []string{
			rec.ID.String(),
			rec.At.UTC().Format(time.RFC3339),
			strconv.FormatInt(rec.ActorID, 10),
			string(rec.Action),
			strconv.FormatInt(rec.TargetID, 10),
			strings.Join(rec.AffectedKeys, " "),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
