package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/terminalops/internal/model"
)

// Times are stored as RFC 3339 text in UTC with nanoseconds so that string
// comparison matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func marshalOperation(op *model.Operation) (string, error) {
	data, err := json.Marshal(op)
	if err != nil {
		return "", fmt.Errorf("marshal operation %s: %w", op.ID, err)
	}
	return string(data), nil
}

func unmarshalOperation(body string) (model.Operation, error) {
	var op model.Operation
	if err := json.Unmarshal([]byte(body), &op); err != nil {
		return model.Operation{}, fmt.Errorf("unmarshal operation: %w", err)
	}
	return op, nil
}
