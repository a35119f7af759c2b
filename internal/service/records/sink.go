// Package records persists finished transactions, one JSON file per record,
// and reads them back for the listing endpoints. It is the engine's durable
// sink; there is no update or delete path.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ovc-dev/ovc/backend/internal/model/record"
)

const (
	ordersDir   = "orders"
	meetingsDir = "meetings"
)

// FileSink stores records under <base>/orders and <base>/meetings.
type FileSink struct {
	base string
}

// NewFileSink creates the record directories if needed.
func NewFileSink(base string) (*FileSink, error) {
	for _, sub := range []string{ordersDir, meetingsDir} {
		if err := os.MkdirAll(filepath.Join(base, sub), 0o755); err != nil {
			return nil, fmt.Errorf("records: create %s dir: %w", sub, err)
		}
	}
	return &FileSink{base: base}, nil
}

// SaveOrder writes the order keyed by its id.
func (s *FileSink) SaveOrder(ctx context.Context, o record.Order) error {
	return s.write(filepath.Join(s.base, ordersDir, o.ID+".json"), o)
}

// SaveMeeting writes the meeting keyed by its id.
func (s *FileSink) SaveMeeting(ctx context.Context, m record.Meeting) error {
	return s.write(filepath.Join(s.base, meetingsDir, m.ID+".json"), m)
}

// Orders reads every stored order back.
func (s *FileSink) Orders() ([]record.Order, error) {
	paths, err := s.list(ordersDir)
	if err != nil {
		return nil, err
	}
	out := make([]record.Order, 0, len(paths))
	for _, path := range paths {
		var o record.Order
		if err := readRecord(path, &o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// Meetings reads every stored meeting back.
func (s *FileSink) Meetings() ([]record.Meeting, error) {
	paths, err := s.list(meetingsDir)
	if err != nil {
		return nil, err
	}
	out := make([]record.Meeting, 0, len(paths))
	for _, path := range paths {
		var m record.Meeting
		if err := readRecord(path, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *FileSink) write(path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("records: marshal: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("records: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *FileSink) list(sub string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.base, sub, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("records: list %s: %w", sub, err)
	}
	return paths, nil
}

func readRecord(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("records: read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("records: parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
