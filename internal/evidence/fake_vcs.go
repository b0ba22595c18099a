package evidence

import (
	"context"
	"time"
)

// FakeVCS is an in-memory VCS for tests, keyed by file path. Real
// repository access is never required to exercise evidence.Compute.
type FakeVCS struct {
	BlameByPath map[string][]BlameRecord
	LogByPath   map[string][]LogRecord
	BlameErr    error
	LogErr      error
}

// NewFakeVCS returns an empty FakeVCS ready for population.
func NewFakeVCS() *FakeVCS {
	return &FakeVCS{
		BlameByPath: make(map[string][]BlameRecord),
		LogByPath:   make(map[string][]LogRecord),
	}
}

func (f *FakeVCS) Blame(_ context.Context, _, path string, _, _ int) ([]BlameRecord, error) {
	if f.BlameErr != nil {
		return nil, f.BlameErr
	}
	return f.BlameByPath[path], nil
}

func (f *FakeVCS) Log(_ context.Context, _, path string, since time.Time) ([]LogRecord, error) {
	if f.LogErr != nil {
		return nil, f.LogErr
	}
	var result []LogRecord
	for _, rec := range f.LogByPath[path] {
		if !rec.Timestamp.Before(since) {
			result = append(result, rec)
		}
	}
	return result, nil
}
