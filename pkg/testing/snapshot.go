package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-drift/kite/pkg/graphics"
	"github.com/go-drift/kite/pkg/hittest"
)

// UpdateSnapshotsEnv names the environment variable that makes MatchesFile
// rewrite golden files instead of comparing.
const UpdateSnapshotsEnv = "KITE_UPDATE_SNAPSHOTS"

// TestingT is the subset of *testing.T used by MatchesFile, allowing
// test doubles to intercept failures.
type TestingT interface {
	Helper()
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
	Name() string
}

// Snapshot captures the hit-test table, pointer state and focus of the last
// frame. Scopes are named by order of appearance so snapshots are stable
// across runs.
type Snapshot struct {
	Size    [2]int          `json:"size"`
	Pointer string          `json:"pointer"`
	Focused string          `json:"focused,omitempty"`
	Entries []SnapshotEntry `json:"entries"`
}

// SnapshotEntry is one hit-test table entry.
type SnapshotEntry struct {
	ID     string           `json:"id"`
	Parent int              `json:"parent"`
	Region *graphics.Region `json:"region,omitempty"`
}

// CaptureSnapshot captures the current window state.
func (t *Tester) CaptureSnapshot() *Snapshot {
	width, height := t.backend.Size()
	snap := &Snapshot{
		Size:    [2]int{width, height},
		Pointer: t.win.Pointer().String(),
	}

	entries := t.win.HitTable()
	labels := labelScopes(entries)
	snap.Entries = make([]SnapshotEntry, len(entries))
	for i, e := range entries {
		snap.Entries[i] = SnapshotEntry{ID: labels[e.Dispatcher], Parent: e.Parent, Region: e.Region}
	}
	if p := t.win.Focus().Primary(); p != nil {
		snap.Focused = labels[p.ID()]
	}
	return snap
}

// labelScopes names dispatcher IDs "scope#0", "scope#1", ... in table order.
func labelScopes(entries []hittest.EntryInfo) map[uint64]string {
	labels := make(map[uint64]string, len(entries))
	for _, e := range entries {
		if _, ok := labels[e.Dispatcher]; !ok {
			labels[e.Dispatcher] = fmt.Sprintf("scope#%d", len(labels))
		}
	}
	return labels
}

// MatchesFile compares this snapshot against a golden file. On mismatch it
// reports a diff and instructions for updating. When KITE_UPDATE_SNAPSHOTS=1
// is set, the file is silently updated instead.
func (s *Snapshot) MatchesFile(t TestingT, path string) {
	t.Helper()

	if os.Getenv(UpdateSnapshotsEnv) == "1" {
		if err := s.UpdateFile(path); err != nil {
			t.Fatalf("failed to update snapshot: %v", err)
		}
		return
	}

	expected, err := loadSnapshot(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("snapshot file missing: %s\n\nTo create: %s=1 go test -run %s", path, UpdateSnapshotsEnv, t.Name())
			return
		}
		t.Fatalf("failed to load snapshot: %v", err)
		return
	}

	if diff := s.Diff(expected); diff != "" {
		t.Errorf("snapshot mismatch: %s\n%s\n\nTo update: %s=1 go test -run %s", path, diff, UpdateSnapshotsEnv, t.Name())
	}
}

// UpdateFile writes this snapshot to the given path, creating directories
// as needed.
func (s *Snapshot) UpdateFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := marshalSnapshot(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Diff returns a line diff between this snapshot and other, or "" when they
// are equal.
func (s *Snapshot) Diff(other *Snapshot) string {
	a, _ := marshalSnapshot(s)
	b, _ := marshalSnapshot(other)
	if bytes.Equal(a, b) {
		return ""
	}
	return unifiedDiff(string(b), string(a))
}

func loadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot JSON: %w", err)
	}
	return &snap, nil
}

func marshalSnapshot(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// unifiedDiff produces a simple line-oriented diff.
func unifiedDiff(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")

	var buf strings.Builder
	buf.WriteString("--- expected\n+++ actual\n")

	for i := range max(len(expectedLines), len(actualLines)) {
		var e, a string
		if i < len(expectedLines) {
			e = expectedLines[i]
		}
		if i < len(actualLines) {
			a = actualLines[i]
		}
		if e != a {
			if i < len(expectedLines) {
				fmt.Fprintf(&buf, "-%s\n", e)
			}
			if i < len(actualLines) {
				fmt.Fprintf(&buf, "+%s\n", a)
			}
		}
	}

	return buf.String()
}
