package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/compose"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/htmltree"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/pkg/utils"
	"github.com/google/uuid"
)

// =============================================================================
// PRE-FLIGHT
// =============================================================================

// Pre-flight errors abort the run before any file is processed.
var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrSourceNotFound   = errors.New("source directory not found")
	ErrNoFiles          = errors.New("no xml files found")
)

// LoadTemplate reads and prunes the run template.
//
// RETURNS:
//   - The template, shared read-only by every file of the run.
//   - ErrTemplateNotFound (wrapped) if path does not exist.
func LoadTemplate(path string, remove []htmltree.Selector) (*compose.Template, error) {
	t, err := compose.LoadTemplate(path, remove)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, path)
	}
	return t, err
}

// Discover lists the files of a run.
//
// PARAMETERS:
//   - sourceDir: Scanned recursively for *.xml (any case).
//   - single: When set, the run is this one file and sourceDir is ignored.
//
// RETURNS:
//   - The sorted file list.
//   - ErrSourceNotFound or ErrNoFiles (wrapped).
func Discover(sourceDir, single string) ([]string, error) {
	if single != "" {
		if !utils.FileExists(single) || utils.IsDir(single) {
			return nil, fmt.Errorf("%w: %s", ErrNoFiles, single)
		}
		return []string{single}, nil
	}

	if !utils.IsDir(sourceDir) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, sourceDir)
	}

	files, err := utils.DiscoverFiles(sourceDir, ".xml")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFiles, sourceDir)
	}
	return files, nil
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind tells the foreground what an Event carries.
type EventKind int

const (
	// EventMessage is a status line.
	EventMessage EventKind = iota

	// EventProgress follows each processed file and carries its Result.
	EventProgress

	// EventFinish is the last event of a run and carries the Summary.
	EventFinish
)

// Event is sent from the worker to the foreground.
type Event struct {
	Kind    EventKind
	Message string

	// Done and Total count files for progress display.
	Done  int
	Total int

	Result  *Result
	Summary *Summary
}

// Summary aggregates a finished run.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Total     int
	Succeeded int
	Failed    int

	// Cancelled is set when the run stopped before the last file.
	Cancelled bool

	Results []Result
}

// Elapsed returns the wall time of the run.
func (s *Summary) Elapsed() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// TotalBytes sums the input sizes.
func (s *Summary) TotalBytes() int64 {
	var n int64
	for _, r := range s.Results {
		n += r.SizeBytes
	}
	return n
}

// Failures returns the failed results in processing order.
func (s *Summary) Failures() []Result {
	var out []Result
	for _, r := range s.Results {
		if !r.Success {
			out = append(out, r)
		}
	}
	return out
}

// =============================================================================
// WORKER
// =============================================================================

// Start processes files on a single worker goroutine and returns its event
// channel. The channel is closed after the EventFinish event.
//
// Cancelling ctx stops the run before the next file; the file in progress
// always completes.
func (c *Converter) Start(ctx context.Context, files []string) <-chan Event {
	events := make(chan Event, 16)

	go func() {
		defer close(events)

		summary := &Summary{
			RunID:     uuid.NewString(),
			StartedAt: time.Now(),
			Total:     len(files),
			Results:   make([]Result, 0, len(files)),
		}
		c.logger.Infof("Starting run %s with %d file(s)", summary.RunID, len(files))

		for i, path := range files {
			if ctx.Err() != nil {
				summary.Cancelled = true
				c.logger.Warnf("Run %s cancelled after %d of %d file(s)", summary.RunID, i, len(files))
				break
			}

			events <- Event{
				Kind:    EventMessage,
				Message: fmt.Sprintf("Processing %s (%d/%d)", filepath.Base(path), i+1, len(files)),
				Done:    i,
				Total:   len(files),
			}

			result := c.Run(ctx, path)
			summary.Results = append(summary.Results, result)
			if result.Success {
				summary.Succeeded++
			} else {
				summary.Failed++
			}

			events <- Event{Kind: EventProgress, Done: i + 1, Total: len(files), Result: &result}
		}

		summary.FinishedAt = time.Now()
		events <- Event{
			Kind:    EventFinish,
			Message: fmt.Sprintf("Finished: %d succeeded, %d failed", summary.Succeeded, summary.Failed),
			Done:    len(summary.Results),
			Total:   len(files),
			Summary: summary,
		}
	}()

	return events
}

// RunAll processes files and blocks until the run ends.
func (c *Converter) RunAll(ctx context.Context, files []string) *Summary {
	var summary *Summary
	for ev := range c.Start(ctx, files) {
		if ev.Kind == EventFinish {
			summary = ev.Summary
		}
	}
	return summary
}
