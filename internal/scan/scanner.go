package scan

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/franz/deduplicator/internal/catalog"
	"github.com/franz/deduplicator/internal/record"
	"github.com/franz/deduplicator/internal/report"
	"github.com/franz/deduplicator/internal/util"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
)

// Scanner walks a directory tree and brings the catalog up to date
type Scanner struct {
	catalog  *catalog.Catalog
	fs       afero.Fs
	policy   catalog.Policy
	logger   *report.EventLogger
	progress bool
}

// Config holds scanner configuration
type Config struct {
	Catalog  *catalog.Catalog
	Policy   catalog.Policy
	Logger   *report.EventLogger
	Progress bool // Show a progress bar instead of one line per file (TTY only)
}

// New creates a new Scanner
func New(cfg *Config) *Scanner {
	return &Scanner{
		catalog:  cfg.Catalog,
		fs:       cfg.Catalog.Fs(),
		policy:   cfg.Policy,
		logger:   cfg.Logger,
		progress: cfg.Progress,
	}
}

// Result represents a scan result
type Result struct {
	Visited   int
	Inserted  int
	Refreshed int
	Unchanged int
	Failed    int
	Errors    []error
}

// Scan walks dir and applies the update policy to every regular file.
// Entries that are not regular files are skipped silently; symbolic links
// are not followed.
func (s *Scanner) Scan(ctx context.Context, dir string) (*Result, error) {
	root, err := record.Normalize(dir)
	if err != nil {
		return nil, err
	}
	info, err := s.fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", util.ErrInvalidArgument, root)
	}

	util.DebugLog("Scanning %s (policy: %s)", root, s.policy)

	result := &Result{}

	var bar *progressbar.ProgressBar
	if s.progress && util.IsTerminal(os.Stderr.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Scanning"),
			progressbar.OptionSetWidth(min(40, util.GetTerminalWidth()/3)),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	walkErr := afero.Walk(s.fs, root, func(path string, fi os.FileInfo, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			util.WarnLog("Error accessing path %s: %v", path, err)
			result.Errors = append(result.Errors, fmt.Errorf("access error: %s: %w", path, err))
			return nil // Continue walking
		}

		if !fi.Mode().IsRegular() {
			return nil
		}

		result.Visited++
		if bar != nil {
			bar.Describe(fmt.Sprintf("Scanning | %d new | %d refreshed", result.Inserted, result.Refreshed))
			bar.Add(1)
		} else {
			util.PathLog(path)
		}

		s.visit(path, result)
		return nil
	})

	if bar != nil {
		bar.Finish()
	}

	if walkErr != nil {
		return result, fmt.Errorf("walk error: %w", walkErr)
	}

	return result, nil
}

func (s *Scanner) visit(path string, result *Result) {
	outcome, err := s.catalog.Update(path, s.policy)
	if err != nil {
		util.ErrorLog("Failed to update %s: %v", path, err)
		result.Errors = append(result.Errors, err)
		s.logger.LogError(report.EventScan, path, err)
		result.Failed++
		return
	}

	switch outcome {
	case catalog.Inserted:
		result.Inserted++
	case catalog.Refreshed:
		result.Refreshed++
	case catalog.Unchanged:
		result.Unchanged++
	case catalog.Failed:
		result.Failed++
	}

	s.logger.LogScan(path, outcome.String())
}
