package templator

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/woozymasta/templator/internal/logging"
)

// Options control how roots are traversed and how outputs are written.
type Options struct {
	// Recursive visits all descendants of directory roots instead of only
	// their immediate children.
	Recursive bool

	// Excludes are path element names or file suffixes ("*.md", ".md") to skip.
	Excludes []string

	// Append appends to existing destinations instead of skipping them.
	Append bool

	// Force truncates existing destinations. It wins over Append.
	Force bool

	// Strict fails a file when placeholders remain after resolution.
	Strict bool

	// ShowDiff prints the replaced lines of every file.
	ShowDiff bool
}

// Job is one template file and the place its result goes to.
// An empty Dst means standard output.
type Job struct {
	Src string
	Dst string
}

// Entry is a planned root: its candidate files after exclusion filtering.
type Entry struct {
	Root  string
	IsDir bool
	Jobs  []Job
	Err   error
}

// RootResult is the outcome of processing one root.
type RootResult struct {
	Root  string
	Files []FileResult
	Err   error
}

// Report collects the results of a run.
type Report struct {
	Roots []RootResult
}

// Failed returns the roots that did not complete.
func (r *Report) Failed() []RootResult {
	var failed []RootResult
	for _, root := range r.Roots {
		if root.Err != nil {
			failed = append(failed, root)
		}
	}

	return failed
}

// Processor resolves templates against a fixed SourceList.
type Processor struct {
	sources SourceList
	opts    Options
	stdout  io.Writer
	diff    *DiffWriter
}

// NewProcessor returns a processor writing resolved text and diffs to stdout.
// color enables colored diff markers.
func NewProcessor(sources SourceList, opts Options, stdout io.Writer, color bool) *Processor {
	return &Processor{
		sources: sources,
		opts:    opts,
		stdout:  stdout,
		diff:    NewDiffWriter(stdout, color),
	}
}

/*
Run processes every root in order and writes the results to dst, or to the
processor's stdout when dst is empty.

All roots are planned before anything is written, so configuration errors
(several outputs for a single missing destination, a destination equal to
its source) are returned before any file is touched. Failures of a single
root are logged and recorded in the report; they stop the remaining files
of that root but never the following roots, and do not make Run fail.

Run returns ErrInterrupted when ctx is cancelled; the check happens before
each file, a file that is being written is completed first.
*/
func (p *Processor) Run(ctx context.Context, roots []string, dst string) (*Report, error) {
	logger := logging.GetLogger("traverse")
	target := newDestination(dst)

	entries := make([]Entry, 0, len(roots))
	multi := len(roots) > 1
	for _, root := range roots {
		entry := p.plan(root, target)
		if entry.IsDir {
			multi = true
		}
		entries = append(entries, entry)
	}

	if err := p.validate(entries, target, multi); err != nil {
		return nil, err
	}

	report := &Report{Roots: make([]RootResult, 0, len(entries))}
	for _, entry := range entries {
		result := RootResult{Root: entry.Root, Err: entry.Err}

		if entry.Err == nil {
			for _, job := range entry.Jobs {
				if err := ctx.Err(); err != nil {
					report.Roots = append(report.Roots, result)
					return report, fmt.Errorf("%w: %w", ErrInterrupted, err)
				}

				// The first failing file ends this root
				file, err := p.processFile(job)
				if err != nil {
					result.Err = fmt.Errorf("%s: %w", job.Src, err)
					break
				}
				result.Files = append(result.Files, file)
			}
		}

		if result.Err != nil {
			logger.Error().Err(result.Err).Str("root", entry.Root).Msg("processing failed")
		}
		report.Roots = append(report.Roots, result)
	}

	return report, nil
}

func (p *Processor) validate(entries []Entry, target destination, multi bool) error {
	if target.path == "" {
		return nil
	}

	if multi && !target.exists && !p.opts.Append {
		return fmt.Errorf("%w: cannot write multiple templates to the single destination %q without '-a|--append'",
			ErrConfig, target.path)
	}

	for _, entry := range entries {
		for _, job := range entry.Jobs {
			if samePath(job.Src, job.Dst) {
				return fmt.Errorf("%w: source and destination cannot be equal (%s)", ErrConfig, job.Src)
			}
		}
	}

	return nil
}

// plan resolves the candidate files and destinations of a single root.
func (p *Processor) plan(root string, target destination) Entry {
	logger := logging.GetLogger("traverse")

	// A trailing separator maps the directory content itself, without the
	// directory name, under the destination.
	contentOnly := strings.HasSuffix(root, "/") || strings.HasSuffix(root, string(os.PathSeparator))
	path := filepath.Clean(expandHome(root))
	entry := Entry{Root: root}

	info, err := os.Stat(path)
	if err != nil {
		entry.Err = fmt.Errorf("%q %w", path, ErrNotFound)
		return entry
	}

	if !info.IsDir() {
		if rules := Excluded(path, p.opts.Excludes); len(rules) > 0 {
			logger.Debug().Str("path", path).Strs("excludes", rules).Msg("skip file")
			return entry
		}

		entry.Jobs = []Job{{Src: path, Dst: target.forFile(path)}}
		return entry
	}

	entry.IsDir = true
	base := filepath.Dir(path)
	if contentOnly {
		base = path
	}

	files, err := listFiles(path, p.opts.Recursive)
	if err != nil {
		entry.Err = err
		return entry
	}

	for _, file := range files {
		if rules := Excluded(file, p.opts.Excludes); len(rules) > 0 {
			logger.Debug().Str("path", file).Strs("excludes", rules).Msg("skip file")
			continue
		}

		rel, err := filepath.Rel(base, file)
		if err != nil {
			entry.Err = err
			return entry
		}

		entry.Jobs = append(entry.Jobs, Job{Src: file, Dst: target.forRelative(rel)})
	}

	return entry
}

// listFiles returns the files of dir in lexical order. Only immediate
// children are listed unless recursive is set. Directories, including
// symlinks to directories, are never returned.
func listFiles(dir string, recursive bool) ([]string, error) {
	var files []string

	// The trailing separator makes a symlinked root resolve to its target
	root := dir + string(os.PathSeparator)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path == root {
			return nil
		}

		if d.IsDir() {
			if !recursive {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", dir, err)
	}

	return files, nil
}

// destination is the -o target of a run.
type destination struct {
	path   string
	isDir  bool
	exists bool
}

// newDestination classifies path. An existing path keeps its type, otherwise
// a trailing separator or a missing extension marks a directory.
func newDestination(path string) destination {
	if path == "" {
		return destination{}
	}

	d := destination{path: filepath.Clean(expandHome(path))}

	info, err := os.Stat(d.path)
	switch {
	case err == nil:
		d.exists = true
		d.isDir = info.IsDir()
	case strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(os.PathSeparator)):
		d.isDir = true
	default:
		d.isDir = pathSuffix(d.path) == ""
	}

	return d
}

// forFile returns the destination of a template given directly as a root.
func (d destination) forFile(src string) string {
	if d.path == "" || !d.isDir {
		return d.path
	}

	return filepath.Join(d.path, filepath.Base(src))
}

// forRelative returns the destination of a template found in a directory
// root. rel is the template path relative to the mapping base.
func (d destination) forRelative(rel string) string {
	if d.path == "" || !d.isDir {
		return d.path
	}

	return filepath.Join(d.path, rel)
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}

	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}

	return absA == absB
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
