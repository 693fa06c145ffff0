package templator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/woozymasta/templator/internal/logging"
)

// Outcome tells what happened to a template that did not fail.
type Outcome int

const (
	// OutcomePrinted means the result went to standard output.
	OutcomePrinted Outcome = iota
	// OutcomeWritten means the destination was created or truncated.
	OutcomeWritten
	// OutcomeAppended means the result was appended to an existing destination.
	OutcomeAppended
	// OutcomeSkipped means the destination already existed and was left alone.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomePrinted:
		return "printed"
	case OutcomeWritten:
		return "saved"
	case OutcomeAppended:
		return "appended"
	case OutcomeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// FileResult is the outcome of one template.
type FileResult struct {
	Job
	Outcome    Outcome
	Found      int
	Unresolved []string
}

// processFile reads, resolves and writes a single template.
func (p *Processor) processFile(job Job) (FileResult, error) {
	logger := logging.GetLogger("process").With().Str("template", job.Src).Logger()
	result := FileResult{Job: job}

	data, err := os.ReadFile(job.Src)
	if err != nil {
		return result, fmt.Errorf("read template: %w", err)
	}
	original := string(data)

	found := FindPlaceholders(original)
	result.Found = len(found)
	logger.Debug().Int("count", len(found)).Strs("variables", found).Msg("parse template")

	resolved, unresolved := Resolve(original, p.sources)
	result.Unresolved = unresolved

	msg := fmt.Sprintf("%d/%d variables replaced", max(len(found)-len(unresolved), 0), len(found))
	if p.opts.Strict && len(unresolved) > 0 {
		return result, fmt.Errorf("%w: option '--strict' is set and %s, remaining variables: %s",
			ErrUnresolved, msg, strings.Join(unresolved, ", "))
	}
	logger.Debug().Strs("remaining", unresolved).Msg(msg)

	if p.opts.ShowDiff {
		diff := RenderDiff(job.Src, original, resolved)
		if diff.Empty() {
			logger.Warn().Msg("no lines replaced")
		} else {
			logger.Info().Msg("replaced lines")
			if err := p.diff.Write(diff); err != nil {
				return result, fmt.Errorf("write diff: %w", err)
			}
		}
	}

	result.Outcome, err = p.write(job.Dst, resolved+"\n")
	if err != nil {
		return result, err
	}
	if result.Outcome == OutcomeSkipped {
		logger.Warn().Str("destination", job.Dst).Msg("file already exists")
	} else if job.Dst != "" {
		logger.Info().Str("destination", job.Dst).Msgf("%s template", result.Outcome)
	}

	return result, nil
}

// write stores content at dst, or prints it when dst is empty. Existing
// destinations are skipped unless Append or Force is set. There is no
// atomic rename, an interrupted write leaves a partial file behind.
func (p *Processor) write(dst, content string) (Outcome, error) {
	if dst == "" {
		if _, err := io.WriteString(p.stdout, content); err != nil {
			return OutcomePrinted, fmt.Errorf("write output: %w", err)
		}
		return OutcomePrinted, nil
	}

	_, err := os.Stat(dst)
	exists := err == nil
	if exists && !p.opts.Append && !p.opts.Force {
		return OutcomeSkipped, nil
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return OutcomeWritten, fmt.Errorf("cannot create directory %q: %w", dir, err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	outcome := OutcomeWritten
	if p.opts.Append && !p.opts.Force {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		if exists {
			outcome = OutcomeAppended
		}
	}

	f, err := os.OpenFile(dst, flags, 0o644)
	if err != nil {
		return outcome, fmt.Errorf("cannot write file %q: %w", dst, err)
	}

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return outcome, fmt.Errorf("cannot write file %q: %w", dst, err)
	}

	if err := f.Close(); err != nil {
		return outcome, fmt.Errorf("cannot write file %q: %w", dst, err)
	}

	return outcome, nil
}
