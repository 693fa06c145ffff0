/*
Command templator replaces all instances of $VAR and ${VAR} in template files
with the corresponding values and sends the result to stdout, a file or a
directory tree.

Variables are looked up in this order, the first match wins:

  - key=value pairs passed with -s/--set, in the order given
  - input files passed with -i/--input (.env, .json, .yaml), in the order given
  - os environment variables, unless disabled with -n/--no-os-env

Usage:

	templator [OPTIONS] PATH...

Options taking a value accept one value each and are repeated for more,
e.g. "-s A=1 -s B=2" or "-e sub -e .md".

Examples:

	# Render a single template to stdout
	templator -s NAME=World hello.txt

	# Render a directory tree into the existing directory out/ using a
	# .env file, fail on leftovers
	mkdir -p out
	templator -r --strict -i prod.env -o out/ templates/

	# Show which lines changed without touching the environment
	templator --diff -n -i vars.json config.tmpl
*/
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/mattn/go-isatty"

	"github.com/woozymasta/templator"
	"github.com/woozymasta/templator/internal/logging"
)

// version is set at build time.
var version = "dev"

type options struct {
	Diff      bool     `long:"diff" description:"show replaced lines"`
	Recursive bool     `short:"r" long:"recursive" description:"process templates directory recursively"`
	Excludes  []string `short:"e" long:"exclude" value-name:"STRING" description:"exclude path containing STRING (repeatable)"`
	Strict    bool     `long:"strict" description:"fail if not all variables could be replaced"`
	Debug     bool     `long:"debug" env:"TEMPLATOR_DEBUG" description:"set log level to debug"`
	Quiet     bool     `short:"q" long:"quiet" description:"do not output log"`
	Version   bool     `short:"v" long:"version" description:"show version number and exit"`

	Vars struct {
		Set []string `short:"s" long:"set" value-name:"KEY=VALUE" description:"pass key=value pair as variable (repeatable)"`
	} `group:"Set key=value"`

	Input struct {
		Files     []string `short:"i" long:"input" value-name:"PATH" description:"file containing variables (repeatable)"`
		Delimiter string   `short:"d" long:"delimiter-in-file" env:"TEMPLATOR_DELIMITER" description:"delimiter for key/value pairs in .env files (default: =)"`
	} `group:"Input files"`

	Env struct {
		NoOSEnv bool `short:"n" long:"no-os-env" env:"TEMPLATOR_NO_OS_ENV" description:"do not use os environment"`
	} `group:"OS environment"`

	Output struct {
		Path   string `short:"o" long:"output" value-name:"PATH" description:"redirect output to file or a directory"`
		Append bool   `short:"a" long:"append" description:"append to output file PATH"`
		Force  bool   `short:"f" long:"force" description:"replace existing output file"`
	} `group:"Output"`

	Args struct {
		Paths []string `positional-arg-name:"PATH" description:"template file or directory containing template files"`
	} `positional-args:"yes"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts options

	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS] PATH..."
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			return 0
		}
		return 1
	}

	if opts.Version {
		fmt.Printf("templator version %s\n", version)
		return 0
	}

	if err := opts.validate(); err != nil {
		parser.WriteHelp(os.Stderr)
		fmt.Fprintf(os.Stderr, "\ntemplator: error: %v\n", err)
		return 1
	}

	level := logging.LevelInfo
	switch {
	case opts.Quiet:
		level = logging.LevelQuiet
	case opts.Debug:
		level = logging.LevelDebug
	}
	logging.SetupLogger(os.Stderr, level)
	logger := logging.GetLogger("main")

	ctx, stop := interruptContext(context.Background())
	defer stop()

	// Flushed on every return path so output is never mixed with log lines
	stdout := bufio.NewWriter(os.Stdout)
	defer stdout.Flush()

	sources, err := buildSources(&opts)
	if err != nil {
		logger.Error().Err(err).Msg("cannot read variables")
		return 1
	}

	proc := templator.NewProcessor(sources, templator.Options{
		Recursive: opts.Recursive,
		Excludes:  opts.Excludes,
		Append:    opts.Output.Append,
		Force:     opts.Output.Force,
		Strict:    opts.Strict,
		ShowDiff:  opts.Diff,
	}, stdout, isatty.IsTerminal(os.Stdout.Fd()))

	report, err := proc.Run(ctx, opts.Args.Paths, opts.Output.Path)
	switch {
	case errors.Is(err, templator.ErrInterrupted):
		_ = stdout.Flush()
		logger.Warn().Msg("you manually abort")
		return 1
	case err != nil:
		_ = stdout.Flush()
		logger.Error().Err(err).Msg("cannot process templates")
		return 1
	}

	logger.Debug().Int("roots", len(report.Roots)).Int("failed", len(report.Failed())).Msg("done")
	return 0
}

// interruptContext returns a context cancelled by the first SIGINT or SIGTERM.
// The handler is released right away, so a second signal terminates the
// process even while a file is still being processed.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()

	return ctx, stop
}

// validate checks flag combinations go-flags cannot express.
func (o *options) validate() error {
	if len(o.Args.Paths) == 0 {
		return errors.New("the required argument `PATH` was not provided")
	}

	if o.Debug && o.Quiet {
		return errors.New("'--debug' and '-q|--quiet' cannot be used together")
	}

	if o.Input.Delimiter != "" && len(o.Input.Files) == 0 {
		return fmt.Errorf("you cannot set a delimiter (%s) without minimum one input file", o.Input.Delimiter)
	}

	if (o.Output.Append || o.Output.Force) && o.Output.Path == "" {
		var set string
		switch {
		case o.Output.Append && o.Output.Force:
			set = "'-a|--append' and/or '-f|--force'"
		case o.Output.Append:
			set = "'-a|--append'"
		default:
			set = "'-f|--force'"
		}
		return fmt.Errorf("you cannot set %s without the parameter '-o|--output'", set)
	}

	return nil
}

// buildSources assembles the SourceList in precedence order.
func buildSources(o *options) (templator.SourceList, error) {
	var sources templator.SourceList

	pairs, err := templator.ParsePairs(o.Vars.Set)
	if err != nil {
		return nil, err
	}
	sources = append(sources, pairs)

	for _, path := range o.Input.Files {
		src, err := templator.ReadInputFile(path, o.Input.Delimiter)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	if !o.Env.NoOSEnv {
		sources = append(sources, templator.EnvSource(templator.OSEnv{}))
	}

	return sources, nil
}
