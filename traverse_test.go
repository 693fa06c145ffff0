package templator

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(t *testing.T, opts Options, vars map[string]string) (*Processor, *bytes.Buffer) {
	t.Helper()
	captureLog(t)

	var out bytes.Buffer
	return NewProcessor(sources(t, vars), opts, &out, false), &out
}

// templateTree creates root/top.txt and root/sub/nested.txt.
func templateTree(t *testing.T) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), "templates")
	writeFile(t, filepath.Join(root, "top.txt"), "top $NAME")
	writeFile(t, filepath.Join(root, "sub", "nested.txt"), "nested $NAME")

	return root
}

func TestRun_EndToEnd(t *testing.T) {
	proc, out := newTestProcessor(t, Options{}, map[string]string{"NAME": "World"})
	tmpl := writeFile(t, filepath.Join(t.TempDir(), "hello.txt"), "Hello $NAME, env=$HOME")

	report, err := proc.Run(context.Background(), []string{tmpl}, "")
	require.NoError(t, err)

	assert.Equal(t, "Hello World, env=$HOME\n", out.String())
	require.Len(t, report.Roots, 1)
	require.Len(t, report.Roots[0].Files, 1)

	file := report.Roots[0].Files[0]
	assert.Equal(t, OutcomePrinted, file.Outcome)
	assert.Equal(t, 2, file.Found)
	assert.Equal(t, []string{"$HOME"}, file.Unresolved)
	assert.Empty(t, report.Failed())
}

func TestRun_Strict(t *testing.T) {
	t.Run("fails the file", func(t *testing.T) {
		proc, out := newTestProcessor(t, Options{Strict: true}, nil)
		tmpl := writeFile(t, filepath.Join(t.TempDir(), "t.txt"), "value: $MISSING")
		dst := filepath.Join(t.TempDir(), "out.txt")

		report, err := proc.Run(context.Background(), []string{tmpl}, dst)
		require.NoError(t, err)

		failed := report.Failed()
		require.Len(t, failed, 1)
		assert.ErrorIs(t, failed[0].Err, ErrUnresolved)
		assert.Contains(t, failed[0].Err.Error(), "$MISSING")
		assert.Empty(t, out.String())
		assert.NoFileExists(t, dst)
	})

	t.Run("non strict writes verbatim", func(t *testing.T) {
		proc, _ := newTestProcessor(t, Options{}, nil)
		tmpl := writeFile(t, filepath.Join(t.TempDir(), "t.txt"), "value: $MISSING")
		dst := filepath.Join(t.TempDir(), "out.txt")

		report, err := proc.Run(context.Background(), []string{tmpl}, dst)
		require.NoError(t, err)

		assert.Empty(t, report.Failed())
		assert.Equal(t, "value: $MISSING\n", readFile(t, dst))
	})
}

func TestRun_DirectoryTraversal(t *testing.T) {
	t.Run("non recursive visits only top level files", func(t *testing.T) {
		proc, _ := newTestProcessor(t, Options{}, map[string]string{"NAME": "x"})
		root := templateTree(t)
		dst := t.TempDir()

		report, err := proc.Run(context.Background(), []string{root}, dst)
		require.NoError(t, err)

		require.Len(t, report.Roots[0].Files, 1)
		assert.Equal(t, "top x\n", readFile(t, filepath.Join(dst, "templates", "top.txt")))
		assert.NoFileExists(t, filepath.Join(dst, "templates", "sub", "nested.txt"))
	})

	t.Run("recursive mirrors the subtree", func(t *testing.T) {
		proc, _ := newTestProcessor(t, Options{Recursive: true}, map[string]string{"NAME": "x"})
		root := templateTree(t)
		dst := t.TempDir()

		report, err := proc.Run(context.Background(), []string{root}, dst)
		require.NoError(t, err)

		require.Len(t, report.Roots[0].Files, 2)
		assert.Equal(t, "top x\n", readFile(t, filepath.Join(dst, "templates", "top.txt")))
		assert.Equal(t, "nested x\n", readFile(t, filepath.Join(dst, "templates", "sub", "nested.txt")))
	})

	t.Run("trailing separator maps content only", func(t *testing.T) {
		proc, _ := newTestProcessor(t, Options{Recursive: true}, map[string]string{"NAME": "x"})
		root := templateTree(t)
		dst := t.TempDir()

		_, err := proc.Run(context.Background(), []string{root + string(os.PathSeparator)}, dst)
		require.NoError(t, err)

		assert.FileExists(t, filepath.Join(dst, "top.txt"))
		assert.FileExists(t, filepath.Join(dst, "sub", "nested.txt"))
	})

	t.Run("stdout receives every file", func(t *testing.T) {
		proc, out := newTestProcessor(t, Options{Recursive: true}, map[string]string{"NAME": "x"})
		root := templateTree(t)

		_, err := proc.Run(context.Background(), []string{root}, "")
		require.NoError(t, err)

		assert.Equal(t, "nested x\ntop x\n", out.String())
	})
}

func TestRun_Excludes(t *testing.T) {
	proc, _ := newTestProcessor(t, Options{Recursive: true, Excludes: []string{"sub", "*.md"}}, nil)
	root := templateTree(t)
	writeFile(t, filepath.Join(root, "README.md"), "docs")
	dst := t.TempDir()

	report, err := proc.Run(context.Background(), []string{root}, dst)
	require.NoError(t, err)

	require.Len(t, report.Roots[0].Files, 1)
	assert.Equal(t, filepath.Join(root, "top.txt"), report.Roots[0].Files[0].Src)

	t.Run("excluded file root", func(t *testing.T) {
		proc, out := newTestProcessor(t, Options{Excludes: []string{".md"}}, nil)

		report, err := proc.Run(context.Background(), []string{filepath.Join(root, "README.md")}, "")
		require.NoError(t, err)

		assert.Empty(t, report.Roots[0].Files)
		assert.Empty(t, out.String())
	})
}

func TestRun_FirstFileErrorAbortsRemainingFilesOfRoot(t *testing.T) {
	proc, _ := newTestProcessor(t, Options{Strict: true}, map[string]string{"NAME": "x"})

	base := t.TempDir()
	first := filepath.Join(base, "first")
	writeFile(t, filepath.Join(first, "a.txt"), "$MISSING")
	writeFile(t, filepath.Join(first, "b.txt"), "$NAME")
	second := filepath.Join(base, "second")
	writeFile(t, filepath.Join(second, "c.txt"), "$NAME")

	dst := filepath.Join(base, "out")
	require.NoError(t, os.Mkdir(dst, 0o755))

	report, err := proc.Run(context.Background(), []string{first, second}, dst)
	require.NoError(t, err)

	require.Len(t, report.Roots, 2)
	assert.ErrorIs(t, report.Roots[0].Err, ErrUnresolved)
	assert.Empty(t, report.Roots[0].Files)
	assert.NoFileExists(t, filepath.Join(dst, "first", "b.txt"))

	assert.NoError(t, report.Roots[1].Err)
	assert.Equal(t, "x\n", readFile(t, filepath.Join(dst, "second", "c.txt")))
}

func TestRun_MissingRootDoesNotStopOthers(t *testing.T) {
	proc, out := newTestProcessor(t, Options{}, map[string]string{"NAME": "x"})
	dir := t.TempDir()
	tmpl := writeFile(t, filepath.Join(dir, "t.txt"), "$NAME")

	report, err := proc.Run(context.Background(), []string{filepath.Join(dir, "missing"), tmpl}, "")
	require.NoError(t, err)

	require.Len(t, report.Failed(), 1)
	assert.ErrorIs(t, report.Roots[0].Err, ErrNotFound)
	assert.Equal(t, "x\n", out.String())
}

func TestRun_MultipleOutputsToSingleDestination(t *testing.T) {
	t.Run("rejected without append", func(t *testing.T) {
		proc, _ := newTestProcessor(t, Options{}, map[string]string{"NAME": "x"})
		root := templateTree(t)
		dst := filepath.Join(t.TempDir(), "out.txt")

		report, err := proc.Run(context.Background(), []string{root}, dst)

		require.ErrorIs(t, err, ErrConfig)
		assert.Nil(t, report)
		assert.NoFileExists(t, dst)
	})

	t.Run("appended with append", func(t *testing.T) {
		proc, _ := newTestProcessor(t, Options{Append: true, Recursive: true}, map[string]string{"NAME": "x"})
		root := templateTree(t)
		dst := filepath.Join(t.TempDir(), "out.txt")

		_, err := proc.Run(context.Background(), []string{root}, dst)
		require.NoError(t, err)

		assert.Equal(t, "nested x\ntop x\n", readFile(t, dst))
	})
}

func TestRun_SameSourceAndDestination(t *testing.T) {
	proc, _ := newTestProcessor(t, Options{Force: true}, nil)
	tmpl := writeFile(t, filepath.Join(t.TempDir(), "t.txt"), "$NAME")

	_, err := proc.Run(context.Background(), []string{tmpl}, tmpl)

	require.ErrorIs(t, err, ErrConfig)
	assert.Equal(t, "$NAME", readFile(t, tmpl))
}

func TestRun_ExistingDestination(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		outcome  Outcome
		expected string
	}{
		{name: "skipped", opts: Options{}, outcome: OutcomeSkipped, expected: "old\n"},
		{name: "forced", opts: Options{Force: true}, outcome: OutcomeWritten, expected: "new x\n"},
		{name: "appended", opts: Options{Append: true}, outcome: OutcomeAppended, expected: "old\nnew x\n"},
		{name: "force wins over append", opts: Options{Append: true, Force: true}, outcome: OutcomeWritten, expected: "new x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc, _ := newTestProcessor(t, tt.opts, map[string]string{"NAME": "x"})
			dir := t.TempDir()
			tmpl := writeFile(t, filepath.Join(dir, "t.txt"), "new $NAME")
			dst := writeFile(t, filepath.Join(dir, "out", "t.txt"), "old\n")

			report, err := proc.Run(context.Background(), []string{tmpl}, dst)
			require.NoError(t, err)

			require.Len(t, report.Roots[0].Files, 1)
			assert.Equal(t, tt.outcome, report.Roots[0].Files[0].Outcome)
			assert.Equal(t, tt.expected, readFile(t, dst))
		})
	}
}

func TestRun_FileRootIntoDirectory(t *testing.T) {
	proc, _ := newTestProcessor(t, Options{}, map[string]string{"NAME": "x"})
	tmpl := writeFile(t, filepath.Join(t.TempDir(), "t.conf"), "$NAME")
	dst := filepath.Join(t.TempDir(), "nested", "dir") + string(os.PathSeparator)

	_, err := proc.Run(context.Background(), []string{tmpl}, dst)
	require.NoError(t, err)

	assert.Equal(t, "x\n", readFile(t, filepath.Join(dst, "t.conf")))
}

func TestRun_ShowDiff(t *testing.T) {
	proc, out := newTestProcessor(t, Options{ShowDiff: true}, map[string]string{"NAME": "x"})
	dir := t.TempDir()
	changed := writeFile(t, filepath.Join(dir, "changed.txt"), "keep\nname: $NAME\n")
	dst := filepath.Join(t.TempDir(), "out.txt")

	_, err := proc.Run(context.Background(), []string{changed}, dst)
	require.NoError(t, err)

	assert.Equal(t, changed+"\n-name: $NAME\n+name: x\n", out.String())

	t.Run("every diff is labelled with its file", func(t *testing.T) {
		proc, out := newTestProcessor(t, Options{ShowDiff: true}, map[string]string{"A": "1"})
		dir := t.TempDir()
		first := writeFile(t, filepath.Join(dir, "first.conf"), "x=$A\n")
		second := writeFile(t, filepath.Join(dir, "second.conf"), "y=$A\n")

		_, err := proc.Run(context.Background(), []string{first, second}, t.TempDir())
		require.NoError(t, err)

		assert.Equal(t, first+"\n-x=$A\n+x=1\n"+second+"\n-y=$A\n+y=1\n", out.String())
	})

	t.Run("no lines replaced", func(t *testing.T) {
		logs := captureLog(t)
		var out bytes.Buffer
		proc := NewProcessor(nil, Options{ShowDiff: true}, &out, false)
		same := writeFile(t, filepath.Join(dir, "same.txt"), "nothing here")

		_, err := proc.Run(context.Background(), []string{same}, "")
		require.NoError(t, err)

		assert.Equal(t, "nothing here\n", out.String())
		assert.Contains(t, logs.String(), "no lines replaced")
	})
}

func TestRun_DirectoryCreationFailureIsolatedToRoot(t *testing.T) {
	proc, _ := newTestProcessor(t, Options{Recursive: true}, map[string]string{"NAME": "x"})
	root := templateTree(t)
	other := writeFile(t, filepath.Join(t.TempDir(), "other.txt"), "$NAME")

	// A plain file where the sub directory has to be created
	dst := t.TempDir()
	writeFile(t, filepath.Join(dst, "templates", "sub"), "blocker")

	report, err := proc.Run(context.Background(), []string{root, other}, dst)
	require.NoError(t, err)

	require.Len(t, report.Roots, 2)
	require.Error(t, report.Roots[0].Err)
	assert.Contains(t, report.Roots[0].Err.Error(), "cannot create directory")
	assert.Empty(t, report.Roots[0].Files)
	assert.NoFileExists(t, filepath.Join(dst, "templates", "top.txt"))

	assert.NoError(t, report.Roots[1].Err)
	assert.Equal(t, "x\n", readFile(t, filepath.Join(dst, "other.txt")))
}

func TestRun_Interrupted(t *testing.T) {
	proc, out := newTestProcessor(t, Options{}, map[string]string{"NAME": "x"})
	tmpl := writeFile(t, filepath.Join(t.TempDir(), "t.txt"), "$NAME")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := proc.Run(ctx, []string{tmpl}, "")

	require.ErrorIs(t, err, ErrInterrupted)
	assert.Empty(t, out.String())
}
