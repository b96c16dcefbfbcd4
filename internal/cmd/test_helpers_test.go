package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/cameronsjo/podgen/internal/ui"
)

// executeCmd runs a fresh command tree with args and returns its stdout.
// Args go through the same normalization as Execute.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd := newRootCmd()
	rootCmd.SetArgs(normalizeArgs(args))
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	err := rootCmd.Execute()
	return buf.String(), err
}

// writeJobFile writes a job document into a temp dir and returns its path.
func writeJobFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job_matrix.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// clearPodgenEnv keeps PODGEN_* settings of the caller out of the tests.
func clearPodgenEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PODGEN_ARCH", "")
	t.Setenv("PODGEN_TAG", "")
	t.Setenv("PODGEN_VARIANT", "")
}

// captureUI redirects ui diagnostics into the returned buffer for the
// duration of the test.
func captureUI(t *testing.T) *bytes.Buffer {
	t.Helper()

	oldOutput, oldNoColor := ui.Output, color.NoColor
	t.Cleanup(func() {
		ui.Output, color.NoColor = oldOutput, oldNoColor
	})

	buf := new(bytes.Buffer)
	ui.Output = buf
	color.NoColor = true
	return buf
}
