package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/hashpipe/hashpipe-go/workers"
)

// TestEmptyPipelineExitsWithCatalog exercises the no-workers-named case: the
// supervisor never builds a pipeline, exit code is 1, and the registered
// worker catalog goes to stderr so an operator can see what's available.
func TestEmptyPipelineExitsWithCatalog(t *testing.T) {
	origStderr := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w
	defer func() { os.Stderr = origStderr }()

	code := run(nil)

	w.Close()
	os.Stderr = origStderr
	var buf bytes.Buffer
	buf.ReadFrom(r)

	require.Equal(t, 1, code)
	require.Contains(t, buf.String(), "counterinput")
}

func TestListFlagExitsZero(t *testing.T) {
	code := run([]string{"-l"})
	require.Equal(t, 0, code)
}

func TestHelpFlagExitsZero(t *testing.T) {
	code := run([]string{"-h"})
	require.Equal(t, 0, code)
}
