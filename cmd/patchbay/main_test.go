package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/patchbay/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, run(context.Background(), &out, &errOut, []string{"modules"}))
	assert.Contains(t, out.String(), "utility")

	err := run(context.Background(), &out, &errOut, []string{"plan"})
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
}
