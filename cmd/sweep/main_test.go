package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/fwojciec/sweep"
	sweephttp "github.com/fwojciec/sweep/http"
	"github.com/fwojciec/sweep/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMain(t *testing.T) *Main {
	t.Helper()
	m := NewMain()
	m.DBPath = filepath.Join(t.TempDir(), "sweep.db")
	return m
}

func TestMain_Run_NoCommand(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	m := newTestMain(t)

	err := m.Run(context.Background(), nil, &stdout, &stderr)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no command specified")
	assert.Contains(t, stdout.String(), "Usage:")
}

func TestMain_Run_Help(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	m := newTestMain(t)

	err := m.Run(context.Background(), []string{"--help"}, &stdout, &stderr)

	require.NoError(t, err)
	output := stdout.String()
	assert.Contains(t, output, "map")
	assert.Contains(t, output, "search")
	assert.Contains(t, output, "backlinks")
	assert.Contains(t, output, "filetypes")
}

func TestMain_Run_UnknownCommand(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	m := newTestMain(t)

	err := m.Run(context.Background(), []string{"teleport"}, &stdout, &stderr)
	require.Error(t, err)
}

func TestFiletypeSources_Breadth(t *testing.T) {
	t.Parallel()

	client := sweephttp.NewClient(0)
	ccindex := sweephttp.NewCCIndex(client)
	index := &mock.LocalIndex{}

	ids := func(sources []sweep.SourceAdapter) []string {
		out := make([]string, len(sources))
		for i, s := range sources {
			out[i] = s.ID()
		}
		return out
	}

	with := filetypeSources(client, ccindex, index, &mock.SERPClient{})
	assert.Equal(t, []string{"wayback", "commoncrawl", "memento", "localindex", "crawl", "google", "bing"}, ids(with))

	without := filetypeSources(client, ccindex, index, nil)
	assert.Len(t, without, 5, "engine scrapers need a browser-backed client")
}
