package cli

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCmd_Flags(t *testing.T) {
	assert.NotNil(t, serveCmd.Flags().Lookup("addr"))
	assert.NotNil(t, serveCmd.Flags().Lookup("allow-origin"))
	assert.NotNil(t, serveCmd.Flags().Lookup("max-rps"))
	assert.NotNil(t, serveCmd.Flags().Lookup("burst"))
}

func TestServeCmd_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	answerService = nil

	_, err := execute("serve")

	assert.ErrorIs(t, err, errNotConfigured)
}

func TestMCPServeCmd_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	answerService = nil

	_, err := execute("mcp", "serve")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "answer service is required")
}

func TestStartWatcher(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	changed := make(chan struct{}, 1)
	w := &mockWatcher{started: make(chan struct{})}
	configWatcher = w
	onConfigChange = func() { changed <- struct{}{} }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)

	startWatcher(cmd)

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("watcher did not start")
	}
}

func TestStartWatcher_NoWatcher(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	configWatcher = nil

	assert.NotPanics(t, func() { startWatcher(&cobra.Command{}) })
}

func TestStartBackground_StartsJanitor(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	configWatcher = nil

	j := &mockJanitor{started: make(chan struct{})}
	janitor = j

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)

	startBackground(cmd)

	select {
	case <-j.started:
	case <-time.After(time.Second):
		t.Fatal("janitor did not start")
	}
}
