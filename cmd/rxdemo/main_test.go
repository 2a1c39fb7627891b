package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AnatoleLucet/reactive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	names := []string{}
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}

	assert.ElementsMatch(t, []string{"config", "demo"}, names)
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reactive.yaml")

	run := func(args ...string) (string, error) {
		out := &bytes.Buffer{}
		root := newRootCmd()
		root.SetOut(out)
		root.SetArgs(args)

		err := root.ExecuteContext(context.Background())
		return out.String(), err
	}

	t.Run("init writes the defaults", func(t *testing.T) {
		out, err := run("config", "init", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, path)
	})

	t.Run("init refuses to overwrite", func(t *testing.T) {
		_, err := run("config", "init", "--config", path)
		assert.Error(t, err)

		_, err = run("config", "init", "--force", "--config", path)
		assert.NoError(t, err)
	})

	t.Run("show prints the file", func(t *testing.T) {
		out, err := run("config", "show", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "config_version: 1")
	})

	t.Run("init needs a path", func(t *testing.T) {
		_, err := run("config", "init")
		assert.Error(t, err)
	})
}

func TestDemo(t *testing.T) {
	cfg := reactive.DefaultConfig()
	cfg.Scheduler.Deferred = "dispatcher"

	app, err := reactive.NewApp(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := &bytes.Buffer{}
	err = runDemo(ctx, out, app, demoOptions{
		interval: time.Millisecond,
		titles:   []string{"a", "b"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Contains(t, lines, "added   A")
	assert.Contains(t, lines, "added   B")
	assert.Contains(t, lines, "changed a Done")
	assert.Contains(t, lines, "changed b Done")
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "final   "))

	t.Run("rejects a non positive interval", func(t *testing.T) {
		err := runDemo(ctx, out, app, demoOptions{titles: []string{"a"}})
		assert.Error(t, err)
	})
}
