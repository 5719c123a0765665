// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DjCaptainPlus/WarpBook/internal/config"
	"github.com/DjCaptainPlus/WarpBook/internal/property/boltstore"
)

// cli runs warpbook against a bolt file in a temp dir, with XDG and
// DATABASE_URL isolated from the host.
type cli struct {
	t    *testing.T
	path string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv(config.DatabaseURLEnv, "")
	return &cli{t: t, path: filepath.Join(t.TempDir(), "warpbook.db")}
}

// run executes one command line and returns what it printed.
func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(append(args, "--store-path", c.path, "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// mustRun is run for commands expected to succeed.
func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, "warpbook %v", args)
	return out
}

// seed opens the bolt file directly, hands it to fn and closes it again
// so the next command can open it.
func (c *cli) seed(fn func(s *boltstore.Store)) {
	c.t.Helper()
	s, err := boltstore.Open(c.path)
	require.NoError(c.t, err)
	defer func() { require.NoError(c.t, s.Close()) }()
	fn(s)
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"warps", "global", "requests", "settings", "props", "players", "migrate", "serve"} {
		assert.Contains(t, output, sub, "help missing %q command", sub)
	}
	assert.Contains(t, output, "--store-driver")
}

func TestRootCommand_VersionFlag(t *testing.T) {
	cmd := NewRootCmd()
	cmd.Version = "test-version"
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "test-version")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("global", "list", "--store-driver", "sqlite")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite")
}

func TestServeFlagsOnlyOnServe(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("global", "list", "--tick-interval", "1ms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}
