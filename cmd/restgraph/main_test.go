package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T, fn func() error) (stdout string, err error) {
	t.Helper()
	oldOut := os.Stdout
	defer func() { os.Stdout = oldOut }()

	outR, outW, _ := os.Pipe()
	os.Stdout = outW

	done := make(chan struct{})
	var buf bytes.Buffer
	go func() { _, _ = io.Copy(&buf, outR); close(done) }()

	err = fn()
	outW.Close()
	<-done
	return buf.String(), err
}

func TestHelp(t *testing.T) {
	out, err := captureOutput(t, func() error {
		return run([]string{"help", "serve"})
	})
	require.NoError(t, err)
	require.Contains(t, out, "serve FLAGS")
}

func TestMissingCommand(t *testing.T) {
	require.Error(t, run(nil))
}

func TestUnknownCommand(t *testing.T) {
	require.Error(t, run([]string{"frobnicate"}))
}

func TestCheck_ValidQuery(t *testing.T) {
	query := filepath.Join(t.TempDir(), "q.graphql")
	require.NoError(t, os.WriteFile(query, []byte(`query {
		post(id: "1") @rest(type: "Post", path: "/posts/{args.id}") { id title }
	}`), 0o644))

	out, err := captureOutput(t, func() error {
		return run([]string{"check", "-query", query})
	})
	require.NoError(t, err)
	require.Contains(t, out, "ok")
}

func TestCheck_ConfigErrorFails(t *testing.T) {
	query := filepath.Join(t.TempDir(), "q.graphql")
	require.NoError(t, os.WriteFile(query, []byte(`query {
		post @rest(path: "/posts/1", method: "DELETE") { id }
	}`), 0o644))

	err := run([]string{"check", "-query", query})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not allowed")
}

func TestCheck_UnknownEndpointFails(t *testing.T) {
	query := filepath.Join(t.TempDir(), "q.graphql")
	require.NoError(t, os.WriteFile(query, []byte(`query {
		post @rest(path: "/posts/1", endpoint: "v2") { id }
	}`), 0o644))

	require.Error(t, run([]string{"check", "-query", query}))

	err := run([]string{"check", "-query", query, "-api.endpoint", "v2=https://v2.example.com"})
	require.NoError(t, err)
}

func TestServe_RequiresBaseURL(t *testing.T) {
	err := run([]string{"serve"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "api.uri")
}
