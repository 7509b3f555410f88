package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.sexp")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestDoMainEmitsTextByDefault(t *testing.T) {
	path := writeFixture(t, `(func simple (block 0 (ret)))`)
	var stdout, stderr bytes.Buffer
	code := doMain([]string{path}, &stdout, &stderr)
	require.Equal(t, 0, code)
	require.Contains(t, stdout.String(), "ret")
	require.Empty(t, stderr.String())
}

func TestDoMainEmitsStreamHexWithFlag(t *testing.T) {
	path := writeFixture(t, `(func simple (block 0 (ret)))`)
	var stdout, stderr bytes.Buffer
	code := doMain([]string{"-stream", path}, &stdout, &stderr)
	require.Equal(t, 0, code)
	require.NotEmpty(t, stdout.String())
	require.Regexp(t, `^[0-9a-f]+\n$`, stdout.String())
}

func TestDoMainRejectsUnknownTarget(t *testing.T) {
	path := writeFixture(t, `(func simple (block 0 (ret)))`)
	var stdout, stderr bytes.Buffer
	code := doMain([]string{"-target", "windows", path}, &stdout, &stderr)
	require.Equal(t, 2, code)
	require.Contains(t, stderr.String(), "unknown target")
}

func TestDoMainMissingFileReturnsError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := doMain([]string{"/nonexistent/fixture.s"}, &stdout, &stderr)
	require.Equal(t, 1, code)
	require.NotEmpty(t, stderr.String())
}

func TestDoMainWrongArgCountUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := doMain([]string{}, &stdout, &stderr)
	require.Equal(t, 2, code)
	require.Contains(t, stderr.String(), "usage")
}

func TestDoMainWritesToOutputFile(t *testing.T) {
	path := writeFixture(t, `(func simple (block 0 (ret)))`)
	outPath := filepath.Join(t.TempDir(), "out.s")
	var stdout, stderr bytes.Buffer
	code := doMain([]string{"-o", outPath, path}, &stdout, &stderr)
	require.Equal(t, 0, code)
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "ret")
}
