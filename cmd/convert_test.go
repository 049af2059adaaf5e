package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleNotebook = `{
 "nbformat": 4,
 "nbformat_minor": 5,
 "metadata": {"kernelspec": {"name": "python3", "display_name": "Python 3", "language": "python"}},
 "cells": [
  {"cell_type": "markdown", "metadata": {}, "source": ["# Sales Report\n", "Quarterly numbers."]},
  {"cell_type": "code", "execution_count": 1, "metadata": {}, "source": "print(42)",
   "outputs": [{"output_type": "stream", "name": "stdout", "text": ["42\n"]}]}
 ]
}`

func writeNotebook(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(sampleNotebook), 0644))
	return p
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestConvertToStdout(t *testing.T) {
	nb := writeNotebook(t, t.TempDir(), "sales.ipynb")

	out, _, err := execute(t, "convert", nb, "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "## Notebook Metadata")
	assert.Contains(t, out, "# Sales Report")
	assert.Contains(t, out, "print(42)")
	assert.Contains(t, out, "42")
}

func TestConvertInfersFormatFromOutput(t *testing.T) {
	dir := t.TempDir()
	nb := writeNotebook(t, dir, "sales.ipynb")
	target := filepath.Join(dir, "out", "sales.json")

	out, _, err := execute(t, "convert", nb, "-o", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Written: "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"format": "json"`)
}

func TestConvertChunkedFiles(t *testing.T) {
	dir := t.TempDir()
	nb := writeNotebook(t, dir, "sales.ipynb")

	_, _, err := execute(t, "convert", nb, "--output-dir", dir, "--chunk-size", "10", "--format", "text")
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "sales_chunk*.txt"))
	require.NoError(t, err)
	assert.Greater(t, len(matches), 1)
}

func TestConvertReportsTokens(t *testing.T) {
	nb := writeNotebook(t, t.TempDir(), "sales.ipynb")

	_, errOut, err := execute(t, "convert", nb, "-o", "-", "--estimate-tokens")
	require.NoError(t, err)
	assert.Contains(t, errOut, nb+": ")
	assert.Contains(t, errOut, " tokens")
}

func TestConvertAll(t *testing.T) {
	src := t.TempDir()
	writeNotebook(t, src, "a.ipynb")
	writeNotebook(t, src, "ch1/b.ipynb")
	require.NoError(t, os.WriteFile(filepath.Join(src, "broken.ipynb"), []byte("not json"), 0644))
	outDir := t.TempDir()

	_, errOut, err := execute(t, "convert", src, "--all", "--output-dir", outDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1/3 notebooks failed")
	assert.Contains(t, errOut, "broken.ipynb")

	assert.FileExists(t, filepath.Join(outDir, "a.md"))
	assert.FileExists(t, filepath.Join(outDir, "ch1", "b.md"))
}

func TestConvertErrors(t *testing.T) {
	nb := writeNotebook(t, t.TempDir(), "sales.ipynb")

	_, _, err := execute(t, "convert", nb, "--format", "docx")
	assert.ErrorContains(t, err, "FORMAT")

	_, _, err = execute(t, "convert", filepath.Join(t.TempDir(), "missing.ipynb"), "-o", "-")
	assert.ErrorContains(t, err, "INPUT")

	_, _, err = execute(t, "convert", nb, "--all", "-o", "x.md")
	assert.Error(t, err)
}
