package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/nbdistill/core"
)

const tinyNotebook = `{"nbformat": 4, "nbformat_minor": 5, "metadata": {}, "cells": []}`

func TestFetchLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nb.ipynb")
	require.NoError(t, os.WriteFile(path, []byte(tinyNotebook), 0644))

	res, err := New().Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, res.Source)
	assert.Equal(t, tinyNotebook, string(res.Data))
}

func TestFetchMissingFile(t *testing.T) {
	_, err := New().Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.ipynb"))
	require.Error(t, err)
	assert.True(t, core.Is(err, core.ErrInput))
}

func TestFetchURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "nbdistill")
		if r.URL.Path != "/nb.ipynb" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(tinyNotebook))
	}))
	defer srv.Close()

	res, err := New().Fetch(context.Background(), srv.URL+"/nb.ipynb")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, tinyNotebook, string(res.Data))

	_, err = New().Fetch(context.Background(), srv.URL+"/other.ipynb")
	require.Error(t, err)
	assert.True(t, core.Is(err, core.ErrInput))
	assert.Contains(t, err.Error(), "404")
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/a.ipynb"))
	assert.True(t, IsURL("http://example.com/a.ipynb"))
	assert.False(t, IsURL("notebooks/a.ipynb"))
	assert.False(t, IsURL("/abs/a.ipynb"))
}
