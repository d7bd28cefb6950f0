package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/CloudNativeWorks/vpm-bootstrap/internal/config"
	"github.com/CloudNativeWorks/vpm-bootstrap/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipeline_NonInteractiveRun(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/api/1/config", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "vpm-bootstrap/test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"downloadUrls":{"bootstrap":"` + srv.URL + `/Bootstrap.unitypackage"}}`))
	})
	mux.HandleFunc("/Bootstrap.unitypackage", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("package"))
	})

	stagingDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.API.Endpoint = srv.URL + "/api/1/config"
	cfg.API.UserAgent = "vpm-bootstrap/test"
	cfg.Staging.Dir = stagingDir
	require.NoError(t, cfg.Validate())

	// a regular file is not a terminal, so the run must not block
	stdinPath := filepath.Join(t.TempDir(), "stdin")
	require.NoError(t, os.WriteFile(stdinPath, nil, 0600))
	stdin, err := os.Open(stdinPath)
	require.NoError(t, err)
	defer stdin.Close()

	log, err := logger.New(logger.Config{Level: "error", Output: io.Discard})
	require.NoError(t, err)

	var out bytes.Buffer
	p, err := newPipeline(cfg, stdin, &out, log)
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	assert.Contains(t, out.String(), "Please import "+stagingDir)
	entries, err := os.ReadDir(stagingDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewPipeline_InvalidTimeout(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Download.Timeout = "forever"

	_, err := newPipeline(cfg, os.Stdin, io.Discard, nil)
	assert.Error(t, err)
}

func TestConfigCommand_PrintsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  endpoint: https://example.test/api/1/config\nlogging:\n  level: error\n"), 0600))

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs([]string{"config", "--config", path})
	defer RootCmd.SetArgs(nil)

	require.NoError(t, RootCmd.Execute())
	assert.Contains(t, out.String(), "endpoint: https://example.test/api/1/config")
	assert.Contains(t, out.String(), "vpm-bootstrap-*.unitypackage")
}
