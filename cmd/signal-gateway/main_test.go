package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sig "github.com/fpt/signal-gateway/internal/signal"
)

func writeConfig(t *testing.T, gatewayURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
signal:
  url: ` + gatewayURL + `
  bot-number: "+15550000000"
  poll-interval: 5
  rooms:
    alice: "+2134567890"
  whitelisted-numbers:
    - alice
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestCheckConfig(t *testing.T) {
	path := writeConfig(t, "http://localhost:8080")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"check-config", "--config", path})
	require.NoError(t, cmd.Execute())

	got := out.String()
	assert.Contains(t, got, "number:   +15550000000")
	assert.Contains(t, got, "mode:     polling every 5s")
	assert.Contains(t, got, "alice -> +2134567890")
	assert.Contains(t, got, "alice (phone)")
}

func TestCheckConfigRejectsMissingPollInterval(t *testing.T) {
	path := writeConfig(t, "http://localhost:8080")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(string(data), "poll-interval: 5", "", 1)), 0o600))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"check-config", "--config", path})
	err = cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll-interval")
}

func TestCheckConfigFlagOverride(t *testing.T) {
	path := writeConfig(t, "http://localhost:8080")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check-config", "--config", path, "--use-json-rpc"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "mode:     streaming")
}

func TestSendCommand(t *testing.T) {
	bodies := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/send", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"send", "--config", writeConfig(t, srv.URL), "alice", "hello", "there"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "sent to +2134567890\n", out.String())
	body := <-bodies
	assert.Equal(t, "hello there", body["message"])
	assert.Equal(t, []any{"+2134567890"}, body["recipients"])
}

func TestDescribeMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  sig.Config
		want string
	}{
		{"polling", sig.Config{PollInterval: 5}, "polling every 5s"},
		{"json-rpc", sig.Config{UseJSONRPC: true, DeliveryMode: sig.DeliveryAuto}, "streaming"},
		{"auto", sig.Config{PollInterval: 5, DeliveryMode: sig.DeliveryAuto}, "auto (polling fallback every 5s)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeMode(&tt.cfg))
		})
	}
}
