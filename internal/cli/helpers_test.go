package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rileyhilliard/vitals/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// fakeAgent serves canned JSON per path and records every request.
type fakeAgent struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]any
	requests []string
	posted   map[string][]byte
}

func newFakeAgent(t *testing.T, routes map[string]any) *fakeAgent {
	t.Helper()
	a := &fakeAgent{routes: routes, posted: map[string][]byte{}}
	a.Server = httptest.NewServer(http.HandlerFunc(a.serve))
	t.Cleanup(a.Close)
	return a
}

func (a *fakeAgent) serve(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.requests = append(a.requests, r.Method+" "+r.URL.Path)
	body, ok := a.routes[r.URL.Path]
	if r.Method == http.MethodPost {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r.Body)
		a.posted[r.URL.Path] = buf.Bytes()
		if r.URL.Path == "/settings" {
			// Echo the submission like the agent does.
			var echo map[string]any
			_ = json.Unmarshal(buf.Bytes(), &echo)
			body, ok = echo, true
		}
	}
	a.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (a *fakeAgent) Requests() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.requests...)
}

func (a *fakeAgent) Posted(path string) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.posted[path]
}

// writeTestConfig writes a config pointing at agentURL and returns its path.
func writeTestConfig(t *testing.T, agentURL string) string {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Agent.URL = agentURL
	cfg.Output.Color = "never"
	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	require.NoError(t, config.Write(path, cfg, true))
	return path
}

// resetFlags puts every flag back to its default so runs don't leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCLI executes the root command with args and returns what it wrote.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// decodeEnvelope parses --json output.
func decodeEnvelope(t *testing.T, out string) JSONEnvelope {
	t.Helper()
	var env JSONEnvelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	return env
}
