package sshutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSSHFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadUntilMatch(t *testing.T) {
	dir := t.TempDir()
	path := writeSSHFile(t, dir, "config", "Host a\n  User x\n  match host b\n  User y\nHost c\n")

	content, line, err := readUntilMatch(path)
	require.NoError(t, err)
	assert.Equal(t, 3, line)
	assert.Equal(t, "Host a\n  User x", string(content))

	plain := writeSSHFile(t, dir, "plain", "Host a\n")
	content, line, err = readUntilMatch(plain)
	require.NoError(t, err)
	assert.Zero(t, line)
	assert.Equal(t, "Host a\n", string(content))
}

func TestLoadSSHConfig_Missing(t *testing.T) {
	cfg, err := loadSSHConfig(filepath.Join(t.TempDir(), "config"))
	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.Empty(t, cfg.get("anything", "HostName"))
	assert.Empty(t, cfg.aliases())
}

func TestSSHConfig_Aliases(t *testing.T) {
	path := writeSSHFile(t, t.TempDir(), "config", `
Host web-1 web-2
    User deploy
Host *.internal lab?
    User ops
Host web-1
    Port 2222
Host nas
`)
	cfg, err := loadSSHConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"web-1", "web-2", "nas"}, cfg.aliases())
}

func TestResolveTarget(t *testing.T) {
	t.Setenv("USER", "me")

	tests := []struct {
		host     string
		hostname string
		port     string
		user     string
	}{
		{"example.com", "example.com", "22", "me"},
		{"ops@example.com", "example.com", "22", "ops"},
		{"example.com:2222", "example.com", "2222", "me"},
		{"admin@server.example.com:2222", "server.example.com", "2222", "admin"},
		{"example.com:ssh", "example.com:ssh", "22", "me"},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got := resolveTarget(tt.host, nil)
			assert.Equal(t, tt.hostname, got.hostname)
			assert.Equal(t, tt.port, got.port)
			assert.Equal(t, tt.user, got.user)
			assert.False(t, got.configured)
		})
	}
}

func TestResolveTarget_FromConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg, err := loadSSHConfig(writeSSHFile(t, home, "config", `
Host lab-box
    HostName 10.0.0.5
    User ops
    Port 2200
    IdentityFile ~/.ssh/id_lab
`))
	require.NoError(t, err)

	got := resolveTarget("lab-box", cfg)
	assert.Equal(t, "lab-box", got.alias)
	assert.Equal(t, "10.0.0.5:2200", got.address())
	assert.Equal(t, "ops", got.user)
	assert.Equal(t, filepath.Join(home, ".ssh", "id_lab"), got.identityFile)
	assert.True(t, got.configured)

	explicit := resolveTarget("root@lab-box:22", cfg)
	assert.Equal(t, "root", explicit.user, "explicit user beats the config")
	assert.Equal(t, "10.0.0.5:22", explicit.address(), "explicit port beats the config")
}

func TestHost_Description(t *testing.T) {
	tests := []struct {
		name string
		host Host
		want string
	}{
		{"everything", Host{Alias: "lab", Hostname: "10.0.0.5", User: "ops", Port: "2200"}, "10.0.0.5, user: ops, port: 2200"},
		{"default port hidden", Host{Alias: "lab", Hostname: "10.0.0.5", Port: "22"}, "10.0.0.5"},
		{"hostname same as alias", Host{Alias: "nas.local", Hostname: "nas.local", User: "pi"}, "user: pi"},
		{"nothing but alias", Host{Alias: "nas"}, "nas"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.host.Description())
		})
	}
}

func TestTunnelHosts(t *testing.T) {
	dir := t.TempDir()
	keyPath := writeSSHFile(t, dir, "id_lab", "not parsed here")
	writeSSHFile(t, dir, "config", `
Host zeta
    HostName 10.0.0.9
    IdentityFile `+keyPath+`
Host alpha
    HostName 10.0.0.1
    User ops
    Port 2200
    IdentityFile `+filepath.Join(dir, "id_missing")+`
Host *
    ServerAliveInterval 30
Match host later
    User nobody
Host after-match
    HostName 10.0.0.2
`)

	hosts, err := TunnelHosts(dir)
	require.NoError(t, err)
	require.Len(t, hosts, 1, "alpha's key is missing and there's no default key")
	assert.Equal(t, Host{Alias: "zeta", Hostname: "10.0.0.9"}, hosts[0])

	writeSSHFile(t, dir, "id_ed25519", "default key")
	hosts, err = TunnelHosts(dir)
	require.NoError(t, err)
	require.Len(t, hosts, 2)
	assert.Equal(t, Host{Alias: "alpha", Hostname: "10.0.0.1", User: "ops", Port: "2200"}, hosts[0])
	assert.Equal(t, "zeta", hosts[1].Alias)
}

func TestTunnelHosts_NoConfig(t *testing.T) {
	hosts, err := TunnelHosts(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, hosts)
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, "keys", "id"), expandPath("~/keys/id"))
	assert.Equal(t, "/abs/id", expandPath("/abs/id"))
	assert.Equal(t, "rel/id", expandPath("rel/id"))
	assert.Empty(t, expandPath(""))
}
