package sshutil

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// sshConfig is an ssh_config file cut at its first Match block. The parser
// does not understand Match, so hosts defined after one are invisible.
type sshConfig struct {
	cfg       *ssh_config.Config
	matchLine int // 1-based line of the first Match, 0 when there is none
}

// loadSSHConfig reads path. A missing file is not an error: it yields nil,
// which answers every lookup with "".
func loadSSHConfig(path string) (*sshConfig, error) {
	content, matchLine, err := readUntilMatch(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	return &sshConfig{cfg: cfg, matchLine: matchLine}, nil
}

func (c *sshConfig) get(alias, key string) string {
	if c == nil {
		return ""
	}
	v, _ := c.cfg.Get(alias, key)
	return v
}

// aliases lists Host patterns without wildcards, in file order and without
// repeats.
func (c *sshConfig) aliases() []string {
	if c == nil {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, h := range c.cfg.Hosts {
		for _, p := range h.Patterns {
			alias := p.String()
			if strings.ContainsAny(alias, "*?") || seen[alias] {
				continue
			}
			seen[alias] = true
			out = append(out, alias)
		}
	}
	return out
}

// readUntilMatch returns the file content before the first Match line and
// that line's number.
func readUntilMatch(path string) ([]byte, int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			return []byte(strings.Join(lines[:i], "\n")), i + 1, nil
		}
	}
	return content, 0, nil
}

// target is a tunnel host with its ssh_config settings applied.
type target struct {
	alias        string
	hostname     string
	port         string
	user         string
	identityFile string
	configured   bool // some setting came from ssh_config
}

func (t target) address() string {
	return net.JoinHostPort(t.hostname, t.port)
}

// resolveTarget splits user@host:port and fills in what ssh_config knows
// about host. An explicit user or port wins over the config.
func resolveTarget(host string, cfg *sshConfig) target {
	t := target{port: "22", user: currentUser()}

	explicitUser, explicitPort := false, false
	if at := strings.Index(host, "@"); at != -1 {
		t.user = host[:at]
		host = host[at+1:]
		explicitUser = true
	}
	if colon := strings.LastIndex(host, ":"); colon != -1 && isDigits(host[colon+1:]) {
		t.port = host[colon+1:]
		host = host[:colon]
		explicitPort = true
	}
	t.alias = host
	t.hostname = host

	if v := cfg.get(host, "HostName"); v != "" {
		t.hostname = v
		t.configured = true
	}
	if v := cfg.get(host, "Port"); v != "" {
		if !explicitPort {
			t.port = v
		}
		t.configured = true
	}
	if v := cfg.get(host, "User"); v != "" {
		if !explicitUser {
			t.user = v
		}
		t.configured = true
	}
	if v := cfg.get(host, "IdentityFile"); v != "" {
		t.identityFile = expandPath(v)
		t.configured = true
	}
	return t
}

// Host is one concrete alias from the SSH config, as offered by
// `vitals config init --pick`.
type Host struct {
	Alias    string
	Hostname string
	User     string
	Port     string
}

// Description summarizes where the alias points, e.g. "10.0.0.5, user: ops".
func (h Host) Description() string {
	var parts []string
	if h.Hostname != "" && h.Hostname != h.Alias {
		parts = append(parts, h.Hostname)
	}
	if h.User != "" {
		parts = append(parts, "user: "+h.User)
	}
	if h.Port != "" && h.Port != "22" {
		parts = append(parts, "port: "+h.Port)
	}
	if len(parts) == 0 {
		return h.Alias
	}
	return strings.Join(parts, ", ")
}

// TunnelHosts lists the aliases in dir/config that Open could authenticate
// to with a key file, sorted by alias. Empty dir means ~/.ssh.
func TunnelHosts(dir string) ([]Host, error) {
	if dir == "" {
		dir = defaultDir()
	}
	cfg, err := loadSSHConfig(filepath.Join(dir, "config"))
	if err != nil {
		return nil, err
	}

	var hosts []Host
	for _, alias := range cfg.aliases() {
		t := target{
			alias:        alias,
			hostname:     cfg.get(alias, "HostName"),
			user:         cfg.get(alias, "User"),
			port:         cfg.get(alias, "Port"),
			identityFile: expandPath(cfg.get(alias, "IdentityFile")),
		}
		if !hasKeyFile(t, dir) {
			continue
		}
		hosts = append(hosts, Host{Alias: alias, Hostname: t.hostname, User: t.user, Port: t.port})
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Alias < hosts[j].Alias })
	return hosts, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".ssh")
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			home = os.Getenv("HOME")
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
