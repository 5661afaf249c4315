// Package sshutil opens SSH tunnels to agents that only listen on the remote
// machine's loopback interface.
package sshutil

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"path/filepath"
	"time"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
	"golang.org/x/crypto/ssh"
)

// DefaultTimeout bounds connect plus handshake when Options.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Options control how Open reaches the tunnel host.
type Options struct {
	// Timeout bounds the TCP connect and the SSH handshake together.
	Timeout time.Duration

	// InsecureHostKey skips known_hosts verification.
	InsecureHostKey bool

	// Dir holds config, known_hosts, and the default keys. Empty means ~/.ssh.
	Dir string

	// Logger receives warnings such as a Match block hiding the host.
	Logger logger.Logger
}

// Tunnel is an SSH connection used only to dial through.
type Tunnel struct {
	Host    string // as given to Open
	Address string // resolved host:port

	client *ssh.Client
	creds  *credentials
}

// Open connects to host, which may be an ssh_config alias, hostname,
// user@hostname, or hostname:port. The caller must Close the tunnel.
func Open(ctx context.Context, host string, opts Options) (*Tunnel, error) {
	dir := opts.Dir
	if dir == "" {
		dir = defaultDir()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cfg, err := loadSSHConfig(filepath.Join(dir, "config"))
	if err != nil {
		log.Warn("ignoring unreadable ssh config: %v", err)
	}
	t := resolveTarget(host, cfg)
	if cfg != nil && cfg.matchLine > 0 && !t.configured {
		log.Warn("'%s' not found in ssh config before its Match block at line %d; entries after it are not read",
			t.alias, cfg.matchLine)
	}

	hostKeys, err := hostKeyCallback(dir, opts.InsecureHostKey)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't load known_hosts",
			"Check the permissions on "+dir)
	}
	creds, err := loadCredentials(t, dir)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	address := t.address()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		creds.close()
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", host, address),
			suggestionForDialError(err, host))
	}

	// NewClientConn has no context, so the deadline stands in for it.
	deadline, _ := ctx.Deadline()
	_ = conn.SetDeadline(deadline)
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, &ssh.ClientConfig{
		User:            t.user,
		Auth:            creds.methods,
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	})
	if err != nil {
		conn.Close()
		creds.close()
		var mismatch *HostKeyMismatchError
		if stderrors.As(err, &mismatch) {
			return nil, errors.WrapWithCode(mismatch, errors.ErrSSH,
				fmt.Sprintf("'%s' presented a different host key than known_hosts has", host),
				mismatch.Suggestion())
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", host),
			suggestionForHandshakeError(err, host, creds.encrypted))
	}
	_ = conn.SetDeadline(time.Time{})

	return &Tunnel{
		Host:    host,
		Address: address,
		client:  ssh.NewClient(sshConn, chans, reqs),
		creds:   creds,
	}, nil
}

// DialContext opens a connection to addr as seen from the remote host.
// Its signature matches net.Dialer.DialContext so HTTP transports and
// websocket dialers can route through the tunnel.
func (t *Tunnel) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	conn, err := t.client.DialContext(ctx, network, addr)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't open a tunnel to %s via '%s'", addr, t.Host),
			"Check the agent is listening on the remote host: ssh "+t.Host+" curl -s "+addr+"/realtime")
	}
	return conn, nil
}

// Close shuts the SSH connection and the ssh-agent connection it used.
func (t *Tunnel) Close() error {
	if t == nil {
		return nil
	}
	t.creds.close()
	if t.client == nil {
		return nil
	}
	return t.client.Close()
}
