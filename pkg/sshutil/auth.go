package sshutil

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rileyhilliard/vitals/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

var defaultKeyNames = []string{"id_ed25519", "id_rsa", "id_ecdsa"}

// keyFiles lists the private keys worth trying for t: its IdentityFile,
// then the default names in dir.
func keyFiles(t target, dir string) []string {
	var paths []string
	if t.identityFile != "" {
		paths = append(paths, t.identityFile)
	}
	for _, name := range defaultKeyNames {
		p := filepath.Join(dir, name)
		if p != t.identityFile {
			paths = append(paths, p)
		}
	}
	return paths
}

func hasKeyFile(t target, dir string) bool {
	for _, p := range keyFiles(t, dir) {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

// credentials are the auth methods for one tunnel. The ssh-agent
// connection, when one was opened, lives as long as the tunnel.
type credentials struct {
	methods   []ssh.AuthMethod
	encrypted []string // keys skipped because they need a passphrase
	agent     net.Conn
}

// loadCredentials tries the ssh-agent first, then each key file. It fails
// only when nothing usable turned up.
func loadCredentials(t target, dir string) (*credentials, error) {
	c := &credentials{}

	if conn, auth := agentAuth(); auth != nil {
		c.agent = conn
		c.methods = append(c.methods, auth)
	} else if conn != nil {
		conn.Close()
	}

	for _, path := range keyFiles(t, dir) {
		auth, err := keyFileAuth(path)
		var encErr *EncryptedKeyError
		switch {
		case stderrors.As(err, &encErr):
			c.encrypted = append(c.encrypted, path)
		case err == nil:
			c.methods = append(c.methods, auth)
		}
	}

	if len(c.methods) > 0 {
		return c, nil
	}
	c.close()
	if len(c.encrypted) > 0 {
		return nil, errors.New(errors.ErrSSH,
			"Found SSH key(s) but they're encrypted: "+strings.Join(c.encrypted, ", "),
			addKeysHint(c.encrypted))
	}
	return nil, errors.New(errors.ErrSSH,
		fmt.Sprintf("No SSH keys to log in to '%s' with", t.alias),
		"Load a key into your agent (ssh-add -l lists them) or set IdentityFile in ~/.ssh/config")
}

func (c *credentials) close() {
	if c != nil && c.agent != nil {
		c.agent.Close()
		c.agent = nil
	}
}

// agentAuth connects to $SSH_AUTH_SOCK. It returns a nil method when the
// agent holds no keys, since an empty agent listed first makes servers give
// up before the key files are tried.
func agentAuth() (net.Conn, ssh.AuthMethod) {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil, nil
	}
	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, nil
	}
	client := agent.NewClient(conn)
	signers, err := client.Signers()
	if err != nil || len(signers) == 0 {
		return conn, nil
	}
	return conn, ssh.PublicKeysCallback(client.Signers)
}

// keyFileAuth loads an unencrypted private key. A key that needs a
// passphrase yields *EncryptedKeyError.
func keyFileAuth(path string) (ssh.AuthMethod, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if stderrors.As(err, &missing) || isEncryptedPEM(pem) {
			return nil, &EncryptedKeyError{Path: path}
		}
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

func isEncryptedPEM(data []byte) bool {
	return bytes.Contains(data, []byte("ENCRYPTED"))
}

// EncryptedKeyError is returned when an SSH key requires a passphrase.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key at %s is encrypted (passphrase protected)", e.Path)
}

func addKeysHint(keys []string) string {
	var sb strings.Builder
	sb.WriteString("Add your key(s) to the agent:\n")
	for _, key := range keys {
		if runtime.GOOS == "darwin" {
			fmt.Fprintf(&sb, "  ssh-add --apple-use-keychain %s\n", key)
		} else {
			fmt.Fprintf(&sb, "  ssh-add %s\n", key)
		}
	}
	sb.WriteString("\nNot sure which key? Check with: ssh -v <host>")
	return sb.String()
}

func suggestionForDialError(err error, host string) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "Is sshd running there? Try: ssh " + host
	case strings.Contains(msg, "no route to host"), strings.Contains(msg, "network is unreachable"):
		return "Can't route to the host. Check your network connection."
	case strings.Contains(msg, "timeout"):
		return "Connection timed out. The host might be offline or behind a firewall."
	}
	return "Make sure the host is reachable: ssh " + host
}

func suggestionForHandshakeError(err error, host string, encrypted []string) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unable to authenticate"), strings.Contains(msg, "no supported methods"):
		if len(encrypted) > 0 {
			return addKeysHint(encrypted)
		}
		return "Auth failed. Check your keys are loaded: ssh-add -l"
	case strings.Contains(msg, "key is unknown"):
		return "This host isn't in known_hosts yet. Connect once with 'ssh " + host +
			"' to record its key, or pass --insecure-host-key."
	}
	return "Something went wrong during SSH setup. Try: ssh " + host
}
