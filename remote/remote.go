// Package remote runs scheduler commands on a gateway host over SSH,
// for machines that do not have the SLURM client tools installed.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"
)

// Runner executes commands on one remote host. It satisfies the slurm
// package's Runner interface. The connection is made on first use and
// reused until Close.
type Runner struct {
	Host string
	// User defaults to the current user.
	User string
	// KeyFile defaults to ~/.ssh/id_rsa.
	KeyFile string

	mu     sync.Mutex
	client *ssh.Client
}

func (r *Runner) connect() (*ssh.Client, error) {
	username := r.User
	if username == "" {
		u, err := user.Current()
		if err != nil {
			return nil, fmt.Errorf("failed to find current user: %w", err)
		}
		username = u.Username
	}
	keyFile := r.KeyFile
	if keyFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to find home directory: %w", err)
		}
		keyFile = filepath.Join(home, ".ssh", "id_rsa")
	}
	key, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key %s: %w", keyFile, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", keyFile, err)
	}

	config := &ssh.ClientConfig{
		User: username,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	client, err := ssh.Dial("tcp", r.Host+":22", config)
	if err != nil {
		return nil, fmt.Errorf("failed to dial host %s: %w", r.Host, err)
	}
	return client, nil
}

// Run executes the command remotely and returns its standard output.
// Cancelling ctx tears the session down.
func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	if r.client == nil {
		client, err := r.connect()
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
		r.client = client
	}
	client := r.client
	r.mu.Unlock()

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create session on %v: %w", r.Host, err)
	}
	defer session.Close() // nolint: errcheck

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			session.Close() // nolint: errcheck
		case <-done:
		}
	}()

	var errOut bytes.Buffer
	session.Stderr = &errOut
	out, err := session.Output(quoteCommand(name, args))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%v on %v: %w", name, r.Host, ctxErr)
	}
	if err != nil {
		if msg := strings.TrimSpace(errOut.String()); msg != "" {
			return nil, fmt.Errorf("%v on %v: %w: %v", name, r.Host, err, msg)
		}
		return nil, fmt.Errorf("%v on %v: %w", name, r.Host, err)
	}
	return out, nil
}

func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}

// quoteCommand assembles a shell command line, single quoting any
// argument the remote shell would otherwise interpret.
func quoteCommand(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quoteArg(name))
	for _, a := range args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if isShellSafe(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isShellSafe(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case strings.ContainsRune("@%_+=:,./-", c):
		default:
			return false
		}
	}
	return true
}
