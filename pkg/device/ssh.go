// Package device provides the SSH, SFTP and TCP plumbing used to reach
// containerlab nodes over their management address.
package device

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// DefaultSSHPort is the management SSH port on every supported node kind.
const DefaultSSHPort = 22

// dialTimeout bounds the TCP connect and the SSH handshake.
var dialTimeout = 10 * time.Second

// Session is an authenticated SSH connection to a node.
type Session interface {
	// Run executes a single command and returns its stdout and stderr
	// separately. A non-zero exit status is reported as err.
	Run(cmd string) (stdout, stderr string, err error)
	// Upload copies a local file to remotePath over SFTP.
	Upload(localPath, remotePath string) error
	// RunScript feeds script line by line into an interactive shell and
	// returns everything the device printed.
	RunScript(script string) (string, error)
	Close() error
}

// Dialer opens a Session. Production code uses Dial; tests inject fakes.
type Dialer func(ctx context.Context, host, user, pass string) (Session, error)

// SSHSession implements Session on top of golang.org/x/crypto/ssh.
type SSHSession struct {
	host   string
	client *ssh.Client
}

var _ Session = (*SSHSession)(nil)

// Dial connects to host (optionally "host:port", default port 22) with
// password authentication.
func Dial(ctx context.Context, host, user, pass string) (Session, error) {
	return DialSSH(ctx, host, user, pass)
}

// DialSSH is Dial returning the concrete type.
func DialSSH(ctx context.Context, host, user, pass string) (*SSHSession, error) {
	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		addr = net.JoinHostPort(host, fmt.Sprint(DefaultSSHPort))
	}

	config := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.Password(pass),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = pass
				}
				return answers, nil
			}),
		},
		// Lab nodes regenerate host keys on every deploy.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}

	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(dialTimeout))
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SSH handshake %s: %w", addr, err)
	}
	// Handshake done; long-running commands must not hit the dial deadline.
	conn.SetDeadline(time.Time{})

	return &SSHSession{host: addr, client: ssh.NewClient(c, chans, reqs)}, nil
}

// Run executes cmd in a fresh SSH session. The session is created per call.
func (s *SSHSession) Run(cmd string) (string, string, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return "", "", fmt.Errorf("SSH session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if err := session.Run(cmd); err != nil {
		return stdout.String(), stderr.String(), fmt.Errorf("SSH exec '%s': %w", cmd, err)
	}
	return stdout.String(), stderr.String(), nil
}

// Upload copies localPath to remotePath over an SFTP subsystem opened on
// the existing connection.
func (s *SSHSession) Upload(localPath, remotePath string) error {
	client, err := sftp.NewClient(s.client)
	if err != nil {
		return fmt.Errorf("SFTP open %s: %w", s.host, err)
	}
	defer client.Close()

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer src.Close()

	dst, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("SFTP create %s: %w", remotePath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("SFTP write %s: %w", remotePath, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("SFTP close %s: %w", remotePath, err)
	}
	return nil
}

// RunScript opens an interactive shell with a PTY and writes the script
// one line at a time. It returns once the remote side closes the shell, so
// scripts should end with a logout.
func (s *SSHSession) RunScript(script string) (string, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("SSH session: %w", err)
	}
	defer session.Close()

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("vt100", 200, 512, modes); err != nil {
		return "", fmt.Errorf("SSH pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("SSH stdin: %w", err)
	}
	var out bytes.Buffer
	session.Stdout = &out
	session.Stderr = &out

	if err := session.Shell(); err != nil {
		return "", fmt.Errorf("SSH shell: %w", err)
	}

	for _, line := range ScriptLines(script) {
		if _, err := io.WriteString(stdin, line+"\n"); err != nil {
			return out.String(), fmt.Errorf("SSH write '%s': %w", line, err)
		}
	}
	stdin.Close()

	if err := session.Wait(); err != nil {
		// Devices frequently drop the channel on logout without an exit status.
		var missing *ssh.ExitMissingError
		if !errors.As(err, &missing) {
			return out.String(), fmt.Errorf("SSH shell: %w", err)
		}
	}
	return out.String(), nil
}

// Close closes the underlying SSH connection.
func (s *SSHSession) Close() error {
	return s.client.Close()
}

// ScriptLines splits a CLI script into the lines sent to the device,
// dropping blank lines and trailing whitespace.
func ScriptLines(script string) []string {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(script))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// FirstWorkingPassword returns the first password that authenticates user
// against host, or "" if none does.
func FirstWorkingPassword(ctx context.Context, dial Dialer, host, user string, passwords []string) string {
	for _, pw := range passwords {
		s, err := dial(ctx, host, user, pw)
		if err != nil {
			continue
		}
		s.Close()
		return pw
	}
	return ""
}
