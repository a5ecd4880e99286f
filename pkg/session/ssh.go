package session

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// sshConn is an interactive shell over SSH: one client, one session, with
// the shell's stdin/stdout exposed as the raw byte stream.
type sshConn struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
}

func dialSSH(host string, port int, user, password string, timeout time.Duration) (*sshConn, error) {
	cfg := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(name, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		// Inspection targets are inventory-managed infrastructure; host
		// keys are not pinned.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	client, err := ssh.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(port)), cfg)
	if err != nil {
		if strings.Contains(err.Error(), "unable to authenticate") {
			return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
		}
		return nil, fmt.Errorf("ssh dial: %w", err)
	}

	sess, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ssh session: %w", err)
	}

	c := &sshConn{client: client, session: sess}
	if err := c.openShell(); err != nil {
		sess.Close()
		client.Close()
		return nil, err
	}
	return c, nil
}

func (c *sshConn) openShell() error {
	if err := c.session.RequestPty("vt100", 512, 80, ssh.TerminalModes{}); err != nil {
		return fmt.Errorf("request pty: %w", err)
	}
	stdin, err := c.session.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := c.session.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := c.session.Shell(); err != nil {
		return fmt.Errorf("start shell: %w", err)
	}
	c.stdin = stdin
	c.stdout = stdout
	return nil
}

func (c *sshConn) Read(p []byte) (int, error)  { return c.stdout.Read(p) }
func (c *sshConn) Write(p []byte) (int, error) { return c.stdin.Write(p) }

func (c *sshConn) Close() error {
	c.session.Close()
	return c.client.Close()
}
