// Package ssh runs commands on other hosts with golang.org/x/crypto/ssh.
package ssh

import (
	"context"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/lsds/shardcomm/srcs/go/utils/iostream"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

const (
	dialTimeout = 8 * time.Second
	defaultPort = "22"
)

// Target says where to log in. Empty fields take the current user, port
// 22 and ~/.ssh/id_rsa.
type Target struct {
	User    string
	Host    string
	KeyFile string
}

func (t Target) String() string { return t.User + "@" + t.Host }

func (t Target) resolved() Target {
	if t.User == "" {
		if u, err := user.Current(); err == nil {
			t.User = u.Username
		}
	}
	if _, _, err := net.SplitHostPort(t.Host); err != nil {
		t.Host = net.JoinHostPort(t.Host, defaultPort)
	}
	if t.KeyFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			t.KeyFile = filepath.Join(home, ".ssh", "id_rsa")
		}
	}
	return t
}

func (t Target) clientConfig() (*ssh.ClientConfig, error) {
	pem, err := os.ReadFile(t.KeyFile)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, errors.Wrap(err, t.KeyFile)
	}
	return &ssh.ClientConfig{
		User:            t.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}, nil
}

type Client struct {
	target Target
	conn   *ssh.Client
}

// Dial logs in to t with its key file.
func Dial(t Target) (*Client, error) {
	t = t.resolved()
	cfg, err := t.clientConfig()
	if err != nil {
		return nil, errors.Wrapf(err, "ssh %s", t)
	}
	conn, err := ssh.Dial("tcp", t.Host, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "ssh %s", t)
	}
	return &Client{target: t, conn: conn}, nil
}

func (c *Client) String() string { return c.target.String() }

// Run executes script remotely with its output pumped to sinks. If ctx
// ends first the remote side is sent SIGTERM and ctx.Err() returned.
func (c *Client) Run(ctx context.Context, script string, sinks ...iostream.Sink) error {
	s, err := c.conn.NewSession()
	if err != nil {
		return err
	}
	defer s.Close()
	stdout, err := s.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := s.StderrPipe()
	if err != nil {
		return err
	}
	// with a pty the remote process dies with the session
	if err := s.RequestPty("xterm", 40, 80, nil); err != nil {
		return err
	}
	if err := s.Start(script); err != nil {
		return err
	}
	pumped := iostream.Pump(stdout, stderr, sinks...)
	exited := make(chan error, 1)
	go func() {
		pumped.Wait()
		exited <- s.Wait()
	}()
	select {
	case err := <-exited:
		return err
	case <-ctx.Done():
		s.Signal(ssh.SIGTERM)
		return ctx.Err()
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}
