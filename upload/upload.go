// Package upload copies captured stills to a remote host over SFTP.
package upload

import (
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// A Client uploads files over an SFTP session.
type Client struct {
	c    *sftp.Client
	conn io.Closer
}

// Dial connects to host using config and starts an SFTP session.
func Dial(host string, config *ssh.ClientConfig) (*Client, error) {
	conn, err := ssh.Dial("tcp", host, config)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", host)
	}

	sc, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "start sftp")
	}

	return &Client{c: sc, conn: conn}, nil
}

// NewClient wraps an established SFTP client. Close closes only sc.
func NewClient(sc *sftp.Client) *Client {
	return &Client{c: sc}
}

// Close closes the SFTP session and the underlying connection.
func (c *Client) Close() error {
	if err := c.c.Close(); err != nil {
		return err
	}
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Upload writes the contents of r to target. The data is written to a
// temporary name beside target and renamed once complete, replacing any
// previous file.
func (c *Client) Upload(target string, r io.Reader) error {
	target = path.Clean(target)
	tmp := fmt.Sprintf("%s.%s", target, strconv.FormatInt(time.Now().UnixNano(), 10))

	f, err := c.c.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "create %s", tmp)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		c.c.Remove(tmp)
		return errors.Wrapf(err, "write %s", tmp)
	}

	if err := f.Close(); err != nil {
		c.c.Remove(tmp)
		return err
	}

	if err := c.c.PosixRename(tmp, target); err != nil {
		c.c.Remove(tmp)
		return errors.Wrapf(err, "rename %s", tmp)
	}
	return nil
}

// UploadFile uploads the local file at src to target.
func (c *Client) UploadFile(target, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	return c.Upload(target, f)
}

// Config builds an SSH client configuration authenticating user with the
// private key in identityFile and checking the server against knownHostsFile.
func Config(user, identityFile, knownHostsFile string) (*ssh.ClientConfig, error) {
	key, err := os.ReadFile(identityFile)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", identityFile)
	}

	hostKeys, err := knownhosts.New(knownHostsFile)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", knownHostsFile)
	}

	return &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeys,
		Timeout:         10 * time.Second,
	}, nil
}
