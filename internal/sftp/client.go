// Package sftp transfers result files to the vendor's SFTP drop directory.
//
// The transfer is a synchronous capability with its own timeout; callers own
// retry policy. Host-key trust works on fingerprints: when a known
// fingerprint is configured a mismatch aborts the handshake, and when none
// is configured the server's fingerprint is logged so an operator can pin
// it on the next run.
package sftp

import (
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Config holds connection and authentication settings. FromEnv fills the
// blanks from SFTP_* environment variables for unattended runs.
type Config struct {
	Host string
	Port int
	User string

	// Password auth is used when KeyPath is empty.
	Password string

	// KeyPath selects private-key auth; KeyPassphrase decrypts it if set.
	KeyPath       string
	KeyPassphrase string

	// Fingerprint, when non-empty, is the expected host-key MD5 fingerprint
	// in colon-separated hex ("16:27:ac:..."). Mismatches fail the dial.
	Fingerprint string

	// Timeout bounds the TCP dial and handshake. Zero means 20s.
	Timeout time.Duration
}

// FromEnv overlays unset fields from the environment: SFTP_HOST, SFTP_PORT,
// SFTP_USER, SFTP_PASSWORD, SFTP_PKEY, SFTP_PKEY_PASSPHRASE,
// SFTP_FINGERPRINT.
func (c Config) FromEnv() Config {
	if c.Host == "" {
		c.Host = os.Getenv("SFTP_HOST")
	}
	if c.Port == 0 {
		if p, err := strconv.Atoi(os.Getenv("SFTP_PORT")); err == nil && p > 0 {
			c.Port = p
		}
	}
	if c.User == "" {
		c.User = os.Getenv("SFTP_USER")
	}
	if c.Password == "" {
		c.Password = os.Getenv("SFTP_PASSWORD")
	}
	if c.KeyPath == "" {
		c.KeyPath = os.Getenv("SFTP_PKEY")
	}
	if c.KeyPassphrase == "" {
		c.KeyPassphrase = os.Getenv("SFTP_PKEY_PASSPHRASE")
	}
	if c.Fingerprint == "" {
		c.Fingerprint = os.Getenv("SFTP_FINGERPRINT")
	}
	return c
}

// Progress reports upload progress. total is the local file size in bytes.
type Progress func(sent, total int64)

// Client wraps an authenticated SFTP session.
type Client struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

// Dial connects and authenticates. Key auth is attempted when KeyPath is
// set, otherwise password auth.
func Dial(cfg Config) (*Client, error) {
	if cfg.Host == "" || cfg.User == "" {
		return nil, errors.New("sftp: missing host/username (flags or SFTP_HOST/SFTP_USER)")
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}

	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}

	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: fingerprintCallback(cfg.Fingerprint),
		Timeout:         cfg.Timeout,
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	sshClient, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return nil, fmt.Errorf("sftp: dial %s: %w", addr, err)
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("sftp: open subsystem: %w", err)
	}
	return &Client{ssh: sshClient, sftp: sftpClient}, nil
}

// Close tears down the SFTP session and the SSH connection.
func (c *Client) Close() error {
	err := c.sftp.Close()
	if cerr := c.ssh.Close(); err == nil {
		err = cerr
	}
	return err
}

func authMethods(cfg Config) ([]ssh.AuthMethod, error) {
	if cfg.KeyPath == "" {
		return []ssh.AuthMethod{ssh.Password(cfg.Password)}, nil
	}

	raw, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("sftp: read private key: %w", err)
	}

	var signer ssh.Signer
	if cfg.KeyPassphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(raw, []byte(cfg.KeyPassphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("sftp: parse private key: %w", err)
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

// fingerprintCallback verifies the server host key against a pinned MD5
// colon-hex fingerprint. With no pin the key is accepted and its
// fingerprint logged.
func fingerprintCallback(pinned string) ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		fp := MD5Fingerprint(key)
		if pinned == "" {
			log.Printf("sftp: server %s host key fingerprint %s (unpinned)", hostname, fp)
			return nil
		}
		if !strings.EqualFold(normalizeFingerprint(pinned), fp) {
			return fmt.Errorf("sftp: host key fingerprint mismatch: expected %s got %s", pinned, fp)
		}
		return nil
	}
}

// MD5Fingerprint renders a host key as lowercase colon-separated MD5 hex,
// the format FileZilla and paramiko display.
func MD5Fingerprint(key ssh.PublicKey) string {
	sum := md5.Sum(key.Marshal())
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":")
}

func normalizeFingerprint(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimPrefix(s, "md5:")
	return s
}

// EnsureRemoteDir creates remoteDir and any missing parents. An existing
// non-directory path at any level is an error.
func (c *Client) EnsureRemoteDir(remoteDir string) error {
	remoteDir = path.Clean(strings.ReplaceAll(remoteDir, "\\", "/"))
	if remoteDir == "" || remoteDir == "/" || remoteDir == "." {
		return nil
	}

	prefix := ""
	if strings.HasPrefix(remoteDir, "/") {
		prefix = "/"
	}
	cur := prefix
	for _, part := range strings.Split(strings.Trim(remoteDir, "/"), "/") {
		cur = path.Join(cur, part)
		st, err := c.sftp.Stat(cur)
		if err == nil {
			if !st.IsDir() {
				return fmt.Errorf("sftp: remote path exists and is not a directory: %s", cur)
			}
			continue
		}
		if err := c.sftp.Mkdir(cur); err != nil {
			return fmt.Errorf("sftp: mkdir %s: %w", cur, err)
		}
	}
	return nil
}

// Upload copies localPath into remoteDir (created as needed), preserving the
// base filename, and returns the remote path and bytes sent. progress may be
// nil.
func (c *Client) Upload(localPath, remoteDir string, progress Progress) (string, int64, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return "", 0, fmt.Errorf("sftp: open local file: %w", err)
	}
	defer src.Close()

	st, err := src.Stat()
	if err != nil {
		return "", 0, err
	}
	total := st.Size()

	if err := c.EnsureRemoteDir(remoteDir); err != nil {
		return "", 0, err
	}

	remotePath := path.Join(strings.ReplaceAll(remoteDir, "\\", "/"), st.Name())
	dst, err := c.sftp.Create(remotePath)
	if err != nil {
		return "", 0, fmt.Errorf("sftp: create remote file: %w", err)
	}

	sent, err := copyWithProgress(dst, src, total, progress)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return remotePath, sent, fmt.Errorf("sftp: upload %s: %w", remotePath, err)
	}
	return remotePath, sent, nil
}

func copyWithProgress(dst io.Writer, src io.Reader, total int64, progress Progress) (int64, error) {
	if progress == nil {
		return io.Copy(dst, src)
	}

	var sent int64
	buf := make([]byte, 32*1024)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			sent += int64(wn)
			progress(sent, total)
			if werr != nil {
				return sent, werr
			}
			if wn < n {
				return sent, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return sent, nil
		}
		if rerr != nil {
			return sent, rerr
		}
	}
}
