// Command sftpsend uploads a local file to a remote SFTP directory.
//
// Connection settings come from flags with SFTP_* environment fallbacks, so
// unattended runs need no flags beyond -file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	sftpx "outreach/internal/sftp"
)

func main() {
	var cfg sftpx.Config

	file := flag.String("file", "", "local file to upload (required)")
	remoteDir := flag.String("remote-dir", "/", "remote directory (created if missing)")
	flag.StringVar(&cfg.Host, "host", "", "SFTP host (env SFTP_HOST)")
	flag.IntVar(&cfg.Port, "port", 0, "SFTP port (env SFTP_PORT; default 22)")
	flag.StringVar(&cfg.User, "user", "", "username (env SFTP_USER)")
	flag.StringVar(&cfg.KeyPath, "key", "", "private key path (env SFTP_PKEY; empty = password auth)")
	flag.StringVar(&cfg.Fingerprint, "fingerprint", "", "expected host key MD5 fingerprint, colon hex (env SFTP_FINGERPRINT)")
	timeout := flag.Duration("timeout", 20*time.Second, "dial/handshake timeout")
	flag.Parse()

	if *file == "" {
		fatalf("missing -file")
	}
	cfg.Timeout = *timeout
	cfg = cfg.FromEnv()

	client, err := sftpx.Dial(cfg)
	if err != nil {
		fatalf("%v", err)
	}
	defer client.Close()

	start := time.Now()
	remotePath, sent, err := client.Upload(*file, *remoteDir, func(sent, total int64) {
		pct := int64(0)
		if total > 0 {
			pct = sent * 100 / total
		}
		fmt.Fprintf(os.Stderr, "\ruploading %s: %d%% (%d/%d bytes)", *file, pct, sent, total)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fatalf("%v", err)
	}
	log.Printf("uploaded to sftp://%s%s (%d bytes in %s)",
		cfg.Host, remotePath, sent, time.Since(start).Truncate(time.Millisecond))
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
