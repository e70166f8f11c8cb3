package transport

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type SSHOptions struct {
	Target         string
	ConfigPath     string
	IdentityFile   string
	Port           int
	ConnectTimeout time.Duration
}

// SSH runs commands on a remote host through the system ssh client.
// Connections multiplex over a persistent control socket so each poll
// does not pay the handshake again.
type SSH struct {
	opts        SSHOptions
	controlPath string
}

func NewSSH(opts SSHOptions) *SSH {
	return &SSH{
		opts:        opts,
		controlPath: buildControlPath(opts),
	}
}

func (t *SSH) Describe() string {
	return "ssh:" + t.opts.Target
}

func (t *SSH) Run(ctx context.Context, command string) (RunResult, error) {
	argv := append([]string{"ssh"}, t.buildSSHArgs(command)...)
	return capture(ctx, t.Describe(), command, argv...)
}

func (t *SSH) buildSSHArgs(command string) []string {
	args := make([]string, 0, 24)
	if t.opts.ConnectTimeout > 0 {
		seconds := int(math.Ceil(t.opts.ConnectTimeout.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		args = append(args, "-o", fmt.Sprintf("ConnectTimeout=%d", seconds))
	}
	args = append(args,
		"-o", "BatchMode=yes",
		"-o", "ConnectionAttempts=2",
		"-o", "ServerAliveInterval=15",
		"-o", "ServerAliveCountMax=3",
		"-o", "TCPKeepAlive=yes",
		"-o", "ControlMaster=auto",
		"-o", "ControlPersist=300",
	)
	if t.controlPath != "" {
		args = append(args, "-o", "ControlPath="+t.controlPath)
	}

	if t.opts.ConfigPath != "" {
		args = append(args, "-F", t.opts.ConfigPath)
	}
	if t.opts.IdentityFile != "" {
		args = append(args, "-i", t.opts.IdentityFile)
	}
	if t.opts.Port > 0 {
		args = append(args, "-p", strconv.Itoa(t.opts.Port))
	}

	return append(args, t.opts.Target, "bash -lc "+shellQuote(command))
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// buildControlPath derives a stable per-destination socket path so
// repeated runs against the same host share one master connection.
func buildControlPath(opts SSHOptions) string {
	base := fmt.Sprintf("%s|%s|%s|%d", opts.Target, opts.ConfigPath, opts.IdentityFile, opts.Port)
	sum := sha1.Sum([]byte(base))
	id := hex.EncodeToString(sum[:8])
	root := filepath.Join(os.TempDir(), "gtop-ssh")
	if err := os.MkdirAll(root, 0o700); err != nil {
		return ""
	}
	return filepath.Join(root, "cm-"+id)
}
