package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseArgsLocalDefault(t *testing.T) {
	cfg, err := ParseArgs(nil)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.Mode != ModeLocal {
		t.Fatalf("expected local mode, got %s", cfg.Mode)
	}
	if cfg.Command != CommandMonitor {
		t.Fatalf("expected monitor command, got %s", cfg.Command)
	}
}

func TestParseArgsRemoteTarget(t *testing.T) {
	cfg, err := ParseArgs([]string{"cluster_alias"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.Mode != ModeRemote {
		t.Fatalf("expected remote mode, got %s", cfg.Mode)
	}
	if cfg.Target != "cluster_alias" {
		t.Fatalf("unexpected target: %q", cfg.Target)
	}
}

func TestParseArgsRemoteUserHostTarget(t *testing.T) {
	cfg, err := ParseArgs([]string{"user@cluster.example.org"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.Mode != ModeRemote {
		t.Fatalf("expected remote mode, got %s", cfg.Mode)
	}
	if cfg.Target != "user@cluster.example.org" {
		t.Fatalf("unexpected target: %q", cfg.Target)
	}
}

func TestParseArgsDisplayFlags(t *testing.T) {
	cfg, err := ParseArgs([]string{"--gpu-only", "--jobs", "--users", "alice, bob,,carol"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !cfg.GPUOnly || !cfg.ShowJobs {
		t.Fatalf("expected display flags set, got %+v", cfg)
	}
	users := cfg.TargetUsers()
	if len(users) != 3 || users[0] != "alice" || users[1] != "bob" || users[2] != "carol" {
		t.Fatalf("unexpected user list: %v", users)
	}
}

func TestParseArgsSubcommands(t *testing.T) {
	cfg, err := ParseArgs([]string{"doctor", "cluster_alias"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.Command != CommandDoctor || cfg.Target != "cluster_alias" {
		t.Fatalf("unexpected doctor parse: %+v", cfg)
	}

	cfg, err = ParseArgs([]string{"dry-run"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.Command != CommandDryRun {
		t.Fatalf("unexpected dry-run parse: %+v", cfg)
	}
}

func TestParseArgsSSHFlagsWithoutTarget(t *testing.T) {
	_, err := ParseArgs([]string{"--ssh-config", "/tmp/x"})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseArgsRejectExtraPositional(t *testing.T) {
	_, err := ParseArgs([]string{"a", "b"})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseArgsRejectSubSecondRefresh(t *testing.T) {
	_, err := ParseArgs([]string{"--refresh", "200ms"})
	if err == nil {
		t.Fatalf("expected refresh validation error")
	}
}

func TestParseArgsHelpRequested(t *testing.T) {
	_, err := ParseArgs([]string{"--help"})
	if err == nil {
		t.Fatalf("expected help error")
	}
	if !errors.Is(err, ErrHelpRequested) {
		t.Fatalf("expected ErrHelpRequested, got %v", err)
	}
}

func TestHelpTextIncludesUsageAndExamples(t *testing.T) {
	text := HelpText()
	required := []string{
		"Usage:",
		"gtop [flags] [ssh-target]",
		"Config file:",
		"Behavior:",
		"Authentication:",
		"Examples:",
		"--refresh",
		"--gpu-only",
		"--users",
	}
	for _, item := range required {
		if !strings.Contains(text, item) {
			t.Fatalf("help text missing %q", item)
		}
	}
}

func TestReadFileDefaults(t *testing.T) {
	file := `
[connection]
target=cluster_alias
port=2222

[display]
gpu-only=true
users=alice,bob

[poll]
refresh=5s
`
	cfg := defaultConfig()
	if err := readFileDefaults(&cfg, strings.NewReader(file)); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.Target != "cluster_alias" || cfg.Port != 2222 {
		t.Fatalf("unexpected connection defaults: %+v", cfg)
	}
	if !cfg.GPUOnly || cfg.Users != "alice,bob" {
		t.Fatalf("unexpected display defaults: %+v", cfg)
	}
	if cfg.Refresh != 5*time.Second {
		t.Fatalf("unexpected refresh default: %v", cfg.Refresh)
	}
	if cfg.CommandTimeout != 15*time.Second {
		t.Fatalf("absent fields must keep built-in defaults, got %v", cfg.CommandTimeout)
	}
}

func TestReadFileDefaultsRejectsBadValues(t *testing.T) {
	cfg := defaultConfig()
	err := readFileDefaults(&cfg, strings.NewReader("[poll]\nrefresh=soon\n"))
	if err == nil {
		t.Fatalf("expected duration parse error")
	}
	if !strings.Contains(err.Error(), "poll.refresh") {
		t.Fatalf("error should name the offending field, got %v", err)
	}
}

func TestFlagsOverrideFileDefaults(t *testing.T) {
	cfg := defaultConfig()
	if err := readFileDefaults(&cfg, strings.NewReader("[display]\ngpu-only=true\nusers=alice\n")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	got, err := parseInto(cfg, []string{"--users", "carol"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got.Users != "carol" {
		t.Fatalf("flag must override file default, got %q", got.Users)
	}
	if !got.GPUOnly {
		t.Fatalf("untouched file defaults must survive flag parsing")
	}
}

func TestConfigPathFromArgs(t *testing.T) {
	if got := configPathFromArgs([]string{"--config", "/tmp/alt"}); got != "/tmp/alt" {
		t.Fatalf("unexpected config path: %q", got)
	}
	if got := configPathFromArgs([]string{"--config=/tmp/alt2"}); got != "/tmp/alt2" {
		t.Fatalf("unexpected config path: %q", got)
	}
}
