package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"
)

type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

type Command string

const (
	CommandMonitor Command = "monitor"
	CommandDoctor  Command = "doctor"
	CommandDryRun  Command = "dry-run"
)

type Config struct {
	Command Command
	Mode    Mode
	Target  string

	ConfigPath string

	Refresh        time.Duration
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	SSHConfig      string
	IdentityFile   string
	Port           int

	GPUOnly  bool
	ShowJobs bool
	Users    string
	NoColor  bool
	Compact  bool
	Once     bool
	Duration time.Duration
}

// TargetUsers splits the --users flag into a normalized list; order is
// preserved because summaries print in the order users were asked for.
func (c Config) TargetUsers() []string {
	var out []string
	for _, u := range strings.Split(c.Users, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

var ErrHelpRequested = errors.New("help requested")

func defaultConfig() Config {
	return Config{
		Command:        CommandMonitor,
		Refresh:        2 * time.Second,
		ConnectTimeout: 10 * time.Second,
		CommandTimeout: 15 * time.Second,
	}
}

// newFlagSet binds flags to cfg, with cfg's current values as the flag
// defaults. Defaults loaded from the config file therefore show up as
// flag defaults, and explicit flags always win.
func newFlagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("gtop", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "alternate defaults file (default ~/.gtop)")
	fs.DurationVar(&cfg.Refresh, "refresh", cfg.Refresh, "poll interval for collecting new snapshots")
	fs.DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "max SSH connection setup time per command (remote mode)")
	fs.DurationVar(&cfg.CommandTimeout, "command-timeout", cfg.CommandTimeout, "max runtime for each scheduler command before retry")
	fs.StringVar(&cfg.SSHConfig, "ssh-config", cfg.SSHConfig, "alternate OpenSSH config path (remote mode, supports Host aliases/ProxyJump)")
	fs.StringVar(&cfg.IdentityFile, "identity-file", cfg.IdentityFile, "explicit SSH private key path passed to ssh -i (remote mode)")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "override SSH port for remote target (remote mode)")
	fs.BoolVar(&cfg.GPUOnly, "gpu-only", cfg.GPUOnly, "restrict the display to nodes with GPUs")
	fs.BoolVar(&cfg.ShowJobs, "jobs", cfg.ShowJobs, "show per-job rows under each node")
	fs.StringVar(&cfg.Users, "users", cfg.Users, "comma-separated users to highlight and summarize")
	fs.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "disable ANSI color styling")
	fs.BoolVar(&cfg.Compact, "compact", cfg.Compact, "force compact layout for smaller terminals")
	fs.BoolVar(&cfg.Once, "once", cfg.Once, "collect one snapshot, print the report, and exit")
	fs.DurationVar(&cfg.Duration, "duration", cfg.Duration, "optional total runtime limit; 0 means run until interrupted")

	return fs
}

func HelpText() string {
	cfg := defaultConfig()
	fs := newFlagSet(&cfg)

	var b strings.Builder
	b.WriteString("gtop: live GPU/CPU/memory monitor for Slurm clusters\n\n")
	b.WriteString("Usage:\n")
	b.WriteString("  gtop [flags] [ssh-target]\n")
	b.WriteString("  gtop doctor [flags] [ssh-target]\n")
	b.WriteString("  gtop dry-run [flags] [ssh-target]\n\n")
	b.WriteString("Commands:\n")
	b.WriteString("  monitor  Start live monitoring (default when no command is given).\n")
	b.WriteString("  doctor   Run non-mutating preflight checks and exit.\n")
	b.WriteString("  dry-run  Print planned execution order and exit.\n\n")
	b.WriteString("Positional target:\n")
	b.WriteString("  ssh-target is optional.\n")
	b.WriteString("  - omitted: run locally (requires local sinfo/sacct)\n")
	b.WriteString("  - provided: run remotely through OpenSSH using alias or user@host\n\n")
	b.WriteString("Config file:\n")
	b.WriteString("  ~/.gtop holds ini-style defaults, overridden by flags. Sections:\n")
	b.WriteString("  [connection] target, ssh-config, identity-file, port\n")
	b.WriteString("  [display]    gpu-only, jobs, users, compact, no-color\n")
	b.WriteString("  [poll]       refresh, command-timeout, connect-timeout\n\n")
	b.WriteString("Behavior:\n")
	b.WriteString("  - gtop is read-only and never mutates scheduler state\n")
	b.WriteString("  - usage is split per partition class: priority vs default\n")
	b.WriteString("  - transient SSH/network failures retry automatically with backoff\n")
	b.WriteString("  - retries are infinite by default; set --duration to time-box a run\n")
	b.WriteString("  - missing scheduler commands are treated as non-recoverable errors\n\n")
	b.WriteString("Authentication:\n")
	b.WriteString("  - uses standard OpenSSH auth flows (ssh-agent, keys, config)\n")
	b.WriteString("  - supports SSH config aliases and bastion/proxy jumps\n")
	b.WriteString("  - does not accept password flags\n\n")
	b.WriteString("Flags:\n")
	fs.SetOutput(&b)
	fs.PrintDefaults()
	b.WriteString("\nExamples:\n")
	b.WriteString("  gtop\n")
	b.WriteString("  gtop cluster_alias\n")
	b.WriteString("  gtop --refresh 5s user@cluster.example.org\n")
	b.WriteString("  gtop --gpu-only --jobs cluster_alias\n")
	b.WriteString("  gtop --once --users alice,bob cluster_alias\n")
	b.WriteString("  gtop doctor cluster_alias\n")
	b.WriteString("  gtop dry-run --once cluster_alias\n")

	return b.String()
}

func splitCommand(args []string) (Command, []string) {
	if len(args) == 0 {
		return CommandMonitor, args
	}

	switch strings.TrimSpace(args[0]) {
	case string(CommandDoctor):
		return CommandDoctor, args[1:]
	case string(CommandDryRun):
		return CommandDryRun, args[1:]
	case string(CommandMonitor):
		return CommandMonitor, args[1:]
	default:
		return CommandMonitor, args
	}
}

// Load is the production entry point: file defaults, then flags.
func Load(args []string) (Config, error) {
	cfg := defaultConfig()
	if err := loadFileDefaults(&cfg, configPathFromArgs(args)); err != nil {
		return Config{}, err
	}
	return parseInto(cfg, args)
}

// ParseArgs parses flags against built-in defaults only. Tests use it
// to stay independent of the invoking user's config file.
func ParseArgs(args []string) (Config, error) {
	return parseInto(defaultConfig(), args)
}

func parseInto(cfg Config, args []string) (Config, error) {
	cfg.Command, args = splitCommand(args)
	fs := newFlagSet(&cfg)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Config{}, ErrHelpRequested
		}
		return Config{}, err
	}

	pos := fs.Args()
	if len(pos) > 1 {
		return Config{}, fmt.Errorf("expected zero or one positional target, got %d", len(pos))
	}
	if len(pos) == 1 {
		cfg.Target = strings.TrimSpace(pos[0])
	}

	if cfg.Target == "" {
		cfg.Mode = ModeLocal
	} else {
		cfg.Mode = ModeRemote
	}

	if cfg.Refresh < time.Second {
		return Config{}, fmt.Errorf("--refresh must be >= 1s")
	}
	if cfg.ConnectTimeout <= 0 {
		return Config{}, fmt.Errorf("--connect-timeout must be > 0")
	}
	if cfg.CommandTimeout <= 0 {
		return Config{}, fmt.Errorf("--command-timeout must be > 0")
	}
	if cfg.Duration < 0 {
		return Config{}, fmt.Errorf("--duration must be >= 0")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("--port must be within 0..65535")
	}

	if cfg.Mode == ModeLocal {
		if cfg.SSHConfig != "" || cfg.IdentityFile != "" || cfg.Port != 0 {
			return Config{}, fmt.Errorf("ssh-specific flags require a remote target")
		}
	}

	return cfg, nil
}
