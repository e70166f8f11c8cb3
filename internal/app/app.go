package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"gtop/internal/config"
	"gtop/internal/monitor"
	"gtop/internal/report"
	"gtop/internal/slurm"
	"gtop/internal/transport"
	"gtop/internal/tui"
)

// missingSlurmCommandsError is typed so retry classification is stable and
// does not depend on brittle string matching.
type missingSlurmCommandsError struct {
	source  string
	missing string
}

func (e *missingSlurmCommandsError) Error() string {
	return fmt.Sprintf("missing required Slurm commands on %s: %s", e.source, e.missing)
}

func Run(cfg config.Config) error {
	switch cfg.Command {
	case config.CommandDoctor:
		return RunDoctor(cfg, os.Stdout)
	case config.CommandDryRun:
		return RunDryRun(cfg, os.Stdout)
	}

	runner, err := buildRunner(cfg)
	if err != nil {
		return err
	}

	rootCtx := context.Background()
	ctx, cancel := context.WithCancel(rootCtx)
	if cfg.Duration > 0 {
		ctx, cancel = context.WithTimeout(rootCtx, cfg.Duration)
	}
	defer cancel()

	if err := awaitSlurmAvailability(ctx, runner, cfg.CommandTimeout); err != nil {
		return err
	}

	collector := slurm.NewCollector(runner, cfg.CommandTimeout, cfg.GPUOnly)
	// The live view needs a tty; piped or redirected output gets the
	// one-shot report instead.
	if cfg.Once || !isatty.IsTerminal(os.Stdout.Fd()) {
		return runOnce(ctx, collector, cfg, runner.Describe())
	}

	updates := make(chan monitor.Update, 8)
	loop := monitor.NewLoop(collector, cfg.Refresh)
	go loop.Run(ctx, updates)

	model := tui.NewModel(tui.Options{
		Source:      runner.Describe(),
		Compact:     cfg.Compact,
		NoColor:     cfg.NoColor,
		ShowJobs:    cfg.ShowJobs,
		Users:       cfg.TargetUsers(),
		Refresh:     cfg.Refresh,
		MaxDuration: cfg.Duration,
		Updates:     updates,
	})

	prog := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		return err
	}

	return nil
}

func buildRunner(cfg config.Config) (transport.Runner, error) {
	switch cfg.Mode {
	case config.ModeLocal:
		return transport.NewLocal(), nil
	case config.ModeRemote:
		return transport.NewSSH(transport.SSHOptions{
			Target:         cfg.Target,
			ConfigPath:     cfg.SSHConfig,
			IdentityFile:   cfg.IdentityFile,
			Port:           cfg.Port,
			ConnectTimeout: cfg.ConnectTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported mode: %s", cfg.Mode)
	}
}

func checkSlurmAvailability(ctx context.Context, runner transport.Runner, timeout time.Duration) error {
	const checkCmd = `missing=""; for c in sinfo sacct; do if ! command -v "$c" >/dev/null 2>&1; then missing="$missing $c"; fi; done; if [ -n "$missing" ]; then echo "$missing"; exit 7; fi`

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := runner.Run(checkCtx, checkCmd)
	if err != nil {
		if missing := strings.TrimSpace(res.Stdout); missing != "" {
			return &missingSlurmCommandsError{
				source:  runner.Describe(),
				missing: missing,
			}
		}
		var runErr *transport.RunError
		if errors.As(err, &runErr) && runErr.Timeout {
			return fmt.Errorf("Slurm capability check timed out on %s; consider increasing --command-timeout", runner.Describe())
		}
		return fmt.Errorf("failed Slurm capability check on %s: %w", runner.Describe(), err)
	}
	return nil
}

func awaitSlurmAvailability(ctx context.Context, runner transport.Runner, timeout time.Duration) error {
	return awaitSlurmAvailabilityWithBackoff(ctx, runner, timeout, 1*time.Second, 30*time.Second)
}

func awaitSlurmAvailabilityWithBackoff(
	ctx context.Context,
	runner transport.Runner,
	timeout time.Duration,
	baseDelay time.Duration,
	maxDelay time.Duration,
) error {
	if baseDelay <= 0 {
		baseDelay = 1 * time.Second
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}

	delay := baseDelay
	for {
		err := checkSlurmAvailability(ctx, runner, timeout)
		if err == nil {
			return nil
		}
		if isMissingSlurmCommandError(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fmt.Fprintf(
			os.Stderr,
			"gtop: transient preflight failure on %s: %v; retrying in %s (Ctrl+C to stop)\n",
			runner.Describe(),
			err,
			delay,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

func isMissingSlurmCommandError(err error) bool {
	if err == nil {
		return false
	}
	var missingErr *missingSlurmCommandsError
	return errors.As(err, &missingErr)
}

func runOnce(ctx context.Context, collector *slurm.Collector, cfg config.Config, source string) error {
	collectCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	snapshot, err := collector.Collect(collectCtx)
	if err != nil {
		return err
	}

	sink := report.WriterSink{W: os.Stdout}
	sink.Summary(fmt.Sprintf("source: %s", source))
	sink.Summary(fmt.Sprintf("collected_at: %s", snapshot.CollectedAt.Format(time.RFC3339)))
	report.Render(&snapshot, report.Options{
		ShowJobs: cfg.ShowJobs,
		Users:    cfg.TargetUsers(),
		NoColor:  cfg.NoColor,
	}, sink)

	return nil
}
