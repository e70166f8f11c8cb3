package slurm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gtop/internal/transport"
)

const (
	// One shell invocation fetches both feeds so every snapshot is
	// internally consistent. The job pipeline ends in || true because
	// grep exits nonzero when the cluster has no running jobs.
	combinedCollectCommand = sinfoCommand + `; echo "` + splitMarker + `"; ` + sacctCommand + ` || true`

	sinfoCommand = `sinfo -O nodehost:100,gres:100,cpusstate,allocmem,memory -h -e`
	sacctCommand = `sacct -X --format=User%10,partition%30,NodeList%30,State,AllocTRES%80,Jobid -a --units=G | grep RUNNING | grep billing`

	splitMarker = "__GTOP_SPLIT__"
)

type Collector struct {
	runner         transport.Runner
	commandTimeout time.Duration
	gpuOnly        bool
}

func NewCollector(r transport.Runner, commandTimeout time.Duration, gpuOnly bool) *Collector {
	return &Collector{
		runner:         r,
		commandTimeout: commandTimeout,
		gpuOnly:        gpuOnly,
	}
}

// CollectCommand reports the exact shell command a collection runs,
// for dry-run output.
func CollectCommand() string {
	return combinedCollectCommand
}

// Collect fetches both feeds and aggregates them into a snapshot.
// The node inventory is built before jobs are attributed, so job
// shares always land on nodes from the same collection cycle.
func (c *Collector) Collect(ctx context.Context) (Snapshot, error) {
	raw, err := c.runWithTimeout(ctx, combinedCollectCommand)
	if err != nil {
		return Snapshot{}, fmt.Errorf("collect snapshot: %w", err)
	}

	nodesRaw, jobsRaw, err := splitCombinedOutput(raw)
	if err != nil {
		return Snapshot{}, err
	}

	inv := BuildInventory(nodesRaw, c.gpuOnly)
	jobs := ParseJobs(jobsRaw)
	AttributeJobs(inv, jobs)

	return Snapshot{
		Nodes:       inv,
		Jobs:        jobs,
		CollectedAt: time.Now(),
	}, nil
}

func (c *Collector) runWithTimeout(ctx context.Context, command string) (string, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, c.commandTimeout)
	defer cancel()

	res, err := c.runner.Run(cmdCtx, command)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(res.Stdout, "\n"), nil
}

func splitCombinedOutput(raw string) (nodes string, jobs string, err error) {
	parts := strings.SplitN(raw, splitMarker, 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("unexpected collector output format: split marker missing")
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}
