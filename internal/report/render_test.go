package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"gtop/internal/slurm"
)

const reportNodeFeed = "gpu[01-02] gpu:a100:4(S:0-1) 24/40/0/64 128000 512000\n" +
	"cpu01 (null) 0/64/0/64 0 256000"

const reportJobFeed = "   alice   tideman-gpu   gpu01  RUNNING  billing=8,cpu=8,gres/gpu=2,mem=64G  101\n" +
	"     bob          main   gpu02  RUNNING  billing=4,cpu=4,gres/gpu=1,mem=32G  202"

type captureSink struct {
	summary []string
	table   string
}

func (s *captureSink) Summary(text string) { s.summary = append(s.summary, text) }
func (s *captureSink) Table(text string)   { s.table = text }

func sampleSnapshot() *slurm.Snapshot {
	nodes := slurm.BuildInventory(reportNodeFeed, false)
	jobs := slurm.ParseJobs(reportJobFeed)
	slurm.AttributeJobs(nodes, jobs)
	return &slurm.Snapshot{Nodes: nodes, Jobs: jobs, CollectedAt: time.Now()}
}

func TestRenderOverviewAndNodeTable(t *testing.T) {
	sink := &captureSink{}
	Render(sampleSnapshot(), Options{NoColor: true}, sink)

	if len(sink.summary) != 1 {
		t.Fatalf("expected a single summary line without --users, got %d", len(sink.summary))
	}
	if sink.summary[0] != "Cluster GPU Overview: 3/8 GPUs Used (37.5%)" {
		t.Fatalf("unexpected overview line: %q", sink.summary[0])
	}

	for _, want := range []string{"Server", "GPU (P/D/I)", "gpu01", "gpu02", "cpu01", "4 x a100", " 0/ 8/40", "0/2/2"} {
		if !strings.Contains(sink.table, want) {
			t.Fatalf("expected table to contain %q, got:\n%s", want, sink.table)
		}
	}
}

func TestRenderUserSummaryBlock(t *testing.T) {
	sink := &captureSink{}
	Render(sampleSnapshot(), Options{Users: []string{"alice", "zed"}, NoColor: true}, sink)

	joined := strings.Join(sink.summary, "\n")
	for _, want := range []string{
		"Summary of Resources Used by Specified Users",
		"• alice",
		"using 1 node(s), 2 GPU(s):",
		"tideman-gpu",
		"Total: 1 nodes, 2 GPUs",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected summary to contain %q, got:\n%s", want, joined)
		}
	}
	if strings.Contains(joined, "zed") {
		t.Fatalf("expected user without running jobs to be omitted, got:\n%s", joined)
	}
}

func TestRenderFiltersNodeTableToTargetUsers(t *testing.T) {
	sink := &captureSink{}
	Render(sampleSnapshot(), Options{Users: []string{"bob"}, NoColor: true}, sink)

	if !strings.Contains(sink.table, "gpu02") {
		t.Fatalf("expected node running target user's job, got:\n%s", sink.table)
	}
	for _, unwanted := range []string{"gpu01", "cpu01"} {
		if strings.Contains(sink.table, unwanted) {
			t.Fatalf("expected %q to be filtered out, got:\n%s", unwanted, sink.table)
		}
	}
}

func TestRenderShowsJobRows(t *testing.T) {
	sink := &captureSink{}
	Render(sampleSnapshot(), Options{ShowJobs: true, NoColor: true}, sink)

	for _, want := range []string{"Job ID", "101", "alice", "64.0"} {
		if !strings.Contains(sink.table, want) {
			t.Fatalf("expected job rows to contain %q, got:\n%s", want, sink.table)
		}
	}
}

func TestRenderWithoutGPUs(t *testing.T) {
	nodes := slurm.BuildInventory("cpu01 (null) 0/64/0/64 0 256000", false)
	snap := &slurm.Snapshot{Nodes: nodes, CollectedAt: time.Now()}

	sink := &captureSink{}
	Render(snap, Options{NoColor: true}, sink)
	if sink.summary[0] != "Cluster GPU Overview: No GPUs detected" {
		t.Fatalf("unexpected overview line: %q", sink.summary[0])
	}
}

func TestWriterSinkAppendsNewlines(t *testing.T) {
	var buf bytes.Buffer
	sink := WriterSink{W: &buf}
	sink.Summary("overview")
	sink.Table("table")
	if got := buf.String(); got != "overview\ntable\n" {
		t.Fatalf("unexpected writer output: %q", got)
	}
}
