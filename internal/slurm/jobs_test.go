package slurm

import (
	"math"
	"testing"
)

const jobFeed = "" +
	"     alice                 tideman-gpu           gpu[01-02]    RUNNING  billing=8,cpu=8,gres/gpu=2,mem=16G       1001\n" +
	"       bob                      main             gpu01         RUNNING  billing=4,cpu=4,mem=8G                   1002\n" +
	"malformed line\n"

func TestParseJobs(t *testing.T) {
	jobs := ParseJobs(jobFeed)
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	j := jobs[0]
	if j.User != "alice" || j.Partition != "tideman-gpu" || j.Nodelist != "gpu[01-02]" || j.ID != "1001" {
		t.Fatalf("unexpected job record: %+v", j)
	}
	if j.Alloc != "billing=8,cpu=8,gres/gpu=2,mem=16G" {
		t.Fatalf("unexpected alloc string: %q", j.Alloc)
	}
}

func TestAttributeJobsSplitsEvenlyAcrossSpan(t *testing.T) {
	inv := BuildInventory("gpu[01-02] gpu:a100:4 8/56/0/64 0 256000\n", false)
	AttributeJobs(inv, ParseJobs(jobFeed))

	// alice's job spans both nodes: 8 cpu / 2 gpu / 16G split in half,
	// accumulated as default-class because the partition mentions gpu.
	n1 := inv["gpu01"]
	if n1.Usage.Default.CPU != 4 || n1.Usage.Default.GPU != 1 || n1.Usage.Default.MemGB != 8 {
		t.Fatalf("unexpected default usage on gpu01: %+v", n1.Usage.Default)
	}
	// bob's single-node job lands whole, in the priority bucket.
	if n1.Usage.Priority.CPU != 4 || n1.Usage.Priority.MemGB != 8 {
		t.Fatalf("unexpected priority usage on gpu01: %+v", n1.Usage.Priority)
	}

	n2 := inv["gpu02"]
	if n2.Usage.Default.CPU != 4 || n2.Usage.Priority.CPU != 0 {
		t.Fatalf("unexpected usage on gpu02: %+v", n2.Usage)
	}

	share, ok := n2.Jobs["1001"]
	if !ok {
		t.Fatalf("expected job record on gpu02")
	}
	if share.User != "alice" || share.Class != ClassDefault || share.GPU != 1 {
		t.Fatalf("unexpected job share: %+v", share)
	}
}

func TestAttributeJobsLosesSharesOfMissingNodes(t *testing.T) {
	// Only one of the three spanned nodes is in the inventory, so two
	// thirds of the allocation is dropped rather than re-spread.
	inv := BuildInventory("n1 gpu:a100:4 0/64/0/64 0 256000\n", false)
	jobs := []Job{{ID: "7", User: "carol", Partition: "research", Nodelist: "n[1-3]", Alloc: "cpu=9,gpu=3,mem=9G"}}
	AttributeJobs(inv, jobs)

	u := inv["n1"].Usage.Priority
	if u.CPU != 3 || u.GPU != 1 || u.MemGB != 3 {
		t.Fatalf("expected one third of the allocation, got %+v", u)
	}
}

func TestAttributeJobsFractionalShares(t *testing.T) {
	inv := BuildInventory("n[1-3] gpu:a100:4 0/64/0/64 0 256000\n", false)
	jobs := []Job{{ID: "8", User: "dana", Partition: "main", Nodelist: "n[1-3]", Alloc: "cpu=4,gpu=2,mem=10G"}}
	AttributeJobs(inv, jobs)

	total := 0.0
	for _, name := range inv.Names() {
		total += inv[name].Usage.Priority.GPU
	}
	if math.Abs(total-2) > 1e-9 {
		t.Fatalf("fractional shares must sum back to the allocation, got %v", total)
	}
}

func TestAttributeJobsEmptySpanAttributesNothing(t *testing.T) {
	inv := BuildInventory("n1 gpu:a100:4 0/64/0/64 0 256000\n", false)
	jobs := []Job{{ID: "9", User: "eve", Partition: "main", Nodelist: "n[05-01]", Alloc: "cpu=4"}}
	AttributeJobs(inv, jobs)

	if inv["n1"].Usage.Priority.CPU != 0 || len(inv["n1"].Jobs) != 0 {
		t.Fatalf("degenerate span must not attribute, got %+v", inv["n1"].Usage)
	}
}

func TestAttributeJobsIsIdempotentPerBuild(t *testing.T) {
	jobs := ParseJobs(jobFeed)
	first := BuildInventory(nodeFeed, false)
	AttributeJobs(first, jobs)
	second := BuildInventory(nodeFeed, false)
	AttributeJobs(second, jobs)

	if first["gpu01"].Usage != second["gpu01"].Usage {
		t.Fatalf("rebuilt inventory must accumulate identically: %+v vs %+v",
			first["gpu01"].Usage, second["gpu01"].Usage)
	}
}
