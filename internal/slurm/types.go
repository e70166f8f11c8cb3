package slurm

import (
	"sort"
	"strings"
	"time"
)

// Class buckets a partition for usage accounting. The split follows the
// cluster's naming convention: anything whose partition name mentions
// "default" or "gpu" counts against the default allowance, everything
// else is priority (preemptible-exempt) usage.
type Class string

const (
	ClassPriority Class = "priority"
	ClassDefault  Class = "default"
)

func ClassifyPartition(name string) Class {
	if strings.Contains(name, "default") || strings.Contains(name, "gpu") {
		return ClassDefault
	}
	return ClassPriority
}

// GPUSpec describes the GPUs configured on one node. Kind is the model
// name, "(a100|h100)" when a node mixes models, or "null" when the node
// has none.
type GPUSpec struct {
	Kind  string
	Count int
}

type CPUState struct {
	Idle int
}

type MemState struct {
	IdleMB  int
	TotalMB int
}

// Usage is the resource triple every accumulator works in. Memory is in
// gigabytes because the job feed reports it that way.
type Usage struct {
	CPU   float64
	GPU   float64
	MemGB float64
}

func (u *Usage) add(v Usage) {
	u.CPU += v.CPU
	u.GPU += v.GPU
	u.MemGB += v.MemGB
}

// ClassUsage accumulates usage per partition class. The class set is
// closed, so the accumulators are plain fields.
type ClassUsage struct {
	Priority Usage
	Default  Usage
}

func (c *ClassUsage) bucket(class Class) *Usage {
	if class == ClassDefault {
		return &c.Default
	}
	return &c.Priority
}

// JobShare is one job's per-node slice of resources: the job's
// allocation divided evenly over every node it spans.
type JobShare struct {
	User      string
	Partition string
	Class     Class
	CPU       float64
	GPU       float64
	MemGB     float64
}

type Node struct {
	Name  string
	GPU   GPUSpec
	CPU   CPUState
	Mem   MemState
	Usage ClassUsage
	Jobs  map[string]JobShare
}

type Inventory map[string]*Node

// Names returns the inventory's hostnames in display order.
func (inv Inventory) Names() []string {
	out := make([]string, 0, len(inv))
	for name := range inv {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// GPUTotal reports cluster-wide GPU occupancy: configured GPUs across
// the inventory and the summed per-class usage against them.
func (inv Inventory) GPUTotal() (used float64, total int) {
	for _, n := range inv {
		total += n.GPU.Count
		used += n.Usage.Priority.GPU + n.Usage.Default.GPU
	}
	return used, total
}

// Job is one running job as reported by the job feed. Alloc is the raw
// allocation string; decoding happens at attribution time.
type Job struct {
	ID        string
	User      string
	Partition string
	Nodelist  string
	Alloc     string
}

type Snapshot struct {
	Nodes       Inventory
	Jobs        []Job
	CollectedAt time.Time
}
