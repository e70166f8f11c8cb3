package slurm

import "sort"

// UserSummary aggregates one user's running jobs cluster-wide: the
// hosts their jobs span and whole GPUs per partition. Partition names
// are an open set, so the breakdown stays a map.
type UserSummary struct {
	User        string
	Nodes       []string
	GPUs        int
	ByPartition map[string]int
}

// SummarizeUsers builds a summary per target user, in the given
// order. Every target gets a summary even when it owns no jobs. GPU
// counts take each job's full allocation, truncated to whole GPUs,
// against the job's partition; node spans are unioned across jobs.
func SummarizeUsers(jobs []Job, targets []string) []UserSummary {
	byUser := make(map[string]*userAccum, len(targets))
	for _, t := range targets {
		if _, ok := byUser[t]; !ok {
			byUser[t] = &userAccum{byPartition: make(map[string]int)}
		}
	}

	for _, job := range jobs {
		acc, ok := byUser[job.User]
		if !ok {
			continue
		}
		gpus := int(ParseAllocTRES(job.Alloc).GPU)
		acc.gpus += gpus
		acc.byPartition[job.Partition] += gpus
		for _, name := range ExpandHostlist(job.Nodelist) {
			if acc.nodes == nil {
				acc.nodes = make(map[string]struct{})
			}
			acc.nodes[name] = struct{}{}
		}
	}

	out := make([]UserSummary, 0, len(targets))
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if seen[t] {
			continue
		}
		seen[t] = true
		acc := byUser[t]
		out = append(out, UserSummary{
			User:        t,
			Nodes:       sortedKeys(acc.nodes),
			GPUs:        acc.gpus,
			ByPartition: acc.byPartition,
		})
	}
	return out
}

type userAccum struct {
	nodes       map[string]struct{}
	gpus        int
	byPartition map[string]int
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
