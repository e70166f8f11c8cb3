package slurm

import "strings"

// ParseJobs decodes the running-job feed into flat records. Columns
// are space padded: user, partition, node list, state, allocation,
// job id. The state column is positional only; the feed is already
// filtered to running jobs. Lines with fewer than six columns are
// skipped.
func ParseJobs(raw string) []Job {
	var out []Job
	for _, line := range strings.Split(raw, "\n") {
		parts := splitColumns(line)
		if len(parts) < 6 {
			continue
		}
		out = append(out, Job{
			User:      parts[0],
			Partition: parts[1],
			Nodelist:  parts[2],
			Alloc:     parts[4],
			ID:        parts[5],
		})
	}
	return out
}

// AttributeJobs folds job allocations onto the inventory. A job's
// resources are divided evenly across every node it spans, counting
// nodes outside the inventory: their portions are intentionally lost
// so a filtered inventory never over-reports. Shares land in the
// class accumulator picked by the job's partition name, and each node
// keeps a per-job record for the detail view.
func AttributeJobs(inv Inventory, jobs []Job) {
	for _, job := range jobs {
		nodes := ExpandHostlist(job.Nodelist)
		if len(nodes) == 0 {
			continue
		}
		span := float64(len(nodes))

		usage := ParseAllocTRES(job.Alloc)
		share := Usage{
			CPU:   usage.CPU / span,
			GPU:   usage.GPU / span,
			MemGB: usage.MemGB / span,
		}
		class := ClassifyPartition(job.Partition)

		for _, name := range nodes {
			node, ok := inv[name]
			if !ok {
				continue
			}
			node.Usage.bucket(class).add(share)
			node.Jobs[job.ID] = JobShare{
				User:      job.User,
				Partition: job.Partition,
				Class:     class,
				CPU:       share.CPU,
				GPU:       share.GPU,
				MemGB:     share.MemGB,
			}
		}
	}
}

// splitColumns splits a feed line on spaces and drops the padding
// runs between columns.
func splitColumns(line string) []string {
	var out []string
	for _, tok := range strings.Split(line, " ") {
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
