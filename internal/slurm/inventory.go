package slurm

import "strings"

// BuildInventory decodes the node feed into per-host records. Each
// line carries a node-list expression plus the GRES, cpu-state, and
// memory columns shared by every host the expression expands to.
// Lines with fewer than five columns are skipped; with gpuOnly set,
// lines whose GRES decodes to no GPUs are skipped too. A hostname
// appearing on a later line replaces the earlier record, accumulators
// included.
func BuildInventory(raw string, gpuOnly bool) Inventory {
	inv := make(Inventory)
	for _, line := range strings.Split(raw, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}

		gpu := ParseGres(fields[1])
		if gpuOnly && gpu.Kind == "null" {
			continue
		}
		cpu := ParseCPUState(fields[2])
		mem := ParseMemory(fields[3], fields[4])

		for _, name := range ExpandHostlist(fields[0]) {
			inv[name] = &Node{
				Name: name,
				GPU:  gpu,
				CPU:  cpu,
				Mem:  mem,
				Jobs: make(map[string]JobShare),
			}
		}
	}
	return inv
}
