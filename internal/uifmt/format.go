package uifmt

import "fmt"

// Cell formatters render priority/default/idle triples at fixed
// widths so node rows align in both the live view and the one-shot
// report.

func CPUCell(priority, def float64, idle int) string {
	return fmt.Sprintf("%2d/%2d/%2d", int(priority), int(def), idle)
}

// GPUCell derives idle from the configured count; fractional shares
// truncate toward zero the same way the priority/default columns do.
func GPUCell(priority, def float64, total int) string {
	idle := float64(total) - priority - def
	return fmt.Sprintf("%d/%d/%d", int(priority), int(def), int(idle))
}

// MemCell takes priority/default in GB and idle in MB, matching how
// the two feeds report memory.
func MemCell(priorityGB, defGB float64, idleMB int) string {
	return fmt.Sprintf("%5.1f/%5.1f/%5.1f", priorityGB, defGB, float64(idleMB)/1024.0)
}

func GPUModel(count int, kind string) string {
	return fmt.Sprintf("%d x %s", count, kind)
}

func Percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
