package slurm

import (
	"strconv"
	"strings"
)

// ParseGres decodes a node's GRES column into its GPU configuration.
// Typical inputs: "gpu:a100:4(S:0-1)", "gpu:v100:2,gpu:p100:2",
// "(null)". Counts accumulate across entries; model names are
// collected once each, in first-seen order.
func ParseGres(gres string) GPUSpec {
	if strings.Contains(gres, "null") {
		return GPUSpec{Kind: "null"}
	}

	var models []string
	count := 0
	for _, entry := range strings.Split(gres, ",") {
		parts := strings.Split(entry, ":")
		if len(parts) < 3 || !strings.HasPrefix(parts[0], "gpu") {
			continue
		}
		if !containsString(models, parts[1]) {
			models = append(models, parts[1])
		}
		count += leadingInt(parts[2])
	}

	switch len(models) {
	case 0:
		return GPUSpec{Kind: "null"}
	case 1:
		return GPUSpec{Kind: models[0], Count: count}
	default:
		return GPUSpec{Kind: "(" + strings.Join(models, "|") + ")", Count: count}
	}
}

// ParseCPUState decodes the sinfo cpusstate column
// "allocated/idle/other/total". Only the idle figure is kept; the rest
// of the display derives CPU occupancy from job allocations.
func ParseCPUState(state string) CPUState {
	parts := strings.Split(state, "/")
	if len(parts) < 2 || !allDigits(parts[1]) {
		return CPUState{}
	}
	idle, _ := strconv.Atoi(parts[1])
	return CPUState{Idle: idle}
}

// ParseMemory decodes the allocmem and memory columns (both MB).
// Idle may go negative when the scheduler reports more allocated than
// configured; that is surfaced as-is.
func ParseMemory(alloc, total string) MemState {
	allocMB := 0
	if allDigits(alloc) {
		allocMB, _ = strconv.Atoi(alloc)
	}
	totalMB := 0
	if allDigits(total) {
		totalMB, _ = strconv.Atoi(total)
	}
	return MemState{IdleMB: totalMB - allocMB, TotalMB: totalMB}
}

// ParseAllocTRES decodes a job allocation string such as
// "billing=4,cpu=4,gres/gpu=2,gpu=2,mem=32G". Each key is located by
// substring search; a missing or unparsable value reads as zero.
// Memory arrives in gigabytes because the feed is invoked with
// gigabyte units.
func ParseAllocTRES(alloc string) Usage {
	return Usage{
		CPU:   tresValue(alloc, "cpu"),
		GPU:   tresValue(alloc, "gpu"),
		MemGB: tresValue(alloc, "mem"),
	}
}

func tresValue(alloc, key string) float64 {
	idx := strings.Index(alloc, key+"=")
	if idx < 0 {
		return 0
	}
	val := alloc[idx+len(key)+1:]
	if comma := strings.IndexByte(val, ','); comma >= 0 {
		val = val[:comma]
	}
	val = strings.TrimRight(val, "G")
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0
	}
	return f
}

// leadingInt reads the digit run at the start of s, so "4(S:0-1)"
// yields 4. No digits yields 0.
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
