package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"gtop/internal/slurm"
	"gtop/internal/uifmt"
)

const (
	summaryRuleWidth = 80
	totalsRuleWidth  = 45

	jobRowFormat = "%-10s %-10s %-22s %5s %5s %8s"
)

// Options control what the one-shot report includes.
type Options struct {
	// ShowJobs adds a per-job breakdown under each node row.
	ShowJobs bool
	// Users restricts the node table to nodes running jobs of these
	// users and enables the per-user summary block.
	Users []string
	// NoColor strips all styling from the output.
	NoColor bool
}

type styles struct {
	overview lipgloss.Style
	heading  lipgloss.Style
	rule     lipgloss.Style
	divider  lipgloss.Style
	user     lipgloss.Style

	border  lipgloss.Style
	header  lipgloss.Style
	columns []lipgloss.Style

	jobsCell   lipgloss.Style
	jobHeader  lipgloss.Style
	jobTarget  lipgloss.Style
	jobDefault lipgloss.Style
	jobOther   lipgloss.Style
}

func defaultStyles(noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		cell := lipgloss.NewStyle().Padding(0, 1)
		centered := lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Center)
		return styles{
			overview:   plain,
			heading:    plain,
			rule:       plain,
			divider:    plain,
			user:       plain,
			border:     plain,
			header:     cell,
			columns:    []lipgloss.Style{cell, cell, centered, centered, centered},
			jobsCell:   cell,
			jobHeader:  plain,
			jobTarget:  plain,
			jobDefault: plain,
			jobOther:   plain,
		}
	}
	return styles{
		overview: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		heading:  lipgloss.NewStyle().Bold(true),
		rule:     lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
		divider:  lipgloss.NewStyle().Faint(true),
		user:     lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		border:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		header:   lipgloss.NewStyle().Bold(true).Padding(0, 1),
		columns: []lipgloss.Style{
			lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1),
			lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1),
			lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1).Align(lipgloss.Center),
			lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Padding(0, 1).Align(lipgloss.Center),
			lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Padding(0, 1).Align(lipgloss.Center),
		},
		jobsCell:   lipgloss.NewStyle().Padding(0, 1),
		jobHeader:  lipgloss.NewStyle().Faint(true),
		jobTarget:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		jobDefault: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		jobOther:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// Render writes the cluster GPU overview, the optional per-user summary,
// and the node table to sink.
func Render(snap *slurm.Snapshot, opts Options, sink Sink) {
	st := defaultStyles(opts.NoColor)

	sink.Summary(st.overview.Render(overviewLine(snap)))
	if len(opts.Users) > 0 {
		for _, line := range userSummaryLines(snap, opts.Users, st) {
			sink.Summary(line)
		}
	}
	sink.Table(renderNodeTable(snap, opts, st))
}

func overviewLine(snap *slurm.Snapshot) string {
	used, total := snap.Nodes.GPUTotal()
	if total == 0 {
		return "Cluster GPU Overview: No GPUs detected"
	}
	pct := used / float64(total) * 100
	return fmt.Sprintf("Cluster GPU Overview: %d/%d GPUs Used (%s)", int(used), total, uifmt.Percent(pct))
}

func userSummaryLines(snap *slurm.Snapshot, users []string, st styles) []string {
	summaries := slurm.SummarizeUsers(snap.Jobs, users)

	rule := st.rule.Render(strings.Repeat("=", summaryRuleWidth))
	lines := []string{
		"",
		rule,
		st.heading.Render("Summary of Resources Used by Specified Users"),
		rule,
	}

	nodeUnion := make(map[string]bool)
	partitionTotals := make(map[string]int)
	for _, s := range summaries {
		for _, node := range s.Nodes {
			nodeUnion[node] = true
		}
		if len(s.Nodes) == 0 {
			continue
		}
		lines = append(lines, st.user.Render(fmt.Sprintf("• %-15s using %d node(s), %d GPU(s):", s.User, len(s.Nodes), s.GPUs)))
		for _, partition := range sortedKeys(s.ByPartition) {
			count := s.ByPartition[partition]
			lines = append(lines, fmt.Sprintf("  - %-20s: %3d GPU(s)", partition, count))
			partitionTotals[partition] += count
		}
	}

	totalGPUs := 0
	for _, count := range partitionTotals {
		totalGPUs += count
	}
	lines = append(lines, st.divider.Render(strings.Repeat("-", totalsRuleWidth)))
	lines = append(lines, st.heading.Render(fmt.Sprintf("Total: %d nodes, %d GPUs", len(nodeUnion), totalGPUs)))
	for _, partition := range sortedKeys(partitionTotals) {
		lines = append(lines, fmt.Sprintf("  %-20s: %3d GPU(s)", partition, partitionTotals[partition]))
	}
	lines = append(lines, rule)
	return lines
}

func renderNodeTable(snap *slurm.Snapshot, opts Options, st styles) string {
	targets := targetSet(opts.Users)

	var rows [][]string
	var isJobsRow []bool
	for _, name := range snap.Nodes.Names() {
		node := snap.Nodes[name]
		if len(targets) > 0 && !hasTargetJob(node, targets) {
			continue
		}
		rows = append(rows, []string{
			name,
			uifmt.GPUModel(node.GPU.Count, node.GPU.Kind),
			uifmt.CPUCell(node.Usage.Priority.CPU, node.Usage.Default.CPU, node.CPU.Idle),
			uifmt.GPUCell(node.Usage.Priority.GPU, node.Usage.Default.GPU, node.GPU.Count),
			uifmt.MemCell(node.Usage.Priority.MemGB, node.Usage.Default.MemGB, node.Mem.IdleMB),
		})
		isJobsRow = append(isJobsRow, false)
		if opts.ShowJobs && len(node.Jobs) > 0 {
			rows = append(rows, []string{"", renderJobBlock(node, targets, st), "", "", ""})
			isJobsRow = append(isJobsRow, true)
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(st.border).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.header
			}
			if row >= 0 && row < len(isJobsRow) && isJobsRow[row] {
				return st.jobsCell
			}
			if col >= 0 && col < len(st.columns) {
				return st.columns[col]
			}
			return st.jobsCell
		}).
		Headers("Server", "GPU", "CPU (P/D/I)", "GPU (P/D/I)", "Memory GB (P/D/I)")
	for _, row := range rows {
		t.Row(row...)
	}
	return t.String()
}

// renderJobBlock lays out the per-job rows nested under a node row,
// sorted by job ID so output is stable between runs.
func renderJobBlock(node *slurm.Node, targets map[string]bool, st styles) string {
	ids := make([]string, 0, len(node.Jobs))
	for id := range node.Jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	lines := []string{st.jobHeader.Render(fmt.Sprintf(jobRowFormat, "Job ID", "User", "Partition", "CPU", "GPU", "Mem(GB)"))}
	for _, id := range ids {
		job := node.Jobs[id]
		line := fmt.Sprintf(jobRowFormat, id, job.User, job.Partition,
			fmt.Sprintf("%d", int(job.CPU)),
			fmt.Sprintf("%d", int(job.GPU)),
			fmt.Sprintf("%.1f", job.MemGB))
		switch {
		case targets[job.User]:
			line = st.jobTarget.Render(line)
		case job.Class == slurm.ClassDefault:
			line = st.jobDefault.Render(line)
		default:
			line = st.jobOther.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func hasTargetJob(node *slurm.Node, targets map[string]bool) bool {
	for _, job := range node.Jobs {
		if targets[job.User] {
			return true
		}
	}
	return false
}

func targetSet(users []string) map[string]bool {
	set := make(map[string]bool, len(users))
	for _, user := range users {
		set[user] = true
	}
	return set
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
