package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"gtop/internal/monitor"
	"gtop/internal/slurm"
	"gtop/internal/uifmt"
)

type Options struct {
	Source      string
	Compact     bool
	NoColor     bool
	ShowJobs    bool
	Users       []string
	Refresh     time.Duration
	MaxDuration time.Duration
	Updates     <-chan monitor.Update
}

type Model struct {
	source      string
	compact     bool
	noColor     bool
	showJobs    bool
	users       []string
	refresh     time.Duration
	maxDuration time.Duration
	updates     <-chan monitor.Update

	width  int
	height int

	started time.Time
	now     time.Time

	state       monitor.State
	lastError   string
	lastSuccess time.Time
	nextRetry   time.Time
	pulseIndex  int
	snapshot    *slurm.Snapshot

	styles styles
}

type styles struct {
	title      lipgloss.Style
	dim        lipgloss.Style
	panel      lipgloss.Style
	tableHdr   lipgloss.Style
	label      lipgloss.Style
	value      lipgloss.Style
	ok         lipgloss.Style
	warn       lipgloss.Style
	bad        lipgloss.Style
	chip       lipgloss.Style
	chipOK     lipgloss.Style
	chipWarn   lipgloss.Style
	chipBad    lipgloss.Style
	errorLabel lipgloss.Style
	accent     lipgloss.Style
}

type updateMsg struct {
	update monitor.Update
}

type tickMsg struct {
	now time.Time
}

type channelClosedMsg struct{}

var pulseFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const (
	frameRightGutter = 1
	viewportClipText = "... output clipped to terminal height ..."

	wideNodeFmt    = "%-14s %-12s %-10s %-9s %-17s"
	compactNodeFmt = "%-14s %-10s %-9s %-17s"
	jobRowFmt      = "  %-10s %-10s %-16s %5s %5s %8s"
	userRowFmt     = "%-14s %6s %5s  %s"
)

func NewModel(opts Options) Model {
	return Model{
		source:      opts.Source,
		compact:     opts.Compact,
		noColor:     opts.NoColor,
		showJobs:    opts.ShowJobs,
		users:       opts.Users,
		refresh:     opts.Refresh,
		maxDuration: opts.MaxDuration,
		updates:     opts.Updates,
		started:     time.Now(),
		now:         time.Now(),
		state:       monitor.StateReconnecting,
		styles:      defaultStyles(opts.NoColor),
	}
}

func defaultStyles(noColor bool) styles {
	basePanel := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	if noColor {
		return styles{
			title:      lipgloss.NewStyle().Bold(true),
			dim:        lipgloss.NewStyle(),
			panel:      basePanel,
			tableHdr:   lipgloss.NewStyle().Bold(true),
			label:      lipgloss.NewStyle().Bold(true),
			value:      lipgloss.NewStyle().Bold(true),
			ok:         lipgloss.NewStyle().Bold(true),
			warn:       lipgloss.NewStyle().Bold(true),
			bad:        lipgloss.NewStyle().Bold(true),
			chip:       lipgloss.NewStyle().Bold(true),
			chipOK:     lipgloss.NewStyle().Bold(true),
			chipWarn:   lipgloss.NewStyle().Bold(true),
			chipBad:    lipgloss.NewStyle().Bold(true),
			errorLabel: lipgloss.NewStyle().Bold(true),
			accent:     lipgloss.NewStyle().Bold(true),
		}
	}

	return styles{
		title:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24")).Padding(0, 1),
		dim:        lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		panel:      basePanel.BorderForeground(lipgloss.Color("61")),
		tableHdr:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("60")).Padding(0, 1),
		label:      lipgloss.NewStyle().Foreground(lipgloss.Color("109")),
		value:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")),
		ok:         lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		warn:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		bad:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		chip:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("238")).Padding(0, 1),
		chipOK:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("28")).Padding(0, 1),
		chipWarn:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("232")).Background(lipgloss.Color("220")).Padding(0, 1),
		chipBad:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Padding(0, 1),
		errorLabel: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		accent:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81")),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func waitForUpdate(ch <-chan monitor.Update) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return channelClosedMsg{}
		}
		return updateMsg{update: update}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(1*time.Second, func(t time.Time) tea.Msg {
		return tickMsg{now: t}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case updateMsg:
		m.state = msg.update.State
		m.lastError = msg.update.LastError
		m.lastSuccess = msg.update.LastSuccess
		m.nextRetry = msg.update.NextRetry
		// Failure updates carry the previous good snapshot, so the
		// panels stay populated while the error line shows the cause.
		if msg.update.Snapshot != nil {
			snap := *msg.update.Snapshot
			m.snapshot = &snap
		}
		return m, waitForUpdate(m.updates)
	case tickMsg:
		m.now = msg.now
		if len(pulseFrames) > 0 {
			m.pulseIndex = (m.pulseIndex + 1) % len(pulseFrames)
		}
		if m.maxDuration > 0 && m.now.Sub(m.started) >= m.maxDuration {
			return m, tea.Quit
		}
		return m, tickCmd()
	case channelClosedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	viewWidth := stabilizedFrameWidth(m.width)
	if viewWidth <= 0 || m.height <= 0 {
		return "initializing..."
	}
	m.width = viewWidth

	now := m.now
	if now.IsZero() {
		now = time.Now()
	}

	header := m.renderHeader(now)
	footer := m.styles.dim.Render("q or Ctrl+C to exit")
	headerLines := lineCount(header)
	footerLines := lineCount(footer)
	separatorLines := 1
	if m.height <= headerLines+footerLines+4 {
		separatorLines = 0
	}
	bodyHeight := m.height - headerLines - footerLines - separatorLines
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	var body string
	if m.snapshot == nil {
		body = m.styles.panel.Width(max(20, m.width-6)).Render("waiting for first successful snapshot...")
		body = clipToHeight(body, bodyHeight)
	} else {
		body = m.renderMain(bodyHeight)
	}

	parts := []string{header}
	if separatorLines > 0 {
		parts = append(parts, "")
	}
	parts = append(parts, body)
	top := lipgloss.JoinVertical(lipgloss.Left, parts...)
	joined := pinFooterToBottom(top, footer, m.height)
	return clipToViewport(joined, viewWidth, m.height)
}

func (m Model) renderHeader(now time.Time) string {
	statusText, _, statusChip := m.renderStatusText(now)
	pulse := pulseFrames[m.pulseIndex%len(pulseFrames)]
	statusText = pulse + " " + statusText
	ageText := "refresh: never"
	if !m.lastSuccess.IsZero() {
		ageText = "refresh: " + humanDuration(now.Sub(m.lastSuccess)) + " ago"
	}

	left := m.styles.title.Render(" GTOP ") + "  " +
		m.styles.label.Render("source: ") + m.styles.value.Render(m.source) + "  " +
		m.styles.chip.Render("clock: "+now.Format("15:04:05")) + " " +
		m.styles.chip.Render(ageText)
	right := statusChip.Render(statusText)
	line1 := joinWithPaddingKeepRight(left, right, m.width)
	if m.lastError == "" {
		return line1
	}
	line2 := truncateRunes(m.styles.errorLabel.Render("error: "+m.lastError), m.width)
	return line1 + "\n" + line2
}

func (m Model) renderStatusText(now time.Time) (string, lipgloss.Style, lipgloss.Style) {
	if m.snapshot == nil && strings.TrimSpace(m.lastError) == "" {
		return "loading", m.styles.warn, m.styles.chipWarn
	}

	switch m.state {
	case monitor.StateConnected:
		return "connected", m.styles.ok, m.styles.chipOK
	case monitor.StateDisconnectedRecovering:
		next := ""
		if !m.nextRetry.IsZero() && m.nextRetry.After(now) {
			next = fmt.Sprintf(" (retry in %s)", humanDuration(m.nextRetry.Sub(now)))
		}
		return "disconnected, recovering" + next, m.styles.bad, m.styles.chipBad
	default:
		next := ""
		if !m.nextRetry.IsZero() && m.nextRetry.After(now) {
			next = fmt.Sprintf(" (retry in %s)", humanDuration(m.nextRetry.Sub(now)))
		}
		return "reconnecting" + next, m.styles.warn, m.styles.chipWarn
	}
}

func (m Model) renderMain(maxHeight int) string {
	if m.snapshot == nil {
		return ""
	}
	inner := max(20, m.width-6)
	contentWidth := panelContentWidth(inner)
	compact := m.compact || m.width < 96

	if len(m.users) == 0 {
		nodeBody := m.renderNodePanel(panelContentHeight(maxHeight), compact, contentWidth)
		nodePanel := m.styles.panel.Width(inner).Render(nodeBody)
		return clipToHeight(nodePanel, maxHeight)
	}

	userTarget := max(7, maxHeight/3)
	nodeTarget := maxHeight - userTarget
	if nodeTarget < 6 {
		nodeTarget = 6
		userTarget = max(3, maxHeight-nodeTarget)
	}

	nodeBody := m.renderNodePanel(panelContentHeight(nodeTarget), compact, contentWidth)
	nodePanel := m.styles.panel.Width(inner).Render(nodeBody)
	userBody := m.renderUserPanel(panelContentHeight(userTarget), contentWidth)
	userPanel := m.styles.panel.Width(inner).Render(userBody)

	body := lipgloss.JoinVertical(lipgloss.Left, nodePanel, userPanel)
	return clipToHeight(body, maxHeight)
}

// renderNodePanel lays out one row per node with priority/default/idle
// cells, plus per-job rows when enabled. With target users set, only
// nodes running one of their jobs appear.
func (m Model) renderNodePanel(contentHeight int, compact bool, contentWidth int) string {
	if m.snapshot == nil || contentHeight <= 0 {
		return ""
	}
	targets := targetSet(m.users)
	names := m.visibleNodeNames(targets)

	groups := make([][]string, 0, len(names))
	for _, name := range names {
		node := m.snapshot.Nodes[name]
		group := []string{m.nodeRow(name, node, compact)}
		if m.showJobs {
			group = append(group, m.jobRows(node, targets)...)
		}
		groups = append(groups, group)
	}

	mandatory := 3 // title + overview + total
	remaining := contentHeight - mandatory
	showHeader := remaining > 0
	rowBudget := 0
	if showHeader {
		rowBudget = remaining - 1
	}
	visibleNodes := 0
	used := 0
	for _, group := range groups {
		if used+len(group) > rowBudget {
			break
		}
		used += len(group)
		visibleNodes++
	}
	hiddenNodes := len(groups) - visibleNodes

	title := "node usage"
	if hiddenNodes > 0 {
		title = fmt.Sprintf("node usage (top %d/%d, +%d hidden)", visibleNodes, len(groups), hiddenNodes)
	}

	lines := []string{m.sectionTitle(title), m.gpuOverviewLine()}
	if showHeader {
		if compact {
			lines = append(lines, fmt.Sprintf(compactNodeFmt, "node", "cpu p/d/i", "gpu p/d/i", "mem gb p/d/i"))
		} else {
			lines = append(lines, fmt.Sprintf(wideNodeFmt, "node", "gpus", "cpu p/d/i", "gpu p/d/i", "mem gb p/d/i"))
		}
	}
	for i := 0; i < visibleNodes; i++ {
		lines = append(lines, groups[i]...)
	}
	lines = append(lines, m.styles.accent.Render(m.totalRow(names, compact)))
	lines = clipLines(lines, contentHeight)
	lines = fitLinesToWidth(lines, contentWidth)
	return strings.Join(lines, "\n")
}

func (m Model) visibleNodeNames(targets map[string]bool) []string {
	names := m.snapshot.Nodes.Names()
	if len(targets) == 0 {
		return names
	}
	filtered := names[:0]
	for _, name := range names {
		for _, job := range m.snapshot.Nodes[name].Jobs {
			if targets[job.User] {
				filtered = append(filtered, name)
				break
			}
		}
	}
	return filtered
}

func (m Model) nodeRow(name string, node *slurm.Node, compact bool) string {
	cpu := uifmt.CPUCell(node.Usage.Priority.CPU, node.Usage.Default.CPU, node.CPU.Idle)
	gpu := uifmt.GPUCell(node.Usage.Priority.GPU, node.Usage.Default.GPU, node.GPU.Count)
	mem := uifmt.MemCell(node.Usage.Priority.MemGB, node.Usage.Default.MemGB, node.Mem.IdleMB)
	if compact {
		return fmt.Sprintf(compactNodeFmt, truncateRunes(name, 14), cpu, gpu, mem)
	}
	model := uifmt.GPUModel(node.GPU.Count, node.GPU.Kind)
	return fmt.Sprintf(wideNodeFmt, truncateRunes(name, 14), truncateRunes(model, 12), cpu, gpu, mem)
}

func (m Model) jobRows(node *slurm.Node, targets map[string]bool) []string {
	ids := make([]string, 0, len(node.Jobs))
	for id := range node.Jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]string, 0, len(ids))
	for _, id := range ids {
		job := node.Jobs[id]
		row := fmt.Sprintf(
			jobRowFmt,
			truncateRunes(id, 10),
			truncateRunes(job.User, 10),
			truncateRunes(job.Partition, 16),
			fmt.Sprintf("%d", int(job.CPU)),
			fmt.Sprintf("%d", int(job.GPU)),
			fmt.Sprintf("%.1f", job.MemGB),
		)
		switch {
		case targets[job.User]:
			row = m.styles.accent.Render(row)
		case job.Class == slurm.ClassDefault:
			row = m.styles.ok.Render(row)
		default:
			row = m.styles.bad.Render(row)
		}
		rows = append(rows, row)
	}
	return rows
}

func (m Model) totalRow(names []string, compact bool) string {
	var usage slurm.ClassUsage
	var cpuIdle, memIdleMB, gpuCount int
	for _, name := range names {
		node := m.snapshot.Nodes[name]
		usage.Priority.CPU += node.Usage.Priority.CPU
		usage.Priority.GPU += node.Usage.Priority.GPU
		usage.Priority.MemGB += node.Usage.Priority.MemGB
		usage.Default.CPU += node.Usage.Default.CPU
		usage.Default.GPU += node.Usage.Default.GPU
		usage.Default.MemGB += node.Usage.Default.MemGB
		cpuIdle += node.CPU.Idle
		memIdleMB += node.Mem.IdleMB
		gpuCount += node.GPU.Count
	}
	cpu := uifmt.CPUCell(usage.Priority.CPU, usage.Default.CPU, cpuIdle)
	gpu := uifmt.GPUCell(usage.Priority.GPU, usage.Default.GPU, gpuCount)
	mem := uifmt.MemCell(usage.Priority.MemGB, usage.Default.MemGB, memIdleMB)
	if compact {
		return fmt.Sprintf(compactNodeFmt, "TOTAL", cpu, gpu, mem)
	}
	return fmt.Sprintf(wideNodeFmt, "TOTAL", "", cpu, gpu, mem)
}

func (m Model) gpuOverviewLine() string {
	used, total := m.snapshot.Nodes.GPUTotal()
	if total == 0 {
		return m.styles.dim.Render("gpu overview: no gpus detected")
	}
	pct := used / float64(total) * 100
	return m.styles.accent.Render(fmt.Sprintf("gpu overview: %d/%d used (%s)", int(used), total, uifmt.Percent(pct)))
}

// renderUserPanel summarizes the target users' running footprint. Users
// without running jobs are omitted, matching the one-shot report.
func (m Model) renderUserPanel(contentHeight, contentWidth int) string {
	if m.snapshot == nil || contentHeight <= 0 {
		return ""
	}
	summaries := slurm.SummarizeUsers(m.snapshot.Jobs, m.users)

	active := summaries[:0]
	for _, s := range summaries {
		if len(s.Nodes) > 0 {
			active = append(active, s)
		}
	}

	mandatory := 3 // title + header + total
	rowBudget := contentHeight - mandatory
	if rowBudget < 0 {
		rowBudget = 0
	}
	visible := min(len(active), rowBudget)
	hidden := len(active) - visible

	title := "user summary"
	if hidden > 0 {
		title = fmt.Sprintf("user summary (top %d/%d, +%d hidden)", visible, len(active), hidden)
	}

	lines := []string{
		m.sectionTitle(title),
		fmt.Sprintf(userRowFmt, "user", "nodes", "gpus", "partitions"),
	}
	if len(active) == 0 {
		lines = append(lines, m.styles.dim.Render("(no running jobs for selected users)"))
	}

	nodeUnion := make(map[string]bool)
	partitionTotals := make(map[string]int)
	totalGPUs := 0
	for _, s := range active {
		for _, node := range s.Nodes {
			nodeUnion[node] = true
		}
		for partition, count := range s.ByPartition {
			partitionTotals[partition] += count
		}
		totalGPUs += s.GPUs
	}
	for i := 0; i < visible; i++ {
		s := active[i]
		lines = append(lines, fmt.Sprintf(
			userRowFmt,
			truncateRunes(s.User, 14),
			fmt.Sprintf("%d", len(s.Nodes)),
			fmt.Sprintf("%d", s.GPUs),
			partitionBreakdown(s.ByPartition),
		))
	}

	totalLine := fmt.Sprintf(
		userRowFmt,
		"TOTAL",
		fmt.Sprintf("%d", len(nodeUnion)),
		fmt.Sprintf("%d", totalGPUs),
		partitionBreakdown(partitionTotals),
	)
	lines = append(lines, m.styles.accent.Render(totalLine))
	lines = clipLines(lines, contentHeight)
	lines = fitLinesToWidth(lines, contentWidth)
	return strings.Join(lines, "\n")
}

func partitionBreakdown(byPartition map[string]int) string {
	if len(byPartition) == 0 {
		return "-"
	}
	partitions := make([]string, 0, len(byPartition))
	for partition := range byPartition {
		partitions = append(partitions, partition)
	}
	sort.Strings(partitions)
	parts := make([]string, 0, len(partitions))
	for _, partition := range partitions {
		parts = append(parts, fmt.Sprintf("%s=%d", partition, byPartition[partition]))
	}
	return strings.Join(parts, " ")
}

func targetSet(users []string) map[string]bool {
	set := make(map[string]bool, len(users))
	for _, user := range users {
		set[user] = true
	}
	return set
}

func (m Model) sectionTitle(label string) string {
	icon := "•"
	switch {
	case strings.HasPrefix(label, "node usage"):
		icon = "◌"
	case strings.HasPrefix(label, "user summary"):
		icon = "◒"
	}
	return m.styles.tableHdr.Render(icon + " " + label)
}

func stabilizedFrameWidth(width int) int {
	if width <= 0 {
		return 0
	}
	if width <= frameRightGutter {
		return width
	}
	return width - frameRightGutter
}

func humanDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Second {
		return "<1s"
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return d.String()
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

func truncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	return ansi.Truncate(s, maxRunes, "…")
}

func joinWithPaddingKeepRight(left, right string, width int) string {
	if width <= 0 {
		return ""
	}
	rightWidth := lipgloss.Width(right)
	if rightWidth >= width {
		return truncateRunes(right, width)
	}
	maxLeftWidth := width - rightWidth - 1
	if maxLeftWidth < 0 {
		maxLeftWidth = 0
	}
	left = truncateRunes(left, maxLeftWidth)
	leftWidth := lipgloss.Width(left)
	padding := width - leftWidth - rightWidth
	if padding < 1 {
		padding = 1
	}
	return left + strings.Repeat(" ", padding) + right
}

func clipToViewport(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	clipped := len(lines) > height
	if len(lines) > height {
		lines = lines[:height]
	}
	if clipped && len(lines) > 0 {
		lines[len(lines)-1] = truncateRunes(viewportClipText, width)
	}
	for i := range lines {
		lines[i] = truncateRunes(lines[i], width)
		if pad := width - lipgloss.Width(lines[i]); pad > 0 {
			lines[i] += strings.Repeat(" ", pad)
		}
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func clipToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= maxLines {
		return s
	}
	return strings.Join(lines[:maxLines], "\n")
}

func pinFooterToBottom(top, footer string, height int) string {
	if height <= 0 {
		return ""
	}
	footerLines := []string{}
	if footer != "" {
		footerLines = strings.Split(footer, "\n")
	}
	topLines := []string{}
	if top != "" {
		topLines = strings.Split(top, "\n")
	}

	maxTopLines := height - len(footerLines)
	if maxTopLines < 0 {
		maxTopLines = 0
	}
	if len(topLines) > maxTopLines {
		topLines = topLines[:maxTopLines]
	}
	for len(topLines) < maxTopLines {
		topLines = append(topLines, "")
	}

	all := append(topLines, footerLines...)
	if len(all) == 0 {
		return ""
	}
	return strings.Join(all, "\n")
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

func panelContentHeight(panelHeight int) int {
	return max(1, panelHeight-2)
}

func panelContentWidth(panelWidth int) int {
	return max(1, panelWidth-4)
}

func fitLinesToWidth(lines []string, width int) []string {
	if width <= 0 {
		return lines
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = truncateRunes(line, width)
	}
	return out
}

func clipLines(lines []string, maxLines int) []string {
	if maxLines <= 0 || len(lines) == 0 {
		return nil
	}
	if len(lines) <= maxLines {
		return lines
	}
	return lines[:maxLines]
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
