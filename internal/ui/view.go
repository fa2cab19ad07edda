package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/visiontext/internal/extract"
	"github.com/abelbrown/visiontext/internal/present"
	"github.com/abelbrown/visiontext/internal/workflow"
)

// splitWidth is the terminal width at which history moves beside the card.
const splitWidth = 100

const historyTimeLayout = "Jan 2 2006, 15:04"

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	header := HeaderStyle.Render("VisionText") + HeaderMeta.Render(a.baseURL)

	if a.showDebug {
		return header + "\n" + debugOverlay(a.ring, a.width, a.height-2) + "\n" + debugStatusBar(a.width)
	}

	var body string
	if a.width >= splitWidth {
		left := a.width * 3 / 5
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(left).Render(a.renderMain(left)),
			a.renderHistory(a.width-left),
		)
	} else {
		body = a.renderMain(a.width) + "\n" + a.renderHistory(a.width)
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n")
	if a.inputOpen {
		b.WriteString(InputBar.Width(a.width).Render(a.input.View()))
		b.WriteString("\n")
	}
	if a.notice != "" {
		style := NoticeStyle
		if a.noticeErr {
			style = ErrorStyle
		}
		b.WriteString(style.Width(a.width).Render(a.notice))
		b.WriteString("\n")
	}
	b.WriteString(RenderStatusBar(a.wf.Phase(), a.width))
	return b.String()
}

// renderMain renders the image line, phase status, event card and fragments.
func (a App) renderMain(width int) string {
	var parts []string

	if img := a.wf.Image(); img != nil {
		parts = append(parts, ImageLine.Render(fmt.Sprintf("🖼  %s (%s)", img.Name, formatBytes(int64(img.Size())))))
	}

	card := present.Placeholder()
	var fragments []extract.Fragment

	switch p := a.wf.Phase().(type) {
	case workflow.Idle:
		parts = append(parts, MutedText.Render("No image selected. Press o to open one."))
	case workflow.ImageSelected:
		parts = append(parts, MutedText.Render("Press e to extract text."))
	case workflow.Extracting:
		parts = append(parts, a.spin.View()+" Extracting text... "+formatAge(time.Since(p.Started)))
	case workflow.Error:
		parts = append(parts, ErrorStyle.Render(p.Message))
		if p.Image != nil {
			parts = append(parts, MutedText.Render("Press e to retry."))
		}
	case workflow.Result:
		if p.Outcome != nil {
			card = present.Normalize(p.Outcome.Structured)
			fragments = p.Outcome.Data
		}
		if p.FromHistory {
			parts = append(parts, MutedText.Render("From history"))
		}
	}

	parts = append(parts, renderCard(card, width-2))
	if len(fragments) > 0 {
		parts = append(parts, PanelTitle.Render("Raw Text"), renderFragments(fragments, width-2))
	}
	return strings.Join(parts, "\n")
}

// renderCard draws the event card framed by its atmosphere.
func renderCard(c present.Card, width int) string {
	frame, badge := DayCard, DayBadge
	if c.Atmosphere == present.Night {
		frame, badge = NightCard, NightBadge
	}

	inner := width - frame.GetHorizontalFrameSize()
	if inner < 10 {
		inner = 10
	}

	row := func(label, value string) string {
		return CardLabel.Render(fmt.Sprintf("%-10s", label)) + " " + value
	}

	lines := []string{
		CardTitle.Render(c.Title) + "  " + badge.Render(c.AtmosphereLabel()),
		"",
		row("Date", c.Date),
		row("Time", c.Time),
		row("Hosted by", c.Host),
		row("Location", c.Location),
	}
	if len(c.Lineup) > 0 {
		lines = append(lines, "", CardLabel.Render("Lineup / DJs"))
		for _, name := range c.Lineup {
			lines = append(lines, "  • "+name)
		}
	}
	lines = append(lines, "", lipgloss.NewStyle().Width(inner).Render(c.Description))

	return frame.Width(inner).Render(strings.Join(lines, "\n"))
}

// renderFragments lays out one chip per fragment, wrapping at width.
func renderFragments(frags []extract.Fragment, width int) string {
	var rows []string
	var row string
	for _, f := range frags {
		chip := FragmentChip.Render(fmt.Sprintf("%s (%d%%)", f.Text, present.ConfidencePercent(f.Confidence)))
		if row != "" && lipgloss.Width(row)+lipgloss.Width(chip) > width {
			rows = append(rows, row)
			row = ""
		}
		row += chip
	}
	if row != "" {
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

// renderHistory lists past extractions with the cursor highlighted.
func (a App) renderHistory(width int) string {
	entries := a.wf.History()
	lines := []string{PanelTitle.Render(fmt.Sprintf("History (%d)", len(entries)))}
	if len(entries) == 0 {
		lines = append(lines, MutedText.Render("No past extractions."))
		return strings.Join(lines, "\n")
	}

	for i, e := range entries {
		title := truncateRunes(historyTitle(e), max(width-4, 1))
		if i == a.cursor {
			lines = append(lines, SelectedItem.Width(width).Render(title))
		} else {
			lines = append(lines, NormalItem.Render(title))
		}
		meta := historyTime(e)
		if loc := e.EventDetails.Location; loc != "" && loc != extract.NotAvailable {
			meta += "  📍 " + loc
		}
		lines = append(lines, HistoryMeta.Render(truncateRunes(meta, max(width-4, 1))))
	}
	return strings.Join(lines, "\n")
}

func historyTitle(e extract.HistoryEntry) string {
	if n := e.EventDetails.EventName; n != "" && n != extract.NotAvailable {
		return n
	}
	return "Untitled event"
}

func historyTime(e extract.HistoryEntry) string {
	if e.Timestamp.IsZero() {
		return "unknown time"
	}
	return e.Timestamp.Local().Format(historyTimeLayout)
}

// RenderStatusBar renders the bottom status bar with the phase and key hints.
func RenderStatusBar(phase workflow.Phase, width int) string {
	var keys []string
	hint := func(k, desc string) {
		keys = append(keys, StatusBarKey.Render(k)+StatusBarText.Render(":"+desc))
	}

	left := " " + phaseName(phase) + " "
	switch phase.(type) {
	case workflow.Extracting:
		hint("esc", "cancel")
	case workflow.Result:
		hint("y", "copy")
		hint("e", "re-run")
		hint("c", "clear")
	case workflow.ImageSelected, workflow.Error:
		hint("e", "extract")
		hint("c", "clear")
	}
	hint("o", "open")
	hint("j/k", "nav")
	hint("Enter", "show")
	hint("r", "refresh")
	hint("D", "debug")
	hint("q", "quit")
	keyHints := strings.Join(keys, " ")

	padding := width - lipgloss.Width(left) - lipgloss.Width(keyHints)
	if padding < 0 {
		padding = 0
	}
	return StatusBar.Width(width).Render(left + strings.Repeat(" ", padding) + keyHints)
}

func phaseName(p workflow.Phase) string {
	switch p.(type) {
	case workflow.ImageSelected:
		return "Ready"
	case workflow.Extracting:
		return "Extracting"
	case workflow.Result:
		return "Result"
	case workflow.Error:
		return "Error"
	}
	return "Idle"
}
