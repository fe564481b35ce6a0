package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/paper-guides/backend/fingerprint"
	"github.com/paper-guides/backend/subm"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#2ecc71"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c"))
	labelStyle = lipgloss.NewStyle().Bold(true)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3498db"))
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
)

func renderPreviewTable(items []subm.PreviewItem) string {
	if len(items) == 0 {
		return okStyle.Render("nothing pending")
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style { return cellStyle }).
		Headers("ID", "UUID", "KIND", "BOARD", "SUBJECT", "LEVEL", "COMPONENT", "YEAR/TOPIC", "QUESTION", "BY", "SUBMITTED", "PARTS")
	for _, it := range items {
		t.Row(previewRow(it)...)
	}
	return t.String()
}

func previewRow(it subm.PreviewItem) []string {
	yearOrTopic := it.Year
	if yearOrTopic == "" {
		yearOrTopic = it.Topic
	}
	return []string{
		fmt.Sprint(it.ID),
		it.UUID.String(),
		string(it.Kind),
		it.Board,
		it.Subject,
		it.Level,
		it.Component,
		yearOrTopic,
		fingerprint.Short(it.QuestionFingerprint),
		it.SubmittedBy,
		it.SubmittedOn.Local().Format("2006-01-02 15:04"),
		fmt.Sprint(it.Children),
	}
}

func renderDetail(d subm.PreviewDetail) string {
	var b strings.Builder
	field := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-12s", label+":")), valueStyle.Render(value))
	}
	field("UUID", d.UUID.String())
	field("Kind", string(d.Kind))
	field("Status", string(d.Status))
	field("Board", d.Board)
	field("Subject", d.Subject)
	field("Level", d.Level)
	field("Component", d.Component)
	field("Year", d.Year)
	field("Topic", d.Topic)
	field("Difficulty", d.Difficulty)
	field("Question", fmt.Sprintf("%s (%s, %d bytes)", d.QuestionFingerprint, d.QuestionMime, d.QuestionBytes))
	if d.SolutionFingerprint != "" {
		field("Solution", fmt.Sprintf("%s (%s, %d bytes)", d.SolutionFingerprint, d.SolutionMime, d.SolutionBytes))
	}
	field("Submitted", fmt.Sprintf("%s by %s", d.SubmittedOn.Local().Format("2006-01-02 15:04"), d.SubmittedBy))
	if d.ModeratedOn != nil {
		field("Moderated", fmt.Sprintf("%s by %s", d.ModeratedOn.Local().Format("2006-01-02 15:04"), d.ModeratedBy))
	}
	if len(d.ChildItems) > 0 {
		b.WriteString("\n")
		b.WriteString(renderPreviewTable(d.ChildItems))
	}
	return b.String()
}
