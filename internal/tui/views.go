package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/vidsync/internal/breadcrumb"
	"github.com/mmcdole/vidsync/internal/domain"
	"github.com/mmcdole/vidsync/internal/index"
	"github.com/mmcdole/vidsync/internal/tui/styles"
)

// View renders the UI
func (m Model) View() string {
	if !m.Ready {
		return "Initializing..."
	}

	var body string
	switch m.State {
	case StateDetail:
		body = m.renderDetail()
	case StateEditingNote:
		body = m.renderNoteEditor()
	default:
		body = m.renderList()
	}

	body = lipgloss.NewStyle().
		Height(max(m.listHeight(), 1)).
		MaxHeight(max(m.listHeight(), 1)).
		Render(body)

	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())
}

func (m Model) renderHeader() string {
	path := "/"
	if m.State == StateDetail || m.State == StateEditingNote {
		path = index.VideoURL(m.DetailID)
	}
	crumbs := m.svc.Crumbs.Resolve(path)

	parts := []string{styles.TitleStyle.Render("vidsync")}
	for _, c := range crumbs {
		label := c.Short()
		if c.State == breadcrumb.Loading {
			label = m.Spinner.View() + " " + label
		}
		parts = append(parts, styles.BreadcrumbStyle.Render(label))
	}
	header := strings.Join(parts, styles.DimStyle.Render(" › "))

	if m.State == StateSearching || m.Query != "" {
		header += "\n" + m.Search.View()
	} else {
		header += "\n"
	}
	return header
}

func (m Model) renderList() string {
	if len(m.Rows) == 0 {
		if m.Query != "" {
			return m.renderNoMatches()
		}
		if m.Loading > 0 {
			return styles.DimStyle.Render(m.Spinner.View() + " Loading videos...")
		}
		return styles.DimStyle.Render("No videos")
	}

	height := max(m.listHeight(), 1)
	start := 0
	if m.Cursor >= height {
		start = m.Cursor - height + 1
	}
	end := min(start+height, len(m.Rows))

	titleWidth := max(m.Width-34, 10)
	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(m.renderRow(i, titleWidth))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return styles.ListStyle.Render(b.String())
}

func (m Model) renderRow(i, titleWidth int) string {
	v := m.Rows[i]
	base := styles.NormalItemStyle
	if i == m.Cursor {
		base = styles.SelectedItemStyle
	}

	var title string
	if m.Matches != nil && i < len(m.Matches) && len([]rune(v.Title)) <= titleWidth {
		title = styles.Highlight(v.Title, m.Matches[i].MatchedIndexes, base)
	} else {
		title = base.Render(styles.Truncate(v.Title, titleWidth))
	}

	mark := " "
	if v.IsPending() {
		mark = styles.PendingMark
	}
	meta := fmt.Sprintf("%s  %3d comments", v.CreatedAt.Format("2006-01-02"), v.NumComments)
	return mark + " " + styles.Pad(title, titleWidth) + "  " + styles.DimStyle.Render(meta)
}

func (m Model) renderNoMatches() string {
	lines := []string{styles.DimStyle.Render("No matches for " + fmt.Sprintf("%q", m.Query))}
	if suggestions := m.svc.Index.Index().Suggest(m.Query); len(suggestions) > 0 {
		lines = append(lines, styles.SubtitleStyle.Render("Did you mean: "+strings.Join(suggestions, ", ")))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderDetail() string {
	if m.Detail == nil {
		return styles.DimStyle.Render(m.Spinner.View() + " Loading video...")
	}
	v := m.Detail

	var lines []string
	lines = append(lines, styles.TitleStyle.Render(v.Title))
	lines = append(lines, styles.SubtitleStyle.Render(fmt.Sprintf("by %s · %s · %d comments",
		v.UserID, v.CreatedAt.Format("Jan 2, 2006"), v.NumComments)))
	if badges := renderBadges(v); badges != "" {
		lines = append(lines, badges)
	}
	lines = append(lines, "")
	if v.Description != "" {
		lines = append(lines, lipgloss.NewStyle().Width(max(m.Width-6, 20)).Render(v.Description), "")
	}
	lines = append(lines, styles.DimStyle.Render(v.VideoURL), "")

	if note := m.svc.Notes.Get(m.svc.Username, v.ID); note != "" {
		lines = append(lines, styles.AccentStyle.Render("Notes"), styles.InactiveBorder.Render(note), "")
	}

	lines = append(lines, styles.AccentStyle.Render("Comments"))
	switch {
	case !m.CommentsLoaded && !v.IsPending():
		lines = append(lines, styles.DimStyle.Render(m.Spinner.View()+" loading"))
	case len(m.Comments) == 0:
		lines = append(lines, styles.DimStyle.Render("No comments yet"))
	default:
		for _, c := range m.Comments {
			lines = append(lines, fmt.Sprintf("%s %s", styles.DimStyle.Render(c.UserID+":"), c.Content))
		}
	}
	return styles.DetailStyle.Render(strings.Join(lines, "\n"))
}

func renderBadges(v *domain.Video) string {
	var badges []string
	for _, c := range v.Categories {
		badges = append(badges, styles.BadgeStyle.Render(c))
	}
	for _, c := range v.Courses {
		badges = append(badges, styles.DimBadgeStyle.Render(c))
	}
	return strings.Join(badges, " ")
}

func (m Model) renderNoteEditor() string {
	title := "Notes"
	if m.Detail != nil {
		title = "Notes · " + m.Detail.Title
	}
	return styles.DetailStyle.Render(styles.AccentStyle.Render(title) + "\n" + styles.ActiveBorder.Render(m.Note.View()))
}

func (m Model) renderFooter() string {
	status := ""
	if m.StatusMsg != "" {
		if m.StatusIsErr {
			status = styles.ErrorStyle.Render(m.StatusMsg)
		} else {
			status = styles.SuccessStyle.Render(m.StatusMsg)
		}
	}
	if m.Loading > 0 {
		status = m.Spinner.View() + " " + status
	}
	return status + "\n" + m.Help.View(Keys)
}
