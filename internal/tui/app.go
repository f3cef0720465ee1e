package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/vidsync/internal/breadcrumb"
	"github.com/mmcdole/vidsync/internal/comments"
	"github.com/mmcdole/vidsync/internal/domain"
	"github.com/mmcdole/vidsync/internal/index"
	"github.com/mmcdole/vidsync/internal/library"
	"github.com/mmcdole/vidsync/internal/notes"
	"github.com/mmcdole/vidsync/internal/player"
	"github.com/mmcdole/vidsync/internal/tui/styles"
)

// ApplicationState represents what the browser is showing
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateSearching
	StateDetail
	StateEditingNote
)

// ChromeHeight is the header plus the footer
const ChromeHeight = 3

// Services bundles everything the browser reads from or drives
type Services struct {
	Library  *library.Commands
	Queries  *library.Queries
	Comments *comments.Service
	Notes    *notes.Store
	Index    *index.Builder
	Crumbs   *breadcrumb.Resolver
	Observer *ChannelObserver
	Player   *player.Launcher
	Username string
}

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State    ApplicationState
	Ready    bool
	ShowHelp bool

	svc Services

	// UI Components
	Search  textinput.Model
	Note    textarea.Model
	Spinner spinner.Model
	Help    help.Model

	// Rows currently listed; Matches is set while a search query is active
	Rows    []domain.Video
	Matches []index.Match
	Cursor  int
	Query   string

	// Detail pane
	DetailID       string
	Detail         *domain.Video
	Comments       []domain.Comment
	CommentsLoaded bool

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg   string
	StatusIsErr bool
	Loading     int
}

// NewModel creates a new application model
func NewModel(svc Services) Model {
	ti := textinput.New()
	ti.Placeholder = "Search titles..."
	ti.CharLimit = 100
	ti.Width = 40
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle

	ta := textarea.New()
	ta.Placeholder = "Scratch notes for this video..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.SpinnerStyle))

	h := help.New()
	h.Styles.ShortKey = styles.HelpKeyStyle
	h.Styles.ShortDesc = styles.HelpDescStyle
	h.Styles.FullKey = styles.HelpKeyStyle
	h.Styles.FullDesc = styles.HelpDescStyle

	m := Model{
		State:   StateBrowsing,
		svc:     svc,
		Search:  ti,
		Note:    ta,
		Spinner: sp,
		Help:    h,
		Loading: 1,
	}
	m.refreshRows()
	return m
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		LoadAllVideosCmd(m.svc.Library),
		m.svc.Observer.Wait(),
		m.Spinner.Tick,
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.Help.Width = msg.Width
		m.Search.Width = max(msg.Width-4, 10)
		m.Note.SetWidth(max(msg.Width-4, 10))
		m.Note.SetHeight(max(msg.Height-ChromeHeight-4, 3))
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case SnapshotMsg:
		m.refreshRows()
		if cur := msg.Snapshot.Current; cur != nil && cur.ID == m.DetailID {
			v := *cur
			m.Detail = &v
		}
		return m, m.svc.Observer.Wait()

	case VideosLoadedMsg:
		m.done()
		m.setStatus(fmt.Sprintf("Loaded %d videos", msg.Count), false)
		return m, nil

	case DetailLoadedMsg:
		m.done()
		if msg.VideoID != m.DetailID {
			return m, nil
		}
		switch {
		case msg.Err != nil:
			m.setStatus("Video failed to load: "+msg.Err.Error(), true)
		case msg.Video == nil:
			m.setStatus("Video response could not be read", true)
		default:
			m.Detail = msg.Video
		}
		return m, nil

	case CommentsLoadedMsg:
		m.done()
		if msg.VideoID == m.DetailID {
			m.Comments = msg.Comments
			m.CommentsLoaded = true
		}
		return m, nil

	case NoteSavedMsg:
		if msg.Err != nil {
			m.setStatus("Note not saved: "+msg.Err.Error(), true)
			return m, nil
		}
		if msg.Cleared {
			m.setStatus("Note cleared", false)
		} else {
			m.setStatus("Note saved", false)
		}
		return m, nil

	case PlaybackStartedMsg:
		if msg.Err != nil {
			m.setStatus("Playback failed: "+msg.Err.Error(), true)
		} else {
			m.setStatus("Playing "+msg.Title, false)
		}
		return m, nil

	case ErrMsg:
		m.done()
		m.setStatus(msg.Error(), true)
		return m, nil
	}

	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.State {
	case StateSearching:
		return m.handleSearchKeys(msg)
	case StateEditingNote:
		return m.handleNoteKeys(msg)
	case StateDetail:
		return m.handleDetailKeys(msg)
	default:
		return m.handleBrowseKeys(msg)
	}
}

func (m Model) handleBrowseKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, Keys.Help):
		m.ShowHelp = !m.ShowHelp
		m.Help.ShowAll = m.ShowHelp
	case key.Matches(msg, Keys.Search):
		m.State = StateSearching
		m.Search.SetValue(m.Query)
		m.Search.CursorEnd()
		cmd := m.Search.Focus()
		return m, cmd
	case key.Matches(msg, Keys.Enter):
		return m.openSelected()
	case key.Matches(msg, Keys.Refresh):
		m.svc.Library.InvalidateAll()
		m.Loading++
		m.setStatus("Refreshing...", false)
		return m, LoadAllVideosCmd(m.svc.Library)
	case key.Matches(msg, Keys.Back):
		if m.Query != "" {
			m.Query = ""
			m.Cursor = 0
			m.refreshRows()
		}
	default:
		m.moveCursor(msg)
	}
	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.State = StateBrowsing
		m.Search.Blur()
		m.Query = ""
		m.Cursor = 0
		m.refreshRows()
		return m, nil
	case "enter":
		m.State = StateBrowsing
		m.Search.Blur()
		return m, nil
	case "up", "down", "ctrl+u", "ctrl+d":
		m.moveCursor(msg)
		return m, nil
	}

	var cmd tea.Cmd
	m.Search, cmd = m.Search.Update(msg)
	if q := m.Search.Value(); q != m.Query {
		m.Query = q
		m.Cursor = 0
		m.refreshRows()
	}
	return m, cmd
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, Keys.Back):
		m.State = StateBrowsing
		m.DetailID = ""
		m.Detail = nil
		m.Comments = nil
		m.CommentsLoaded = false
	case key.Matches(msg, Keys.Notes):
		m.State = StateEditingNote
		m.Note.SetValue(m.svc.Notes.Get(m.svc.Username, m.DetailID))
		cmd := m.Note.Focus()
		return m, cmd
	case key.Matches(msg, Keys.Play):
		if m.Detail == nil || m.svc.Player == nil {
			return m, nil
		}
		return m, PlayCmd(m.svc.Player, *m.Detail)
	case key.Matches(msg, Keys.Refresh):
		if m.Detail != nil && m.Detail.IsPending() {
			return m, nil
		}
		m.svc.Library.InvalidateVideo(m.DetailID)
		cmd := m.fetchDetail()
		return m, cmd
	}
	return m, nil
}

func (m Model) handleNoteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "esc":
		m.State = StateDetail
		m.Note.Blur()
		return m, nil
	case key.Matches(msg, Keys.Save):
		m.State = StateDetail
		m.Note.Blur()
		return m, SaveNoteCmd(m.svc.Notes, m.svc.Username, m.DetailID, strings.TrimSpace(m.Note.Value()))
	}

	var cmd tea.Cmd
	m.Note, cmd = m.Note.Update(msg)
	return m, cmd
}

// openSelected shows the highlighted video and fetches its detail and comments
func (m Model) openSelected() (tea.Model, tea.Cmd) {
	if m.Cursor < 0 || m.Cursor >= len(m.Rows) {
		return m, nil
	}
	v := m.Rows[m.Cursor]
	m.State = StateDetail
	m.DetailID = v.ID
	m.Detail = &v
	m.Comments = nil
	m.CommentsLoaded = false

	if v.IsPending() {
		m.setStatus("Waiting for the server to assign an id", false)
		return m, nil
	}
	cmd := m.fetchDetail()
	return m, cmd
}

func (m *Model) fetchDetail() tea.Cmd {
	m.Loading += 2
	return tea.Batch(
		LoadDetailCmd(m.svc.Library, m.DetailID),
		LoadCommentsCmd(m.svc.Comments, m.DetailID),
	)
}

func (m *Model) moveCursor(msg tea.KeyMsg) {
	page := max(m.listHeight(), 1)
	switch {
	case key.Matches(msg, Keys.Up):
		m.Cursor--
	case key.Matches(msg, Keys.Down):
		m.Cursor++
	case key.Matches(msg, Keys.PageUp):
		m.Cursor -= page
	case key.Matches(msg, Keys.PageDown):
		m.Cursor += page
	case key.Matches(msg, Keys.Home):
		m.Cursor = 0
	case key.Matches(msg, Keys.End):
		m.Cursor = len(m.Rows) - 1
	}
	m.clampCursor()
}

// refreshRows recomputes the listed rows from the store or the search index
func (m *Model) refreshRows() {
	if m.Query == "" {
		m.Matches = nil
		m.Rows = m.svc.Queries.Videos()
	} else {
		m.Matches = m.svc.Index.Index().Filter(m.Query)
		m.Rows = make([]domain.Video, len(m.Matches))
		for i, match := range m.Matches {
			m.Rows[i] = match.Video
		}
	}
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if m.Cursor >= len(m.Rows) {
		m.Cursor = len(m.Rows) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
}

func (m *Model) done() {
	if m.Loading > 0 {
		m.Loading--
	}
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.StatusMsg = msg
	m.StatusIsErr = isErr
}

func (m Model) listHeight() int {
	return m.Height - ChromeHeight
}
