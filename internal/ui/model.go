// Package ui is the interactive terminal view of an inspection session.
package ui

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/kvwatch/internal/export"
	"github.com/oakwood-commons/kvwatch/internal/inspector"
	"github.com/oakwood-commons/kvwatch/internal/snapshot"
	"github.com/oakwood-commons/kvwatch/internal/tree"
)

var ansiRegexp = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// Mode is the input mode of the model.
type Mode int

const (
	ModeTree Mode = iota
	ModeSearch
	ModeInterval
)

// NoticeDuration is how long the "Copied!" notice stays up.
const NoticeDuration = 2 * time.Second

// Refresher is the part of the refresh controller the UI drives.
type Refresher interface {
	SetInterval(d time.Duration) error
	Interval() time.Duration
	Trigger()
}

// SnapshotMsg delivers a fetched snapshot to Update.
type SnapshotMsg struct {
	Value snapshot.Value
	At    time.Time
}

// FetchErrorMsg delivers a failed fetch to Update.
type FetchErrorMsg struct {
	Err error
}

type clearStatusMsg struct{ id int }

// Model is the Bubble Tea model of the inspector.
type Model struct {
	Session   *inspector.Session
	Refresher Refresher
	Styles    Styles

	AppName   string
	Character string

	Width  int
	Height int
	Cursor int
	Offset int
	Mode   Mode

	SearchInput   textinput.Model
	IntervalInput textinput.Model
	Help          HelpModel
	Status        StatusModel

	FetchErr    error
	ShapeErr    error
	LastUpdated time.Time

	// Copy writes text to the clipboard.
	Copy func(string) error

	lines       []tree.Line
	pendingKeys []string
}

// NewModel returns a model over session. refresher may be nil for a static
// snapshot.
func NewModel(session *inspector.Session, refresher Refresher, styles Styles) *Model {
	si := textinput.New()
	si.Prompt = ""
	si.Placeholder = "search keys and values"
	si.SetWidth(40)

	ii := textinput.New()
	ii.Prompt = ""
	ii.Placeholder = "seconds"
	ii.CharLimit = 6
	ii.SetWidth(8)

	m := &Model{
		Session:       session,
		Refresher:     refresher,
		Styles:        styles,
		SearchInput:   si,
		IntervalInput: ii,
		Help:          NewHelpModel("kvwatch"),
		Copy:          export.Clipboard,
	}
	m.syncLines("")
	return m
}

// Init starts the cursor blink.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Lines returns the visible rows.
func (m *Model) Lines() []tree.Line { return m.lines }

// SelectedPath returns the path of the selected row, or "".
func (m *Model) SelectedPath() string {
	if m.Cursor < 0 || m.Cursor >= len(m.lines) {
		return ""
	}
	return m.lines[m.Cursor].Node.Path
}

// Update handles one message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Help.Width = msg.Width
		m.SearchInput.SetWidth(max(10, msg.Width-20))
		m.clampScroll()
		return m, nil

	case SnapshotMsg:
		m.applySnapshot(msg)
		if len(m.pendingKeys) > 0 && m.ShapeErr == nil {
			keys := m.pendingKeys
			m.pendingKeys = nil
			ApplyStartupKeys(m, keys)
		}
		return m, nil

	case FetchErrorMsg:
		m.FetchErr = msg.Err
		return m, nil

	case clearStatusMsg:
		m.Status.Clear(msg.id)
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	switch m.Mode {
	case ModeSearch:
		m.SearchInput, cmd = m.SearchInput.Update(msg)
	case ModeInterval:
		m.IntervalInput, cmd = m.IntervalInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) applySnapshot(msg SnapshotMsg) {
	selected := m.SelectedPath()
	if err := m.Session.Rebuild(msg.Value); err != nil {
		m.ShapeErr = err
		return
	}
	m.ShapeErr = nil
	m.FetchErr = nil
	m.LastUpdated = msg.At
	if m.LastUpdated.IsZero() {
		m.LastUpdated = time.Now()
	}
	m.syncLines(selected)
	if m.SelectedPath() != selected {
		if cur, ok := m.Session.CurrentMatch(); ok {
			m.selectPath(cur)
		}
	}
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.Help.Visible {
		switch key {
		case "?", "f1", "esc", "q":
			m.Help.Visible = false
			return m, nil
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	switch m.Mode {
	case ModeSearch:
		return m.handleSearchKey(msg)
	case ModeInterval:
		return m.handleIntervalKey(msg)
	}

	switch ActionFor(key) {
	case ActionQuit:
		return m, tea.Quit
	case ActionDown:
		m.moveCursor(1)
	case ActionUp:
		m.moveCursor(-1)
	case ActionPageDown:
		m.moveCursor(m.treeHeight())
	case ActionPageUp:
		m.moveCursor(-m.treeHeight())
	case ActionTop:
		m.Cursor = 0
		m.clampScroll()
	case ActionBottom:
		m.Cursor = len(m.lines) - 1
		m.clampScroll()
	case ActionToggle:
		m.toggleSelected()
	case ActionCollapse:
		m.collapseOrParent()
	case ActionExpand:
		m.expandSelected()
	case ActionToggleAll:
		selected := m.SelectedPath()
		m.Session.ToggleAll()
		m.syncLines(nearestVisible(m.Session, selected))
	case ActionSearch:
		m.Mode = ModeSearch
		m.SearchInput.SetValue(m.Session.SearchTerm())
		m.SearchInput.CursorEnd()
		return m, m.SearchInput.Focus()
	case ActionNextMatch:
		if path, ok := m.Session.NextMatch(); ok {
			m.syncLines(path)
		}
	case ActionPrevMatch:
		if path, ok := m.Session.PreviousMatch(); ok {
			m.syncLines(path)
		}
	case ActionClearSearch:
		m.clearSearch()
	case ActionInterval:
		if m.Refresher == nil {
			return m, m.notify("static snapshot: no refresh interval", StatusInfo)
		}
		m.Mode = ModeInterval
		m.IntervalInput.SetValue(strconv.Itoa(int(m.Refresher.Interval() / time.Second)))
		m.IntervalInput.CursorEnd()
		return m, m.IntervalInput.Focus()
	case ActionCopy:
		return m, m.copySelected()
	case ActionCopyAll:
		return m, m.copyAll()
	case ActionRefresh:
		if m.Refresher != nil {
			m.Refresher.Trigger()
		}
	case ActionHelp:
		m.Help.Visible = true
	}
	return m, nil
}

func (m *Model) handleSearchKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.Mode = ModeTree
		m.SearchInput.Blur()
		return m, nil
	case "esc":
		m.Mode = ModeTree
		m.SearchInput.Blur()
		m.clearSearch()
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	before := m.SearchInput.Value()
	m.SearchInput, cmd = m.SearchInput.Update(msg)
	if term := m.SearchInput.Value(); term != before {
		m.Session.Search(term)
		if cur, ok := m.Session.CurrentMatch(); ok {
			m.syncLines(cur)
		} else {
			m.syncLines(m.SelectedPath())
		}
	}
	return m, cmd
}

func (m *Model) handleIntervalKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.Mode = ModeTree
		m.IntervalInput.Blur()
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	case "enter":
		m.Mode = ModeTree
		m.IntervalInput.Blur()
		d, err := ParseIntervalSeconds(m.IntervalInput.Value())
		if err != nil {
			return m, m.notify(err.Error(), StatusError)
		}
		if err := m.Refresher.SetInterval(d); err != nil {
			return m, m.notify(err.Error(), StatusError)
		}
		return m, m.notify(fmt.Sprintf("refresh every %s", d), StatusSuccess)
	}
	var cmd tea.Cmd
	m.IntervalInput, cmd = m.IntervalInput.Update(msg)
	return m, cmd
}

// ErrIntervalInput is returned for interval input that is not a positive
// whole number of seconds.
var ErrIntervalInput = errors.New("interval must be a positive whole number of seconds")

// ParseIntervalSeconds converts the interval field to a duration.
func ParseIntervalSeconds(s string) (time.Duration, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrIntervalInput, s)
	}
	return time.Duration(n) * time.Second, nil
}

func (m *Model) clearSearch() {
	m.SearchInput.SetValue("")
	m.Session.ClearSearch()
	m.syncLines(m.SelectedPath())
}

func (m *Model) toggleSelected() {
	if m.Cursor < 0 || m.Cursor >= len(m.lines) {
		return
	}
	l := m.lines[m.Cursor]
	if l.Notice || l.Node.IsLeaf() {
		return
	}
	m.Session.Toggle(l.Node.Path)
	m.syncLines(l.Node.Path)
}

func (m *Model) expandSelected() {
	if m.Cursor < 0 || m.Cursor >= len(m.lines) {
		return
	}
	l := m.lines[m.Cursor]
	if l.Notice || l.Node.IsLeaf() || l.Node.Expanded {
		return
	}
	m.Session.Toggle(l.Node.Path)
	m.syncLines(l.Node.Path)
}

// collapseOrParent collapses an open branch, otherwise selects the parent.
func (m *Model) collapseOrParent() {
	if m.Cursor < 0 || m.Cursor >= len(m.lines) {
		return
	}
	l := m.lines[m.Cursor]
	if !l.Notice && !l.Node.IsLeaf() && l.Node.Expanded {
		m.Session.Toggle(l.Node.Path)
		m.syncLines(l.Node.Path)
		return
	}
	target := l.Node
	if !l.Notice {
		target = l.Node.Parent
	}
	if target != nil && !target.IsRoot() {
		m.selectPath(target.Path)
	}
}

func (m *Model) copySelected() tea.Cmd {
	path := m.SelectedPath()
	if path == "" {
		return m.notify("nothing selected", StatusError)
	}
	text, err := m.Session.ExportPath(path)
	if err != nil {
		return m.notify(fmt.Sprintf("copy %s: %v", path, err), StatusError)
	}
	return m.copyText(text)
}

func (m *Model) copyAll() tea.Cmd {
	text, err := m.Session.ExportAll()
	if err != nil {
		return m.notify(fmt.Sprintf("copy: %v", err), StatusError)
	}
	return m.copyText(text)
}

func (m *Model) copyText(text string) tea.Cmd {
	if err := m.Copy(text); err != nil {
		return m.notify(fmt.Sprintf("copy: %v", err), StatusError)
	}
	return m.notify("Copied!", StatusSuccess)
}

// notify shows text and schedules its removal.
func (m *Model) notify(text string, kind StatusKind) tea.Cmd {
	id := m.Status.Set(text, kind)
	return tea.Tick(NoticeDuration, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}

// syncLines reloads the visible rows and selects prefer when it is visible.
// Otherwise the cursor keeps its index, clamped to the new rows.
func (m *Model) syncLines(prefer string) {
	m.lines = m.Session.Visible()
	if prefer != "" {
		if i := tree.LineIndex(m.lines, prefer); i >= 0 {
			m.Cursor = i
		}
	}
	m.clampScroll()
}

func (m *Model) selectPath(path string) {
	if i := tree.LineIndex(m.lines, path); i >= 0 {
		m.Cursor = i
		m.clampScroll()
	}
}

// nearestVisible returns path or its closest ancestor that is still shown.
func nearestVisible(s *inspector.Session, path string) string {
	lines := s.Visible()
	for n := tree.Find(s.Root(), path); n != nil && !n.IsRoot(); n = n.Parent {
		if tree.LineIndex(lines, n.Path) >= 0 {
			return n.Path
		}
	}
	return ""
}

func (m *Model) moveCursor(delta int) {
	m.Cursor += delta
	m.clampScroll()
}

func (m *Model) clampScroll() {
	if m.Cursor >= len(m.lines) {
		m.Cursor = len(m.lines) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	h := m.treeHeight()
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+h {
		m.Offset = m.Cursor - h + 1
	}
	if maxOffset := len(m.lines) - h; m.Offset > maxOffset {
		m.Offset = max(0, maxOffset)
	}
}

// chromeRows counts the header, search bar, status and footer lines.
const chromeRows = 4

func (m *Model) treeHeight() int {
	if m.Height <= 0 {
		return max(1, len(m.lines))
	}
	return max(1, m.Height-chromeRows)
}

// View renders the model on the alternate screen.
func (m *Model) View() tea.View {
	v := tea.NewView(m.Render())
	v.AltScreen = true
	return v
}

// Render draws the full screen as text.
func (m *Model) Render() string {
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.searchView())
	b.WriteString("\n")
	if m.Help.Visible {
		b.WriteString(m.Help.View(m.Styles))
	} else {
		b.WriteString(m.treeView())
	}
	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(m.footerView())
	return b.String()
}

func (m *Model) headerView() string {
	title := m.AppName
	if title == "" {
		title = "kvwatch"
	}
	who := m.Character
	if name, ok := m.Session.SupervisorName(); ok {
		who = name
	}
	parts := []string{title}
	if who != "" {
		parts = append(parts, "Supervisor: "+who)
	}
	if m.Refresher != nil {
		if m.Mode == ModeInterval {
			parts = append(parts, "Interval: "+m.IntervalInput.View()+"s")
		} else {
			parts = append(parts, "Interval: "+m.Refresher.Interval().String())
		}
	}
	if !m.LastUpdated.IsZero() {
		parts = append(parts, "Updated: "+m.LastUpdated.Format("15:04:05"))
	}
	return m.Styles.Header.Render(m.fit(strings.Join(parts, "  |  ")))
}

func (m *Model) searchView() string {
	counter := m.Session.MatchCounter()
	if m.Mode == ModeSearch {
		return "/" + m.SearchInput.View() + "  " + m.Styles.Status.Render(counter)
	}
	if term := m.Session.SearchTerm(); term != "" {
		return m.Styles.Status.Render(m.fit("/" + term + "  " + counter))
	}
	return m.Styles.Status.Render("/ to search")
}

func (m *Model) treeView() string {
	if m.ShapeErr != nil {
		return m.Styles.Error.Render(m.fit("Invalid data structure: " + m.ShapeErr.Error()))
	}
	if !m.Session.Loaded() {
		return m.Styles.Status.Render("waiting for data...")
	}
	if len(m.lines) == 0 {
		return m.Styles.Status.Render("(empty)")
	}
	current, _ := m.Session.CurrentMatch()
	end := min(len(m.lines), m.Offset+m.treeHeight())
	rows := make([]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		rows = append(rows, m.renderLine(m.lines[i], i == m.Cursor, current))
	}
	return strings.Join(rows, "\n")
}

func (m *Model) renderLine(l tree.Line, selected bool, current string) string {
	indent := strings.Repeat("  ", l.Depth)
	if l.Notice {
		return indent + "  " + m.Styles.Notice.Render(m.fitRest(l.Text(), indent))
	}
	n := l.Node
	prefix := indent
	if g := tree.Glyph(n); g != "" {
		prefix += m.Styles.Glyph.Render(g) + " "
	} else {
		prefix += "  "
	}
	label := m.fitRest(n.Label, indent+"  ")

	var body string
	switch {
	case n.Path == current:
		body = m.Styles.CurrentMatch.Render(label)
	case m.Session.IsMatch(n.Path):
		body = m.Styles.Match.Render(label)
	case n.IsLeaf() && strings.HasPrefix(label, n.Key+": "):
		body = m.Styles.Key.Render(n.Key+":") + " " + m.Styles.Value.Render(label[len(n.Key)+2:])
	default:
		body = m.Styles.Key.Render(label)
	}
	if selected {
		body = m.Styles.Selected.Render(ansiRegexp.ReplaceAllString(body, ""))
	}
	return prefix + body
}

func (m *Model) statusView() string {
	if m.Status.Text != "" {
		return m.Status.View(m.Styles, m.Width)
	}
	if m.FetchErr != nil {
		return m.Styles.Error.Render(m.fit("fetch failed: " + m.FetchErr.Error()))
	}
	if m.Mode == ModeInterval {
		return m.Styles.Status.Render("enter seconds, enter to apply, esc to cancel")
	}
	if p := m.SelectedPath(); p != "" {
		return m.Styles.Status.Render(m.fit(p))
	}
	return ""
}

func (m *Model) footerView() string {
	hints := fmt.Sprintf("space toggle  a %s  / search  n/N match  i interval  y/Y copy  r refresh  ? help  q quit",
		m.Session.ToggleAllLabel())
	return m.Styles.Status.Render(m.fit(hints))
}

func (m *Model) fit(s string) string {
	if m.Width <= 0 {
		return s
	}
	return runewidth.Truncate(s, m.Width, "...")
}

func (m *Model) fitRest(s, used string) string {
	if m.Width <= 0 {
		return s
	}
	room := m.Width - runewidth.StringWidth(used)
	if room < 4 {
		room = 4
	}
	return runewidth.Truncate(s, room, "...")
}
