package ui

// Action is what a key does in the tree view.
type Action string

const (
	ActionNone        Action = ""
	ActionDown        Action = "down"
	ActionUp          Action = "up"
	ActionPageDown    Action = "page_down"
	ActionPageUp      Action = "page_up"
	ActionTop         Action = "top"
	ActionBottom      Action = "bottom"
	ActionToggle      Action = "toggle"
	ActionCollapse    Action = "collapse"
	ActionExpand      Action = "expand"
	ActionToggleAll   Action = "toggle_all"
	ActionSearch      Action = "search"
	ActionNextMatch   Action = "next_match"
	ActionPrevMatch   Action = "prev_match"
	ActionClearSearch Action = "clear_search"
	ActionInterval    Action = "interval"
	ActionCopy        Action = "copy"
	ActionCopyAll     Action = "copy_all"
	ActionRefresh     Action = "refresh"
	ActionHelp        Action = "help"
	ActionQuit        Action = "quit"
)

// KeyBindings maps tea key strings to actions.
var KeyBindings = map[string]Action{
	"j":        ActionDown,
	"down":     ActionDown,
	"k":        ActionUp,
	"up":       ActionUp,
	"pgdown":   ActionPageDown,
	"ctrl+d":   ActionPageDown,
	"pgup":     ActionPageUp,
	"ctrl+u":   ActionPageUp,
	"g":        ActionTop,
	"home":     ActionTop,
	"G":        ActionBottom,
	"end":      ActionBottom,
	"space":    ActionToggle,
	" ":        ActionToggle,
	"enter":    ActionToggle,
	"h":        ActionCollapse,
	"left":     ActionCollapse,
	"l":        ActionExpand,
	"right":    ActionExpand,
	"a":        ActionToggleAll,
	"/":        ActionSearch,
	"f3":       ActionSearch,
	"n":        ActionNextMatch,
	"N":        ActionPrevMatch,
	"esc":      ActionClearSearch,
	"i":        ActionInterval,
	"y":        ActionCopy,
	"Y":        ActionCopyAll,
	"r":        ActionRefresh,
	"f5":       ActionRefresh,
	"?":        ActionHelp,
	"f1":       ActionHelp,
	"q":        ActionQuit,
	"ctrl+c":   ActionQuit,
	"shift+y":  ActionCopyAll,
	"shift+n":  ActionPrevMatch,
	"shift+g":  ActionBottom,
	"ctrl+end": ActionBottom,
}

// ActionFor returns the action bound to key.
func ActionFor(key string) Action {
	return KeyBindings[key]
}

// helpRows lists the bindings shown in the help overlay.
var helpRows = [][2]string{
	{"j/k ↑/↓", "move selection"},
	{"pgup/pgdn", "page up/down"},
	{"g/G", "top/bottom"},
	{"space/enter", "expand or collapse branch"},
	{"h/l ←/→", "collapse/expand, or go to parent"},
	{"a", "expand or collapse everything"},
	{"/", "search labels (case-insensitive)"},
	{"n/N", "next/previous match"},
	{"esc", "clear search"},
	{"i", "set refresh interval (seconds)"},
	{"y", "copy selected subtree"},
	{"Y", "copy whole snapshot"},
	{"r", "refresh now"},
	{"?/f1", "toggle help"},
	{"q", "quit"},
}
