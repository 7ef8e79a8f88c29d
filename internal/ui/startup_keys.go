package ui

import (
	"strings"

	tea "charm.land/bubbletea/v2"
)

// ApplyStartupKeys feeds keypresses to m before the program starts, as if
// typed. Tokens in angle brackets name keys ("<CR>", "<Esc>", "<F1>"); other
// text is typed literally, and a leading backslash forces the whole token to
// be literal. Commands returned by Update are discarded.
func ApplyStartupKeys(m *Model, keys []string) {
	if len(keys) == 0 || m == nil {
		return
	}
	for _, raw := range keys {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}
		if strings.HasPrefix(token, `\`) {
			typeText(m, strings.TrimPrefix(token, `\`))
			continue
		}
		for _, segment := range parseTokenSegments(token) {
			if !segment.isVimKey {
				typeText(m, segment.text)
				continue
			}
			msgs, ok := keyMsgsFromToken(segment.text)
			if !ok {
				typeText(m, segment.text)
				continue
			}
			for _, msg := range msgs {
				m.Update(msg)
			}
		}
	}
}

// DeferStartupKeys queues keys until the first snapshot has been rendered,
// so navigation and toggle keys have rows to act on. Keys are applied once.
func (m *Model) DeferStartupKeys(keys []string) {
	m.pendingKeys = append(m.pendingKeys, keys...)
}

func typeText(m *Model, text string) {
	for _, r := range text {
		m.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
}

// tokenSegment represents a parsed segment of a token (either a vim-style key or literal text)
type tokenSegment struct {
	text     string
	isVimKey bool
}

// parseTokenSegments splits a token into segments of vim-style keys and literal text.
// Example: "<F1>rwo" -> [segment{text: "<F1>", isVimKey: true}, segment{text: "rwo", isVimKey: false}]
func parseTokenSegments(token string) []tokenSegment {
	var segments []tokenSegment
	remaining := token

	for len(remaining) > 0 {
		// Look for vim-style key pattern: <...>
		startIdx := strings.Index(remaining, "<")
		if startIdx == -1 {
			// No more vim-style keys, rest is literal text
			if len(remaining) > 0 {
				segments = append(segments, tokenSegment{text: remaining, isVimKey: false})
			}
			break
		}

		// Add any literal text before the vim-style key
		if startIdx > 0 {
			segments = append(segments, tokenSegment{text: remaining[:startIdx], isVimKey: false})
		}

		// Find the closing >
		endIdx := strings.Index(remaining[startIdx:], ">")
		if endIdx == -1 {
			// No closing >, treat rest as literal text
			segments = append(segments, tokenSegment{text: remaining, isVimKey: false})
			break
		}

		// Extract the vim-style key (including < and >)
		vimKey := remaining[startIdx : startIdx+endIdx+1]
		segments = append(segments, tokenSegment{text: vimKey, isVimKey: true})

		// Continue with the rest of the token
		remaining = remaining[startIdx+endIdx+1:]
	}

	return segments
}

// keyMsgsFromToken parses a Vim-like token into key messages.
// Examples: "<Esc>", "<CR>", "<Tab>", "<Space>", "<BS>", "<C-c>", "<C-[>", "<F3>".
// Only <...> forms are treated as keys; everything else is literal text.
func keyMsgsFromToken(token string) ([]tea.KeyPressMsg, bool) {
	if token == "" {
		return nil, false
	}
	if strings.HasPrefix(token, "<") && strings.HasSuffix(token, ">") {
		inner := strings.TrimSuffix(strings.TrimPrefix(token, "<"), ">")
		lower := strings.ToLower(inner)
		switch lower {
		case "esc", "c-[", "escape":
			return []tea.KeyPressMsg{{Code: tea.KeyEscape}}, true
		case "cr", "enter", "return":
			return []tea.KeyPressMsg{{Code: tea.KeyEnter}}, true
		case "tab":
			return []tea.KeyPressMsg{{Code: tea.KeyTab}}, true
		case "space":
			return []tea.KeyPressMsg{{Code: ' ', Text: " "}}, true
		case "bs", "backspace":
			return []tea.KeyPressMsg{{Code: tea.KeyBackspace}}, true
		case "left":
			return []tea.KeyPressMsg{{Code: tea.KeyLeft}}, true
		case "right":
			return []tea.KeyPressMsg{{Code: tea.KeyRight}}, true
		case "up":
			return []tea.KeyPressMsg{{Code: tea.KeyUp}}, true
		case "down":
			return []tea.KeyPressMsg{{Code: tea.KeyDown}}, true
		case "home":
			return []tea.KeyPressMsg{{Code: tea.KeyHome}}, true
		case "end":
			return []tea.KeyPressMsg{{Code: tea.KeyEnd}}, true
		case "pgup", "pageup":
			return []tea.KeyPressMsg{{Code: tea.KeyPgUp}}, true
		case "pgdn", "pgdown", "pagedown":
			return []tea.KeyPressMsg{{Code: tea.KeyPgDown}}, true
		case "c-c":
			return []tea.KeyPressMsg{{Code: 'c', Mod: tea.ModCtrl}}, true
		case "c-d":
			return []tea.KeyPressMsg{{Code: 'd', Mod: tea.ModCtrl}}, true
		case "c-u":
			return []tea.KeyPressMsg{{Code: 'u', Mod: tea.ModCtrl}}, true
		}
		if strings.HasPrefix(lower, "f") {
			num := strings.TrimPrefix(lower, "f")
			switch num {
			case "1":
				return []tea.KeyPressMsg{{Code: tea.KeyF1}}, true
			case "2":
				return []tea.KeyPressMsg{{Code: tea.KeyF2}}, true
			case "3":
				return []tea.KeyPressMsg{{Code: tea.KeyF3}}, true
			case "4":
				return []tea.KeyPressMsg{{Code: tea.KeyF4}}, true
			case "5":
				return []tea.KeyPressMsg{{Code: tea.KeyF5}}, true
			case "6":
				return []tea.KeyPressMsg{{Code: tea.KeyF6}}, true
			case "7":
				return []tea.KeyPressMsg{{Code: tea.KeyF7}}, true
			case "8":
				return []tea.KeyPressMsg{{Code: tea.KeyF8}}, true
			case "9":
				return []tea.KeyPressMsg{{Code: tea.KeyF9}}, true
			case "10":
				return []tea.KeyPressMsg{{Code: tea.KeyF10}}, true
			case "11":
				return []tea.KeyPressMsg{{Code: tea.KeyF11}}, true
			case "12":
				return []tea.KeyPressMsg{{Code: tea.KeyF12}}, true
			}
		}
		return nil, false
	}
	return nil, false
}
