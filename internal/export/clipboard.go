package export

import (
	"errors"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnsupported is returned when no clipboard utility is present.
var ErrClipboardUnsupported = errors.New("clipboard not available on this system")

var writeClipboard = func(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnsupported
	}
	return clipboard.WriteAll(text)
}

// Clipboard places text on the system clipboard.
func Clipboard(text string) error {
	return writeClipboard(text)
}
