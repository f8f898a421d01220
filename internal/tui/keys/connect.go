package keys

import "github.com/charmbracelet/bubbles/key"

// ConnectKeys adds the input line and the history table to TerminalKeys.
// The arrow keys recall sent lines while typing and move the table cursor in
// visual mode.
type ConnectKeys struct {
	TerminalKeys
	InsertMode     key.Binding
	Escape         key.Binding
	Send           key.Binding
	ToggleSendMode key.Binding
	HistoryPrev    key.Binding
	HistoryNext    key.Binding
	VisualMode     key.Binding
	GotoTop        key.Binding
	GotoBottom     key.Binding
	RowUp          key.Binding
	RowDown        key.Binding

	insert bool
}

func NewConnectKeys() ConnectKeys {
	return ConnectKeys{
		TerminalKeys:   NewTerminalKeys(),
		InsertMode:     newBinding("i", "insert mode", "i", "I"),
		Escape:         newBinding("esc", "normal mode", "esc"),
		Send:           newBinding("enter", "send line", "enter", "ctrl+s"),
		ToggleSendMode: newBinding("tab", "ascii/hex", "tab"),
		HistoryPrev:    newBinding("↑", "previous line", "up"),
		HistoryNext:    newBinding("↓", "next line", "down"),
		VisualMode:     newBinding("v", "visual mode", "v"),
		GotoTop:        newBinding("g", "first row", "g"),
		GotoBottom:     newBinding("G", "last row", "G"),
		RowUp:          newBinding("↑/k", "up", "up", "k"),
		RowDown:        newBinding("↓/j", "down", "down", "j"),
	}
}

// ForMode returns the key map whose help matches the input mode
func (k ConnectKeys) ForMode(insert bool) ConnectKeys {
	k.insert = insert
	return k
}

func (k ConnectKeys) ShortHelp() []key.Binding {
	if k.insert {
		return []key.Binding{k.Send, k.ToggleSendMode, k.HistoryPrev, k.Escape}
	}
	return []key.Binding{k.Help, k.InsertMode, k.VisualMode, k.Quit}
}

func (k ConnectKeys) FullHelp() [][]key.Binding {
	if k.insert {
		return [][]key.Binding{
			{k.Send, k.ToggleSendMode},
			{k.HistoryPrev, k.HistoryNext},
			{k.Escape},
		}
	}
	return [][]key.Binding{
		{k.InsertMode, k.VisualMode, k.Clear},
		{k.ToggleHex, k.ToggleASCII, k.ToggleTimestamps, k.ToggleIndicators},
		{k.GotoTop, k.GotoBottom, k.RowUp, k.RowDown},
		{k.Help, k.Quit},
	}
}
