package keys

import "github.com/charmbracelet/bubbles/key"

func newBinding(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// TerminalKeys are the keys of every command that shows port traffic
type TerminalKeys struct {
	Quit             key.Binding
	Help             key.Binding
	Clear            key.Binding
	ToggleHex        key.Binding
	ToggleASCII      key.Binding
	ToggleTimestamps key.Binding
	ToggleIndicators key.Binding
}

func NewTerminalKeys() TerminalKeys {
	return TerminalKeys{
		Quit:             newBinding("q/ctrl+c", "quit", "q", "Q", "ctrl+c"),
		Help:             newBinding("?", "toggle help", "?"),
		Clear:            newBinding("c", "clear buffer", "c"),
		ToggleHex:        newBinding("h", "toggle hex", "h"),
		ToggleASCII:      newBinding("a", "toggle ascii", "a"),
		ToggleTimestamps: newBinding("t", "toggle timestamps", "t"),
		ToggleIndicators: newBinding("x", "toggle rx/tx", "x"),
	}
}

func (k TerminalKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Clear, k.Quit}
}

func (k TerminalKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Clear, k.ToggleHex, k.ToggleASCII},
		{k.ToggleTimestamps, k.ToggleIndicators},
		{k.Help, k.Quit},
	}
}

// ListenKeys adds pausing the display to TerminalKeys
type ListenKeys struct {
	TerminalKeys
	Pause key.Binding
}

func NewListenKeys() ListenKeys {
	return ListenKeys{
		TerminalKeys: NewTerminalKeys(),
		Pause:        newBinding("space", "pause display", " ", "p"),
	}
}

func (k ListenKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Pause, k.Clear, k.Quit}
}

func (k ListenKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.Clear},
		{k.ToggleHex, k.ToggleASCII, k.ToggleTimestamps, k.ToggleIndicators},
		{k.Help, k.Quit},
	}
}
