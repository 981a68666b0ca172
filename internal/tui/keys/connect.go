package keys

import "github.com/charmbracelet/bubbles/key"

// ConnectKeys are the bindings of the connect terminal. Insert mode only
// uses Escape, Enter, Up, Down and ToggleSendMode; everything else applies
// in normal mode.
type ConnectKeys struct {
	// Modes
	Quit       key.Binding
	Help       key.Binding
	InsertMode key.Binding
	Escape     key.Binding

	// Sending
	Enter          key.Binding
	ToggleSendMode key.Binding

	// Received data display
	Clear       key.Binding
	ToggleHex   key.Binding
	ToggleASCII key.Binding
	Up          key.Binding
	Down        key.Binding
	GotoTop     key.Binding
	GotoBottom  key.Binding

	// Port control
	Connect       key.Binding
	ToggleRx      key.Binding
	CycleBaud     key.Binding
	CycleDataBits key.Binding
	CycleParity   key.Binding
	CycleStopBits key.Binding
}

func binding(keys []string, helpKey, desc string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(helpKey, desc))
}

func NewConnectKeys() ConnectKeys {
	return ConnectKeys{
		Quit:       binding([]string{"q", "Q", "ctrl+c"}, "q/ctrl+c", "quit"),
		Help:       binding([]string{"?"}, "?", "toggle help"),
		InsertMode: binding([]string{"i", "I"}, "i", "insert mode"),
		Escape:     binding([]string{"esc"}, "esc", "normal mode"),

		Enter:          binding([]string{"enter"}, "enter", "send line"),
		ToggleSendMode: binding([]string{"tab"}, "tab", "text/hex input"),

		Clear:       binding([]string{"c"}, "c", "clear received"),
		ToggleHex:   binding([]string{"h"}, "h", "hex column"),
		ToggleASCII: binding([]string{"a"}, "a", "text column"),
		Up:          binding([]string{"up", "k"}, "↑/k", "scroll up"),
		Down:        binding([]string{"down", "j"}, "↓/j", "scroll down"),
		GotoTop:     binding([]string{"g"}, "g", "oldest"),
		GotoBottom:  binding([]string{"G"}, "G", "newest"),

		Connect:       binding([]string{"s"}, "s", "open/close port"),
		ToggleRx:      binding([]string{"r"}, "r", "receive on/off"),
		CycleBaud:     binding([]string{"b"}, "b", "next baud rate"),
		CycleDataBits: binding([]string{"d"}, "d", "next data bits"),
		CycleParity:   binding([]string{"p"}, "p", "next parity"),
		CycleStopBits: binding([]string{"t"}, "t", "next stop bits"),
	}
}

// LockSettings disables the settings keys while a port is open
func (k *ConnectKeys) LockSettings(locked bool) {
	for _, b := range k.settingsKeys() {
		b.SetEnabled(!locked)
	}
}

func (k *ConnectKeys) settingsKeys() []*key.Binding {
	return []*key.Binding{&k.CycleBaud, &k.CycleDataBits, &k.CycleParity, &k.CycleStopBits}
}

func (k ConnectKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.InsertMode, k.Connect, k.ToggleRx, k.Quit}
}

func (k ConnectKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.InsertMode, k.Escape, k.Enter, k.ToggleSendMode},
		{k.Connect, k.ToggleRx, k.Clear, k.ToggleHex, k.ToggleASCII},
		{k.CycleBaud, k.CycleDataBits, k.CycleParity, k.CycleStopBits},
		{k.GotoTop, k.GotoBottom, k.Up, k.Down},
		{k.Help, k.Quit},
	}
}
