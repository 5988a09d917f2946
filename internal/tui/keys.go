package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Next      key.Binding
	Prev      key.Binding
	Down      key.Binding
	Up        key.Binding
	Leave     key.Binding
	Activate  key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

var keys = keyMap{
	Next:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "다음")),
	Prev:      key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "이전")),
	Down:      key.NewBinding(key.WithKeys("down", "j")),
	Up:        key.NewBinding(key.WithKeys("up", "k")),
	Leave:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "입력 마침")),
	Activate:  key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "선택")),
	Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "종료")),
	ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
}

func (k keyMap) helpLine() string {
	var out string
	for i, b := range []key.Binding{k.Next, k.Prev, k.Activate, k.Leave, k.Quit} {
		if i > 0 {
			out += "  "
		}
		out += b.Help().Key + " " + b.Help().Desc
	}
	return out
}
