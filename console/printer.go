// Package console печатает ленту модерации в терминал.
package console

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"

	"twitch-chat-guard/model"
)

var (
	spamStyle   = color.New(color.FgRed, color.Bold)
	reasonStyle = color.New(color.FgYellow)
	statusStyle = color.New(color.FgCyan)
	actionStyle = color.New(color.FgMagenta, color.Bold)
	failStyle   = color.New(color.FgRed)
)

// Printer выводит сообщения, статусы и действия. Безопасен для конкурентного использования.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter создаёт Printer поверх w (обычно os.Stdout).
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintMessage печатает сообщение; спам выделяется вместе с причинами.
func (p *Printer) PrintMessage(ev model.ChatEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := userStyle(ev.Color).Sprint(ev.DisplayName)
	if !ev.Classification.IsSpam {
		fmt.Fprintf(p.w, "[#%s] %s: %s\n", ev.Channel, name, ev.Text)
		return
	}

	spamStyle.Fprintf(p.w, "[#%s] SPAM %d ", ev.Channel, ev.Classification.Score)
	fmt.Fprintf(p.w, "%s: %s\n", name, ev.Text)
	if len(ev.Classification.Reasons) > 0 {
		reasonStyle.Fprintf(p.w, "    %s\n", strings.Join(ev.Classification.Reasons, "; "))
	}
}

// PrintStatus печатает смену состояния соединения.
func (p *Printer) PrintStatus(channel string, s model.ConnectionStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()

	statusStyle.Fprintf(p.w, "[#%s] status: %s\n", channel, s)
}

// PrintAction печатает выполненную или потерянную команду модерации.
func (p *Printer) PrintAction(a model.ModerationAction, sent bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !sent {
		failStyle.Fprintf(p.w, "[#%s] %s %s not sent: connection is not open\n", a.Channel, a.Type, a.Username)
		return
	}
	actionStyle.Fprintf(p.w, "[#%s] %s %s (%s)\n", a.Channel, a.Type, a.Username, a.Reason)
}

// userStyle переводит цвет Twitch (#RRGGBB) в цвет терминала.
func userStyle(hex string) *color.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return color.New(color.FgWhite, color.Bold)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.New(color.FgWhite, color.Bold)
	}
	return color.RGB(int(v>>16&0xff), int(v>>8&0xff), int(v&0xff)).Add(color.Bold)
}
