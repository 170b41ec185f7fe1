package irc

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Message — результат разбора одной строки протокола.
// Конкретные типы: Ping, JoinConfirmed, Utterance, Notice, Reconnect, Unrecognized.
type Message interface {
	isMessage()
}

// Ping — keep-alive от сервера, на который нужно ответить PONG.
type Ping struct {
	Server string
}

// JoinConfirmed — сервер подтвердил вход в канал (366 или эхо JOIN).
type JoinConfirmed struct {
	Channel string
}

// Utterance — сообщение пользователя в чате (PRIVMSG).
type Utterance struct {
	ID          string
	Channel     string
	UserID      string
	Username    string
	DisplayName string
	Color       string
	Text        string
	Badges      map[string]string
	Tags        map[string]string
	SentAt      time.Time
}

// Notice — служебное уведомление канала.
type Notice struct {
	Channel string
	MsgID   string
	Text    string
}

// Reconnect — сервер просит переподключиться.
type Reconnect struct{}

// Unrecognized — строка, которую не нужно обрабатывать, в том числе битый PRIVMSG.
type Unrecognized struct {
	Raw string
}

func (Ping) isMessage()          {}
func (JoinConfirmed) isMessage() {}
func (Utterance) isMessage()     {}
func (Notice) isMessage()        {}
func (Reconnect) isMessage()     {}
func (Unrecognized) isMessage()  {}

// Parser разбирает строки протокола. Счётчик синтетических id
// принадлежит экземпляру, поэтому на каждую сессию заводится свой Parser.
type Parser struct {
	seq atomic.Uint64
	now func() time.Time
}

// NewParser создаёт парсер с системными часами.
func NewParser() *Parser {
	return &Parser{now: time.Now}
}

// Parse классифицирует строку и извлекает поля сообщения чата.
func (p *Parser) Parse(line string) Message {
	raw, ok := splitLine(line)
	if !ok {
		return Unrecognized{Raw: line}
	}

	switch raw.command {
	case "PING":
		return Ping{Server: trailing(raw.params)}
	case "366":
		// <nick> #<channel> :End of /NAMES list
		fields := strings.Fields(raw.params)
		if len(fields) < 2 {
			return Unrecognized{Raw: line}
		}
		return JoinConfirmed{Channel: normalizeChannel(fields[1])}
	case "JOIN":
		return JoinConfirmed{Channel: normalizeChannel(trailing(raw.params))}
	case "PRIVMSG":
		return p.utterance(raw, line)
	case "NOTICE":
		channel, text, _ := strings.Cut(raw.params, " ")
		tags := parseTags(raw.tags)
		return Notice{
			Channel: normalizeChannel(channel),
			MsgID:   tags["msg-id"],
			Text:    strings.TrimPrefix(text, ":"),
		}
	case "RECONNECT":
		return Reconnect{}
	default:
		return Unrecognized{Raw: line}
	}
}

func (p *Parser) utterance(raw rawLine, line string) Message {
	nick, _, found := strings.Cut(raw.prefix, "!")
	if !found || nick == "" {
		return Unrecognized{Raw: line}
	}

	channel, body, found := strings.Cut(raw.params, " ")
	if !found || !strings.HasPrefix(channel, "#") {
		return Unrecognized{Raw: line}
	}
	body = strings.TrimPrefix(body, ":")
	if body == "" {
		return Unrecognized{Raw: line}
	}

	tags := parseTags(raw.tags)
	username := strings.ToLower(nick)

	id := tags["id"]
	if id == "" {
		id = p.syntheticID()
	}

	displayName := tags["display-name"]
	if displayName == "" {
		displayName = username
	}

	color := tags["color"]
	if color == "" {
		color = ColorFor(username)
	}

	return Utterance{
		ID:          id,
		Channel:     normalizeChannel(channel),
		UserID:      tags["user-id"],
		Username:    username,
		DisplayName: displayName,
		Color:       color,
		Text:        body,
		Badges:      parseBadges(tags["badges"]),
		Tags:        tags,
		SentAt:      p.sentAt(tags),
	}
}

func (p *Parser) syntheticID() string {
	return fmt.Sprintf("msg-%d-%s", p.seq.Add(1), uuid.NewString()[:8])
}

func (p *Parser) sentAt(tags map[string]string) time.Time {
	if ts := tags["tmi-sent-ts"]; ts != "" {
		if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC()
		}
	}
	return p.now().UTC()
}

type rawLine struct {
	tags    string
	prefix  string
	command string
	params  string
}

func splitLine(line string) (rawLine, bool) {
	var raw rawLine
	rest := line

	if strings.HasPrefix(rest, "@") {
		tags, tail, found := strings.Cut(rest[1:], " ")
		if !found {
			return rawLine{}, false
		}
		raw.tags = tags
		rest = strings.TrimLeft(tail, " ")
	}

	if strings.HasPrefix(rest, ":") {
		prefix, tail, found := strings.Cut(rest[1:], " ")
		if !found {
			return rawLine{}, false
		}
		raw.prefix = prefix
		rest = strings.TrimLeft(tail, " ")
	}

	command, params, _ := strings.Cut(rest, " ")
	if command == "" {
		return rawLine{}, false
	}
	raw.command = strings.ToUpper(command)
	raw.params = params

	return raw, true
}

func trailing(params string) string {
	if i := strings.Index(params, ":"); i >= 0 {
		return params[i+1:]
	}
	return strings.TrimSpace(params)
}

func parseTags(raw string) map[string]string {
	tags := make(map[string]string)
	if raw == "" {
		return tags
	}
	for _, pair := range strings.Split(raw, ";") {
		key, value, _ := strings.Cut(pair, "=")
		if key == "" {
			continue
		}
		tags[key] = unescapeTag(value)
	}
	return tags
}

func unescapeTag(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}

	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(v) {
			break
		}
		switch v[i] {
		case ':':
			b.WriteByte(';')
		case 's':
			b.WriteByte(' ')
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		default:
			b.WriteByte(v[i])
		}
	}
	return b.String()
}

func parseBadges(raw string) map[string]string {
	badges := make(map[string]string)
	if raw == "" {
		return badges
	}
	for _, item := range strings.Split(raw, ",") {
		name, version, _ := strings.Cut(item, "/")
		if name == "" {
			continue
		}
		if version == "" {
			version = "1"
		}
		badges[name] = version
	}
	return badges
}

func normalizeChannel(ch string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ch), "#"))
}
