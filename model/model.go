package model

import "time"

// ChatEvent — нормализованное сообщение чата Twitch вместе с вердиктом классификатора.
// После отправки подписчику событие не изменяется.
type ChatEvent struct {
	ID             string
	Channel        string
	UserID         string
	Username       string
	DisplayName    string
	Text           string
	Color          string
	Badges         map[string]string
	SentAt         time.Time
	ReceivedAt     time.Time
	Classification Classification
}

// HasBadge сообщает, есть ли у автора значок с указанным именем.
func (e ChatEvent) HasBadge(name string) bool {
	_, ok := e.Badges[name]
	return ok
}

// IsPrivileged — стример или модератор канала.
func (e ChatEvent) IsPrivileged() bool {
	return e.HasBadge("broadcaster") || e.HasBadge("moderator")
}

// Classification — итог проверки сообщения на спам.
type Classification struct {
	IsSpam  bool     `json:"isSpam"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// ConnectionStatus описывает состояние соединения с чатом.
type ConnectionStatus int

const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusError
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ActionType — вид модерационного действия.
type ActionType string

const (
	ActionDelete  ActionType = "delete"
	ActionTimeout ActionType = "timeout"
	ActionBan     ActionType = "ban"
)

// ModerationAction описывает выполненное (или запрошенное) действие модерации.
type ModerationAction struct {
	ID        string        `json:"id"`
	Type      ActionType    `json:"type"`
	Channel   string        `json:"channel"`
	Username  string        `json:"username"`
	MessageID string        `json:"messageId,omitempty"`
	Reason    string        `json:"reason"`
	Duration  time.Duration `json:"-"`
	Automatic bool          `json:"automatic"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ChannelStats — счётчики по каналу за время работы процесса.
type ChannelStats struct {
	TotalMessages uint64 `json:"totalMessages"`
	SpamDetected  uint64 `json:"spamDetected"`
	Deletes       uint64 `json:"deletes"`
	Timeouts      uint64 `json:"timeouts"`
	Bans          uint64 `json:"bans"`
}
