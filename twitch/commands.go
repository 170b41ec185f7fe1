package twitch

import (
	"strconv"
	"strings"
	"time"
)

// DeleteCommand — команда удаления сообщения.
func DeleteCommand(messageID string) string {
	return "/delete " + strings.TrimSpace(messageID)
}

// TimeoutCommand — команда таймаута; длительность округляется вниз до секунд, минимум одна.
func TimeoutCommand(username string, d time.Duration, reason string) string {
	seconds := int64(d / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return withReason("/timeout "+strings.TrimSpace(username)+" "+strconv.FormatInt(seconds, 10), reason)
}

// BanCommand — команда перманентного бана.
func BanCommand(username, reason string) string {
	return withReason("/ban "+strings.TrimSpace(username), reason)
}

func withReason(cmd, reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return cmd
	}
	return cmd + " " + reason
}
