package irc

import "strings"

// SplitLines режет один кадр транспорта на строки протокола.
// Пустые строки отбрасываются, порядок сохраняется. Неполная строка в конце
// кадра считается самостоятельной: Twitch не разрывает строки между кадрами.
func SplitLines(frame string) []string {
	if frame == "" {
		return nil
	}

	parts := strings.Split(frame, "\n")
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSuffix(p, "\r")
		if p == "" {
			continue
		}
		lines = append(lines, p)
	}
	return lines
}
