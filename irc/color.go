package irc

import "hash/fnv"

// Palette — цвета для пользователей, не выбравших цвет в настройках Twitch.
var Palette = [...]string{"#FF6B6B", "#4ECDC4", "#9146FF", "#FFE66D", "#95E1D3", "#F38181"}

// ColorFor детерминированно выбирает цвет из Palette по логину.
func ColorFor(username string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(username))
	return Palette[h.Sum32()%uint32(len(Palette))]
}
