package classifier

import "strings"

// DefaultAllowedDomains — домены, ссылки на которые не штрафуются без явной настройки.
var DefaultAllowedDomains = []string{"twitch.tv", "clips.twitch.tv", "twitter.com", "x.com"}

// Config — настраиваемая оператором часть классификатора.
// Значение неизменяемо: для обновления собирается новое через With*-методы.
type Config struct {
	Blacklist      []string
	BlockAllLinks  bool
	AllowedDomains []string
}

// DefaultConfig возвращает конфигурацию без чёрного списка и с разрешёнными доменами по умолчанию.
func DefaultConfig() Config {
	return NewConfig(nil, false, DefaultAllowedDomains)
}

// NewConfig нормализует списки: обрезка пробелов, нижний регистр, без пустых строк и дублей.
func NewConfig(blacklist []string, blockAllLinks bool, allowedDomains []string) Config {
	return Config{
		Blacklist:      normalize(blacklist),
		BlockAllLinks:  blockAllLinks,
		AllowedDomains: normalize(allowedDomains),
	}
}

// WithBlacklist возвращает копию конфигурации с новым чёрным списком.
func (c Config) WithBlacklist(words []string) Config {
	return NewConfig(words, c.BlockAllLinks, c.AllowedDomains)
}

// WithLinkPolicy возвращает копию конфигурации с новой политикой ссылок.
func (c Config) WithLinkPolicy(blockAllLinks bool, allowedDomains []string) Config {
	return NewConfig(c.Blacklist, blockAllLinks, allowedDomains)
}

func normalize(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
