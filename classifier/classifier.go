// Package classifier оценивает сообщения чата на спам и мошенничество.
// Оценка аддитивная: каждое сработавшее правило добавляет баллы и причину.
package classifier

import (
	"strings"
	"unicode"

	"twitch-chat-guard/model"
)

const (
	// SpamThreshold — минимальный балл, при котором сообщение считается спамом.
	SpamThreshold = 50
	maxScore      = 100
)

// Hit — вклад одного срабатывания правила.
type Hit struct {
	Points int
	Reason string
}

// Rule — именованная ступень классификатора.
type Rule struct {
	Name string
	eval func(sc *scan) []Hit
}

// rules применяются строго по порядку; правило scam-domains опирается на ссылки,
// найденные при подготовке scan.
var rules = []Rule{
	{Name: "links", eval: evalLinks},
	{Name: "spam-patterns", eval: spamPatterns.eval},
	{Name: "spam-keywords", eval: spamKeywords.eval},
	{Name: "blacklist", eval: evalBlacklist},
	{Name: "caps", eval: evalCaps},
	{Name: "symbols", eval: evalSymbols},
	{Name: "repetition", eval: repetition.eval},
	{Name: "scam-patterns", eval: scamPatterns.eval},
	{Name: "scam-keywords", eval: scamKeywords.eval},
	{Name: "scam-domains", eval: evalScamDomains},
	{Name: "wallet", eval: evalWallet},
}

// RuleNames перечисляет правила в порядке применения.
func RuleNames() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return names
}

type scan struct {
	text  string
	lower string
	runes []rune
	cfg   *Config
	links []string
}

// Classify оценивает текст. Функция чистая и детерминированная.
func Classify(text string, cfg Config) model.Classification {
	if text == "" {
		return model.Classification{Reasons: []string{}}
	}

	sc := &scan{
		text:  text,
		lower: strings.ToLower(text),
		runes: []rune(text),
		cfg:   &cfg,
		links: ExtractLinks(text),
	}

	score := 0
	reasons := []string{}
	for _, r := range rules {
		for _, h := range r.eval(sc) {
			score += h.Points
			reasons = append(reasons, h.Reason)
		}
	}

	if score > maxScore {
		score = maxScore
	}
	if score < 0 {
		score = 0
	}

	return model.Classification{
		IsSpam:  score >= SpamThreshold,
		Score:   score,
		Reasons: reasons,
	}
}

func evalLinks(sc *scan) []Hit {
	var hits []Hit
	for _, link := range sc.links {
		if isAllowed(link, sc.cfg.AllowedDomains) {
			continue
		}
		if sc.cfg.BlockAllLinks {
			hits = append(hits, Hit{Points: 50, Reason: "Link blocked: " + truncate(link, 30) + "..."})
			continue
		}
		if shortener.MatchString(link) {
			hits = append(hits, Hit{Points: 35, Reason: "Suspicious shortener: " + truncate(link, 25)})
		}
	}
	return hits
}

func evalBlacklist(sc *scan) []Hit {
	var hits []Hit
	for _, w := range sc.cfg.Blacklist {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && strings.Contains(sc.lower, w) {
			hits = append(hits, Hit{Points: 40, Reason: "Blacklist: " + w})
		}
	}
	return hits
}

func evalCaps(sc *scan) []Hit {
	n := len(sc.runes)
	if n <= 10 {
		return nil
	}
	upper := 0
	for _, r := range sc.runes {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if float64(upper)/float64(n) > 0.7 {
		return []Hit{{Points: 15, Reason: "Excessive caps"}}
	}
	return nil
}

func evalSymbols(sc *scan) []Hit {
	n := len(sc.runes)
	if n <= 5 {
		return nil
	}
	symbols := 0
	for _, r := range sc.runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) && r != '_' {
			symbols++
		}
	}
	if float64(symbols)/float64(n) > 0.5 {
		return []Hit{{Points: 10, Reason: "Excessive symbols"}}
	}
	return nil
}

func evalScamDomains(sc *scan) []Hit {
	if len(sc.links) == 0 {
		return nil
	}
	return scamDomains.eval(sc)
}

func evalWallet(sc *scan) []Hit {
	for _, w := range walletPatterns {
		if w.MatchString(sc.text) && walletAction.MatchString(sc.text) {
			return []Hit{{Points: 40, Reason: "Wallet address with suspicious request"}}
		}
	}
	return nil
}

func isAllowed(link string, allowed []string) bool {
	lower := strings.ToLower(link)
	for _, d := range allowed {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" && strings.Contains(lower, d) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
