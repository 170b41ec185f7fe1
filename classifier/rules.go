package classifier

import (
	"regexp"
	"strings"
	"unicode"
)

type matcher interface {
	match(sc *scan) bool
}

// reMatcher проверяет исходный текст регулярным выражением.
type reMatcher struct{ re *regexp.Regexp }

func (m reMatcher) match(sc *scan) bool { return m.re.MatchString(sc.text) }

// phrase ищет подстроку в тексте, приведённом к нижнему регистру.
type phrase string

func (p phrase) match(sc *scan) bool { return strings.Contains(sc.lower, string(p)) }

// word ищет подстроку, окружённую не-буквенными символами.
type word string

func (w word) match(sc *scan) bool { return containsWord(sc.lower, string(w)) }

// runMatcher срабатывает на символ, повторённый подряд не менее min раз без учёта регистра.
type runMatcher struct{ min int }

func (m runMatcher) match(sc *scan) bool { return longestRun(sc.runes) >= m.min }

type pattern struct {
	name string
	m    matcher
}

func re(name, expr string) pattern {
	return pattern{name: name, m: reMatcher{re: regexp.MustCompile(expr)}}
}

func kw(s string) pattern { return pattern{name: s, m: phrase(s)} }

// battery — набор шаблонов с общим весом. single означает, что засчитывается
// только первое совпадение.
type battery struct {
	weight   int
	single   bool
	reason   func(p pattern) string
	patterns []pattern
}

func (b battery) eval(sc *scan) []Hit {
	var hits []Hit
	for _, p := range b.patterns {
		if !p.m.match(sc) {
			continue
		}
		hits = append(hits, Hit{Points: b.weight, Reason: b.reason(p)})
		if b.single {
			break
		}
	}
	return hits
}

func fixed(reason string) func(pattern) string {
	return func(pattern) string { return reason }
}

func prefixed(prefix string) func(pattern) string {
	return func(p pattern) string { return prefix + p.name }
}

var linkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)https?://[^\s]+`),
	regexp.MustCompile(`(?i)www\.[^\s]+`),
	regexp.MustCompile(`(?i)[a-z0-9-]+\.(com|net|org|io|tv|gg|me|co|xyz|info|biz|ru|cn|tk|ml|ga|cf|gq|link|click|live|stream|pro|vip|top|site|online|store|shop|app|dev|tech|cloud|space|fun|world|today|news|blog|video|watch|play|game|bet|casino|porn|xxx|adult|sex|dating|meet|chat|social|money|cash|free|win|prize|gift|offer|deal|discount|sale|buy|sell|trade|crypto|bitcoin|nft|token|coin|wallet|invest|profit|earn|income|rich|wealth|million|billion)[^\s]*`),
	regexp.MustCompile(`(?i)bit\.ly|tinyurl|goo\.gl|t\.co|shorturl|rebrand\.ly|cutt\.ly|is\.gd|v\.gd|clck\.ru|qps\.ru`),
	regexp.MustCompile(`(?i)discord\.gg/[^\s]+`),
	regexp.MustCompile(`(?i)twitch\.tv/[^\s]+`),
	regexp.MustCompile(`(?i)youtube\.com|youtu\.be`),
}

var shortener = regexp.MustCompile(`(?i)bit\.ly|tinyurl|goo\.gl|t\.co|shorturl|rebrand\.ly|cutt\.ly|is\.gd|v\.gd`)

var spamPatterns = battery{
	weight: 30,
	reason: prefixed("Pattern: "),
	patterns: []pattern{
		re("free followers offer", `(?i)free\s*(followers?|viewers?|subs?)`),
		re("link shortener", `(?i)bit\.ly|tinyurl|goo\.gl`),
		re("buy followers", `(?i)buy\s*(followers?|viewers?)`),
		re("paid followers", `(?i)\$\d+.*followers?`),
		re("follow for follow", `(?i)follow\s*4\s*follow`),
		re("check my bio", `(?i)check\s*my\s*(bio|profile|channel)`),
		{name: "repeated character", m: runMatcher{min: 6}},
		re("uppercase run", `\p{Lu}{10,}`),
	},
}

var spamKeywords = battery{
	weight: 25,
	reason: prefixed("Keyword: "),
	patterns: []pattern{
		kw("free followers"), kw("free viewers"), kw("buy followers"), kw("cheap followers"),
		kw("bigfollows"), kw("followersup"), kw("viewerbot"), kw("follow4follow"), kw("f4f"),
	},
}

var repetition = battery{
	weight:   20,
	single:   true,
	reason:   fixed("Repeated characters"),
	patterns: []pattern{{name: "repeated character", m: runMatcher{min: 8}}},
}

var scamPatterns = battery{
	weight: 45,
	single: true,
	reason: fixed("Crypto scam pattern detected"),
	patterns: []pattern{
		re("free crypto", `(?i)free\s*(crypto|bitcoin|btc|eth|ethereum|nft|token|coin|airdrop)`),
		re("crypto giveaway", `(?i)crypto\s*giveaway`),
		re("coin giveaway", `(?i)(bitcoin|btc|eth|ethereum)\s*giveaway`),
		re("giving away", `(?i)giving\s*away\s*(crypto|bitcoin|btc|eth)`),
		re("claim crypto", `(?i)claim\s*(your|free)\s*(crypto|bitcoin|btc|eth|nft|token)`),
		re("guaranteed profit", `(?i)guaranteed\s*(profit|return|income)`),
		re("multiplier return", `(?i)(\d+)x\s*(return|profit|gains?)`),
		re("double your", `(?i)double\s*your\s*(crypto|bitcoin|btc|eth|money)`),
		re("send to get", `(?i)send\s*(\d+)\s*(btc|eth|crypto).*get\s*(\d+)`),
		re("percent yield", `(?i)invest.*(\d+)%\s*(daily|weekly|monthly)`),
		re("connect wallet", `(?i)connect\s*(your\s*)?wallet`),
		re("validate wallet", `(?i)validate\s*(your\s*)?wallet`),
		re("sync wallet", `(?i)sync\s*(your\s*)?wallet`),
		re("wallet verification", `(?i)wallet\s*verification`),
		re("seed phrase", `(?i)seed\s*phrase`),
		re("private key", `(?i)private\s*key`),
		re("recovery phrase", `(?i)recovery\s*phrase`),
		re("celebrity crypto", `(?i)elon\s*musk.*crypto`),
		re("celebrity giveaway", `(?i)musk.*giveaway`),
		re("tesla giveaway", `(?i)tesla\s*giveaway`),
		re("next 100x", `(?i)next\s*100x`),
		re("moon soon", `(?i)moon\s*soon`),
		re("to the moon", `(?i)to\s*the\s*moon`),
		re("guaranteed moon", `(?i)guaranteed\s*moon`),
		re("easy money", `(?i)easy\s*money`),
		re("get rich quick", `(?i)get\s*rich\s*quick`),
		re("free nft mint", `(?i)free\s*nft\s*mint`),
		re("nft whitelist", `(?i)nft\s*whitelist`),
		re("nft drop", `(?i)exclusive\s*nft\s*drop`),
		re("limited nft", `(?i)limited\s*nft`),
	},
}

var scamKeywords = battery{
	weight: 35,
	single: true,
	reason: prefixed("Crypto scam: "),
	patterns: []pattern{
		kw("airdrop claim"), kw("claim airdrop"), kw("free airdrop"),
		kw("send btc"), kw("send eth"), kw("send crypto"),
		kw("metamask"), kw("trustwallet"), kw("phantom wallet"),
		kw("presale"), {name: "ico", m: word("ico")}, {name: "ido", m: word("ido")},
		kw("pump signal"), kw("trading signal"), kw("forex signal"), kw("binary option"),
		kw("mlm crypto"), kw("crypto mlm"), kw("ponzi"), kw("pyramid scheme"),
		kw("guaranteed roi"), kw("passive income crypto"),
		kw("dm for details"), kw("dm me for"), kw("whatsapp"), kw("telegram group"),
	},
}

var scamDomains = battery{
	weight: 50,
	single: true,
	reason: prefixed("Fake crypto site: "),
	patterns: []pattern{
		kw("binance-"), kw("coinbase-"), kw("metamask-"), kw("opensea-"), kw("uniswap-"),
		kw("pancakeswap-"), kw("trustwallet-"), kw("-airdrop"), kw("-giveaway"), kw("-claim"),
		kw("elonmusk"), kw("muskcrypto"),
	},
}

var walletPatterns = []*regexp.Regexp{
	regexp.MustCompile(`0x[a-fA-F0-9]{40}`),
	regexp.MustCompile(`[13][a-km-zA-HJ-NP-Z1-9]{25,34}`),
	regexp.MustCompile(`T[A-Za-z1-9]{33}`),
}

var walletAction = regexp.MustCompile(`(?i)send|transfer|deposit|invest|double`)

func longestRun(runes []rune) int {
	best, cur := 0, 0
	var prev rune
	for i, r := range runes {
		r = unicode.ToLower(r)
		if i > 0 && r == prev {
			cur++
		} else {
			cur = 1
		}
		prev = r
		if cur > best {
			best = cur
		}
	}
	return best
}

func containsWord(s, w string) bool {
	for start := 0; start <= len(s)-len(w); {
		i := strings.Index(s[start:], w)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(w)
		if !isWordByte(s, i-1) && !isWordByte(s, end) {
			return true
		}
		start = i + 1
	}
	return false
}

func isWordByte(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	c := s[i]
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}
