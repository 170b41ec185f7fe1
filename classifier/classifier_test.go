package classifier

import (
	"reflect"
	"strings"
	"testing"
)

func TestClassifyEmptyText(t *testing.T) {
	got := Classify("", DefaultConfig())

	if got.IsSpam || got.Score != 0 || len(got.Reasons) != 0 {
		t.Fatalf("unexpected verdict for empty text: %+v", got)
	}
}

func TestClassifyFollowerSpamWithShortener(t *testing.T) {
	got := Classify("FREE FOLLOWERS!!! bit.ly/scam123", DefaultConfig())

	if !got.IsSpam {
		t.Fatalf("expected spam, got %+v", got)
	}
	if got.Score != 100 {
		t.Fatalf("expected score clamped to 100, got %d", got.Score)
	}
	assertReason(t, got.Reasons, "Suspicious shortener: bit.ly")
	assertReason(t, got.Reasons, "Keyword: free followers")
	assertReason(t, got.Reasons, "Pattern: free followers offer")
}

func TestClassifyAllowedDomainLink(t *testing.T) {
	for _, cfg := range []Config{DefaultConfig(), {}} {
		got := Classify("check out twitch.tv/somestreamer", cfg)
		if got.IsSpam || got.Score != 0 {
			t.Fatalf("expected clean verdict with config %+v, got %+v", cfg, got)
		}
	}
}

func TestClassifyBlockAllLinks(t *testing.T) {
	blocked := Classify("visit example.com now", NewConfig(nil, true, nil))
	if !blocked.IsSpam || blocked.Score != 50 {
		t.Fatalf("expected blocked link to be spam, got %+v", blocked)
	}
	assertReason(t, blocked.Reasons, "Link blocked: example.com...")

	allowed := Classify("visit example.com now", NewConfig(nil, true, []string{"Example.com"}))
	if allowed.Score != 0 {
		t.Fatalf("expected allowed domain to pass, got %+v", allowed)
	}
}

func TestClassifyRepetitionCountsOnce(t *testing.T) {
	short := Classify("aaaaaaaaaa hello", DefaultConfig())
	long := Classify(strings.Repeat("a", 40)+" hello", DefaultConfig())

	if short.Score != long.Score {
		t.Fatalf("longer run must not add points: %d vs %d", short.Score, long.Score)
	}
	if n := countReason(long.Reasons, "Repeated characters"); n != 1 {
		t.Fatalf("expected exactly one repetition reason, got %d in %v", n, long.Reasons)
	}
	if short.Score != 50 {
		t.Fatalf("expected pattern and repetition hits totalling 50, got %+v", short)
	}
}

func TestClassifyHeuristics(t *testing.T) {
	caps := Classify("THIS IS SO LOUD", DefaultConfig())
	if caps.Score != 15 || !reflect.DeepEqual(caps.Reasons, []string{"Excessive caps"}) {
		t.Fatalf("unexpected caps verdict %+v", caps)
	}

	symbols := Classify("!!!???###", DefaultConfig())
	if symbols.Score != 10 || !reflect.DeepEqual(symbols.Reasons, []string{"Excessive symbols"}) {
		t.Fatalf("unexpected symbols verdict %+v", symbols)
	}

	short := Classify("HEY!", DefaultConfig())
	if short.Score != 0 {
		t.Fatalf("short messages must not trigger ratios, got %+v", short)
	}
}

func TestClassifyBlacklist(t *testing.T) {
	cfg := NewConfig([]string{" Badword ", "badword", ""}, false, nil)

	got := Classify("this is BADWORD", cfg)

	if got.Score != 40 || !reflect.DeepEqual(got.Reasons, []string{"Blacklist: badword"}) {
		t.Fatalf("unexpected verdict %+v", got)
	}
}

func TestClassifyUnnormalizedConfigLiteral(t *testing.T) {
	got := Classify("this is a SCAM offer", Config{Blacklist: []string{" Scam "}})

	if got.Score != 40 || !reflect.DeepEqual(got.Reasons, []string{"Blacklist: scam"}) {
		t.Fatalf("blacklist must match case-insensitively, got %+v", got)
	}

	plain := Classify("look bit.ly/x", Config{})
	allowed := Classify("look bit.ly/x", Config{AllowedDomains: []string{"Bit.ly"}})

	assertReason(t, plain.Reasons, "Suspicious shortener: bit.ly")
	if countReason(allowed.Reasons, "Suspicious shortener: bit.ly") != 0 {
		t.Fatalf("allowed domain must match case-insensitively, got %+v", allowed)
	}
	if allowed.Score >= plain.Score {
		t.Fatalf("allowed link must lower the score: %d vs %d", allowed.Score, plain.Score)
	}
}

func TestClassifyScamPatternsSingleHit(t *testing.T) {
	got := Classify("crypto giveaway! claim your free bitcoin, guaranteed profit", DefaultConfig())

	if got.Score != 45 {
		t.Fatalf("expected a single scam pattern hit, got %+v", got)
	}
	if n := countReason(got.Reasons, "Crypto scam pattern detected"); n != 1 {
		t.Fatalf("expected one scam reason, got %v", got.Reasons)
	}
}

func TestClassifyScamKeywordWholeWord(t *testing.T) {
	if got := Classify("greetings from mexico", DefaultConfig()); got.Score != 0 {
		t.Fatalf("acronym inside a word must not match, got %+v", got)
	}

	got := Classify("join the ico now", DefaultConfig())
	if got.Score != 35 || !reflect.DeepEqual(got.Reasons, []string{"Crypto scam: ico"}) {
		t.Fatalf("unexpected verdict %+v", got)
	}
}

func TestClassifyScamDomainRequiresLink(t *testing.T) {
	withLink := Classify("claim at binance-bonus.com", DefaultConfig())
	if withLink.Score != 50 {
		t.Fatalf("expected fake site hit, got %+v", withLink)
	}
	assertReason(t, withLink.Reasons, "Fake crypto site: binance-")

	withoutLink := Classify("claim at binance-bonus", DefaultConfig())
	if withoutLink.Score != 0 {
		t.Fatalf("domain fragment without link must not score, got %+v", withoutLink)
	}
}

func TestClassifyWalletNeedsAction(t *testing.T) {
	const addr = "0x52908400098527886E0F7030069857D2E4169EE7"

	got := Classify("send me funds at "+addr, DefaultConfig())
	assertReason(t, got.Reasons, "Wallet address with suspicious request")

	quiet := Classify("my address "+addr, DefaultConfig())
	if countReason(quiet.Reasons, "Wallet address with suspicious request") != 0 {
		t.Fatalf("wallet without action verb must not score, got %+v", quiet)
	}
}

func TestClassifyIsDeterministicAndBounded(t *testing.T) {
	cfg := NewConfig([]string{"scam"}, true, nil)
	texts := []string{
		"hello chat",
		"FREE FOLLOWERS!!! bit.ly/scam123 www.scam.ru free viewers buy followers f4f follow4follow",
		"send 1 eth to 0x52908400098527886E0F7030069857D2E4169EE7 and get 2 back, seed phrase, metamask",
		"!!!!!!!!!!!!!!!!!!!!!!!!",
		"Привет всем, как дела?",
		"\x00\xff broken utf8",
	}

	for _, text := range texts {
		first := Classify(text, cfg)
		second := Classify(text, cfg)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("verdict for %q is not deterministic: %+v vs %+v", text, first, second)
		}
		if first.Score < 0 || first.Score > 100 {
			t.Fatalf("score out of bounds for %q: %d", text, first.Score)
		}
		if first.IsSpam != (first.Score >= SpamThreshold) {
			t.Fatalf("spam flag disagrees with score for %q: %+v", text, first)
		}
	}
}

func TestExtractLinks(t *testing.T) {
	links := ExtractLinks("see https://Example.com/x and https://example.com/x")

	if len(links) != 2 || links[0] != "https://Example.com/x" || links[1] != "Example.com/x" {
		t.Fatalf("unexpected links %q", links)
	}
	if ContainsLink("no links here") {
		t.Fatalf("unexpected link detected")
	}
	if !ContainsLink("go to www.site") {
		t.Fatalf("expected link to be detected")
	}
}

func TestConfigNormalization(t *testing.T) {
	cfg := NewConfig([]string{" A ", "a", "b", ""}, false, DefaultAllowedDomains)
	if !reflect.DeepEqual(cfg.Blacklist, []string{"a", "b"}) {
		t.Fatalf("unexpected blacklist %q", cfg.Blacklist)
	}

	next := cfg.WithLinkPolicy(true, []string{"Example.com"})
	if !next.BlockAllLinks || !reflect.DeepEqual(next.AllowedDomains, []string{"example.com"}) {
		t.Fatalf("unexpected link policy %+v", next)
	}
	if !reflect.DeepEqual(next.Blacklist, cfg.Blacklist) {
		t.Fatalf("link policy update must keep blacklist")
	}
	if cfg.BlockAllLinks {
		t.Fatalf("original config must not change")
	}
}

func TestRuleOrder(t *testing.T) {
	names := RuleNames()
	if len(names) != 11 || names[0] != "links" || names[len(names)-1] != "wallet" {
		t.Fatalf("unexpected rule order %v", names)
	}
}

func assertReason(t *testing.T, reasons []string, want string) {
	t.Helper()
	if countReason(reasons, want) == 0 {
		t.Fatalf("expected reason %q in %v", want, reasons)
	}
}

func countReason(reasons []string, want string) int {
	n := 0
	for _, r := range reasons {
		if r == want {
			n++
		}
	}
	return n
}
