package irc

import (
	"strconv"
	"strings"
	"testing"
	"time"

	twitchirc "github.com/gempir/go-twitch-irc/v4"
)

const privmsg = "@badge-info=subscriber/8;badges=moderator/1,subscriber/6;color=#1E90FF;display-name=SomeUser;" +
	"id=b34ccfc7-4977-403a-8a94-33c6bac34fb8;tmi-sent-ts=1700000000000;user-id=1337 " +
	":someuser!someuser@someuser.tmi.twitch.tv PRIVMSG #Streamer :hello: world: with colons"

func TestParsePing(t *testing.T) {
	msg := NewParser().Parse("PING :tmi.twitch.tv")

	ping, ok := msg.(Ping)
	if !ok {
		t.Fatalf("expected Ping, got %T", msg)
	}
	if ping.Server != "tmi.twitch.tv" {
		t.Fatalf("unexpected server %q", ping.Server)
	}
}

func TestParseJoinConfirmed(t *testing.T) {
	p := NewParser()

	for _, line := range []string{
		":bot.tmi.twitch.tv 366 bot #streamer :End of /NAMES list",
		":bot!bot@bot.tmi.twitch.tv JOIN #streamer",
	} {
		msg, ok := p.Parse(line).(JoinConfirmed)
		if !ok {
			t.Fatalf("expected JoinConfirmed for %q", line)
		}
		if msg.Channel != "streamer" {
			t.Fatalf("unexpected channel %q for %q", msg.Channel, line)
		}
	}
}

func TestParseUtterance(t *testing.T) {
	msg := NewParser().Parse(privmsg)

	u, ok := msg.(Utterance)
	if !ok {
		t.Fatalf("expected Utterance, got %T", msg)
	}

	if u.ID != "b34ccfc7-4977-403a-8a94-33c6bac34fb8" {
		t.Fatalf("unexpected id %q", u.ID)
	}
	if u.Channel != "streamer" || u.Username != "someuser" || u.DisplayName != "SomeUser" {
		t.Fatalf("unexpected identity: %+v", u)
	}
	if u.UserID != "1337" || u.Color != "#1E90FF" {
		t.Fatalf("unexpected tags: %+v", u)
	}
	if u.Text != "hello: world: with colons" {
		t.Fatalf("body must be kept verbatim, got %q", u.Text)
	}
	if !u.SentAt.Equal(time.UnixMilli(1700000000000)) {
		t.Fatalf("unexpected sent at %s", u.SentAt)
	}
	if u.Badges["moderator"] != "1" || u.Badges["subscriber"] != "6" || len(u.Badges) != 2 {
		t.Fatalf("unexpected badges %v", u.Badges)
	}
}

func TestParseUtteranceMatchesTwitchIRC(t *testing.T) {
	lines := []string{
		privmsg,
		"@badges=;color=;display-name=Plain;id=1 :plain!plain@plain.tmi.twitch.tv PRIVMSG #chan :just text",
		"@badges=broadcaster/1;id=2 :Owner!owner@owner.tmi.twitch.tv PRIVMSG #chan :waves at chat",
	}

	for _, line := range lines {
		ours, ok := NewParser().Parse(line).(Utterance)
		if !ok {
			t.Fatalf("expected Utterance for %q", line)
		}

		theirs, ok := twitchirc.ParseMessage(line).(*twitchirc.PrivateMessage)
		if !ok {
			t.Fatalf("go-twitch-irc did not parse %q as PRIVMSG", line)
		}

		if ours.Text != theirs.Message {
			t.Fatalf("text mismatch: %q vs %q", ours.Text, theirs.Message)
		}
		if ours.Username != strings.ToLower(theirs.User.Name) {
			t.Fatalf("username mismatch: %q vs %q", ours.Username, theirs.User.Name)
		}
		if ours.ID != theirs.ID {
			t.Fatalf("id mismatch: %q vs %q", ours.ID, theirs.ID)
		}
		for name, version := range theirs.User.Badges {
			if ours.Badges[name] != strconv.Itoa(version) {
				t.Fatalf("badge %s mismatch: %q vs %d", name, ours.Badges[name], version)
			}
		}
	}
}

func TestParseUtteranceFallbacks(t *testing.T) {
	p := NewParser()
	line := ":LoudUser!louduser@louduser.tmi.twitch.tv PRIVMSG #chan :hi"

	first, ok := p.Parse(line).(Utterance)
	if !ok {
		t.Fatalf("expected Utterance")
	}
	second := p.Parse(line).(Utterance)

	if first.Username != "louduser" || first.DisplayName != "louduser" {
		t.Fatalf("display name must fall back to username: %+v", first)
	}
	if !strings.HasPrefix(first.ID, "msg-1-") || !strings.HasPrefix(second.ID, "msg-2-") {
		t.Fatalf("unexpected synthetic ids %q %q", first.ID, second.ID)
	}
	if first.Color != ColorFor("louduser") || first.Color != second.Color {
		t.Fatalf("color must be derived from username, got %q and %q", first.Color, second.Color)
	}
	if len(first.Badges) != 0 {
		t.Fatalf("expected no badges, got %v", first.Badges)
	}
}

func TestParseBadges(t *testing.T) {
	badges := parseBadges("subscriber/12,premium/1,/3,vip")

	if len(badges) != 3 {
		t.Fatalf("expected 3 badges, got %v", badges)
	}
	if badges["subscriber"] != "12" || badges["premium"] != "1" || badges["vip"] != "1" {
		t.Fatalf("unexpected badges %v", badges)
	}
}

func TestParseTagsUnescapes(t *testing.T) {
	tags := parseTags(`system-msg=5\sraiders\sfrom\:\sx;flag=a=b;empty=`)

	if tags["system-msg"] != "5 raiders from; x" {
		t.Fatalf("unexpected unescape %q", tags["system-msg"])
	}
	if tags["flag"] != "a=b" {
		t.Fatalf("value must be split on the first '=' only, got %q", tags["flag"])
	}
	if v, ok := tags["empty"]; !ok || v != "" {
		t.Fatalf("empty value must be kept")
	}
}

func TestParseDropsMalformedPrivmsg(t *testing.T) {
	p := NewParser()

	for _, line := range []string{
		"PRIVMSG #chan :no prefix",
		":user!user@user.tmi.twitch.tv PRIVMSG #chan",
		":user!user@user.tmi.twitch.tv PRIVMSG #chan :",
		":nobang.tmi.twitch.tv PRIVMSG #chan :text",
		":user!user@user.tmi.twitch.tv PRIVMSG chan :missing hash",
	} {
		if _, ok := p.Parse(line).(Unrecognized); !ok {
			t.Fatalf("expected %q to be dropped", line)
		}
	}
}

func TestParseNoticeAndReconnect(t *testing.T) {
	p := NewParser()

	notice, ok := p.Parse("@msg-id=msg_banned :tmi.twitch.tv NOTICE #chan :You are permanently banned.").(Notice)
	if !ok {
		t.Fatalf("expected Notice")
	}
	if notice.Channel != "chan" || notice.MsgID != "msg_banned" || notice.Text != "You are permanently banned." {
		t.Fatalf("unexpected notice %+v", notice)
	}

	if _, ok := p.Parse(":tmi.twitch.tv RECONNECT").(Reconnect); !ok {
		t.Fatalf("expected Reconnect")
	}
	if _, ok := p.Parse(":tmi.twitch.tv 001 bot :Welcome, GLHF!").(Unrecognized); !ok {
		t.Fatalf("expected welcome to be unrecognized")
	}
}

func TestColorForIsStable(t *testing.T) {
	for _, name := range []string{"a", "viewer42", "someone_else"} {
		c := ColorFor(name)
		if c != ColorFor(name) {
			t.Fatalf("color for %q is not stable", name)
		}
		found := false
		for _, p := range Palette {
			if p == c {
				found = true
			}
		}
		if !found {
			t.Fatalf("color %q is not from the palette", c)
		}
	}
}
