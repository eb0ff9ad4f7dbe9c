package protocol

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func tokens(parts ...string) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
		out = append(out, 0)
	}
	return out
}

func vanillaReply(clients ...[]string) []byte {
	payload := tokens("tok", "0.6.4", "my server", "ctf5", "CTF", "0", "2", "8", "2", "16")
	for _, c := range clients {
		payload = append(payload, tokens(c...)...)
	}
	return append(packet(tagInfoVanilla), payload...)
}

func extendedReply(clients ...[]string) []byte {
	payload := tokens("tok", "0.6.4", "my server ext", "ctf5", "12345", "1024", "CTF", "0", "2", "8", "2", "16", "")
	for _, c := range clients {
		payload = append(payload, tokens(c...)...)
	}
	return append(packet(tagInfoExtended), payload...)
}

func TestDecodeVanillaInfo(t *testing.T) {
	a := NewInfoAccumulator()
	err := a.Decode(vanillaReply(
		[]string{"alpha", "RED", "40", "12", "1"},
		[]string{"beta", "", "0", "-3", "0"},
	))
	if err != nil {
		t.Fatalf("decode vanilla reply: %v", err)
	}

	info, ok := a.Info()
	if !ok {
		t.Fatal("info must be present after one good buffer")
	}
	if info.Name != "my server" || info.MapName != "ctf5" || info.GameType != "CTF" {
		t.Fatalf("unexpected fixed fields: %+v", info)
	}
	if info.NumClients != 2 || info.MaxClients != 16 {
		t.Fatalf("unexpected client counts: %+v", info)
	}
	if len(info.Clients) != 2 {
		t.Fatalf("unexpected clients: %+v", info.Clients)
	}
	if info.Clients[0].Name != "alpha" || info.Clients[0].Clan != "RED" || info.Clients[0].Score != 12 || !info.Clients[0].IsPlayer {
		t.Fatalf("unexpected first client: %+v", info.Clients[0])
	}
	if info.Clients[1].IsPlayer {
		t.Fatalf("spectator decoded as player: %+v", info.Clients[1])
	}
}

func TestFormatPriorityMerge(t *testing.T) {
	a := NewInfoAccumulator()

	if err := a.Decode(vanillaReply([]string{"alpha", "", "0", "5", "1"})); err != nil {
		t.Fatalf("decode vanilla reply: %v", err)
	}
	if err := a.Decode(extendedReply([]string{"alpha", "EXT", "40", "7", "1", ""})); err != nil {
		t.Fatalf("decode extended reply: %v", err)
	}

	info, ok := a.Info()
	if !ok {
		t.Fatal("info must be present")
	}
	if info.Name != "my server ext" {
		t.Fatalf("extended fixed fields must win: %+v", info)
	}
	if len(info.Clients) != 1 {
		t.Fatalf("player must be merged, not duplicated: %+v", info.Clients)
	}
	if info.Clients[0].Score != 7 || info.Clients[0].Clan != "EXT" || info.Clients[0].Country != 40 {
		t.Fatalf("extended client record must win: %+v", info.Clients[0])
	}
}

func TestLowerFidelityDoesNotOverwrite(t *testing.T) {
	a := NewInfoAccumulator()

	if err := a.Decode(extendedReply([]string{"alpha", "EXT", "40", "7", "1", ""})); err != nil {
		t.Fatalf("decode extended reply: %v", err)
	}
	if err := a.Decode(vanillaReply([]string{"alpha", "", "0", "5", "1"})); err != nil {
		t.Fatalf("decode vanilla reply: %v", err)
	}

	info, _ := a.Info()
	if info.Clients[0].Score != 7 {
		t.Fatalf("vanilla record must not overwrite extended: %+v", info.Clients[0])
	}
	if info.Name != "my server ext" {
		t.Fatalf("vanilla fixed fields must not overwrite extended: %+v", info)
	}
}

func TestExtendedMoreContinuationIsAdditive(t *testing.T) {
	a := NewInfoAccumulator()

	if err := a.Decode(extendedReply([]string{"alpha", "", "0", "7", "1", ""})); err != nil {
		t.Fatalf("decode extended reply: %v", err)
	}

	more := append(packet(tagInfoExtMore), tokens("tok", "1", "", "gamma", "", "0", "2", "1", "")...)
	if err := a.Decode(more); err != nil {
		t.Fatalf("decode continuation: %v", err)
	}

	info, ok := a.Info()
	if !ok {
		t.Fatal("info must be present")
	}
	if len(info.Clients) != 2 {
		t.Fatalf("continuation must add clients: %+v", info.Clients)
	}
	if info.Clients[1].Name != "gamma" || info.Clients[1].Score != 2 {
		t.Fatalf("unexpected continued client: %+v", info.Clients[1])
	}
}

func TestContinuationAloneYieldsNoInfo(t *testing.T) {
	a := NewInfoAccumulator()
	more := append(packet(tagInfoExtMore), tokens("tok", "1", "", "gamma", "", "0", "2", "1", "")...)
	if err := a.Decode(more); err != nil {
		t.Fatalf("decode continuation: %v", err)
	}
	if _, ok := a.Info(); ok {
		t.Fatal("continuation without a base reply must not produce info")
	}
}

func TestLegacy64Reply(t *testing.T) {
	payload := tokens("tok", "0.6.4", "big server", "dm1", "DM", "0", "10", "64", "10", "64", "24",
		"alpha", "", "0", "3", "1")
	buf := append(packet(tagInfoLegacy64), payload...)

	a := NewInfoAccumulator()
	if err := a.Decode(buf); err != nil {
		t.Fatalf("decode legacy64 reply: %v", err)
	}

	info, ok := a.Info()
	if !ok {
		t.Fatal("info must be present")
	}
	if info.MaxClients != 64 || len(info.Clients) != 1 {
		t.Fatalf("unexpected legacy64 decode: %+v", info)
	}
}

func TestMalformedBufferLeavesAccumulatorIntact(t *testing.T) {
	a := NewInfoAccumulator()
	if err := a.Decode(vanillaReply([]string{"alpha", "", "0", "5", "1"})); err != nil {
		t.Fatalf("decode vanilla reply: %v", err)
	}

	// Truncated mid-token: no NUL terminator on the last field.
	bad := vanillaReply()
	bad = append(bad, []byte("beta\x00clan\x00")...)
	bad = append(bad, []byte("12")...)
	if err := a.Decode(bad); !errors.Is(err, ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}

	info, ok := a.Info()
	if !ok || len(info.Clients) != 1 || info.Clients[0].Name != "alpha" {
		t.Fatalf("bad buffer corrupted accumulated state: %+v", info)
	}
}

func TestUnknownTagRejected(t *testing.T) {
	a := NewInfoAccumulator()
	if err := a.Decode(packet(formatTag("zzzz"))); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestNonNumericScoreRejected(t *testing.T) {
	a := NewInfoAccumulator()
	err := a.Decode(vanillaReply([]string{"alpha", "", "0", "not-a-number", "1"}))
	if !errors.Is(err, ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
}
