package usecase

import (
	"sync"
)

// fakeTransport serves canned reply buffers and records what was sent.
type fakeTransport struct {
	mu      sync.Mutex
	sent    map[string][][]byte
	replies map[string][][]byte
	cleared map[string]int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		sent:    make(map[string][][]byte),
		replies: make(map[string][][]byte),
		cleared: make(map[string]int),
	}
}

func (t *fakeTransport) Send(addr string, payload []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent[addr] = append(t.sent[addr], append([]byte(nil), payload...))
}

func (t *fakeTransport) Collect(addr string) [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, 0, len(t.replies[addr]))
	for _, buf := range t.replies[addr] {
		out = append(out, append([]byte(nil), buf...))
	}
	return out
}

func (t *fakeTransport) Clear(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.replies, addr)
	t.cleared[addr]++
}

func (t *fakeTransport) reply(addr string, buffers ...[]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies[addr] = append(t.replies[addr], buffers...)
}

func (t *fakeTransport) sentTo(addr string) [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent[addr]
}

// packet builds a raw datagram: ten 0xff header bytes then the four
// ASCII tag bytes, followed by the payload.
func rawPacket(tag string, payload ...byte) []byte {
	out := make([]byte, 0, 14+len(payload))
	for i := 0; i < 10; i++ {
		out = append(out, 0xff)
	}
	out = append(out, []byte(tag)...)
	return append(out, payload...)
}

func nulTokens(parts ...string) []byte {
	out := make([]byte, 0, 64)
	for _, p := range parts {
		out = append(out, []byte(p)...)
		out = append(out, 0)
	}
	return out
}
