package transport

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/teewatch/teewatch/internal/platform/logging"
)

// fakeServer answers every datagram with the configured replies.
func fakeServer(t *testing.T, replies [][]byte) *net.UDPAddr {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen fake server: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	go func() {
		buf := make([]byte, 2048)
		for {
			_, raddr, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			for _, reply := range replies {
				_, _ = conn.WriteToUDP(reply, raddr)
			}
		}
	}()

	return conn.LocalAddr().(*net.UDPAddr)
}

func waitForPackets(t *testing.T, c *Collector, addr string, want int) [][]byte {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := c.Collect(addr); len(got) >= want {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d packets from %s", want, addr)
	return nil
}

func TestCollectorRoundTrip(t *testing.T) {
	serverAddr := fakeServer(t, [][]byte{[]byte("first"), []byte("second")})

	c, err := NewCollector(logging.NewNop())
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	addr := serverAddr.String()
	c.Send(addr, []byte("ping"))

	packets := waitForPackets(t, c, addr, 2)
	if !bytes.Equal(packets[0], []byte("first")) || !bytes.Equal(packets[1], []byte("second")) {
		t.Fatalf("unexpected packets: %q", packets)
	}

	// Collect must not consume.
	if again := c.Collect(addr); len(again) != len(packets) {
		t.Fatalf("collect consumed the buffer: %d vs %d", len(again), len(packets))
	}

	c.Clear(addr)
	if left := c.Collect(addr); len(left) != 0 {
		t.Fatalf("clear left %d packets behind", len(left))
	}
}

func TestCollectorKeysByRemoteAddress(t *testing.T) {
	serverA := fakeServer(t, [][]byte{[]byte("from-a")})
	serverB := fakeServer(t, [][]byte{[]byte("from-b")})

	c, err := NewCollector(logging.NewNop())
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	c.Send(serverA.String(), []byte("ping"))
	c.Send(serverB.String(), []byte("ping"))

	gotA := waitForPackets(t, c, serverA.String(), 1)
	gotB := waitForPackets(t, c, serverB.String(), 1)

	if !bytes.Equal(gotA[0], []byte("from-a")) {
		t.Fatalf("cross-contaminated buffer for A: %q", gotA)
	}
	if !bytes.Equal(gotB[0], []byte("from-b")) {
		t.Fatalf("cross-contaminated buffer for B: %q", gotB)
	}
}

func TestSendToUnreachableAddressDoesNotFail(t *testing.T) {
	c, err := NewCollector(logging.NewNop())
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	// Must not panic or error; a dead target is indistinguishable from a
	// silent one.
	c.Send("not a host:99999", []byte("ping"))
	c.Send("127.0.0.1:1", []byte("ping"))

	if got := c.Collect("127.0.0.1:1"); len(got) != 0 {
		t.Fatalf("unexpected packets: %q", got)
	}
}
