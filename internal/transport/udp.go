// Package transport owns the UDP sockets used for polling. Requests are
// fire-and-forget; every datagram arriving from an address:port is
// buffered under that key until the poller consumes and clears it.
package transport

import (
	"net"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/teewatch/teewatch/internal/platform/logging"
)

const maxDatagramSize = 2048

// Collector is a dual-stack UDP sender/receiver. The family is picked per
// destination from the address syntax. Late or duplicate datagrams after
// a collection window simply accumulate until Clear.
type Collector struct {
	logger *logging.Logger

	conn4 *net.UDPConn
	conn6 *net.UDPConn

	mu    sync.Mutex
	inbox map[string][]*bytebufferpool.ByteBuffer

	wg sync.WaitGroup
}

// NewCollector opens one IPv4 and one IPv6 socket on ephemeral ports and
// starts their receive loops. A host without IPv6 still works; only both
// families failing is an error.
func NewCollector(logger *logging.Logger) (*Collector, error) {
	if logger == nil {
		logger = logging.Default()
	}

	c := &Collector{
		logger: logger,
		inbox:  make(map[string][]*bytebufferpool.ByteBuffer),
	}

	conn4, err4 := net.ListenUDP("udp4", nil)
	if err4 == nil {
		c.conn4 = conn4
	}
	conn6, err6 := net.ListenUDP("udp6", &net.UDPAddr{IP: net.IPv6zero})
	if err6 == nil {
		c.conn6 = conn6
	}
	if c.conn4 == nil && c.conn6 == nil {
		return nil, errors.Newf("open udp sockets: v4=%v v6=%v", err4, err6)
	}
	if c.conn4 == nil {
		logger.Warn("ipv4 socket unavailable", "error", err4)
	}
	if c.conn6 == nil {
		logger.Warn("ipv6 socket unavailable", "error", err6)
	}

	for _, conn := range []*net.UDPConn{c.conn4, c.conn6} {
		if conn == nil {
			continue
		}
		c.wg.Add(1)
		go c.readLoop(conn)
	}

	return c, nil
}

// Send transmits one request datagram. Failures are logged and swallowed:
// a lost request looks exactly like a server that never replied.
func (c *Collector) Send(addr string, payload []byte) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		c.logger.Warn("resolve poll target", "addr", addr, "error", err)
		return
	}

	conn := c.connFor(udpAddr)
	if conn == nil {
		c.logger.Warn("no socket for address family", "addr", addr)
		return
	}

	if _, err := conn.WriteToUDP(payload, udpAddr); err != nil {
		c.logger.Warn("send poll request", "addr", addr, "error", err)
	}
}

// Collect returns copies of all datagrams received so far from addr, in
// arrival order. The buffers stay queued until Clear.
func (c *Collector) Collect(addr string) [][]byte {
	key, ok := normalizeKey(addr)
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	buffers := c.inbox[key]
	out := make([][]byte, 0, len(buffers))
	for _, bb := range buffers {
		out = append(out, append([]byte(nil), bb.B...))
	}
	return out
}

// Clear drops everything buffered for addr. Callers must clear after
// consuming a poll's replies or the inbox grows without bound and a later
// poll of the same target reads stale packets.
func (c *Collector) Clear(addr string) {
	key, ok := normalizeKey(addr)
	if !ok {
		return
	}

	c.mu.Lock()
	buffers := c.inbox[key]
	delete(c.inbox, key)
	c.mu.Unlock()

	for _, bb := range buffers {
		bytebufferpool.Put(bb)
	}
}

func (c *Collector) Close() error {
	for _, conn := range []*net.UDPConn{c.conn4, c.conn6} {
		if conn != nil {
			_ = conn.Close()
		}
	}
	c.wg.Wait()
	return nil
}

func (c *Collector) readLoop(conn *net.UDPConn) {
	defer c.wg.Done()

	buf := make([]byte, maxDatagramSize)
	for {
		n, raddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			c.logger.Warn("udp read", "error", err)
			continue
		}

		bb := bytebufferpool.Get()
		_, _ = bb.Write(buf[:n])

		c.mu.Lock()
		key := raddr.String()
		c.inbox[key] = append(c.inbox[key], bb)
		c.mu.Unlock()
	}
}

func (c *Collector) connFor(addr *net.UDPAddr) *net.UDPConn {
	if addr.IP.To4() != nil {
		return c.conn4
	}
	return c.conn6
}

// normalizeKey canonicalizes an address so the key used at send time
// matches the one derived from the remote address at receive time
// (compressed IPv6 forms and the like).
func normalizeKey(addr string) (string, bool) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return "", false
	}
	return udpAddr.String(), true
}
