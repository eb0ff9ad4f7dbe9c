package usecase

// Transport abstracts the UDP collector from the poll services. Send is
// fire-and-forget; Collect returns the datagrams buffered for addr since
// the last Clear, in arrival order.
type Transport interface {
	Send(addr string, payload []byte)
	Collect(addr string) [][]byte
	Clear(addr string)
}
