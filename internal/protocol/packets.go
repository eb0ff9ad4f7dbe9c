// Package protocol implements the connectionless UDP wire format spoken
// by the master and game servers: a 6-byte link preamble, an 8-byte
// format tag, then a tag-specific payload. Decoding is stateless apart
// from the InfoAccumulator, which merges the buffers of one exchange.
package protocol

import (
	"bytes"

	"github.com/cockroachdb/errors"
)

var (
	// ErrMalformedPacket marks payloads that end mid-token or mid-record.
	ErrMalformedPacket = errors.New("malformed packet")
	// ErrUnknownFormat marks an unrecognized 8-byte format tag.
	ErrUnknownFormat = errors.New("unknown packet format")
)

const (
	preambleSize = 6
	tagSize      = 8
	headerSize   = preambleSize + tagSize
)

// Format tags: four 0xff bytes followed by four ASCII characters.
var (
	tagRequestList   = formatTag("req2")
	tagList          = formatTag("lis2")
	tagRequestInfo   = formatTag("gie3")
	tagRequestInfo64 = formatTag("fstd")
	tagInfoVanilla   = formatTag("inf3")
	tagInfoLegacy64  = formatTag("dtsf")
	tagInfoExtended  = formatTag("iext")
	tagInfoExtMore   = formatTag("iex+")
)

func formatTag(name string) []byte {
	tag := make([]byte, 0, tagSize)
	tag = append(tag, 0xff, 0xff, 0xff, 0xff)
	tag = append(tag, name...)
	return tag
}

func packet(tag []byte, payload ...byte) []byte {
	out := make([]byte, 0, headerSize+len(payload))
	for i := 0; i < preambleSize; i++ {
		out = append(out, 0xff)
	}
	out = append(out, tag...)
	out = append(out, payload...)
	return out
}

// ListRequest builds the packet asking a master server for its list.
func ListRequest() []byte {
	return packet(tagRequestList)
}

// InfoRequests builds both server-info queries for one poll: the vanilla
// query and the 64-player variant. The token byte is echoed by the server
// and ties replies to this exchange.
func InfoRequests(token byte) [][]byte {
	return [][]byte{
		packet(tagRequestInfo, token),
		packet(tagRequestInfo64, token),
	}
}

// splitHeader skips the preamble and returns the tag and payload.
func splitHeader(buf []byte) ([]byte, []byte, error) {
	if len(buf) < headerSize {
		return nil, nil, errors.Wrapf(ErrMalformedPacket, "short packet: %d bytes", len(buf))
	}
	return buf[preambleSize:headerSize], buf[headerSize:], nil
}

func tagEqual(tag, want []byte) bool {
	return bytes.Equal(tag, want)
}
