package protocol

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Endpoint is one address:port entry from a master list reply.
type Endpoint struct {
	Address string
	Port    int
}

const masterRecordSize = 18

// ipv4MappedPrefix marks the first 12 bytes of a record whose last four
// address bytes are a plain IPv4 address.
var ipv4MappedPrefix = []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff}

// DecodeMasterList parses one list reply into endpoints. Records are 18
// bytes: a 16-byte address (IPv4-mapped or native IPv6) and a big-endian
// port. A trailing partial record is discarded, matching the lossy
// transport.
func DecodeMasterList(buf []byte) ([]Endpoint, error) {
	tag, payload, err := splitHeader(buf)
	if err != nil {
		return nil, err
	}
	if !tagEqual(tag, tagList) {
		return nil, errors.Wrapf(ErrUnknownFormat, "tag %q", string(tag))
	}

	out := make([]Endpoint, 0, len(payload)/masterRecordSize)
	for len(payload) >= masterRecordSize {
		record := payload[:masterRecordSize]
		payload = payload[masterRecordSize:]
		out = append(out, Endpoint{
			Address: decodeRecordAddress(record),
			Port:    int(record[16])*256 + int(record[17]),
		})
	}
	return out, nil
}

func decodeRecordAddress(record []byte) string {
	if bytes.Equal(record[:len(ipv4MappedPrefix)], ipv4MappedPrefix) {
		return fmt.Sprintf("%d.%d.%d.%d", record[12], record[13], record[14], record[15])
	}

	groups := make([]string, 0, 8)
	for i := 0; i < 16; i += 2 {
		groups = append(groups, fmt.Sprintf("%x", int(record[i])<<8|int(record[i+1])))
	}
	return strings.Join(groups, ":")
}
