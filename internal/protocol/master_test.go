package protocol

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func masterPacket(records ...[]byte) []byte {
	buf := packet(tagList)
	for _, r := range records {
		buf = append(buf, r...)
	}
	return buf
}

func ipv4Record(a, b, c, d byte, port int) []byte {
	record := make([]byte, masterRecordSize)
	copy(record, ipv4MappedPrefix)
	record[12], record[13], record[14], record[15] = a, b, c, d
	record[16] = byte(port / 256)
	record[17] = byte(port % 256)
	return record
}

func TestDecodeMasterListIPv4(t *testing.T) {
	endpoints, err := DecodeMasterList(masterPacket(ipv4Record(192, 0, 2, 10, 8303)))
	if err != nil {
		t.Fatalf("decode master list: %v", err)
	}
	if len(endpoints) != 1 {
		t.Fatalf("unexpected endpoint count: %d", len(endpoints))
	}
	if endpoints[0].Address != "192.0.2.10" {
		t.Fatalf("unexpected address: %s", endpoints[0].Address)
	}
	if endpoints[0].Port != 8303 {
		t.Fatalf("unexpected port: %d", endpoints[0].Port)
	}
}

func TestDecodeMasterListIPv6(t *testing.T) {
	record := make([]byte, masterRecordSize)
	record[0], record[1] = 0x20, 0x01
	record[2], record[3] = 0x0d, 0xb8
	record[15] = 0x01
	record[16], record[17] = 0x20, 0x6f // 8303

	endpoints, err := DecodeMasterList(masterPacket(record))
	if err != nil {
		t.Fatalf("decode master list: %v", err)
	}
	if endpoints[0].Address != "2001:db8:0:0:0:0:0:1" {
		t.Fatalf("unexpected address: %s", endpoints[0].Address)
	}
	if endpoints[0].Port != 8303 {
		t.Fatalf("unexpected port: %d", endpoints[0].Port)
	}
}

func TestDecodeMasterListDropsPartialTrailingRecord(t *testing.T) {
	buf := masterPacket(ipv4Record(192, 0, 2, 10, 8303))
	buf = append(buf, 0xde, 0xad)

	endpoints, err := DecodeMasterList(buf)
	if err != nil {
		t.Fatalf("decode master list: %v", err)
	}
	if len(endpoints) != 1 {
		t.Fatalf("partial record must be discarded, got %d endpoints", len(endpoints))
	}
}

func TestDecodeMasterListRejectsWrongTag(t *testing.T) {
	_, err := DecodeMasterList(packet(tagInfoVanilla))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestDecodeMasterListRejectsShortPacket(t *testing.T) {
	_, err := DecodeMasterList([]byte{0xff, 0xff})
	if !errors.Is(err, ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
}

func TestListRequestShape(t *testing.T) {
	buf := ListRequest()
	if len(buf) != headerSize {
		t.Fatalf("unexpected request length: %d", len(buf))
	}
	for i := 0; i < 10; i++ {
		if buf[i] != 0xff {
			t.Fatalf("byte %d must be 0xff, got %#x", i, buf[i])
		}
	}
	if string(buf[10:14]) != "req2" {
		t.Fatalf("unexpected tag: %q", string(buf[10:14]))
	}
}

func TestInfoRequestsCarryToken(t *testing.T) {
	requests := InfoRequests(0x2a)
	if len(requests) != 2 {
		t.Fatalf("expected both query variants, got %d", len(requests))
	}
	if string(requests[0][10:14]) != "gie3" || string(requests[1][10:14]) != "fstd" {
		t.Fatalf("unexpected tags: %q %q", requests[0][10:14], requests[1][10:14])
	}
	for _, req := range requests {
		if req[len(req)-1] != 0x2a {
			t.Fatalf("token byte missing: %v", req)
		}
	}
}
