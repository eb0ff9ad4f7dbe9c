package protocol

import (
	"strconv"

	"github.com/cockroachdb/errors"
)

// unpacker reads NUL-terminated ASCII tokens sequentially from a payload.
type unpacker struct {
	data []byte
	off  int
}

func newUnpacker(data []byte) *unpacker {
	return &unpacker{data: data}
}

func (u *unpacker) remaining() int {
	return len(u.data) - u.off
}

func (u *unpacker) nextString() (string, error) {
	for i := u.off; i < len(u.data); i++ {
		if u.data[i] == 0 {
			token := string(u.data[u.off:i])
			u.off = i + 1
			return token, nil
		}
	}
	return "", errors.Wrap(ErrMalformedPacket, "token missing NUL terminator")
}

func (u *unpacker) nextInt() (int, error) {
	token, err := u.nextString()
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(token)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedPacket, "integer token %q", token)
	}
	return value, nil
}

// nextBool treats any nonzero integer token as true.
func (u *unpacker) nextBool() (bool, error) {
	value, err := u.nextInt()
	if err != nil {
		return false, err
	}
	return value != 0, nil
}
