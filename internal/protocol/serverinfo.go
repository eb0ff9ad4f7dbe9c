package protocol

import "github.com/cockroachdb/errors"

// ServerInfo is the canonical record assembled from one exchange's
// server-info replies, whichever format variants they arrived in.
type ServerInfo struct {
	Version    string
	Name       string
	MapName    string
	GameType   string
	Flags      int
	NumPlayers int
	MaxPlayers int
	NumClients int
	MaxClients int
	Clients    []Client
}

// Client is one per-client record from a server-info reply.
type Client struct {
	Name     string
	Clan     string
	Country  int
	Score    int
	IsPlayer bool
}

// Format fidelity, low to high. When the same player shows up under two
// variants of the same exchange, the more capable format's record wins.
const (
	fidelityVanilla = iota
	fidelityLegacy64
	fidelityExtended
	fidelityExtendedMore
)

type accClient struct {
	client   Client
	fidelity int
}

// InfoAccumulator merges the reply buffers of a single server-info
// exchange. Decoding is strictly additive: a malformed buffer leaves the
// accumulated state untouched.
type InfoAccumulator struct {
	info          ServerInfo
	fixedFidelity int
	hasFixed      bool
	order         []string
	clients       map[string]accClient
}

func NewInfoAccumulator() *InfoAccumulator {
	return &InfoAccumulator{
		fixedFidelity: -1,
		clients:       make(map[string]accClient),
	}
}

// Decode parses one reply buffer and folds it into the accumulated state.
func (a *InfoAccumulator) Decode(buf []byte) error {
	tag, payload, err := splitHeader(buf)
	if err != nil {
		return err
	}

	switch {
	case tagEqual(tag, tagInfoVanilla):
		return a.decodeVanilla(payload, fidelityVanilla)
	case tagEqual(tag, tagInfoLegacy64):
		return a.decodeLegacy64(payload)
	case tagEqual(tag, tagInfoExtended):
		return a.decodeExtended(payload)
	case tagEqual(tag, tagInfoExtMore):
		return a.decodeExtendedMore(payload)
	default:
		return errors.Wrapf(ErrUnknownFormat, "tag %q", string(tag))
	}
}

// Info returns the merged record; ok is false when no buffer decoded
// successfully.
func (a *InfoAccumulator) Info() (ServerInfo, bool) {
	if !a.hasFixed {
		return ServerInfo{}, false
	}

	info := a.info
	info.Clients = make([]Client, 0, len(a.order))
	for _, name := range a.order {
		info.Clients = append(info.Clients, a.clients[name].client)
	}
	return info, true
}

// Vanilla and legacy64 share the fixed-field layout:
// token, version, name, map, gametype, flags, numplayers, maxplayers,
// numclients, maxclients.
func (a *InfoAccumulator) decodeVanilla(payload []byte, fidelity int) error {
	u := newUnpacker(payload)
	fixed, err := decodeCommonFixed(u)
	if err != nil {
		return err
	}

	clients, err := decodeClients(u, false)
	if err != nil {
		return err
	}

	a.mergeFixed(fixed, fidelity)
	a.mergeClients(clients, fidelity)
	return nil
}

// Legacy64 inserts a packed offset token between the fixed fields and the
// client records so multi-packet replies can interleave.
func (a *InfoAccumulator) decodeLegacy64(payload []byte) error {
	u := newUnpacker(payload)
	fixed, err := decodeCommonFixed(u)
	if err != nil {
		return err
	}

	if u.remaining() > 0 {
		if _, err := u.nextInt(); err != nil {
			return err
		}
	}

	clients, err := decodeClients(u, false)
	if err != nil {
		return err
	}

	a.mergeFixed(fixed, fidelityLegacy64)
	a.mergeClients(clients, fidelityLegacy64)
	return nil
}

// Extended layout: token, version, name, map, mapcrc, mapsize, gametype,
// flags, numplayers, maxplayers, numclients, maxclients, reserved.
func (a *InfoAccumulator) decodeExtended(payload []byte) error {
	u := newUnpacker(payload)
	if _, err := u.nextString(); err != nil { // token echo
		return err
	}

	var fixed ServerInfo
	var err error
	if fixed.Version, err = u.nextString(); err != nil {
		return err
	}
	if fixed.Name, err = u.nextString(); err != nil {
		return err
	}
	if fixed.MapName, err = u.nextString(); err != nil {
		return err
	}
	if _, err = u.nextInt(); err != nil { // map crc
		return err
	}
	if _, err = u.nextInt(); err != nil { // map size
		return err
	}
	if fixed.GameType, err = u.nextString(); err != nil {
		return err
	}
	if fixed.Flags, err = u.nextInt(); err != nil {
		return err
	}
	if fixed.NumPlayers, err = u.nextInt(); err != nil {
		return err
	}
	if fixed.MaxPlayers, err = u.nextInt(); err != nil {
		return err
	}
	if fixed.NumClients, err = u.nextInt(); err != nil {
		return err
	}
	if fixed.MaxClients, err = u.nextInt(); err != nil {
		return err
	}
	if _, err = u.nextString(); err != nil { // reserved
		return err
	}

	clients, err := decodeClients(u, true)
	if err != nil {
		return err
	}

	a.mergeFixed(fixed, fidelityExtended)
	a.mergeClients(clients, fidelityExtended)
	return nil
}

// Extended-more packets continue an extended reply: token, packet number,
// reserved, then client records only.
func (a *InfoAccumulator) decodeExtendedMore(payload []byte) error {
	u := newUnpacker(payload)
	if _, err := u.nextString(); err != nil { // token echo
		return err
	}
	if _, err := u.nextInt(); err != nil { // packet number
		return err
	}
	if _, err := u.nextString(); err != nil { // reserved
		return err
	}

	clients, err := decodeClients(u, true)
	if err != nil {
		return err
	}

	a.mergeClients(clients, fidelityExtendedMore)
	return nil
}

func decodeCommonFixed(u *unpacker) (ServerInfo, error) {
	var fixed ServerInfo
	var err error
	if _, err = u.nextString(); err != nil { // token echo
		return ServerInfo{}, err
	}
	if fixed.Version, err = u.nextString(); err != nil {
		return ServerInfo{}, err
	}
	if fixed.Name, err = u.nextString(); err != nil {
		return ServerInfo{}, err
	}
	if fixed.MapName, err = u.nextString(); err != nil {
		return ServerInfo{}, err
	}
	if fixed.GameType, err = u.nextString(); err != nil {
		return ServerInfo{}, err
	}
	if fixed.Flags, err = u.nextInt(); err != nil {
		return ServerInfo{}, err
	}
	if fixed.NumPlayers, err = u.nextInt(); err != nil {
		return ServerInfo{}, err
	}
	if fixed.MaxPlayers, err = u.nextInt(); err != nil {
		return ServerInfo{}, err
	}
	if fixed.NumClients, err = u.nextInt(); err != nil {
		return ServerInfo{}, err
	}
	if fixed.MaxClients, err = u.nextInt(); err != nil {
		return ServerInfo{}, err
	}
	return fixed, nil
}

func decodeClients(u *unpacker, extended bool) ([]Client, error) {
	var out []Client
	for u.remaining() > 0 {
		var c Client
		var err error
		if c.Name, err = u.nextString(); err != nil {
			return nil, err
		}
		if c.Clan, err = u.nextString(); err != nil {
			return nil, err
		}
		if c.Country, err = u.nextInt(); err != nil {
			return nil, err
		}
		if c.Score, err = u.nextInt(); err != nil {
			return nil, err
		}
		if c.IsPlayer, err = u.nextBool(); err != nil {
			return nil, err
		}
		if extended {
			if _, err = u.nextString(); err != nil { // reserved
				return nil, err
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func (a *InfoAccumulator) mergeFixed(fixed ServerInfo, fidelity int) {
	if fidelity >= a.fixedFidelity {
		a.info = fixed
		a.fixedFidelity = fidelity
	}
	a.hasFixed = true
}

func (a *InfoAccumulator) mergeClients(clients []Client, fidelity int) {
	for _, c := range clients {
		existing, ok := a.clients[c.Name]
		if !ok {
			a.order = append(a.order, c.Name)
			a.clients[c.Name] = accClient{client: c, fidelity: fidelity}
			continue
		}
		if fidelity > existing.fidelity {
			a.clients[c.Name] = accClient{client: c, fidelity: fidelity}
		}
	}
}
