package server

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// MasterServer is a directory server that answers list requests with the
// game servers it knows about.
type MasterServer struct {
	ID               int64
	Hostname         string
	Port             int
	PollingStartedAt *time.Time
	PolledAt         *time.Time
}

func (m MasterServer) Addr() string {
	return net.JoinHostPort(m.Hostname, strconv.Itoa(m.Port))
}

// GameServer is one pollable game server, discovered through a master.
// Address is always an IP literal.
type GameServer struct {
	ID               int64
	Address          string
	Port             int
	MasterServerID   int64
	OfflineSince     *time.Time
	PollingStartedAt *time.Time
	PolledAt         *time.Time
}

func (g GameServer) Addr() string {
	return net.JoinHostPort(g.Address, strconv.Itoa(g.Port))
}

func (g GameServer) Validate() error {
	if net.ParseIP(g.Address) == nil {
		return fmt.Errorf("invalid game server address: %q", g.Address)
	}
	if g.Port <= 0 || g.Port > 65535 {
		return fmt.Errorf("invalid game server port: %d", g.Port)
	}
	return nil
}

// Endpoint is an address:port pair as reported by a master server.
type Endpoint struct {
	Address string
	Port    int
}

const offlineSkipRampup = 24 * time.Hour

// OfflineSkipProbability returns the chance a poll of a server believed
// offline should be skipped: 5% right after the outage is detected,
// ramping linearly to 95% at 24h and beyond.
func OfflineSkipProbability(offlineFor time.Duration) float64 {
	if offlineFor < 0 {
		offlineFor = 0
	}
	fraction := float64(offlineFor) / float64(offlineSkipRampup)
	if fraction > 1 {
		fraction = 1
	}
	return 0.05 + 0.90*fraction
}
