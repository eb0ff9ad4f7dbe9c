package postgres

import "time"

type masterServerTableModel struct {
	ID               int64      `db:"id"`
	Hostname         string     `db:"hostname"`
	Port             int        `db:"port"`
	PollingStartedAt *time.Time `db:"polling_started_at"`
	PolledAt         *time.Time `db:"polled_at"`
}

type gameServerTableModel struct {
	ID               int64      `db:"id"`
	Address          string     `db:"address"`
	Port             int        `db:"port"`
	MasterServerID   *int64     `db:"master_server_id"`
	OfflineSince     *time.Time `db:"offline_since"`
	PollingStartedAt *time.Time `db:"polling_started_at"`
	PolledAt         *time.Time `db:"polled_at"`
}
