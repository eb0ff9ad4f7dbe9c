package rating

import (
	"testing"

	"github.com/teewatch/teewatch/internal/domain/snapshot"
)

func TestBestTimeCandidate(t *testing.T) {
	cases := []struct {
		name   string
		client snapshot.Client
		want   float64
		wantOK bool
	}{
		{
			name:   "negative time",
			client: snapshot.Client{PlayerName: "racer", Score: -83, IsInGame: true},
			want:   -83,
			wantOK: true,
		},
		{
			name:   "positive score normalized",
			client: snapshot.Client{PlayerName: "racer", Score: 83, IsInGame: true},
			want:   -83,
			wantOK: true,
		},
		{
			name:   "unfinished sentinel",
			client: snapshot.Client{PlayerName: "racer", Score: UnfinishedScore, IsInGame: true},
		},
		{
			name:   "negative unfinished sentinel",
			client: snapshot.Client{PlayerName: "racer", Score: -UnfinishedScore, IsInGame: true},
		},
		{
			name:   "spectator",
			client: snapshot.Client{PlayerName: "racer", Score: -10, IsInGame: false},
		},
		{
			name:   "connecting placeholder",
			client: snapshot.Client{PlayerName: snapshot.ConnectingName, Score: -10, IsInGame: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := BestTimeCandidate(tc.client)
			if ok != tc.wantOK {
				t.Fatalf("unexpected ok: got=%t want=%t", ok, tc.wantOK)
			}
			if ok && got != tc.want {
				t.Fatalf("unexpected candidate: got=%f want=%f", got, tc.want)
			}
		})
	}
}

func TestDefaultStrategyForGameType(t *testing.T) {
	if got := DefaultStrategyForGameType("Race"); got != StrategyBestTime {
		t.Fatalf("race must default to besttime, got %s", got)
	}
	if got := DefaultStrategyForGameType("iFastCap"); got != StrategyBestTime {
		t.Fatalf("fastcap must default to besttime, got %s", got)
	}
	if got := DefaultStrategyForGameType("CTF"); got != StrategyElo {
		t.Fatalf("ctf must default to elo, got %s", got)
	}
}
