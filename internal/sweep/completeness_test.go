package sweep

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sweeparr/sweeparr/internal/media"
)

func TestProofFor(t *testing.T) {
	eps := []media.Episode{
		{ID: 1, Season: 0, Episode: 1, Monitored: true, HasFile: false},
		{ID: 2, Season: 1, Episode: 1, Monitored: false, HasFile: true},
		{ID: 3, Season: 1, Episode: 2, Monitored: true, HasFile: false},
		{ID: 4, Season: 2, Episode: 1, Monitored: false, HasFile: false},
	}

	tests := []struct {
		name        string
		season      int
		have        map[media.EpisodeKey]bool
		wantAllowed bool
		wantMissing int
	}{
		{
			// Only the special is exempt from the check.
			name:   "complete library",
			season: -1,
			have: map[media.EpisodeKey]bool{
				{Season: 1, Episode: 1}: true,
				{Season: 1, Episode: 2}: true,
				{Season: 2, Episode: 1}: true,
			},
			wantAllowed: true,
		},
		{
			name:        "monitored episode missing",
			season:      -1,
			have:        map[media.EpisodeKey]bool{{Season: 1, Episode: 1}: true, {Season: 2, Episode: 1}: true},
			wantAllowed: false,
			wantMissing: 1,
		},
		{
			name:        "downloaded episode missing",
			season:      -1,
			have:        map[media.EpisodeKey]bool{{Season: 1, Episode: 2}: true, {Season: 2, Episode: 1}: true},
			wantAllowed: false,
			wantMissing: 1,
		},
		{
			// Episode 4 is neither downloaded nor monitored but the
			// tracker knows it, so its absence still blocks.
			name:        "unmonitored fileless episode blocks",
			season:      -1,
			have:        map[media.EpisodeKey]bool{{Season: 1, Episode: 1}: true, {Season: 1, Episode: 2}: true},
			wantAllowed: false,
			wantMissing: 1,
		},
		{
			name:        "season scoped check",
			season:      2,
			have:        map[media.EpisodeKey]bool{{Season: 2, Episode: 1}: true},
			wantAllowed: true,
		},
		{
			name:        "season scoped check misses other seasons",
			season:      1,
			have:        map[media.EpisodeKey]bool{{Season: 2, Episode: 1}: true},
			wantAllowed: false,
			wantMissing: 2,
		},
		{
			name:        "empty library",
			season:      -1,
			have:        nil,
			wantAllowed: false,
			wantMissing: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proof := proofFor(eps, tt.season, tt.have)
			if proof.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v (missing %v)", proof.Allowed, tt.wantAllowed, proof.Missing)
			}
			if len(proof.Missing) != tt.wantMissing {
				t.Errorf("Missing = %v, want %d entries", proof.Missing, tt.wantMissing)
			}
		})
	}
}

func TestProofFor_AbsentUnmonitoredEpisodeDeniesSeries(t *testing.T) {
	eps := []media.Episode{
		{ID: 1, Season: 1, Episode: 1, Monitored: true, HasFile: true},
		{ID: 2, Season: 1, Episode: 2, Monitored: false, HasFile: false},
	}
	proof := proofFor(eps, -1, map[media.EpisodeKey]bool{{Season: 1, Episode: 1}: true})
	if proof.Allowed {
		t.Fatalf("s01e02 is absent from the library, proof must deny")
	}
	want := media.EpisodeKey{Season: 1, Episode: 2}
	if len(proof.Missing) != 1 || proof.Missing[0] != want {
		t.Errorf("Missing = %v, want [%+v]", proof.Missing, want)
	}
}

func TestProofFor_MissingSortedBySeasonEpisode(t *testing.T) {
	eps := []media.Episode{
		{ID: 1, Season: 2, Episode: 1, HasFile: true},
		{ID: 2, Season: 1, Episode: 2, HasFile: true},
		{ID: 3, Season: 1, Episode: 1, HasFile: true},
	}
	proof := proofFor(eps, -1, nil)
	want := []media.EpisodeKey{{Season: 1, Episode: 1}, {Season: 1, Episode: 2}, {Season: 2, Episode: 1}}
	if len(proof.Missing) != len(want) {
		t.Fatalf("Missing = %v", proof.Missing)
	}
	for i := range want {
		if proof.Missing[i] != want[i] {
			t.Errorf("Missing[%d] = %v, want %v", i, proof.Missing[i], want[i])
		}
	}
}

func TestCheckSeriesByTitle_UntrackedSeriesDenied(t *testing.T) {
	tracker := &memTracker{entries: []media.Entry{
		{ID: 9, ExternalID: 42, Title: "Dark", Monitored: true},
	}}
	g := NewGuard(tracker, zerolog.Nop())

	proof, err := g.CheckSeriesByTitle(context.Background(), 0, "Unknown Show", nil)
	if err != nil {
		t.Fatalf("CheckSeriesByTitle: %v", err)
	}
	if proof.Allowed {
		t.Errorf("untracked series must be denied")
	}
}

func TestCheckSeries_ListFailureIsAnError(t *testing.T) {
	tracker := &memTracker{listErr: errBoom}
	g := NewGuard(tracker, zerolog.Nop())

	if _, err := g.CheckSeriesByTitle(context.Background(), 42, "Dark", nil); err == nil {
		t.Errorf("catalog failure must surface as an error")
	}
}
