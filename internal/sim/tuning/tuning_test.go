package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_RepoConfigMatchesDefaults(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != Defaults() {
		t.Fatalf("configs/tuning.yaml drifted from Defaults():\n got=%+v\nwant=%+v", got, Defaults())
	}
}

func TestLoad_OverlaysOnDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("bomb_fuse_ticks: 20\nplayer:\n  bomb_range: 3\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.BombFuseTicks != 20 || got.Player.BombRange != 3 {
		t.Fatalf("overrides not applied: %+v", got)
	}
	if got.TickRateHz != 20 || got.Player.MaxBombs != 1 {
		t.Fatalf("defaults lost: %+v", got)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("min_players: 5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoad_RejectsNonPositiveTransportLimits(t *testing.T) {
	for _, body := range []string{
		"intents_per_sec: 0\n",
		"intents_per_sec: -1.5\n",
		"intents_per_sec: .nan\n",
		"intent_burst: 0\n",
		"reap_every_sec: -1\n",
		"max_name_runes: 0\n",
		"out_queue: 0\n",
	} {
		p := filepath.Join(t.TempDir(), "tuning.yaml")
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		_, err := Load(p)
		if err == nil {
			t.Fatalf("%q: expected validation error", body)
		}
		if !strings.HasPrefix(err.Error(), "tuning.yaml: ") {
			t.Fatalf("%q: error not tagged with file: %v", body, err)
		}
	}
}

func TestTickSeconds(t *testing.T) {
	if got := Defaults().TickSeconds(); got != 0.05 {
		t.Fatalf("tick seconds=%v want 0.05", got)
	}
}
