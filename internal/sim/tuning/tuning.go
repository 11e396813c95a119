package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz           int `yaml:"tick_rate_hz"`
	BombFuseTicks        int `yaml:"bomb_fuse_ticks"`
	ExplosionTicks       int `yaml:"explosion_ticks"`
	MaxPlayers           int `yaml:"max_players"`
	MinPlayers           int `yaml:"min_players"`
	ItemDropOneIn        int `yaml:"item_drop_one_in"`
	CollisionMarginMilli int `yaml:"collision_margin_milli"`

	Player PlayerDefaults `yaml:"player"`

	// Per-connection transport limits.
	OutQueue      int     `yaml:"out_queue"`
	IntentsPerSec float64 `yaml:"intents_per_sec"`
	IntentBurst   int     `yaml:"intent_burst"`
	ReapEverySec  int     `yaml:"reap_every_sec"`
	MaxNameRunes  int     `yaml:"max_name_runes"`
}

type PlayerDefaults struct {
	Speed      float64 `yaml:"speed"`
	SpeedBoost float64 `yaml:"speed_boost"`
	BombRange  int     `yaml:"bomb_range"`
	MaxBombs   int     `yaml:"max_bombs"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:      "1.0",
		TickRateHz:           20,
		BombFuseTicks:        40,
		ExplosionTicks:       10,
		MaxPlayers:           4,
		MinPlayers:           2,
		ItemDropOneIn:        3,
		CollisionMarginMilli: 150,
		Player: PlayerDefaults{
			Speed:      2.0,
			SpeedBoost: 0.5,
			BombRange:  1,
			MaxBombs:   1,
		},
		OutQueue:      16,
		IntentsPerSec: 60,
		IntentBurst:   30,
		ReapEverySec:  10,
		MaxNameRunes:  16,
	}
}

// Load reads a tuning file on top of Defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0 || t.TickRateHz > 1000:
		return fmt.Errorf("tick_rate_hz out of range: %d", t.TickRateHz)
	case t.BombFuseTicks <= 0:
		return fmt.Errorf("bomb_fuse_ticks must be positive")
	case t.ExplosionTicks <= 0:
		return fmt.Errorf("explosion_ticks must be positive")
	case t.MaxPlayers < 2 || t.MaxPlayers > 4:
		return fmt.Errorf("max_players must be within [2,4]: %d", t.MaxPlayers)
	case t.MinPlayers < 2 || t.MinPlayers > t.MaxPlayers:
		return fmt.Errorf("min_players must be within [2,max_players]: %d", t.MinPlayers)
	case t.ItemDropOneIn < 0:
		return fmt.Errorf("item_drop_one_in must not be negative: %d", t.ItemDropOneIn)
	case t.CollisionMarginMilli < 0 || t.CollisionMarginMilli >= 500:
		return fmt.Errorf("collision_margin_milli out of range: %d", t.CollisionMarginMilli)
	case t.Player.Speed <= 0 || t.Player.BombRange <= 0 || t.Player.MaxBombs <= 0:
		return fmt.Errorf("player defaults must be positive")
	case t.OutQueue <= 0:
		return fmt.Errorf("out_queue must be positive")
	case !(t.IntentsPerSec > 0):
		return fmt.Errorf("intents_per_sec must be positive: %v", t.IntentsPerSec)
	case t.IntentBurst <= 0:
		return fmt.Errorf("intent_burst must be positive: %d", t.IntentBurst)
	case t.ReapEverySec <= 0:
		return fmt.Errorf("reap_every_sec must be positive: %d", t.ReapEverySec)
	case t.MaxNameRunes <= 0:
		return fmt.Errorf("max_name_runes must be positive: %d", t.MaxNameRunes)
	}
	return nil
}

// TickSeconds is the simulated duration of one tick.
func (t Tuning) TickSeconds() float64 {
	if t.TickRateHz <= 0 {
		return 0
	}
	return 1.0 / float64(t.TickRateHz)
}

func (t Tuning) CollisionMargin() float64 {
	return float64(t.CollisionMarginMilli) / 1000.0
}
