package world

import "bombarena.dev/internal/sim/tuning"

type WorldConfig struct {
	ID   string
	Seed int64

	Tuning tuning.Tuning
}

func (c WorldConfig) normalized() WorldConfig {
	if c.Tuning.Validate() != nil {
		c.Tuning = tuning.Defaults()
	}
	return c
}
