package world

// WorldMetrics is a point-in-time view of one arena, read by the admin and
// metrics handlers through the owning session.
type WorldMetrics struct {
	Tick   uint64 `json:"tick"`
	Status string `json:"status"`

	Players      int `json:"players"`
	AlivePlayers int `json:"alive_players"`
	Bombs        int `json:"bombs"`
	Explosions   int `json:"explosions"`
	Items        int `json:"items"`

	StepMS float64 `json:"step_ms"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	return WorldMetrics{
		Tick:         w.tick,
		Status:       w.status.String(),
		Players:      len(w.players),
		AlivePlayers: w.AliveCount(),
		Bombs:        len(w.bombs),
		Explosions:   len(w.explosions),
		Items:        len(w.items),
		StepMS:       float64(w.lastStep.Microseconds()) / 1000.0,
	}
}
