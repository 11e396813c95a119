package world

// Status is the engine lifecycle: Idle -> Running -> Finished.
type Status interface {
	isStatus()
	String() string
}

type Idle struct{}

type Running struct{}

// Finished is terminal. A nil Winner is a draw.
type Finished struct {
	Winner *PlayerID
}

func (Idle) isStatus()     {}
func (Running) isStatus()  {}
func (Finished) isStatus() {}

func (Idle) String() string     { return "idle" }
func (Running) String() string  { return "running" }
func (Finished) String() string { return "finished" }

func IsRunning(s Status) bool {
	_, ok := s.(Running)
	return ok
}

func IsFinished(s Status) bool {
	_, ok := s.(Finished)
	return ok
}
