package handshake

// Phase is a step of one authorization handshake.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAuthorizationRequested
	PhaseAwaitingCallback
	PhaseExchangingToken
	PhaseCompleted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAuthorizationRequested:
		return "authorization_requested"
	case PhaseAwaitingCallback:
		return "awaiting_callback"
	case PhaseExchangingToken:
		return "exchanging_token"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition follows p.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Transition is reported to an Observer on every phase change of a run.
type Transition struct {
	ScopeKey string
	From     Phase
	To       Phase
	Err      error // set when To is PhaseFailed
}

// Observer receives transitions synchronously from the running handshake.
type Observer func(Transition)
