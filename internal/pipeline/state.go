package pipeline

// State is a step of the extraction state machine.
type State int

const (
	StateInit State = iota
	StateSearching
	StateProcessingURL
	StateProcessingChunk
	StateDeduping
	StateDone
)

var stateNames = [...]string{
	StateInit:            "INIT",
	StateSearching:       "SEARCHING",
	StateProcessingURL:   "PROCESSING_URL",
	StateProcessingChunk: "PROCESSING_CHUNK",
	StateDeduping:        "DEDUPING",
	StateDone:            "DONE",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}
