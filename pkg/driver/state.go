package driver

// State is the state of an Engine.
type State int32

// Engine states.
const (
	Idle State = iota
	AwaitingData
	Parsing
	FrameReady
	Incomplete
	FrameInvalid
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingData:
		return "awaiting-data"
	case Parsing:
		return "parsing"
	case FrameReady:
		return "frame-ready"
	case Incomplete:
		return "incomplete"
	case FrameInvalid:
		return "frame-invalid"
	}
	return "unknown"
}

// DecodePolicy decides what happens to bytes which fail to decode.
type DecodePolicy int

// Decode policies.
const (
	// PolicyFail fails the exchange and leaves the bytes buffered.
	PolicyFail DecodePolicy = iota
	// PolicySkipByte drops the leading byte and retries decoding
	// within the same exchange.
	PolicySkipByte
)

// ParseDecodePolicy parses "fail" or "skip-byte".
func ParseDecodePolicy(str string) (DecodePolicy, bool) {
	switch str {
	case "", "fail":
		return PolicyFail, true
	case "skip-byte", "skip":
		return PolicySkipByte, true
	}
	return PolicyFail, false
}

func (p DecodePolicy) String() string {
	if p == PolicySkipByte {
		return "skip-byte"
	}
	return "fail"
}
