package gateway

// FrameKind tags the transport frame variants this layer distinguishes.
// Payload frames keep their bytes, close frames keep the peer's status,
// and everything else is opaque control traffic.
type FrameKind uint8

const (
	// FrameText is a text message (RFC 6455 opcode 1). The gateway sends
	// uncompressed JSON payloads this way.
	FrameText FrameKind = iota + 1

	// FrameBinary is a binary message (RFC 6455 opcode 2). The gateway
	// sends zlib-compressed JSON payloads this way.
	FrameBinary

	// FrameClose is a close frame (RFC 6455 opcode 8).
	FrameClose

	// FrameOther covers ping, pong and continuation frames. The engine
	// handles their mechanics; this layer never sees application data in
	// them.
	FrameOther
)

// StatusNormalClosure is the RFC 6455 normal-closure code.
const StatusNormalClosure = 1000

// CloseSignal is the (code, reason) pair carried by a remote close frame.
type CloseSignal struct {
	Code   int
	Reason string
}

// Frame is one inbound transport unit, already reassembled and unmasked by
// the engine.
type Frame struct {
	Kind  FrameKind
	Data  []byte       // payload for FrameText and FrameBinary
	Close *CloseSignal // status for FrameClose, nil when the peer sent none
}
