package gateway

import "fmt"

// InflateError reports a binary frame whose payload is not a valid zlib
// stream. The offending bytes ride along for diagnosis.
type InflateError struct {
	Data []byte
	Err  error
}

func (e *InflateError) Error() string {
	return fmt.Sprintf("gateway: inflate %d-byte frame: %v", len(e.Data), e.Err)
}

func (e *InflateError) Unwrap() error { return e.Err }

// DecodeError reports frame text that did not parse as JSON.
type DecodeError struct {
	Text string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("gateway: decode frame: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ClosedError is terminal: the remote shut the connection down with an
// explicit status. No further sends or receives will succeed.
type ClosedError struct {
	Signal CloseSignal
}

func (e *ClosedError) Error() string {
	return fmt.Sprintf("gateway: closed by remote: code=%d reason=%q", e.Signal.Code, e.Signal.Reason)
}
