package gateway

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zlib"
)

// Gateway payloads shrink to roughly a third of their plaintext under zlib,
// so the inflate buffer is pre-grown accordingly. A miss only costs a
// realloc.
const inflateSizeFactor = 3

// DecodeFrame interprets one inbound frame and, when it carries a payload,
// unmarshals the JSON into dst. It reports (false, nil) for frames that
// carry nothing for the application: a nil frame, ping/pong/continuation,
// and a close frame without a status. A close frame with a status becomes a
// *ClosedError; the stream is dead at that point.
//
// Binary payloads are zlib-compressed JSON, text payloads are JSON as is.
// A payload that does not fully inflate and parse never populates dst.
func DecodeFrame(f *Frame, dst any) (bool, error) {
	if f == nil {
		return false, nil
	}
	switch f.Kind {
	case FrameBinary:
		text, err := inflate(f.Data)
		if err != nil {
			return false, &InflateError{Data: f.Data, Err: err}
		}
		if err := json.Unmarshal(text, dst); err != nil {
			return false, &DecodeError{Text: string(text), Err: err}
		}
		return true, nil
	case FrameText:
		if err := json.Unmarshal(f.Data, dst); err != nil {
			return false, &DecodeError{Text: string(f.Data), Err: err}
		}
		return true, nil
	case FrameClose:
		if f.Close != nil {
			return false, &ClosedError{Signal: *f.Close}
		}
		return false, nil
	default:
		return false, nil
	}
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var buf bytes.Buffer
	buf.Grow(len(data) * inflateSizeFactor)
	if _, err := buf.ReadFrom(zr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
