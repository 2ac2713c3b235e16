// Package nativehost lets a browser extension drive cookieshare over native
// messaging: each message on stdin/stdout is a 4-byte little-endian length
// followed by a JSON payload.
package nativehost

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/warpdl/cookieshare/internal/transfer"
)

// MaxMessageSize is the browser's limit for messages sent by a host.
const MaxMessageSize = 1 << 20

// Request is one call from the extension. ID is echoed in the response.
type Request struct {
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Message json.RawMessage `json:"message,omitempty"`
}

// Response answers one Request.
type Response struct {
	ID     int    `json:"id"`
	Ok     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Result any    `json:"result,omitempty"`
}

// ReadMessage reads one length-prefixed message.
func ReadMessage(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	if length > MaxMessageSize {
		return nil, fmt.Errorf("message too large: %d bytes (max %d)", length, MaxMessageSize)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteMessage writes msg with its length prefix.
func WriteMessage(w io.Writer, msg []byte) error {
	if len(msg) > MaxMessageSize {
		return fmt.Errorf("message too large: %d bytes (max %d)", len(msg), MaxMessageSize)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(msg))); err != nil {
		return err
	}
	_, err := w.Write(msg)
	return err
}

func ParseRequest(b []byte) (*Request, error) {
	var r Request
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func MakeSuccessResponse(id int, result any) []byte {
	b, err := json.Marshal(Response{ID: id, Ok: true, Result: result})
	if err != nil {
		return MakeErrorResponse(id, fmt.Errorf("encode result: %w", err))
	}
	return b
}

// resultError is a failure that still has a result the extension must apply.
type resultError struct {
	err    error
	result any
}

func (e *resultError) Error() string { return e.err.Error() }

func (e *resultError) Unwrap() error { return e.err }

// MakeErrorResponse encodes err; transfer errors also report their kind.
func MakeErrorResponse(id int, err error) []byte {
	resp := Response{ID: id, Error: "unknown error"}
	if err != nil {
		resp.Error = err.Error()
		if k := transfer.KindOf(err); k != transfer.KindUnknown {
			resp.Kind = kindName(k)
		}
		var re *resultError
		if errors.As(err, &re) {
			resp.Result = re.result
		}
	}
	b, _ := json.Marshal(resp)
	return b
}

var kindNames = map[transfer.Kind]string{
	transfer.KindInvalidURL:            "InvalidUrl",
	transfer.KindNetwork:               "NetworkFailure",
	transfer.KindTimeout:               "Timeout",
	transfer.KindHTTPStatus:            "HttpStatusError",
	transfer.KindInvalidResponseFormat: "InvalidResponseFormat",
	transfer.KindNothingToSend:         "NothingToSend",
	transfer.KindNothingToImport:       "NothingToImport",
	transfer.KindNoCookiesImported:     "NoCookiesImported",
	transfer.KindNotConfigured:         "NotConfigured",
	transfer.KindBusy:                  "Busy",
	transfer.KindMissingID:             "MissingId",
}

func kindName(k transfer.Kind) string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return k.String()
}
