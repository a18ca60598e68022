package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"

	"codeberg.org/mutker/trapbridge/internal/bridge"
	"codeberg.org/mutker/trapbridge/internal/errors"
	"codeberg.org/mutker/trapbridge/internal/logger"
)

const maxLineSize = 1 << 20

type request struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args"`
}

type reply struct {
	ID    json.RawMessage   `json:"id"`
	OK    bool              `json:"ok"`
	Data  bridge.Result     `json:"data,omitempty"`
	Error *bridge.Rejection `json:"error,omitempty"`
}

var nullID = json.RawMessage("null")

// serve answers one request per input line until r is exhausted or ctx is
// cancelled. Replies go to w in request order.
func serve(ctx context.Context, r io.Reader, w io.Writer, b *bridge.Bridge) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if err := enc.Encode(handle(b, line)); err != nil {
			return errors.New().Wrap(errors.ErrOperationFailed, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.New().Wrap(errors.ErrOperationFailed, err)
	}
	return nil
}

func handle(b *bridge.Bridge, line []byte) reply {
	var req request
	if err := json.Unmarshal(line, &req); err != nil || req.Method == "" {
		logger.Warn().Int("bytes", len(line)).Msg("Malformed request")
		rej := bridge.RejectionOf(errors.New().WithMessage(errors.ErrInvalidArgument, "Malformed request"))
		return reply{ID: nullID, Error: &rej}
	}
	if len(req.ID) == 0 {
		req.ID = nullID
	}

	data, err := b.Invoke(req.Method, argsPayload(req.Args))
	if err != nil {
		rej := bridge.RejectionOf(err)
		return reply{ID: req.ID, Error: &rej}
	}
	return reply{ID: req.ID, OK: true, Data: data}
}

// argsPayload hands the args member to the bridge adapter. A JSON string is
// unwrapped so YAML documents can be sent as text; objects pass through as
// they are, which both adapters read.
func argsPayload(raw json.RawMessage) []byte {
	if len(raw) == 0 || bytes.Equal(raw, nullID) {
		return nil
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			return []byte(text)
		}
	}
	return raw
}
