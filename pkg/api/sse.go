package api

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kitchencore/reasoner/pkg/stream"
)

// setSSEHeaders sets the headers spec §6 requires on every SSE response.
func setSSEHeaders(h interface{ Set(string, string) }) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// writeSSE frames one event onto w in the wire form spec §6 specifies:
// "event: <kind>\ndata: <json>\n\n", where <json> always carries
// {seq_id, ts, ...payload}.
func writeSSE(w io.Writer, ev stream.Event) error {
	envelope := map[string]any{
		"seq_id": ev.SeqID,
		"ts":     ev.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
	}
	switch payload := ev.Payload.(type) {
	case nil:
		// ping carries no payload beyond the envelope.
	case string:
		envelope["token"] = payload
	case map[string]string:
		for k, v := range payload {
			envelope[k] = v
		}
	default:
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			// Not an object (shouldn't happen for our payload types); carry
			// it under "data" rather than dropping it.
			envelope["data"] = payload
			break
		}
		for k, v := range fields {
			envelope[k] = v
		}
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
		return err
	}
	return nil
}
