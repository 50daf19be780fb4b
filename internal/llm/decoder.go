package llm

import (
	"bytes"
	"encoding/json"
	"strings"
)

// DoneSentinel is the literal frame payload that terminates a stream.
const DoneSentinel = "[DONE]"

// FrameDecoder incrementally decodes `data: <json>` SSE frames from a byte
// stream, tolerating frames split at arbitrary chunk boundaries. A data line
// whose JSON has not fully arrived yet is pushed back and retried on the
// next Feed; Flush drains whatever remains at end of stream, skipping
// anything still unparseable.
type FrameDecoder struct {
	buf  []byte
	done bool
}

// Done reports whether the termination sentinel has been seen.
func (d *FrameDecoder) Done() bool { return d.done }

// Feed appends a network chunk and returns the complete JSON frame payloads
// decoded so far, in order.
func (d *FrameDecoder) Feed(p []byte) [][]byte {
	if d.done {
		return nil
	}
	d.buf = append(d.buf, p...)

	var frames [][]byte
	for {
		nl := bytes.IndexByte(d.buf, '\n')
		if nl < 0 {
			break
		}
		line := string(d.buf[:nl])
		rest := d.buf[nl+1:]

		payload, ok := dataPayload(line)
		if !ok {
			d.buf = rest
			continue
		}
		if payload == DoneSentinel {
			d.done = true
			d.buf = nil
			return frames
		}
		if !json.Valid([]byte(payload)) {
			if len(rest) == 0 {
				// The object may still be split across reads. Push the line
				// back and retry on the next chunk.
				break
			}
			// Later lines already arrived, so the frame is genuinely
			// malformed. Skip it without aborting the stream.
			d.buf = rest
			continue
		}
		frames = append(frames, []byte(payload))
		d.buf = rest
	}
	return frames
}

// Flush processes any buffered remainder at end of stream. Frames that still
// fail to parse are dropped.
func (d *FrameDecoder) Flush() [][]byte {
	if d.done || len(d.buf) == 0 {
		return nil
	}
	var frames [][]byte
	for _, raw := range strings.Split(string(d.buf), "\n") {
		payload, ok := dataPayload(raw)
		if !ok || payload == DoneSentinel {
			continue
		}
		if json.Valid([]byte(payload)) {
			frames = append(frames, []byte(payload))
		}
	}
	d.buf = nil
	return frames
}

// dataPayload extracts the payload of a `data: ` line. Comments, blank lines
// and other SSE fields yield ok=false.
func dataPayload(line string) (string, bool) {
	line = strings.TrimSuffix(line, "\r")
	if line == "" || strings.HasPrefix(line, ":") {
		return "", false
	}
	if !strings.HasPrefix(line, "data: ") {
		return "", false
	}
	return strings.TrimSpace(line[len("data: "):]), true
}

// StreamDecoder decodes OpenAI-style chat chunks into incremental text
// deltas. Malformed chunk JSON is skipped without aborting the stream.
type StreamDecoder struct {
	frames FrameDecoder
}

// Done reports whether the termination sentinel has been seen.
func (d *StreamDecoder) Done() bool { return d.frames.Done() }

// Feed appends a network chunk and returns the text deltas decoded so far.
func (d *StreamDecoder) Feed(p []byte) []string {
	return deltas(d.frames.Feed(p))
}

// Flush drains any buffered remainder at end of stream.
func (d *StreamDecoder) Flush() []string {
	return deltas(d.frames.Flush())
}

func deltas(frames [][]byte) []string {
	var out []string
	for _, f := range frames {
		var chunk StreamChunk
		if err := json.Unmarshal(f, &chunk); err != nil {
			continue
		}
		if text := chunk.DeltaContent(); text != "" {
			out = append(out, text)
		}
	}
	return out
}
