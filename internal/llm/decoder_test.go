package llm

import (
	"strings"
	"testing"
)

func TestFrameDecoderChunkBoundaries(t *testing.T) {
	stream := "data: {\"id\":\"1\"}\n\n" +
		": keep-alive comment\n" +
		"data: {\"id\":\"2\",\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\n" +
		"data: {\"id\":\"3\"}\n\n" +
		"data: [DONE]\n\n"
	want := []string{
		`{"id":"1"}`,
		`{"id":"2","choices":[{"delta":{"content":"hi"}}]}`,
		`{"id":"3"}`,
	}

	for chunkSize := 1; chunkSize <= len(stream); chunkSize++ {
		var dec FrameDecoder
		var got []string
		for i := 0; i < len(stream); i += chunkSize {
			end := i + chunkSize
			if end > len(stream) {
				end = len(stream)
			}
			for _, f := range dec.Feed([]byte(stream[i:end])) {
				got = append(got, string(f))
			}
		}
		for _, f := range dec.Flush() {
			got = append(got, string(f))
		}
		if len(got) != len(want) {
			t.Fatalf("chunk size %d: got %d frames, want %d: %v", chunkSize, len(got), len(want), got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("chunk size %d: frame %d = %q, want %q", chunkSize, i, got[i], want[i])
			}
		}
		if !dec.Done() {
			t.Fatalf("chunk size %d: sentinel not recognized", chunkSize)
		}
	}
}

func TestFrameDecoderIgnoresAfterSentinel(t *testing.T) {
	var dec FrameDecoder
	frames := dec.Feed([]byte("data: [DONE]\n\ndata: {\"id\":\"late\"}\n\n"))
	if len(frames) != 0 {
		t.Fatalf("expected no frames, got %v", frames)
	}
	if !dec.Done() {
		t.Fatal("expected done after sentinel")
	}
	if extra := dec.Feed([]byte("data: {\"id\":\"more\"}\n\n")); len(extra) != 0 {
		t.Fatalf("expected feed after sentinel to be dropped, got %v", extra)
	}
}

func TestFrameDecoderSkipsMalformedFrame(t *testing.T) {
	var dec FrameDecoder
	frames := dec.Feed([]byte("data: {not json\ndata: {\"id\":\"ok\"}\n"))
	if len(frames) != 1 || string(frames[0]) != `{"id":"ok"}` {
		t.Fatalf("expected the valid frame only, got %v", frames)
	}
}

func TestFrameDecoderCRLF(t *testing.T) {
	var dec FrameDecoder
	frames := dec.Feed([]byte("data: {\"id\":\"a\"}\r\n\r\ndata: [DONE]\r\n"))
	if len(frames) != 1 || string(frames[0]) != `{"id":"a"}` {
		t.Fatalf("unexpected frames: %v", frames)
	}
	if !dec.Done() {
		t.Fatal("expected done with CRLF line endings")
	}
}

func TestFrameDecoderFlushDrainsTrailingFrame(t *testing.T) {
	var dec FrameDecoder
	if frames := dec.Feed([]byte(`data: {"id":"tail"}`)); len(frames) != 0 {
		t.Fatalf("incomplete line should not produce frames, got %v", frames)
	}
	frames := dec.Flush()
	if len(frames) != 1 || string(frames[0]) != `{"id":"tail"}` {
		t.Fatalf("flush should recover the trailing frame, got %v", frames)
	}
}

func TestStreamDecoderDeltas(t *testing.T) {
	stream := "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{}}]}\n" +
		"data: [DONE]\n"

	var dec StreamDecoder
	var sb strings.Builder
	for _, text := range dec.Feed([]byte(stream)) {
		sb.WriteString(text)
	}
	for _, text := range dec.Flush() {
		sb.WriteString(text)
	}
	if sb.String() != "Hello" {
		t.Fatalf("got %q, want %q", sb.String(), "Hello")
	}
	if !dec.Done() {
		t.Fatal("expected done")
	}
}
