package command

import (
	"testing"

	"github.com/betaskintech/clara/pkg/botcore"
)

func TestStreamWriterIncremental(t *testing.T) {
	ch := make(chan botcore.StreamChunk, 10)
	w := NewStreamWriter(ch)

	if _, err := w.Write([]byte("Sesión: ")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := w.Write([]byte("session_1\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// Each chunk carries only its own increment
	for _, want := range []string{"Sesión: ", "session_1\n"} {
		select {
		case chunk := <-ch:
			if chunk.Content != want || chunk.IsFinal {
				t.Errorf("expected non-final chunk %q, got %+v", want, chunk)
			}
		default:
			t.Fatalf("expected chunk %q available", want)
		}
	}
}

func TestStreamWriterSkipsEmptyWrites(t *testing.T) {
	ch := make(chan botcore.StreamChunk, 1)
	n, err := NewStreamWriter(ch).Write(nil)
	if n != 0 || err != nil {
		t.Fatalf("unexpected result: %d %v", n, err)
	}
	if len(ch) != 0 {
		t.Fatalf("empty write produced a chunk")
	}
}
