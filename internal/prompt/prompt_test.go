package prompt

import (
	"bytes"
	"testing"

	"github.com/edgard/digestbot/internal/database"
)

func TestAssembleTextMessage(t *testing.T) {
	t.Parallel()

	got := Assemble(nil, []database.Message{{UserName: "A", Content: database.TextContent("hi")}})

	if len(got) != 2 {
		t.Fatalf("Assemble() returned %d fragments, want 2", len(got))
	}
	if got[0].IsInline() || got[0].Text != "A: " {
		t.Errorf("fragment 0 = %+v, want label %q", got[0], "A: ")
	}
	if got[1].IsInline() || got[1].Text != "hi" {
		t.Errorf("fragment 1 = %+v, want text %q", got[1], "hi")
	}
}

func TestAssembleImageMessage(t *testing.T) {
	t.Parallel()

	jpeg := []byte{0xff, 0xd8, 0xff, 0xdb}
	stored := database.DecodeContent(database.ImageContent(jpeg).Encode())

	got := Assemble(nil, []database.Message{{UserName: "B", Content: stored}})

	if len(got) != 2 {
		t.Fatalf("Assemble() returned %d fragments, want 2", len(got))
	}
	if got[0].Text != "B: " {
		t.Errorf("fragment 0 = %+v, want label", got[0])
	}
	if !got[1].IsInline() || got[1].MIMEType != "image/jpeg" || !bytes.Equal(got[1].Data, jpeg) {
		t.Errorf("fragment 1 = %+v, want inline image/jpeg with original bytes", got[1])
	}
}

func TestAssemblePreambleOrder(t *testing.T) {
	t.Parallel()

	msgs := []database.Message{
		{UserName: "alice", Content: database.TextContent("one")},
		{UserName: "bob", Content: database.TextContent("two")},
	}
	got := Assemble([]string{"instruction", "question", "context"}, msgs)

	want := []string{"instruction", "question", "context", "alice: ", "one", "bob: ", "two"}
	if len(got) != len(want) {
		t.Fatalf("Assemble() returned %d fragments, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Text != w {
			t.Errorf("fragment %d = %q, want %q", i, got[i].Text, w)
		}
	}
}

func TestAssembleEmpty(t *testing.T) {
	t.Parallel()

	if got := Assemble(nil, nil); len(got) != 0 {
		t.Errorf("Assemble(nil, nil) = %v, want empty", got)
	}
}
