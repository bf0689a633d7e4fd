// Package prompt turns message history into the ordered fragment list sent to
// the generative backend.
package prompt

import (
	"github.com/edgard/digestbot/internal/database"
)

// Fragment is one unit of a prompt: plain text or inline media.
type Fragment struct {
	Text     string
	Data     []byte
	MIMEType string
}

// Text returns a text fragment.
func Text(s string) Fragment {
	return Fragment{Text: s}
}

// Inline returns an inline media fragment.
func Inline(data []byte, mimeType string) Fragment {
	return Fragment{Data: data, MIMEType: mimeType}
}

// IsInline reports whether f carries media instead of text.
func (f Fragment) IsInline() bool {
	return f.MIMEType != ""
}

// Label is the speaker attribution emitted before each message.
func Label(userName string) string {
	return userName + ": "
}

// Assemble emits every preamble entry, then for each message a speaker label
// followed by its content as a separate fragment.
func Assemble(preamble []string, msgs []database.Message) []Fragment {
	fragments := make([]Fragment, 0, len(preamble)+2*len(msgs))
	for _, p := range preamble {
		fragments = append(fragments, Text(p))
	}

	for _, m := range msgs {
		fragments = append(fragments, Text(Label(m.UserName)), contentFragment(m.Content))
	}
	return fragments
}

func contentFragment(c database.Content) Fragment {
	if c.IsImage() {
		data, mimeType := c.Image()
		return Inline(data, mimeType)
	}
	return Text(c.Text())
}
