package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/digestbot/internal/chat"
	"github.com/edgard/digestbot/internal/config"
	"github.com/edgard/digestbot/internal/database"
	"github.com/edgard/digestbot/internal/errs"
	"github.com/edgard/digestbot/internal/history"
	"github.com/edgard/digestbot/internal/prompt"
	"github.com/edgard/digestbot/internal/telegram"
)

const testGroup = "-1001234567890"

var testNow = time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

// fakeStore keeps messages in insertion order, which is also timestamp order in these tests.
type fakeStore struct {
	database.Store
	msgs      []database.Message
	reads     int
	appendErr error
}

func (s *fakeStore) AppendMessage(_ context.Context, m *database.Message) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.msgs = append(s.msgs, *m)
	return nil
}

func (s *fakeStore) MessagesSince(_ context.Context, groupID string, cutoffMs int64, limit int) ([]database.Message, error) {
	s.reads++
	var out []database.Message
	for _, m := range s.msgs {
		if m.GroupID == groupID && m.TimeStamp >= cutoffMs && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) RecentMessages(_ context.Context, groupID string, limit int) ([]database.Message, error) {
	s.reads++
	var out []database.Message
	for i := len(s.msgs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.msgs[i].GroupID == groupID {
			out = append(out, s.msgs[i])
		}
	}
	return out, nil
}

func (s *fakeStore) SearchMessages(_ context.Context, groupID, term string, limit int) ([]database.Message, error) {
	s.reads++
	var out []database.Message
	for _, m := range s.msgs {
		if m.GroupID == groupID && !m.Content.IsImage() && strings.Contains(m.Content.Text(), term) && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeGemini struct {
	calls [][]prompt.Fragment
	reply string
	err   error
}

func (g *fakeGemini) Generate(_ context.Context, fragments []prompt.Fragment) (string, error) {
	g.calls = append(g.calls, fragments)
	return g.reply, g.err
}

type sentMessage struct {
	groupID string
	text    string
	opts    chat.SendOptions
}

type fakeTransport struct {
	sent []sentMessage
	err  error
}

func (t *fakeTransport) Send(_ context.Context, groupID, text string, opts chat.SendOptions) error {
	t.sent = append(t.sent, sentMessage{groupID: groupID, text: text, opts: opts})
	return t.err
}

type fixture struct {
	store     *fakeStore
	gemini    *fakeGemini
	transport *fakeTransport
	cfg       *config.Config
	d         *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{
		Messages: config.DefaultMessages,
		Prompts:  config.DefaultPrompts,
		Telegram: config.TelegramConfig{
			ChannelProxyUsername: config.DefaultChannelProxyUsername,
			BotInfo:              &models.User{ID: 99, Username: "digest_bot"},
		},
	}
	f := &fixture{
		store:     &fakeStore{},
		gemini:    &fakeGemini{reply: "**Summary**"},
		transport: &fakeTransport{},
		cfg:       cfg,
	}
	clock := func() time.Time { return testNow }
	f.d = NewDispatcher(HandlerDeps{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:       cfg,
		Store:        f.store,
		History:      history.NewEngine(f.store, history.MaxRows, history.WithClock(clock)),
		GeminiClient: f.gemini,
		Formatter:    telegram.MarkdownFormatter{},
		Now:          clock,
	})
	return f
}

func (f *fixture) seed(user, text string, age time.Duration, messageID int64) {
	m := database.Message{
		ID:        user + text,
		GroupID:   testGroup,
		TimeStamp: testNow.Add(-age).UnixMilli(),
		UserName:  user,
		Content:   database.TextContent(text),
		GroupName: "Team",
	}
	if messageID != 0 {
		m.MessageID.Int64, m.MessageID.Valid = messageID, true
	}
	f.store.msgs = append(f.store.msgs, m)
}

func command(text string) chat.Event {
	return chat.Event{
		Kind:      chat.KindText,
		GroupID:   testGroup,
		GroupName: "Team",
		From:      chat.Sender{FirstName: "Alice"},
		Text:      text,
		MessageID: 77,
	}
}

func promptTexts(fragments []prompt.Fragment) []string {
	out := make([]string, 0, len(fragments))
	for _, fr := range fragments {
		out = append(out, fr.Text)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNonGroupEventGetsNotice(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	ev := command("/status")
	ev.Kind = chat.KindNonGroup
	if err := f.d.Dispatch(context.Background(), ev, f.transport); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if len(f.transport.sent) != 1 || f.transport.sent[0].text != f.cfg.Messages.NotInGroup {
		t.Errorf("sent = %+v, want not-in-group notice", f.transport.sent)
	}
	if len(f.store.msgs) != 0 || f.store.reads != 0 {
		t.Errorf("store touched: %d rows, %d reads", len(f.store.msgs), f.store.reads)
	}
}

func TestIngestText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		from      chat.Sender
		groupName string
		want      string
		wantGroup string
	}{
		{name: "first name", from: chat.Sender{FirstName: "Alice", Username: "alice"}, groupName: "Team", want: "Alice", wantGroup: "Team"},
		{name: "channel proxy", from: chat.Sender{FirstName: "Channel", Username: "Channel_Bot", IsBot: true, ChannelTitle: "News"}, groupName: "Team", want: "News", wantGroup: "Team"},
		{name: "proxy name without bot flag", from: chat.Sender{FirstName: "Mallory", Username: "Channel_Bot", ChannelTitle: "News"}, groupName: "Team", want: "Mallory", wantGroup: "Team"},
		{name: "anonymous", from: chat.Sender{}, want: "anonymous", wantGroup: "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			ev := chat.Event{Kind: chat.KindText, GroupID: testGroup, GroupName: tt.groupName, From: tt.from, Text: "hello", MessageID: 5}
			if err := f.d.Dispatch(context.Background(), ev, f.transport); err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}

			if len(f.store.msgs) != 1 {
				t.Fatalf("stored %d messages, want 1", len(f.store.msgs))
			}
			m := f.store.msgs[0]
			if m.UserName != tt.want || m.GroupName != tt.wantGroup || m.Content.Text() != "hello" {
				t.Errorf("stored = %+v", m)
			}
			if m.TimeStamp != testNow.UnixMilli() || !m.MessageID.Valid || m.MessageID.Int64 != 5 {
				t.Errorf("stored timestamp/message id = %d/%+v", m.TimeStamp, m.MessageID)
			}
			if len(f.transport.sent) != 0 {
				t.Errorf("ingest sent %d replies, want 0", len(f.transport.sent))
			}
		})
	}
}

func TestIngestPhoto(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	jpeg := []byte{0xff, 0xd8, 0xff}
	ev := chat.Event{
		Kind: chat.KindPhoto, GroupID: testGroup, GroupName: "Team", From: chat.Sender{FirstName: "Bob"}, MessageID: 6,
		FetchPhoto: func(context.Context) ([]byte, string, error) { return jpeg, "image/jpeg", nil },
	}
	if err := f.d.Dispatch(context.Background(), ev, f.transport); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	data, mime := f.store.msgs[0].Content.Image()
	if !bytes.Equal(data, jpeg) || mime != "image/jpeg" {
		t.Errorf("stored image = %v %q", data, mime)
	}
}

func TestIngestFailuresPropagate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	fetchErr := errs.Transport("download failed", errors.New("timeout"))
	ev := chat.Event{
		Kind: chat.KindPhoto, GroupID: testGroup,
		FetchPhoto: func(context.Context) ([]byte, string, error) { return nil, "", fetchErr },
	}
	if err := f.d.Dispatch(context.Background(), ev, f.transport); !errs.Is(err, errs.CodeTransport) {
		t.Errorf("Dispatch(photo) error = %v, want transport error", err)
	}
	if len(f.store.msgs) != 0 {
		t.Error("photo stored despite download failure")
	}

	f.store.appendErr = errs.Storage("insert failed", errors.New("disk full"))
	if err := f.d.Dispatch(context.Background(), command("hello"), f.transport); !errs.Is(err, errs.CodeStorage) {
		t.Errorf("Dispatch(text) error = %v, want storage error", err)
	}
	if len(f.transport.sent) != 0 {
		t.Errorf("sent %d replies on storage failure, want 0", len(f.transport.sent))
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if err := f.d.Dispatch(context.Background(), command("/status@digest_bot"), f.transport); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(f.transport.sent) != 1 || f.transport.sent[0].text != f.cfg.Messages.Status || f.transport.sent[0].opts.ReplyTo != 77 {
		t.Errorf("sent = %+v", f.transport.sent)
	}
	if f.store.reads != 0 || len(f.store.msgs) != 0 {
		t.Error("status touched the store")
	}
}

func TestUnrecognizedCommandsAreIngested(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	for _, text := range []string{"/status@other_bot", "/unknown arg", "/"} {
		if err := f.d.Dispatch(context.Background(), command(text), f.transport); err != nil {
			t.Fatalf("Dispatch(%q) error = %v", text, err)
		}
	}
	if len(f.store.msgs) != 3 || len(f.transport.sent) != 0 {
		t.Errorf("stored %d, sent %d; want 3 stored, 0 sent", len(f.store.msgs), len(f.transport.sent))
	}
}

func TestQueryWithoutTermRepliesUsage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed("Alice", "deploy", time.Hour, 1)

	for _, text := range []string{"/query", "/query   "} {
		if err := f.d.Dispatch(context.Background(), command(text), f.transport); err != nil {
			t.Fatalf("Dispatch(%q) error = %v", text, err)
		}
	}
	for _, s := range f.transport.sent {
		if s.text != f.cfg.Messages.QueryUsage {
			t.Errorf("reply = %q, want usage", s.text)
		}
	}
	if f.store.reads != 0 {
		t.Errorf("store reads = %d, want 0", f.store.reads)
	}
}

func TestQueryFormatsResults(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed("Alice", "deploy_v2 tonight", 2*time.Hour, 15)
	f.seed("Bob", "lunch", time.Hour, 16)
	f.seed("Carol", "deploy done", 30*time.Minute, 0)

	if err := f.d.Dispatch(context.Background(), command("/query deploy extra words"), f.transport); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	want := strings.Join([]string{
		"Search results:",
		`Alice: deploy\_v2 tonight [link](https://t.me/c/1234567890/15)`,
		"Carol: deploy done",
	}, "\n")
	if len(f.transport.sent) != 1 {
		t.Fatalf("sent %d replies, want 1", len(f.transport.sent))
	}
	got := f.transport.sent[0]
	if got.text != want {
		t.Errorf("reply =\n%s\nwant\n%s", got.text, want)
	}
	if !got.opts.Markdown || got.opts.ReplyTo != 77 {
		t.Errorf("opts = %+v, want markdown reply", got.opts)
	}
}

func TestAsk(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed("A", "hi", time.Hour, 1)

	if err := f.d.Dispatch(context.Background(), command("/ask"), f.transport); err != nil {
		t.Fatalf("Dispatch(/ask) error = %v", err)
	}
	if f.transport.sent[0].text != f.cfg.Messages.AskUsage || f.store.reads != 0 || len(f.gemini.calls) != 0 {
		t.Errorf("/ask without question: sent %+v, reads %d", f.transport.sent, f.store.reads)
	}

	if err := f.d.Dispatch(context.Background(), command("/ask what did we  decide?"), f.transport); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	p := f.cfg.Prompts
	want := []string{p.AskInstruction, "what did we  decide?", p.AskContext, "A: ", "hi"}
	if len(f.gemini.calls) != 1 || !equalStrings(promptTexts(f.gemini.calls[0]), want) {
		t.Errorf("prompt = %q, want %q", f.gemini.calls, want)
	}
	last := f.transport.sent[len(f.transport.sent)-1]
	if last.text != "*Summary*" || !last.opts.Markdown {
		t.Errorf("reply = %+v, want converted markdown", last)
	}
}

func TestSummaryByTime(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed("Old", "two days ago", 48*time.Hour, 1)
	f.seed("New", "an hour ago", time.Hour, 2)

	if err := f.d.Dispatch(context.Background(), command("/summary 24h"), f.transport); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	p := f.cfg.Prompts
	want := []string{p.SummaryInstruction, p.SummaryOpening, "New: ", "an hour ago"}
	if len(f.gemini.calls) != 1 || !equalStrings(promptTexts(f.gemini.calls[0]), want) {
		t.Errorf("prompt = %q, want %q", f.gemini.calls, want)
	}
}

func TestSummaryByCountIsChronological(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	for i, text := range []string{"m1", "m2", "m3", "m4", "m5"} {
		f.seed("U", text, time.Duration(5-i)*time.Minute, int64(i+1))
	}

	if err := f.d.Dispatch(context.Background(), command("/summary 3"), f.transport); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	p := f.cfg.Prompts
	want := []string{p.SummaryInstruction, p.SummaryOpening, "U: ", "m3", "U: ", "m4", "U: ", "m5"}
	if len(f.gemini.calls) != 1 || !equalStrings(promptTexts(f.gemini.calls[0]), want) {
		t.Errorf("prompt = %q, want %q", f.gemini.calls, want)
	}
	if len(f.transport.sent) != 1 || f.transport.sent[0].opts.ReplyTo != 77 {
		t.Errorf("sent = %+v", f.transport.sent)
	}
}

func TestSummaryRejectsInvalidArguments(t *testing.T) {
	t.Parallel()

	for _, arg := range []string{"-3", "abc", "Infinity", "NaN", "-2h", "2.5"} {
		t.Run(arg, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.seed("U", "x", time.Minute, 1)

			if err := f.d.Dispatch(context.Background(), command("/summary "+arg), f.transport); err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}
			if len(f.transport.sent) != 1 || !strings.HasPrefix(f.transport.sent[0].text, f.cfg.Messages.SummaryUsage+"\n") {
				t.Errorf("sent = %+v, want usage with error", f.transport.sent)
			}
			if f.store.reads != 0 || len(f.gemini.calls) != 0 {
				t.Errorf("reads = %d, backend calls = %d; want 0, 0", f.store.reads, len(f.gemini.calls))
			}
		})
	}
}

func TestSummaryMissingArgument(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if err := f.d.Dispatch(context.Background(), command("/summary"), f.transport); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(f.transport.sent) != 1 || f.transport.sent[0].text != f.cfg.Messages.SummaryUsage {
		t.Errorf("sent = %+v, want usage", f.transport.sent)
	}
}

func TestSummaryWithNoResultsIsSilent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed("U", "old", 72*time.Hour, 1)

	for _, text := range []string{"/summary 1h", "/summary 0"} {
		if err := f.d.Dispatch(context.Background(), command(text), f.transport); err != nil {
			t.Fatalf("Dispatch(%q) error = %v", text, err)
		}
	}
	if len(f.transport.sent) != 0 || len(f.gemini.calls) != 0 {
		t.Errorf("sent %d, backend calls %d; want 0, 0", len(f.transport.sent), len(f.gemini.calls))
	}
}

func TestBackendFailurePropagates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed("U", "x", time.Minute, 1)
	f.gemini.err = errs.Backend("gemini generation failed", errors.New("503"))

	if err := f.d.Dispatch(context.Background(), command("/summary 10"), f.transport); !errs.Is(err, errs.CodeBackend) {
		t.Errorf("Dispatch() error = %v, want backend error", err)
	}
	if len(f.transport.sent) != 0 {
		t.Errorf("sent %d replies, want 0", len(f.transport.sent))
	}
}

func TestBotCommands(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	got := BotCommands(f.d.Commands())
	names := make([]string, 0, len(got))
	for _, c := range got {
		names = append(names, c.Command)
		if c.Description == "" {
			t.Errorf("command %q has no description", c.Command)
		}
	}
	if want := []string{"ask", "query", "status", "summary"}; !equalStrings(names, want) {
		t.Errorf("BotCommands() = %v, want %v", names, want)
	}
}

type staticDecoder struct {
	ev chat.Event
	ok bool
}

func (d staticDecoder) Decode(*models.Update) (chat.Event, bool) { return d.ev, d.ok }

func TestUpdateHandlerDispatchesDecodedEvents(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	handler := NewUpdateHandler(f.d, staticDecoder{ev: command("/status"), ok: true}, f.transport)
	handler(context.Background(), nil, &models.Update{ID: 1})
	if len(f.transport.sent) != 1 {
		t.Errorf("sent %d replies, want 1", len(f.transport.sent))
	}

	skip := NewUpdateHandler(f.d, staticDecoder{}, f.transport)
	skip(context.Background(), nil, &models.Update{ID: 2})
	if len(f.transport.sent) != 1 || len(f.store.msgs) != 0 {
		t.Error("undecodable update was handled")
	}
}

type typingTransport struct {
	fakeTransport
	events []string
}

func (t *typingTransport) StartTyping(_ context.Context, groupID string) func() {
	t.events = append(t.events, "typing "+groupID)
	return func() { t.events = append(t.events, "stop") }
}

func TestSummaryShowsTypingWhileGenerating(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed("U", "x", time.Minute, 1)
	tr := &typingTransport{}

	if err := f.d.Dispatch(context.Background(), command("/summary 1"), tr); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if want := []string{"typing " + testGroup, "stop"}; !equalStrings(tr.events, want) {
		t.Errorf("typing events = %v, want %v", tr.events, want)
	}
	if len(tr.sent) != 1 {
		t.Errorf("sent %d replies, want 1", len(tr.sent))
	}
}
