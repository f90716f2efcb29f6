package gmail

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClient struct {
	mu sync.Mutex

	listPages   []ListPage
	listCalls   []ListOptions
	threadPages []ThreadPage
	threads     map[ThreadID]RawThread
	messages    map[MessageID]RawMessage
	attachments map[string][]byte

	labels        []Label
	createdLabels []string
	deletedLabels []LabelID

	modifyCalls  []modifyCall
	modifyReturn [][]LabelID
	batchSizes   []int

	trashReturn   []LabelID
	untrashReturn []LabelID

	sentRaw   [][]byte
	sendID    MessageID
	signature string
	aliasReqs []string

	getErr error
}

type modifyCall struct {
	id     MessageID
	add    []LabelID
	remove []LabelID
}

func (f *fakeClient) List(ctx context.Context, opts ListOptions) (ListPage, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, opts)
	if len(f.listPages) == 0 {
		return ListPage{}, nil
	}
	page := f.listPages[0]
	f.listPages = f.listPages[1:]
	return page, nil
}

func (f *fakeClient) Get(ctx context.Context, id MessageID) (RawMessage, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return RawMessage{}, f.getErr
	}
	msg, ok := f.messages[id]
	if !ok {
		return RawMessage{}, fmt.Errorf("no message %s", id)
	}
	return msg, nil
}

func (f *fakeClient) ListThreads(ctx context.Context, opts ListOptions) (ThreadPage, error) {
	_ = ctx
	_ = opts
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.threadPages) == 0 {
		return ThreadPage{}, nil
	}
	page := f.threadPages[0]
	f.threadPages = f.threadPages[1:]
	return page, nil
}

func (f *fakeClient) GetThread(ctx context.Context, id ThreadID) (RawThread, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.threads[id]
	if !ok {
		return RawThread{}, fmt.Errorf("no thread %s", id)
	}
	return t, nil
}

func (f *fakeClient) GetAttachment(ctx context.Context, msg MessageID, id string) ([]byte, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.attachments[string(msg)+"/"+id]
	if !ok {
		return nil, fmt.Errorf("no attachment %s on %s", id, msg)
	}
	return data, nil
}

func (f *fakeClient) Send(ctx context.Context, raw []byte) (MessageID, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentRaw = append(f.sentRaw, append([]byte(nil), raw...))
	return f.sendID, nil
}

func (f *fakeClient) Modify(ctx context.Context, id MessageID, add, remove []LabelID) ([]LabelID, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modifyCalls = append(f.modifyCalls, modifyCall{id: id, add: add, remove: remove})
	if len(f.modifyReturn) > 0 {
		got := f.modifyReturn[0]
		f.modifyReturn = f.modifyReturn[1:]
		return got, nil
	}
	// behave like the API: the added labels are present afterwards
	return append([]LabelID(nil), add...), nil
}

func (f *fakeClient) BatchModify(ctx context.Context, ids []MessageID, add, remove []LabelID) error {
	_ = ctx
	_ = add
	_ = remove
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchSizes = append(f.batchSizes, len(ids))
	return nil
}

func (f *fakeClient) Trash(ctx context.Context, id MessageID) ([]LabelID, error) {
	_ = ctx
	_ = id
	return f.trashReturn, nil
}

func (f *fakeClient) Untrash(ctx context.Context, id MessageID) ([]LabelID, error) {
	_ = ctx
	_ = id
	return f.untrashReturn, nil
}

func (f *fakeClient) ListLabels(ctx context.Context) ([]Label, error) {
	_ = ctx
	return f.labels, nil
}

func (f *fakeClient) CreateLabel(ctx context.Context, name string) (Label, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdLabels = append(f.createdLabels, name)
	return Label{ID: "Label123", Name: name, Type: "user"}, nil
}

func (f *fakeClient) DeleteLabel(ctx context.Context, id LabelID) error {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedLabels = append(f.deletedLabels, id)
	return nil
}

func (f *fakeClient) AliasSignature(ctx context.Context, sendAs string) (string, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aliasReqs = append(f.aliasReqs, sendAs)
	return f.signature, nil
}

func testService(c Client) *Service {
	return &Service{
		Client: c,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func testRaw(id MessageID) RawMessage {
	return RawMessage{
		ID:           id,
		ThreadID:     "t1",
		LabelIDs:     []LabelID{"UNREAD", "Label123"},
		Snippet:      "Tom &amp; Jerry",
		InternalDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Headers: []Header{
			{Name: "From", Value: "John Doe <john@doe.com>"},
			{Name: "To", Value: "jane@doe.com"},
			{Name: "Subject", Value: "meeting notes"},
			{Name: "Date", Value: "Wed, 01 May 2024 10:30:00 +0000"},
		},
		Payload: Part{
			MimeType: "multipart/mixed",
			Parts: []Part{
				{MimeType: "text/plain", Body: []byte("see attached")},
				{MimeType: "text/html", Body: []byte("<p>see attached</p>")},
				{MimeType: "application/pdf", Filename: "notes.pdf", AttachmentID: "att1"},
			},
		},
	}
}

func TestMessagesHydration(t *testing.T) {
	fc := &fakeClient{
		listPages: []ListPage{
			{IDs: []MessageID{"m1", "m2"}, NextPageToken: "next"},
			{IDs: []MessageID{"m3"}},
		},
		messages: map[MessageID]RawMessage{
			"m1": testRaw("m1"),
			"m2": testRaw("m2"),
			"m3": testRaw("m3"),
		},
		labels: []Label{{ID: "UNREAD", Name: "UNREAD", Type: "system"}},
	}
	svc := testService(fc)

	msgs, err := svc.Messages(context.Background(), SearchOptions{Query: "from:john@doe.com"})
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i, want := range []MessageID{"m1", "m2", "m3"} {
		if msgs[i].ID != want {
			t.Errorf("msgs[%d].ID = %s, want %s", i, msgs[i].ID, want)
		}
	}
	if len(fc.listCalls) != 2 {
		t.Fatalf("got %d list calls, want 2 (pagination)", len(fc.listCalls))
	}
	if fc.listCalls[1].PageToken != "next" {
		t.Errorf("second list call token = %q, want %q", fc.listCalls[1].PageToken, "next")
	}

	m := msgs[0]
	if m.Sender != "John Doe <john@doe.com>" {
		t.Errorf("Sender = %q", m.Sender)
	}
	if m.Recipient != "jane@doe.com" {
		t.Errorf("Recipient = %q", m.Recipient)
	}
	if m.Subject != "meeting notes" {
		t.Errorf("Subject = %q", m.Subject)
	}
	wantDate := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	if !m.Date.Equal(wantDate) {
		t.Errorf("Date = %v, want %v", m.Date, wantDate)
	}
	if m.Snippet != "Tom & Jerry" {
		t.Errorf("Snippet = %q, want unescaped entities", m.Snippet)
	}
	if m.Plain != "see attached" {
		t.Errorf("Plain = %q", m.Plain)
	}
	if m.HTML != "<p>see attached</p>" {
		t.Errorf("HTML = %q", m.HTML)
	}
	if len(m.Attachments) != 1 || m.Attachments[0].Filename != "notes.pdf" {
		t.Fatalf("Attachments = %+v", m.Attachments)
	}
	if m.Attachments[0].Data != nil {
		t.Error("reference mode should not download attachment data")
	}
	// known label resolved, unknown one synthesized from its ID
	if len(m.Labels) != 2 {
		t.Fatalf("Labels = %+v", m.Labels)
	}
	if m.Labels[0].Type != "system" {
		t.Errorf("Labels[0] = %+v, want resolved system label", m.Labels[0])
	}
	if m.Labels[1].ID != "Label123" || m.Labels[1].Name != "Label123" {
		t.Errorf("Labels[1] = %+v, want synthesized", m.Labels[1])
	}
	if m.Headers["Subject"] != "meeting notes" {
		t.Errorf("Headers[Subject] = %q", m.Headers["Subject"])
	}
}

func TestMessagesAttachmentModes(t *testing.T) {
	newFake := func() *fakeClient {
		return &fakeClient{
			listPages:   []ListPage{{IDs: []MessageID{"m1"}}},
			messages:    map[MessageID]RawMessage{"m1": testRaw("m1")},
			attachments: map[string][]byte{"m1/att1": []byte("pdf-bytes")},
		}
	}

	t.Run("ignore", func(t *testing.T) {
		svc := testService(newFake())
		msgs, err := svc.Messages(context.Background(), SearchOptions{Attachments: AttachmentsIgnore})
		if err != nil {
			t.Fatalf("Messages: %v", err)
		}
		if len(msgs[0].Attachments) != 0 {
			t.Errorf("Attachments = %+v, want none", msgs[0].Attachments)
		}
	})

	t.Run("download", func(t *testing.T) {
		svc := testService(newFake())
		msgs, err := svc.Messages(context.Background(), SearchOptions{Attachments: AttachmentsDownload})
		if err != nil {
			t.Fatalf("Messages: %v", err)
		}
		got := msgs[0].Attachments
		if len(got) != 1 || string(got[0].Data) != "pdf-bytes" {
			t.Errorf("Attachments = %+v, want downloaded data", got)
		}
	})
}

func TestMessagesGetErrorStopsHydration(t *testing.T) {
	fc := &fakeClient{
		listPages: []ListPage{{IDs: []MessageID{"m1", "m2", "m3"}}},
		messages:  map[MessageID]RawMessage{},
		getErr:    fmt.Errorf("backend unavailable"),
	}
	svc := testService(fc)

	msgs, err := svc.Messages(context.Background(), SearchOptions{})
	if err == nil {
		t.Fatal("expected error when message fetch fails")
	}
	if !strings.Contains(err.Error(), "backend unavailable") {
		t.Errorf("error %q does not wrap the fetch failure", err)
	}
	if msgs != nil {
		t.Errorf("got %d messages alongside the error, want none", len(msgs))
	}
}

func TestSearchShortcutsAddLabels(t *testing.T) {
	tests := []struct {
		name      string
		call      func(*Service, context.Context) ([]Message, error)
		want      []LabelID
		spamTrash bool
	}{
		{
			name: "unread inbox",
			call: func(s *Service, ctx context.Context) ([]Message, error) {
				return s.UnreadInbox(ctx, SearchOptions{})
			},
			want: []LabelID{"UNREAD", "INBOX"},
		},
		{
			name: "starred",
			call: func(s *Service, ctx context.Context) ([]Message, error) {
				return s.StarredMessages(ctx, SearchOptions{})
			},
			want: []LabelID{"STARRED"},
		},
		{
			name: "trash",
			call: func(s *Service, ctx context.Context) ([]Message, error) {
				return s.TrashMessages(ctx, SearchOptions{})
			},
			want:      []LabelID{"TRASH"},
			spamTrash: true,
		},
		{
			name: "spam",
			call: func(s *Service, ctx context.Context) ([]Message, error) {
				return s.SpamMessages(ctx, SearchOptions{})
			},
			want:      []LabelID{"SPAM"},
			spamTrash: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeClient{}
			svc := testService(fc)
			if _, err := tt.call(svc, context.Background()); err != nil {
				t.Fatalf("%v", err)
			}
			opts := fc.listCalls[0]
			if len(opts.LabelIDs) != len(tt.want) {
				t.Fatalf("LabelIDs = %v, want %v", opts.LabelIDs, tt.want)
			}
			for i, id := range tt.want {
				if opts.LabelIDs[i] != id {
					t.Errorf("LabelIDs[%d] = %s, want %s", i, opts.LabelIDs[i], id)
				}
			}
			if opts.IncludeSpamTrash != tt.spamTrash {
				t.Errorf("IncludeSpamTrash = %v, want %v", opts.IncludeSpamTrash, tt.spamTrash)
			}
		})
	}
}

func TestThreads(t *testing.T) {
	fc := &fakeClient{
		threadPages: []ThreadPage{{IDs: []ThreadID{"t1"}}},
		threads: map[ThreadID]RawThread{
			"t1": {
				ID:       "t1",
				Snippet:  "it&#39;s on",
				Messages: []RawMessage{testRaw("m1"), testRaw("m2")},
			},
		},
	}
	svc := testService(fc)

	threads, err := svc.Threads(context.Background(), SearchOptions{})
	if err != nil {
		t.Fatalf("Threads: %v", err)
	}
	if len(threads) != 1 {
		t.Fatalf("got %d threads, want 1", len(threads))
	}
	if threads[0].Snippet != "it's on" {
		t.Errorf("Snippet = %q", threads[0].Snippet)
	}
	if len(threads[0].Messages) != 2 || threads[0].Messages[1].ID != "m2" {
		t.Errorf("Messages = %+v", threads[0].Messages)
	}
}

func TestSendWithSignature(t *testing.T) {
	fc := &fakeClient{
		sendID:    "sent1",
		signature: "Sent from gmailkit",
		messages:  map[MessageID]RawMessage{"sent1": testRaw("sent1")},
	}
	svc := testService(fc)

	msg, err := svc.Send(context.Background(), Compose{
		From:      "Jane Doe <jane@doe.com>",
		To:        []string{"john@doe.com"},
		Subject:   "hi",
		Plain:     "hello",
		Signature: true,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.ID != "sent1" {
		t.Errorf("returned message ID = %s, want sent1", msg.ID)
	}
	if len(fc.aliasReqs) != 1 || fc.aliasReqs[0] != "jane@doe.com" {
		t.Errorf("signature looked up for %v, want bare address", fc.aliasReqs)
	}
	if len(fc.sentRaw) != 1 {
		t.Fatalf("got %d sent messages, want 1", len(fc.sentRaw))
	}
	if !strings.Contains(string(fc.sentRaw[0]), "Sent from gmailkit") {
		t.Error("raw message does not carry the signature")
	}
}

func TestModifyLabelsVerifiesResult(t *testing.T) {
	fc := &fakeClient{modifyReturn: [][]LabelID{{"UNREAD"}}}
	svc := testService(fc)

	err := svc.Star(context.Background(), "m1")
	if err == nil {
		t.Fatal("expected error when added label is missing from the result")
	}
	if !strings.Contains(err.Error(), "STARRED") {
		t.Errorf("error %q does not name the label", err)
	}
}

func TestMarkReadRemovesUnread(t *testing.T) {
	fc := &fakeClient{modifyReturn: [][]LabelID{{"INBOX"}}}
	svc := testService(fc)

	if err := svc.MarkRead(context.Background(), "m1"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	call := fc.modifyCalls[0]
	if len(call.add) != 0 || len(call.remove) != 1 || call.remove[0] != "UNREAD" {
		t.Errorf("modify call = %+v", call)
	}
}

func TestBatchModifyLabelsChunks(t *testing.T) {
	ids := make([]MessageID, 2500)
	for i := range ids {
		ids[i] = MessageID(fmt.Sprintf("m%d", i))
	}
	fc := &fakeClient{}
	svc := testService(fc)

	if err := svc.BatchModifyLabels(context.Background(), ids, []LabelID{"Label123"}, nil); err != nil {
		t.Fatalf("BatchModifyLabels: %v", err)
	}
	want := []int{1000, 1000, 500}
	if len(fc.batchSizes) != len(want) {
		t.Fatalf("batch sizes = %v, want %v", fc.batchSizes, want)
	}
	for i, n := range want {
		if fc.batchSizes[i] != n {
			t.Errorf("batch %d size = %d, want %d", i, fc.batchSizes[i], n)
		}
	}
}

func TestTrashMessageVerifies(t *testing.T) {
	fc := &fakeClient{trashReturn: []LabelID{"TRASH"}}
	svc := testService(fc)
	if err := svc.TrashMessage(context.Background(), "m1"); err != nil {
		t.Fatalf("TrashMessage: %v", err)
	}

	fc = &fakeClient{trashReturn: []LabelID{"INBOX"}}
	svc = testService(fc)
	if err := svc.TrashMessage(context.Background(), "m1"); err == nil {
		t.Fatal("expected error when TRASH label missing from result")
	}
}

func TestEnsureLabel(t *testing.T) {
	fc := &fakeClient{labels: []Label{{ID: "Label9", Name: "receipts", Type: "user"}}}
	svc := testService(fc)

	got, err := svc.EnsureLabel(context.Background(), "receipts")
	if err != nil {
		t.Fatalf("EnsureLabel: %v", err)
	}
	if got.ID != "Label9" || len(fc.createdLabels) != 0 {
		t.Errorf("existing label not reused: got %+v, created %v", got, fc.createdLabels)
	}

	got, err = svc.EnsureLabel(context.Background(), "new-label")
	if err != nil {
		t.Fatalf("EnsureLabel: %v", err)
	}
	if got.Name != "new-label" || len(fc.createdLabels) != 1 {
		t.Errorf("label not created: got %+v, created %v", got, fc.createdLabels)
	}
}

func TestSaveAttachment(t *testing.T) {
	dir := t.TempDir()
	fc := &fakeClient{attachments: map[string][]byte{"m1/att1": []byte("data")}}
	svc := testService(fc)

	att := Attachment{MessageID: "m1", ID: "att1", Filename: "report.pdf"}
	path := filepath.Join(dir, "report.pdf")
	if err := svc.SaveAttachment(context.Background(), &att, path, false); err != nil {
		t.Fatalf("SaveAttachment: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("file contents = %q", got)
	}

	if err := svc.SaveAttachment(context.Background(), &att, path, false); err == nil {
		t.Error("expected error overwriting without overwrite flag")
	}
	if err := svc.SaveAttachment(context.Background(), &att, path, true); err != nil {
		t.Errorf("overwrite: %v", err)
	}
}
