package gmail

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	netmail "net/mail"
	"os"
	"strings"
	"sync"

	"github.com/gmailkit/gmailkit/internal/rate"
)

const (
	// Hydration fan-out, empirically chosen to stay under API throttling.
	maxHydrateWorkers = 12
	targetPerWorker   = 10

	// Gmail allows 1000 ids per batchModify call.
	batchModifyChunk = 1000
)

// Service executes high-level mailbox operations over a Client.
type Service struct {
	Client  Client
	Limiter rate.Limiter
	Logger  *slog.Logger
	// Workers caps parallel message hydration. Zero picks a bound from the
	// number of references.
	Workers int
}

// NewService constructs a Service with sane defaults.
func NewService(client Client, limiter rate.Limiter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Service{Client: client, Limiter: limiter, Logger: logger}
}

// Messages returns all messages matching the search, hydrated according to
// the attachment mode. Results follow the listing order.
func (s *Service) Messages(ctx context.Context, opts SearchOptions) ([]Message, error) {
	refs, err := s.listAll(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, nil
	}
	labels, err := s.labelIndex(ctx)
	if err != nil {
		return nil, err
	}
	s.Logger.InfoContext(ctx, "hydrating messages", slog.Int("count", len(refs)))
	return s.hydrateAll(ctx, refs, labels, opts.Attachments)
}

// UnreadInbox returns unread messages currently in the inbox.
func (s *Service) UnreadInbox(ctx context.Context, opts SearchOptions) ([]Message, error) {
	opts.LabelIDs = append(opts.LabelIDs, Unread.ID, Inbox.ID)
	return s.Messages(ctx, opts)
}

// UnreadMessages returns unread messages anywhere in the account.
func (s *Service) UnreadMessages(ctx context.Context, opts SearchOptions) ([]Message, error) {
	opts.LabelIDs = append(opts.LabelIDs, Unread.ID)
	return s.Messages(ctx, opts)
}

// StarredMessages returns starred messages.
func (s *Service) StarredMessages(ctx context.Context, opts SearchOptions) ([]Message, error) {
	opts.LabelIDs = append(opts.LabelIDs, Starred.ID)
	return s.Messages(ctx, opts)
}

// ImportantMessages returns messages marked important.
func (s *Service) ImportantMessages(ctx context.Context, opts SearchOptions) ([]Message, error) {
	opts.LabelIDs = append(opts.LabelIDs, Important.ID)
	return s.Messages(ctx, opts)
}

// SentMessages returns sent messages.
func (s *Service) SentMessages(ctx context.Context, opts SearchOptions) ([]Message, error) {
	opts.LabelIDs = append(opts.LabelIDs, Sent.ID)
	return s.Messages(ctx, opts)
}

// DraftMessages returns saved drafts.
func (s *Service) DraftMessages(ctx context.Context, opts SearchOptions) ([]Message, error) {
	opts.LabelIDs = append(opts.LabelIDs, Draft.ID)
	return s.Messages(ctx, opts)
}

// TrashMessages returns messages in the trash.
func (s *Service) TrashMessages(ctx context.Context, opts SearchOptions) ([]Message, error) {
	opts.LabelIDs = append(opts.LabelIDs, Trash.ID)
	opts.IncludeSpamTrash = true
	return s.Messages(ctx, opts)
}

// SpamMessages returns messages marked as spam.
func (s *Service) SpamMessages(ctx context.Context, opts SearchOptions) ([]Message, error) {
	opts.LabelIDs = append(opts.LabelIDs, Spam.ID)
	opts.IncludeSpamTrash = true
	return s.Messages(ctx, opts)
}

// Message fetches and hydrates a single message.
func (s *Service) Message(ctx context.Context, id MessageID, mode AttachmentMode) (Message, error) {
	labels, err := s.labelIndex(ctx)
	if err != nil {
		return Message{}, err
	}
	return s.fetchMessage(ctx, id, labels, mode)
}

// Threads returns matching threads with their messages hydrated.
func (s *Service) Threads(ctx context.Context, opts SearchOptions) ([]Thread, error) {
	var (
		refs  []ThreadID
		token string
	)
	for {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		page, err := s.Client.ListThreads(ctx, ListOptions{
			Query:            opts.Query,
			LabelIDs:         opts.LabelIDs,
			IncludeSpamTrash: opts.IncludeSpamTrash,
			PageToken:        token,
			PageSize:         opts.PageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("list threads: %w", err)
		}
		refs = append(refs, page.IDs...)
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}
	if len(refs) == 0 {
		return nil, nil
	}

	labels, err := s.labelIndex(ctx)
	if err != nil {
		return nil, err
	}
	threads := make([]Thread, 0, len(refs))
	for _, id := range refs {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		raw, err := s.Client.GetThread(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get thread %s: %w", id, err)
		}
		thread := Thread{ID: raw.ID, Snippet: html.UnescapeString(raw.Snippet)}
		for _, rawMsg := range raw.Messages {
			msg, err := s.hydrate(ctx, rawMsg, labels, opts.Attachments)
			if err != nil {
				return nil, err
			}
			thread.Messages = append(thread.Messages, msg)
		}
		threads = append(threads, thread)
	}
	return threads, nil
}

// Send composes and sends a message, then returns the sent message as it
// appears in the account.
func (s *Service) Send(ctx context.Context, c Compose) (Message, error) {
	var signature string
	if c.Signature {
		addr, err := netmail.ParseAddress(c.From)
		if err != nil {
			return Message{}, fmt.Errorf("parse sender address %q: %w", c.From, err)
		}
		if err := s.wait(ctx); err != nil {
			return Message{}, err
		}
		signature, err = s.Client.AliasSignature(ctx, addr.Address)
		if err != nil {
			return Message{}, fmt.Errorf("fetch send-as signature: %w", err)
		}
	}

	raw, err := encodeMessage(c, signature)
	if err != nil {
		return Message{}, err
	}
	if err := s.wait(ctx); err != nil {
		return Message{}, err
	}
	id, err := s.Client.Send(ctx, raw)
	if err != nil {
		return Message{}, fmt.Errorf("send message: %w", err)
	}
	s.Logger.InfoContext(ctx, "sent message", slog.String("id", string(id)))
	return s.Message(ctx, id, AttachmentsReference)
}

// Labels lists the account's labels.
func (s *Service) Labels(ctx context.Context) ([]Label, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	labels, err := s.Client.ListLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	return labels, nil
}

// EnsureLabel returns the label with the given name, creating it if needed.
func (s *Service) EnsureLabel(ctx context.Context, name string) (Label, error) {
	labels, err := s.Labels(ctx)
	if err != nil {
		return Label{}, err
	}
	for _, lbl := range labels {
		if lbl.Name == name {
			return lbl, nil
		}
	}
	if err := s.wait(ctx); err != nil {
		return Label{}, err
	}
	created, err := s.Client.CreateLabel(ctx, name)
	if err != nil {
		return Label{}, fmt.Errorf("create label %q: %w", name, err)
	}
	return created, nil
}

// DeleteLabel removes a user label.
func (s *Service) DeleteLabel(ctx context.Context, id LabelID) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if err := s.Client.DeleteLabel(ctx, id); err != nil {
		return fmt.Errorf("delete label %s: %w", id, err)
	}
	return nil
}

// ModifyLabels adds and removes labels on a message and verifies the result.
func (s *Service) ModifyLabels(ctx context.Context, id MessageID, add, remove []LabelID) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	got, err := s.Client.Modify(ctx, id, add, remove)
	if err != nil {
		return fmt.Errorf("modify labels on %s: %w", id, err)
	}
	for _, lbl := range add {
		if !containsLabel(got, lbl) {
			return fmt.Errorf("label %s was not applied to %s", lbl, id)
		}
	}
	for _, lbl := range remove {
		if containsLabel(got, lbl) {
			return fmt.Errorf("label %s was not removed from %s", lbl, id)
		}
	}
	return nil
}

// BatchModifyLabels applies a label change to many messages, chunked to the
// API limit.
func (s *Service) BatchModifyLabels(ctx context.Context, ids []MessageID, add, remove []LabelID) error {
	for i := 0; i < len(ids); i += batchModifyChunk {
		j := i + batchModifyChunk
		if j > len(ids) {
			j = len(ids)
		}
		if err := s.wait(ctx); err != nil {
			return err
		}
		if err := s.Client.BatchModify(ctx, ids[i:j], add, remove); err != nil {
			return fmt.Errorf("batch modify labels: %w", err)
		}
	}
	return nil
}

// MarkRead removes the UNREAD label.
func (s *Service) MarkRead(ctx context.Context, id MessageID) error {
	return s.ModifyLabels(ctx, id, nil, []LabelID{Unread.ID})
}

// MarkUnread adds the UNREAD label.
func (s *Service) MarkUnread(ctx context.Context, id MessageID) error {
	return s.ModifyLabels(ctx, id, []LabelID{Unread.ID}, nil)
}

// Star adds the STARRED label.
func (s *Service) Star(ctx context.Context, id MessageID) error {
	return s.ModifyLabels(ctx, id, []LabelID{Starred.ID}, nil)
}

// Unstar removes the STARRED label.
func (s *Service) Unstar(ctx context.Context, id MessageID) error {
	return s.ModifyLabels(ctx, id, nil, []LabelID{Starred.ID})
}

// MarkImportant adds the IMPORTANT label.
func (s *Service) MarkImportant(ctx context.Context, id MessageID) error {
	return s.ModifyLabels(ctx, id, []LabelID{Important.ID}, nil)
}

// MarkNotImportant removes the IMPORTANT label.
func (s *Service) MarkNotImportant(ctx context.Context, id MessageID) error {
	return s.ModifyLabels(ctx, id, nil, []LabelID{Important.ID})
}

// MarkSpam adds the SPAM label.
func (s *Service) MarkSpam(ctx context.Context, id MessageID) error {
	return s.ModifyLabels(ctx, id, []LabelID{Spam.ID}, nil)
}

// MarkNotSpam removes the SPAM label.
func (s *Service) MarkNotSpam(ctx context.Context, id MessageID) error {
	return s.ModifyLabels(ctx, id, nil, []LabelID{Spam.ID})
}

// Archive removes the message from the inbox.
func (s *Service) Archive(ctx context.Context, id MessageID) error {
	return s.ModifyLabels(ctx, id, nil, []LabelID{Inbox.ID})
}

// MoveToInbox restores an archived message to the inbox.
func (s *Service) MoveToInbox(ctx context.Context, id MessageID) error {
	return s.ModifyLabels(ctx, id, []LabelID{Inbox.ID}, nil)
}

// MoveFromInbox applies the given label and removes the message from the
// inbox in one call.
func (s *Service) MoveFromInbox(ctx context.Context, id MessageID, to LabelID) error {
	return s.ModifyLabels(ctx, id, []LabelID{to}, []LabelID{Inbox.ID})
}

// TrashMessage moves a message to the trash and verifies the move applied.
func (s *Service) TrashMessage(ctx context.Context, id MessageID) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	got, err := s.Client.Trash(ctx, id)
	if err != nil {
		return fmt.Errorf("trash %s: %w", id, err)
	}
	if !containsLabel(got, Trash.ID) {
		return fmt.Errorf("trash did not apply to %s", id)
	}
	return nil
}

// UntrashMessage removes a message from the trash and verifies the move.
func (s *Service) UntrashMessage(ctx context.Context, id MessageID) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	got, err := s.Client.Untrash(ctx, id)
	if err != nil {
		return fmt.Errorf("untrash %s: %w", id, err)
	}
	if containsLabel(got, Trash.ID) {
		return fmt.Errorf("untrash did not apply to %s", id)
	}
	return nil
}

// DownloadAttachment fetches attachment data if it is not already present.
func (s *Service) DownloadAttachment(ctx context.Context, a *Attachment) error {
	if a.Data != nil {
		return nil
	}
	if err := s.wait(ctx); err != nil {
		return err
	}
	data, err := s.Client.GetAttachment(ctx, a.MessageID, a.ID)
	if err != nil {
		return fmt.Errorf("get attachment %s of %s: %w", a.ID, a.MessageID, err)
	}
	a.Data = data
	return nil
}

// SaveAttachment writes the attachment to path, downloading the data first
// if needed. The attachment's filename is used when path is empty.
func (s *Service) SaveAttachment(ctx context.Context, a *Attachment, path string, overwrite bool) error {
	if path == "" {
		path = a.Filename
	}
	if err := s.DownloadAttachment(ctx, a); err != nil {
		return err
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !overwrite {
		flags = os.O_CREATE | os.O_WRONLY | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o600) // #nosec G304 - destination is caller input
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(a.Data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *Service) listAll(ctx context.Context, opts SearchOptions) ([]MessageID, error) {
	var (
		refs  []MessageID
		token string
	)
	for {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		page, err := s.Client.List(ctx, ListOptions{
			Query:            opts.Query,
			LabelIDs:         opts.LabelIDs,
			IncludeSpamTrash: opts.IncludeSpamTrash,
			PageToken:        token,
			PageSize:         opts.PageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		refs = append(refs, page.IDs...)
		if page.NextPageToken == "" {
			return refs, nil
		}
		token = page.NextPageToken
	}
}

func (s *Service) labelIndex(ctx context.Context) (map[LabelID]Label, error) {
	labels, err := s.Labels(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[LabelID]Label, len(labels))
	for _, lbl := range labels {
		index[lbl.ID] = lbl
	}
	return index, nil
}

func (s *Service) hydrateAll(
	ctx context.Context,
	ids []MessageID,
	labels map[LabelID]Label,
	mode AttachmentMode,
) ([]Message, error) {
	workers := s.Workers
	if workers <= 0 {
		workers = (len(ids) + targetPerWorker - 1) / targetPerWorker
		if workers > maxHydrateWorkers {
			workers = maxHydrateWorkers
		}
	}
	if workers > len(ids) {
		workers = len(ids)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs := make([]Message, len(ids))
	indexes := make(chan int)
	errCh := make(chan error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				msg, err := s.fetchMessage(ctx, ids[i], labels, mode)
				if err != nil {
					select {
					case errCh <- err:
					default:
					}
					cancel()
					return
				}
				msgs[i] = msg
			}
		}()
	}

feed:
	for i := range ids {
		select {
		case indexes <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	select {
	case err := <-errCh:
		return nil, err
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *Service) fetchMessage(
	ctx context.Context,
	id MessageID,
	labels map[LabelID]Label,
	mode AttachmentMode,
) (Message, error) {
	if err := s.wait(ctx); err != nil {
		return Message{}, err
	}
	raw, err := s.Client.Get(ctx, id)
	if err != nil {
		return Message{}, fmt.Errorf("get message %s: %w", id, err)
	}
	return s.hydrate(ctx, raw, labels, mode)
}

func (s *Service) hydrate(
	ctx context.Context,
	raw RawMessage,
	labels map[LabelID]Label,
	mode AttachmentMode,
) (Message, error) {
	msg := Message{
		ID:       raw.ID,
		ThreadID: raw.ThreadID,
		Snippet:  html.UnescapeString(raw.Snippet),
		Headers:  make(map[string]string, len(raw.Headers)),
	}
	for _, h := range raw.Headers {
		msg.Headers[h.Name] = h.Value
		switch strings.ToLower(h.Name) {
		case "from":
			msg.Sender = h.Value
		case "to":
			msg.Recipient = h.Value
		case "subject":
			msg.Subject = h.Value
		case "date":
			if t, err := netmail.ParseDate(h.Value); err == nil {
				msg.Date = t
			}
		}
	}
	if msg.Date.IsZero() {
		msg.Date = raw.InternalDate
	}

	for _, id := range raw.LabelIDs {
		if lbl, ok := labels[id]; ok {
			msg.Labels = append(msg.Labels, lbl)
			continue
		}
		msg.Labels = append(msg.Labels, Label{ID: id, Name: string(id)})
	}

	var parts payloadParts
	walkPayload(raw.ID, raw.Payload, mode, &parts)
	msg.Plain = parts.plainBody()
	msg.HTML = parts.htmlBody()
	msg.Attachments = parts.attachments

	if mode == AttachmentsDownload {
		for i := range msg.Attachments {
			if err := s.DownloadAttachment(ctx, &msg.Attachments[i]); err != nil {
				return Message{}, err
			}
		}
	}
	return msg, nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.Limiter == nil {
		return nil
	}
	if err := s.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

func containsLabel(ids []LabelID, id LabelID) bool {
	for _, l := range ids {
		if l == id {
			return true
		}
	}
	return false
}
