// Package gmailapi adapts the generated Google API client to the narrow
// gmail.Client interface the rest of the library consumes.
package gmailapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	gmailv1 "google.golang.org/api/gmail/v1"

	"github.com/gmailkit/gmailkit/gmail"
)

// Client wraps *gmailv1.Service. All calls operate on the authenticated
// user ("me").
type Client struct {
	svc *gmailv1.Service
}

// New wraps an authenticated Gmail API service.
func New(svc *gmailv1.Service) *Client { return &Client{svc: svc} }

var _ gmail.Client = (*Client)(nil)

func (c *Client) List(ctx context.Context, opts gmail.ListOptions) (gmail.ListPage, error) {
	call := c.svc.Users.Messages.List("me")
	if opts.Query != "" {
		call = call.Q(opts.Query)
	}
	if len(opts.LabelIDs) > 0 {
		call = call.LabelIds(labelStrings(opts.LabelIDs)...)
	}
	if opts.IncludeSpamTrash {
		call = call.IncludeSpamTrash(true)
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}
	if opts.PageSize > 0 {
		call = call.MaxResults(int64(opts.PageSize))
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return gmail.ListPage{}, err
	}
	page := gmail.ListPage{NextPageToken: res.NextPageToken}
	for _, m := range res.Messages {
		page.IDs = append(page.IDs, gmail.MessageID(m.Id))
	}
	return page, nil
}

func (c *Client) Get(ctx context.Context, id gmail.MessageID) (gmail.RawMessage, error) {
	msg, err := c.svc.Users.Messages.Get("me", string(id)).Format("full").Context(ctx).Do()
	if err != nil {
		return gmail.RawMessage{}, err
	}
	return convertMessage(msg)
}

func (c *Client) ListThreads(ctx context.Context, opts gmail.ListOptions) (gmail.ThreadPage, error) {
	call := c.svc.Users.Threads.List("me")
	if opts.Query != "" {
		call = call.Q(opts.Query)
	}
	if len(opts.LabelIDs) > 0 {
		call = call.LabelIds(labelStrings(opts.LabelIDs)...)
	}
	if opts.IncludeSpamTrash {
		call = call.IncludeSpamTrash(true)
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}
	if opts.PageSize > 0 {
		call = call.MaxResults(int64(opts.PageSize))
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return gmail.ThreadPage{}, err
	}
	page := gmail.ThreadPage{NextPageToken: res.NextPageToken}
	for _, t := range res.Threads {
		page.IDs = append(page.IDs, gmail.ThreadID(t.Id))
	}
	return page, nil
}

func (c *Client) GetThread(ctx context.Context, id gmail.ThreadID) (gmail.RawThread, error) {
	res, err := c.svc.Users.Threads.Get("me", string(id)).Format("full").Context(ctx).Do()
	if err != nil {
		return gmail.RawThread{}, err
	}
	thread := gmail.RawThread{ID: gmail.ThreadID(res.Id), Snippet: res.Snippet}
	for _, m := range res.Messages {
		raw, convErr := convertMessage(m)
		if convErr != nil {
			return gmail.RawThread{}, convErr
		}
		thread.Messages = append(thread.Messages, raw)
	}
	return thread, nil
}

func (c *Client) GetAttachment(ctx context.Context, msg gmail.MessageID, id string) ([]byte, error) {
	res, err := c.svc.Users.Messages.Attachments.Get("me", string(msg), id).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	data, err := decodeBody(res.Data)
	if err != nil {
		return nil, fmt.Errorf("decode attachment %s: %w", id, err)
	}
	return data, nil
}

func (c *Client) Send(ctx context.Context, raw []byte) (gmail.MessageID, error) {
	msg := &gmailv1.Message{Raw: base64.RawURLEncoding.EncodeToString(raw)}
	res, err := c.svc.Users.Messages.Send("me", msg).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return gmail.MessageID(res.Id), nil
}

func (c *Client) Modify(ctx context.Context, id gmail.MessageID, add, remove []gmail.LabelID) ([]gmail.LabelID, error) {
	req := &gmailv1.ModifyMessageRequest{
		AddLabelIds:    labelStrings(add),
		RemoveLabelIds: labelStrings(remove),
	}
	res, err := c.svc.Users.Messages.Modify("me", string(id), req).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return toLabelIDs(res.LabelIds), nil
}

func (c *Client) BatchModify(ctx context.Context, ids []gmail.MessageID, add, remove []gmail.LabelID) error {
	req := &gmailv1.BatchModifyMessagesRequest{
		Ids:            messageStrings(ids),
		AddLabelIds:    labelStrings(add),
		RemoveLabelIds: labelStrings(remove),
	}
	return c.svc.Users.Messages.BatchModify("me", req).Context(ctx).Do()
}

func (c *Client) Trash(ctx context.Context, id gmail.MessageID) ([]gmail.LabelID, error) {
	res, err := c.svc.Users.Messages.Trash("me", string(id)).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return toLabelIDs(res.LabelIds), nil
}

func (c *Client) Untrash(ctx context.Context, id gmail.MessageID) ([]gmail.LabelID, error) {
	res, err := c.svc.Users.Messages.Untrash("me", string(id)).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return toLabelIDs(res.LabelIds), nil
}

func (c *Client) ListLabels(ctx context.Context) ([]gmail.Label, error) {
	res, err := c.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	labels := make([]gmail.Label, 0, len(res.Labels))
	for _, l := range res.Labels {
		labels = append(labels, gmail.Label{ID: gmail.LabelID(l.Id), Name: l.Name, Type: l.Type})
	}
	return labels, nil
}

func (c *Client) CreateLabel(ctx context.Context, name string) (gmail.Label, error) {
	res, err := c.svc.Users.Labels.Create("me", &gmailv1.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return gmail.Label{}, err
	}
	return gmail.Label{ID: gmail.LabelID(res.Id), Name: res.Name, Type: res.Type}, nil
}

func (c *Client) DeleteLabel(ctx context.Context, id gmail.LabelID) error {
	return c.svc.Users.Labels.Delete("me", string(id)).Context(ctx).Do()
}

func (c *Client) AliasSignature(ctx context.Context, sendAs string) (string, error) {
	res, err := c.svc.Users.Settings.SendAs.Get("me", sendAs).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return res.Signature, nil
}

func convertMessage(msg *gmailv1.Message) (gmail.RawMessage, error) {
	raw := gmail.RawMessage{
		ID:           gmail.MessageID(msg.Id),
		ThreadID:     gmail.ThreadID(msg.ThreadId),
		LabelIDs:     toLabelIDs(msg.LabelIds),
		Snippet:      msg.Snippet,
		InternalDate: time.UnixMilli(msg.InternalDate),
	}
	if msg.Payload == nil {
		return raw, nil
	}
	for _, h := range msg.Payload.Headers {
		raw.Headers = append(raw.Headers, gmail.Header{Name: h.Name, Value: h.Value})
	}
	payload, err := convertPart(msg.Payload)
	if err != nil {
		return gmail.RawMessage{}, fmt.Errorf("message %s: %w", msg.Id, err)
	}
	raw.Payload = payload
	return raw, nil
}

func convertPart(p *gmailv1.MessagePart) (gmail.Part, error) {
	part := gmail.Part{MimeType: p.MimeType, Filename: p.Filename}
	if p.Body != nil {
		part.AttachmentID = p.Body.AttachmentId
		body, err := decodeBody(p.Body.Data)
		if err != nil {
			return gmail.Part{}, fmt.Errorf("decode %s part: %w", p.MimeType, err)
		}
		part.Body = body
	}
	for _, child := range p.Parts {
		converted, err := convertPart(child)
		if err != nil {
			return gmail.Part{}, err
		}
		part.Parts = append(part.Parts, converted)
	}
	return part, nil
}

// decodeBody handles both padded and unpadded url-safe base64; the API is
// inconsistent about which it returns.
func decodeBody(data string) ([]byte, error) {
	if data == "" {
		return nil, nil
	}
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}

func labelStrings(ids []gmail.LabelID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func messageStrings(ids []gmail.MessageID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func toLabelIDs(ids []string) []gmail.LabelID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]gmail.LabelID, len(ids))
	for i, id := range ids {
		out[i] = gmail.LabelID(id)
	}
	return out
}
