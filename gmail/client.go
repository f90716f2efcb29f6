package gmail

import "context"

// Client is the narrow Gmail wire surface the library depends on. The
// production implementation lives in the gmailapi package; tests substitute
// fakes.
type Client interface {
	List(ctx context.Context, opts ListOptions) (ListPage, error)
	Get(ctx context.Context, id MessageID) (RawMessage, error)
	ListThreads(ctx context.Context, opts ListOptions) (ThreadPage, error)
	GetThread(ctx context.Context, id ThreadID) (RawThread, error)
	GetAttachment(ctx context.Context, msg MessageID, id string) ([]byte, error)
	Send(ctx context.Context, raw []byte) (MessageID, error)
	Modify(ctx context.Context, id MessageID, add, remove []LabelID) ([]LabelID, error)
	BatchModify(ctx context.Context, ids []MessageID, add, remove []LabelID) error
	Trash(ctx context.Context, id MessageID) ([]LabelID, error)
	Untrash(ctx context.Context, id MessageID) ([]LabelID, error)
	ListLabels(ctx context.Context) ([]Label, error)
	CreateLabel(ctx context.Context, name string) (Label, error)
	DeleteLabel(ctx context.Context, id LabelID) error
	AliasSignature(ctx context.Context, sendAs string) (string, error)
}
