package gmail

import "time"

type MessageID string

type ThreadID string

type LabelID string

// Label is a Gmail label as plain data. Labels compare structurally; the
// reserved system labels below can be compared against values returned by
// the API.
type Label struct {
	ID   LabelID
	Name string
	Type string
}

// Reserved system labels.
var (
	Inbox      = Label{ID: "INBOX", Name: "INBOX", Type: "system"}
	Spam       = Label{ID: "SPAM", Name: "SPAM", Type: "system"}
	Trash      = Label{ID: "TRASH", Name: "TRASH", Type: "system"}
	Unread     = Label{ID: "UNREAD", Name: "UNREAD", Type: "system"}
	Starred    = Label{ID: "STARRED", Name: "STARRED", Type: "system"}
	Sent       = Label{ID: "SENT", Name: "SENT", Type: "system"}
	Important  = Label{ID: "IMPORTANT", Name: "IMPORTANT", Type: "system"}
	Draft      = Label{ID: "DRAFT", Name: "DRAFT", Type: "system"}
	Chat       = Label{ID: "CHAT", Name: "CHAT", Type: "system"}
	Personal   = Label{ID: "CATEGORY_PERSONAL", Name: "CATEGORY_PERSONAL", Type: "system"}
	Social     = Label{ID: "CATEGORY_SOCIAL", Name: "CATEGORY_SOCIAL", Type: "system"}
	Promotions = Label{ID: "CATEGORY_PROMOTIONS", Name: "CATEGORY_PROMOTIONS", Type: "system"}
	Updates    = Label{ID: "CATEGORY_UPDATES", Name: "CATEGORY_UPDATES", Type: "system"}
	Forums     = Label{ID: "CATEGORY_FORUMS", Name: "CATEGORY_FORUMS", Type: "system"}
)

// Header is a single RFC 5322 header as returned by the API.
type Header struct {
	Name  string
	Value string
}

// Part is one node of a message payload tree. Body holds decoded bytes for
// leaf text parts; attachment parts carry an AttachmentID instead and their
// data is fetched separately.
type Part struct {
	MimeType     string
	Filename     string
	AttachmentID string
	Body         []byte
	Parts        []Part
}

// RawMessage is the wire-shaped message envelope before hydration.
type RawMessage struct {
	ID           MessageID
	ThreadID     ThreadID
	LabelIDs     []LabelID
	Snippet      string
	InternalDate time.Time
	Headers      []Header
	Payload      Part
}

// RawThread is the wire-shaped thread envelope.
type RawThread struct {
	ID       ThreadID
	Snippet  string
	Messages []RawMessage
}

// Message is a fully hydrated mailbox message.
type Message struct {
	ID          MessageID
	ThreadID    ThreadID
	Sender      string
	Recipient   string
	Subject     string
	Date        time.Time
	Snippet     string
	Plain       string
	HTML        string
	Labels      []Label
	Attachments []Attachment
	Headers     map[string]string
}

// Attachment describes a message attachment. Data is nil until downloaded.
type Attachment struct {
	MessageID MessageID
	ID        string
	Filename  string
	MimeType  string
	Data      []byte
}

// Thread is a conversation with its hydrated messages.
type Thread struct {
	ID       ThreadID
	Snippet  string
	Messages []Message
}

// ListPage is one page of message references.
type ListPage struct {
	IDs           []MessageID
	NextPageToken string
}

// ThreadPage is one page of thread references.
type ThreadPage struct {
	IDs           []ThreadID
	NextPageToken string
}

// AttachmentMode controls how much attachment work message hydration does.
type AttachmentMode int

const (
	// AttachmentsReference records attachment metadata without fetching data.
	AttachmentsReference AttachmentMode = iota
	// AttachmentsIgnore drops attachments entirely.
	AttachmentsIgnore
	// AttachmentsDownload fetches attachment data during hydration.
	AttachmentsDownload
)

// ListOptions parametrizes a message or thread listing call.
type ListOptions struct {
	Query            string
	LabelIDs         []LabelID
	IncludeSpamTrash bool
	PageToken        string
	PageSize         int
}

// SearchOptions parametrizes a high-level search.
type SearchOptions struct {
	Query            string
	LabelIDs         []LabelID
	IncludeSpamTrash bool
	Attachments      AttachmentMode
	PageSize         int
}
