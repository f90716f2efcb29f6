package gmail

import "strings"

// payloadParts is the flattened view of a payload tree: concatenated plain
// and HTML bodies plus attachment references.
type payloadParts struct {
	plain       []string
	html        []string
	attachments []Attachment
}

// walkPayload recursively evaluates a message payload. Multipart containers
// recurse into their children; text leaves contribute bodies; parts carrying
// an attachment ID become attachment references unless the mode ignores
// them. Anything else is dropped.
func walkPayload(msgID MessageID, p Part, mode AttachmentMode, out *payloadParts) {
	switch {
	case p.AttachmentID != "":
		if mode == AttachmentsIgnore {
			return
		}
		filename := p.Filename
		if filename == "" {
			filename = "unknown"
		}
		out.attachments = append(out.attachments, Attachment{
			MessageID: msgID,
			ID:        p.AttachmentID,
			Filename:  filename,
			MimeType:  p.MimeType,
			Data:      p.Body,
		})

	case p.MimeType == "text/plain":
		out.plain = append(out.plain, string(p.Body))

	case p.MimeType == "text/html":
		out.html = append(out.html, string(p.Body))

	case strings.HasPrefix(p.MimeType, "multipart"):
		for _, child := range p.Parts {
			walkPayload(msgID, child, mode, out)
		}
	}
}

func (pp payloadParts) plainBody() string {
	return strings.Join(pp.plain, "\n")
}

func (pp payloadParts) htmlBody() string {
	return strings.Join(pp.html, "<br/>")
}
