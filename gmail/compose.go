package gmail

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	netmail "net/mail"
	"os"
	"path/filepath"
	"time"

	"github.com/emersion/go-message/mail"
)

// Compose describes an outbound message. Attachments are file paths read at
// send time; content types are guessed from the extension.
type Compose struct {
	From        string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	Plain       string
	HTML        string
	Attachments []string
	// Signature appends the account's send-as signature to the HTML body,
	// creating one if the message has no HTML part.
	Signature bool
}

// encodeMessage renders the compose into a raw RFC 5322 message. A non-empty
// signature is appended to the HTML body the same way the Gmail web client
// does.
func encodeMessage(c Compose, signature string) ([]byte, error) {
	htmlBody := c.HTML
	if signature != "" {
		htmlBody += "<br /><br />" + signature
	}

	var h mail.Header
	h.SetDate(time.Now())
	h.SetSubject(c.Subject)
	if err := setAddresses(&h, "From", []string{c.From}); err != nil {
		return nil, err
	}
	if err := setAddresses(&h, "To", c.To); err != nil {
		return nil, err
	}
	if err := setAddresses(&h, "Cc", c.Cc); err != nil {
		return nil, err
	}
	if err := setAddresses(&h, "Bcc", c.Bcc); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create mime writer: %w", err)
	}

	if c.Plain != "" || htmlBody != "" {
		iw, inlineErr := mw.CreateInline()
		if inlineErr != nil {
			return nil, fmt.Errorf("create inline part: %w", inlineErr)
		}
		if c.Plain != "" {
			if writeErr := writeInline(iw, "text/plain", c.Plain); writeErr != nil {
				return nil, writeErr
			}
		}
		if htmlBody != "" {
			if writeErr := writeInline(iw, "text/html", htmlBody); writeErr != nil {
				return nil, writeErr
			}
		}
		if closeErr := iw.Close(); closeErr != nil {
			return nil, fmt.Errorf("close inline part: %w", closeErr)
		}
	}

	for _, path := range c.Attachments {
		if attachErr := writeAttachment(mw, path); attachErr != nil {
			return nil, attachErr
		}
	}

	if closeErr := mw.Close(); closeErr != nil {
		return nil, fmt.Errorf("close mime writer: %w", closeErr)
	}
	return buf.Bytes(), nil
}

func setAddresses(h *mail.Header, key string, raw []string) error {
	if len(raw) == 0 {
		return nil
	}
	addrs := make([]*mail.Address, 0, len(raw))
	for _, r := range raw {
		if r == "" {
			continue
		}
		parsed, err := netmail.ParseAddress(r)
		if err != nil {
			return fmt.Errorf("parse %s address %q: %w", key, r, err)
		}
		addrs = append(addrs, &mail.Address{Name: parsed.Name, Address: parsed.Address})
	}
	if len(addrs) == 0 {
		return nil
	}
	h.SetAddressList(key, addrs)
	return nil
}

func writeInline(iw *mail.InlineWriter, contentType, body string) error {
	var th mail.InlineHeader
	th.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	pw, err := iw.CreatePart(th)
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(pw, body); err != nil {
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close %s part: %w", contentType, err)
	}
	return nil
}

func writeAttachment(mw *mail.Writer, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 - attachment paths are caller input
	if err != nil {
		return fmt.Errorf("read attachment %s: %w", path, err)
	}

	ctype := mime.TypeByExtension(filepath.Ext(path))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	mediaType, params, err := mime.ParseMediaType(ctype)
	if err != nil {
		mediaType, params = "application/octet-stream", nil
	}

	var ah mail.AttachmentHeader
	ah.SetContentType(mediaType, params)
	ah.SetFilename(filepath.Base(path))
	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return fmt.Errorf("create attachment part: %w", err)
	}
	if _, err := aw.Write(data); err != nil {
		return fmt.Errorf("write attachment %s: %w", path, err)
	}
	if err := aw.Close(); err != nil {
		return fmt.Errorf("close attachment part: %w", err)
	}
	return nil
}
