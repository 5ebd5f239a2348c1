package mailer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"time"
)

const (
	defaultTextBody = "Hello,\r\nYour scheduled report is attached."
	defaultHTMLBody = `<html>
<head></head>
<body>
<h2>Notice:</h2>
<p>Your scheduled report is attached.</p>
</body>
</html>
`
)

// Message is a report mail with a single attachment.
type Message struct {
	From       string
	To         []string
	Cc         []string
	Subject    string
	ReturnPath string
	ReplyTo    string
	Charset    string

	TextBody string
	HTMLBody string

	AttachmentName string
	Attachment     []byte
}

// Destinations lists every envelope recipient.
func (m Message) Destinations() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc))
	out = append(out, m.To...)
	return append(out, m.Cc...)
}

// ReportDate is the date a report delivered at now covers: the previous day.
func ReportDate(now time.Time) string {
	return now.AddDate(0, 0, -1).Format("01.02.2006")
}

// AttachmentName derives the attachment file name from the subject and the
// report date, with spaces replaced by underscores.
func AttachmentName(subject, date string) string {
	return strings.ReplaceAll(subject+" "+date+".csv", " ", "_")
}

// Compose renders m as a raw multipart/mixed message: a multipart/alternative
// text and HTML body followed by the attachment.
func Compose(m Message) ([]byte, error) {
	charset := m.Charset
	if charset == "" {
		charset = "UTF-8"
	}
	text, html := m.TextBody, m.HTMLBody
	if text == "" {
		text = defaultTextBody
	}
	if html == "" {
		html = defaultHTMLBody
	}

	var body bytes.Buffer
	mixed := multipart.NewWriter(&body)

	var altBody bytes.Buffer
	alt := multipart.NewWriter(&altBody)
	if err := writeTextPart(alt, "text/plain", charset, text); err != nil {
		return nil, err
	}
	if err := writeTextPart(alt, "text/html", charset, html); err != nil {
		return nil, err
	}
	if err := alt.Close(); err != nil {
		return nil, err
	}

	altPart, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {mime.FormatMediaType("multipart/alternative", map[string]string{"boundary": alt.Boundary()})},
	})
	if err != nil {
		return nil, err
	}
	if _, err := altPart.Write(altBody.Bytes()); err != nil {
		return nil, err
	}

	if m.AttachmentName != "" {
		attachment, err := mixed.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {mime.FormatMediaType("application/octet-stream", map[string]string{"name": m.AttachmentName})},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": m.AttachmentName})},
			"Content-Transfer-Encoding": {"base64"},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64(attachment, m.Attachment); err != nil {
			return nil, err
		}
	}
	if err := mixed.Close(); err != nil {
		return nil, err
	}

	var raw bytes.Buffer
	header := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&raw, "%s: %s\r\n", k, v)
		}
	}
	header("From", m.From)
	header("To", strings.Join(m.To, ", "))
	header("Cc", strings.Join(m.Cc, ", "))
	header("Subject", mime.QEncoding.Encode(charset, m.Subject))
	header("Return-Path", m.ReturnPath)
	header("Reply-To", m.ReplyTo)
	header("MIME-Version", "1.0")
	header("Content-Type", mime.FormatMediaType("multipart/mixed", map[string]string{"boundary": mixed.Boundary()}))
	raw.WriteString("\r\n")
	raw.Write(body.Bytes())
	return raw.Bytes(), nil
}

func writeTextPart(w *multipart.Writer, mediaType, charset, content string) error {
	part, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {mime.FormatMediaType(mediaType, map[string]string{"charset": charset})},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return err
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := io.WriteString(qp, content); err != nil {
		return err
	}
	return qp.Close()
}

// writeBase64 writes data base64 encoded in 76 character lines.
func writeBase64(w io.Writer, data []byte) error {
	const chunk = 57
	line := make([]byte, base64.StdEncoding.EncodedLen(chunk))
	for len(data) > 0 {
		n := min(chunk, len(data))
		base64.StdEncoding.Encode(line, data[:n])
		if _, err := w.Write(line[:base64.StdEncoding.EncodedLen(n)]); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}
