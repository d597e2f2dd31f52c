package message

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
)

// CodecError reports a payload that could not be decoded.
type CodecError struct {
	MimeType string
	Err      error
}

func (e *CodecError) Error() string {
	if e.MimeType == "" {
		return fmt.Sprintf("decode message body: %v", e.Err)
	}
	return fmt.Sprintf("decode %s part: %v", e.MimeType, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// ExtractBody returns the plain-text content of a message.
//
// When the payload has sub-parts only text/plain leaves contribute, joined in
// payload order. A payload without sub-parts yields its own body verbatim.
// Messages with neither yield "".
func ExtractBody(msg *Message) (string, error) {
	if msg == nil || msg.Payload == nil {
		return "", nil
	}
	root := msg.Payload
	if len(root.Parts) == 0 {
		if root.Data == "" {
			return "", nil
		}
		return decodePart(root)
	}

	var sb strings.Builder
	if err := collectPlainText(root.Parts, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func collectPlainText(parts []*Part, sb *strings.Builder) error {
	for _, p := range parts {
		if p == nil {
			continue
		}
		if len(p.Parts) > 0 {
			// attached messages are not part of this message's text
			if strings.EqualFold(p.MimeType, "message/rfc822") {
				continue
			}
			if err := collectPlainText(p.Parts, sb); err != nil {
				return err
			}
			continue
		}
		if !strings.EqualFold(p.MimeType, "text/plain") || p.Data == "" {
			continue
		}
		text, err := decodePart(p)
		if err != nil {
			return err
		}
		sb.WriteString(text)
	}
	return nil
}

func decodePart(p *Part) (string, error) {
	data, err := decodeData(p.Data)
	if err != nil {
		return "", &CodecError{MimeType: p.MimeType, Err: err}
	}
	cs := partCharset(p)
	if cs == "" || strings.EqualFold(cs, "utf-8") || strings.EqualFold(cs, "us-ascii") {
		return string(data), nil
	}
	r, err := charset.Reader(cs, bytes.NewReader(data))
	if err != nil {
		// unknown charset: hand back the bytes untouched
		return string(data), nil
	}
	converted, err := io.ReadAll(r)
	if err != nil {
		return "", &CodecError{MimeType: p.MimeType, Err: err}
	}
	return string(converted), nil
}

// decodeData accepts both padded and unpadded base64url
func decodeData(s string) ([]byte, error) {
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

func partCharset(p *Part) string {
	ct, ok := PartHeader(p, "Content-Type")
	if !ok {
		return ""
	}
	_, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// PartHeader returns the first header of p whose name matches case-insensitively.
func PartHeader(p *Part, name string) (string, bool) {
	if p == nil {
		return "", false
	}
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// FirstHeader looks a header up on the message's top-level payload.
func FirstHeader(msg *Message, name string) (string, bool) {
	if msg == nil {
		return "", false
	}
	return PartHeader(msg.Payload, name)
}

// SenderAddress returns the bare address from a From header value,
// e.g. "Alice <alice@example.com>" -> "alice@example.com".
func SenderAddress(from string) (string, error) {
	from = strings.TrimSpace(from)
	if from == "" {
		return "", fmt.Errorf("empty sender")
	}
	addr, err := gomail.ParseAddress(from)
	if err != nil {
		return "", fmt.Errorf("parse sender %q: %w", from, err)
	}
	if addr.Address == "" {
		return "", fmt.Errorf("sender %q has no address", from)
	}
	return addr.Address, nil
}

// ReplySubject prefixes the original subject for a reply.
func ReplySubject(subject string) string {
	return "Re: " + subject
}

// BuildReply encodes a plain-text reply as a base64url RFC 5322 message.
// The subject is used as given.
func BuildReply(to, subject, body string) (*OutgoingReply, error) {
	if strings.TrimSpace(to) == "" {
		return nil, fmt.Errorf("reply recipient is required")
	}

	var h gomail.Header
	h.SetDate(time.Now())
	h.SetAddressList("To", []*gomail.Address{{Address: to}})
	setSubject(&h, subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "base64")

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create reply writer: %w", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("write reply body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close reply writer: %w", err)
	}

	return &OutgoingReply{
		To:      to,
		Subject: subject,
		Body:    body,
		Raw:     base64.URLEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// encodedWordBytes keeps each encoded-word within the 75 character limit of RFC 2047.
const encodedWordBytes = 45

// setSubject writes the Subject header. Header parsing trims unencoded
// edge whitespace, so a subject like "Re: " is sent as encoded-words.
func setSubject(h *gomail.Header, subject string) {
	first, _ := utf8.DecodeRuneInString(subject)
	last, _ := utf8.DecodeLastRuneInString(subject)
	if subject == "" || (!unicode.IsSpace(first) && !unicode.IsSpace(last)) {
		h.SetSubject(subject)
		return
	}
	h.Set("Subject", encodeWords(subject))
}

// encodeWords splits s on rune boundaries into base64 encoded-words.
func encodeWords(s string) string {
	var words []string
	for len(s) > 0 {
		n := 0
		for n < len(s) {
			_, size := utf8.DecodeRuneInString(s[n:])
			if n > 0 && n+size > encodedWordBytes {
				break
			}
			n += size
		}
		words = append(words, "=?utf-8?b?"+base64.StdEncoding.EncodeToString([]byte(s[:n]))+"?=")
		s = s[n:]
	}
	return strings.Join(words, " ")
}
