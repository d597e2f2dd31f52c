// Package message holds the provider-independent view of a mailbox message
// and the codec that turns it into plain text and back into a sendable reply.
package message

// Header is a single name/value pair from a MIME part, kept in wire order.
type Header struct {
	Name  string
	Value string
}

// Part is one node of a message's MIME tree. Leaf parts carry Data, the
// base64url-encoded body exactly as the mailbox provider returned it.
type Part struct {
	MimeType string
	Filename string
	Headers  []Header
	Data     string
	Parts    []*Part
}

// Message is a fully fetched mailbox message.
type Message struct {
	ID       string
	ThreadID string
	LabelIDs []string
	Snippet  string
	Payload  *Part
}

// OutgoingReply is a reply ready to be handed to the mailbox for sending.
type OutgoingReply struct {
	To      string
	Subject string
	Body    string

	// Raw is the base64url-encoded RFC 5322 message
	Raw string
}

// HasLabel reports whether the message carries the given label ID
func (m *Message) HasLabel(id string) bool {
	if m == nil {
		return false
	}
	for _, l := range m.LabelIDs {
		if l == id {
			return true
		}
	}
	return false
}
