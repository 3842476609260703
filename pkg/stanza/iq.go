package stanza

import (
	"github.com/google/uuid"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/jid"
)

// Packet is a unit of protocol traffic exchanged between two addressable entities.
type Packet interface {
	// StanzaID returns the id attribute of the packet
	StanzaID() string

	// Sender returns the from address, nil when absent
	Sender() *jid.JID

	// Recipient returns the to address, nil when absent
	Recipient() *jid.JID
}

// IQType is the type attribute of an IQ stanza
type IQType string

const (
	TypeGet    IQType = "get"
	TypeSet    IQType = "set"
	TypeResult IQType = "result"
	TypeError  IQType = "error"
)

// IsRequest reports whether the type expects exactly one reply.
func (t IQType) IsRequest() bool {
	return t == TypeGet || t == TypeSet
}

// Element is the single child element of an IQ.
type Element struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	// Payload holds the serialized inner content of the element
	Payload []byte `json:"payload,omitempty"`
}

// IQ is a request/response stanza.
type IQ struct {
	ID    string   `json:"id"`
	Type  IQType   `json:"type"`
	From  *jid.JID `json:"from,omitempty"`
	To    *jid.JID `json:"to,omitempty"`
	Child *Element `json:"child,omitempty"`
	Error *Error   `json:"error,omitempty"`
}

// NewIQ creates an IQ with a random id addressed to the given recipient.
func NewIQ(typ IQType, to *jid.JID, child *Element) *IQ {
	return &IQ{
		ID:    uuid.NewString(),
		Type:  typ,
		To:    cloneJID(to),
		Child: child,
	}
}

// StanzaID implements Packet.
func (iq *IQ) StanzaID() string { return iq.ID }

// Sender implements Packet.
func (iq *IQ) Sender() *jid.JID { return iq.From }

// Recipient implements Packet.
func (iq *IQ) Recipient() *jid.JID { return iq.To }

// Namespace returns the child element namespace, or "" when the IQ has no child.
func (iq *IQ) Namespace() string {
	if iq.Child == nil {
		return ""
	}
	return iq.Child.Namespace
}

// Copy returns a deep copy of the IQ.
func (iq *IQ) Copy() *IQ {
	c := &IQ{
		ID:   iq.ID,
		Type: iq.Type,
		From: cloneJID(iq.From),
		To:   cloneJID(iq.To),
	}
	if iq.Child != nil {
		child := *iq.Child
		child.Payload = append([]byte(nil), iq.Child.Payload...)
		c.Child = &child
	}
	if iq.Error != nil {
		e := *iq.Error
		c.Error = &e
	}
	return c
}

// ErrorReply returns a copy of the IQ re-addressed to its sender with the sender
// cleared and the given condition attached.
func (iq *IQ) ErrorReply(condition Condition) *IQ {
	reply := iq.Copy()
	reply.To = cloneJID(iq.From)
	reply.From = nil
	reply.Type = TypeError
	reply.Error = NewError(condition)
	return reply
}

// ResultReply returns an empty result addressed back to the sender of the IQ.
func (iq *IQ) ResultReply() *IQ {
	return &IQ{
		ID:   iq.ID,
		Type: TypeResult,
		From: cloneJID(iq.To),
		To:   cloneJID(iq.From),
	}
}

func cloneJID(j *jid.JID) *jid.JID {
	if j == nil {
		return nil
	}
	c := *j
	return &c
}

var _ Packet = (*IQ)(nil)
