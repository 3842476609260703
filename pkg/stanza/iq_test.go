package stanza

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/jid"
)

func newTestIQ() *IQ {
	from := jid.MustParse("alice@example.com/phone")
	to := jid.MustParse("example.com")
	return &IQ{
		ID:    "ping-1",
		Type:  TypeGet,
		From:  &from,
		To:    &to,
		Child: &Element{Name: "ping", Namespace: "urn:xmpp:ping", Payload: []byte("x")},
	}
}

func TestIQ_ErrorReply(t *testing.T) {
	iq := newTestIQ()

	reply := iq.ErrorReply(ConditionServiceUnavailable)

	require.NotNil(t, reply.To)
	assert.Equal(t, "alice@example.com/phone", reply.To.String())
	assert.Nil(t, reply.From)
	assert.Equal(t, TypeError, reply.Type)
	assert.Equal(t, iq.ID, reply.ID)
	require.NotNil(t, reply.Error)
	assert.Equal(t, ConditionServiceUnavailable, reply.Error.Condition)
	assert.Equal(t, ErrorTypeCancel, reply.Error.Type)
	assert.Equal(t, 503, reply.Error.Code)

	// original untouched
	assert.Equal(t, TypeGet, iq.Type)
	assert.Nil(t, iq.Error)
	assert.Equal(t, "example.com", iq.To.String())
}

func TestIQ_ErrorReply_NoSender(t *testing.T) {
	iq := newTestIQ()
	iq.From = nil

	reply := iq.ErrorReply(ConditionUnauthorized)
	assert.Nil(t, reply.To)
	assert.Equal(t, ErrorTypeAuth, reply.Error.Type)
}

func TestIQ_Copy_IsDeep(t *testing.T) {
	iq := newTestIQ()
	c := iq.Copy()

	c.Child.Payload[0] = 'y'
	c.To.Domain = "other.org"

	assert.Equal(t, byte('x'), iq.Child.Payload[0])
	assert.Equal(t, "example.com", iq.To.Domain)
}

func TestIQ_ResultReply(t *testing.T) {
	iq := newTestIQ()
	result := iq.ResultReply()

	assert.Equal(t, TypeResult, result.Type)
	assert.Equal(t, "example.com", result.From.String())
	assert.Equal(t, "alice@example.com/phone", result.To.String())
	assert.Nil(t, result.Child)
}

func TestIQ_Namespace(t *testing.T) {
	iq := newTestIQ()
	assert.Equal(t, "urn:xmpp:ping", iq.Namespace())

	iq.Child = nil
	assert.Equal(t, "", iq.Namespace())
}

func TestNewIQ_AssignsID(t *testing.T) {
	to := jid.MustParse("example.com")
	a := NewIQ(TypeGet, &to, nil)
	b := NewIQ(TypeGet, &to, nil)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, a.Type.IsRequest())
	assert.False(t, TypeResult.IsRequest())
}

func TestCondition_WireNames(t *testing.T) {
	tests := []struct {
		condition Condition
		wire      string
		typ       ErrorType
	}{
		{ConditionUnauthorized, "not-authorized", ErrorTypeAuth},
		{ConditionFeatureNotImplemented, "feature-not-implemented", ErrorTypeCancel},
		{ConditionServiceUnavailable, "service-unavailable", ErrorTypeCancel},
		{ConditionBadRequest, "bad-request", ErrorTypeModify},
	}
	for _, tt := range tests {
		t.Run(tt.wire, func(t *testing.T) {
			reply := newTestIQ().ErrorReply(tt.condition)
			require.NotNil(t, reply.Error)
			assert.Equal(t, tt.wire, string(reply.Error.Condition))
			assert.Equal(t, tt.typ, reply.Error.Type)
		})
	}
}
