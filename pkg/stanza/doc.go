// Package stanza defines the already-parsed packet model handled by the routing core.
//
// Wire-level XML parsing and serialization happen outside this module; the
// core only looks at addressing (from/to), the IQ type and the namespace of
// the IQ's child element. The child payload travels opaquely.
//
// Error replies are built with ErrorReply, which re-addresses a copy of the
// request back to its sender, clears the sender and attaches exactly one
// error condition:
//
//	reply := iq.ErrorReply(stanza.ConditionServiceUnavailable)
//	// reply.To == original iq.From, reply.From == nil, reply.Type == stanza.TypeError
package stanza
