// Package jid provides the hierarchical XMPP address type used as the routing key
// throughout the server.
//
// An address is a (domain, node, resource) triple written as
// "node@domain/resource". Only the domain is required. An address carrying a
// node but no resource is a bare address.
package jid

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyDomain is returned when an address has no domain part
	ErrEmptyDomain = errors.New("jid: domain cannot be empty")
	// ErrInvalidJID is returned when an address string cannot be parsed
	ErrInvalidJID = errors.New("jid: malformed address")
)

// JID is an immutable XMPP address.
// The zero value has no domain and is used as a "match everything" wildcard by
// route enumeration.
type JID struct {
	Node     string
	Domain   string
	Resource string
}

// New builds an address from its parts, normalizing node and domain to lower case.
func New(node, domain, resource string) (JID, error) {
	j := JID{
		Node:     strings.ToLower(strings.TrimSpace(node)),
		Domain:   strings.ToLower(strings.TrimSpace(domain)),
		Resource: resource,
	}
	if j.Domain == "" {
		return JID{}, ErrEmptyDomain
	}
	if strings.ContainsAny(j.Node, "@/") || strings.ContainsAny(j.Domain, "@/") {
		return JID{}, fmt.Errorf("%w: %q", ErrInvalidJID, j.String())
	}
	return j, nil
}

// Parse parses "node@domain/resource"; node and resource are optional.
func Parse(s string) (JID, error) {
	if s == "" {
		return JID{}, ErrEmptyDomain
	}

	var node, domain, resource string
	rest := s
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		resource = rest[i+1:]
		rest = rest[:i]
		if resource == "" {
			return JID{}, fmt.Errorf("%w: empty resource in %q", ErrInvalidJID, s)
		}
	}
	if i := strings.IndexByte(rest, '@'); i >= 0 {
		node = rest[:i]
		domain = rest[i+1:]
		if node == "" {
			return JID{}, fmt.Errorf("%w: empty node in %q", ErrInvalidJID, s)
		}
	} else {
		domain = rest
	}
	return New(node, domain, resource)
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) JID {
	j, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return j
}

// Domainpart returns an address consisting of the domain only.
func Domainpart(domain string) JID {
	return JID{Domain: strings.ToLower(domain)}
}

// Bare returns the address with the resource cleared.
func (j JID) Bare() JID {
	return JID{Node: j.Node, Domain: j.Domain}
}

// IsBare reports whether the address has a node and no resource.
func (j JID) IsBare() bool {
	return j.Node != "" && j.Resource == ""
}

// IsDomainOnly reports whether the address consists of a domain alone.
func (j JID) IsDomainOnly() bool {
	return j.Domain != "" && j.Node == "" && j.Resource == ""
}

// IsZero reports whether the address is the empty wildcard.
func (j JID) IsZero() bool {
	return j.Domain == "" && j.Node == "" && j.Resource == ""
}

// Equal compares two addresses.
func (j JID) Equal(other JID) bool {
	return j == other
}

// String renders the address in "node@domain/resource" form.
func (j JID) String() string {
	var b strings.Builder
	if j.Node != "" {
		b.WriteString(j.Node)
		b.WriteByte('@')
	}
	b.WriteString(j.Domain)
	if j.Resource != "" {
		b.WriteByte('/')
		b.WriteString(j.Resource)
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (j JID) MarshalText() ([]byte, error) {
	return []byte(j.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (j *JID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*j = parsed
	return nil
}
