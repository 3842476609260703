// Package server provides interfaces for the server context object.
//
// The Server owns every routing component for the lifetime of the process:
//   - the routing table mapping addresses to routes
//   - the IQ router and its namespace handler registry
//   - the delivery gateway and its transport handler
//   - the session directory
//   - the peer link to remote domains
//
// It is constructed explicitly at startup and passed by reference to
// whatever needs it; nothing in the core is a process-wide singleton.
//
// Lifecycle:
//  1. New builds every component without starting anything
//  2. Start installs the transport handler and connects discovered peers
//  3. Stop removes the transport handler; packets can no longer be delivered
//  4. Close tears down sessions, peers and the routing table
package server
