// Package driving provides interfaces the core exposes to external actors
// (primary/inbound ports): the chat façade and the source registry.
package driving
