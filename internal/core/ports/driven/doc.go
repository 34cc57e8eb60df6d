// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): knowledge sources, LLM services and stores.
package driven
