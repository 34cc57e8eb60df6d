// Package domain contains the core business types for Quorum:
// knowledge sources, query plans, citations, chat sessions and the
// streaming event protocol. It has no dependencies on adapters.
package domain
