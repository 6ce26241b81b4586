// Package rendergraph schedules render passes.
//
// Passes are nodes with keyed input and output pins. Subsystems register
// their nodes into a Rendergraph and connect an output pin of a producer to
// the input pin with the same key on a consumer. Every frame Execute runs
// each enabled node exactly once, producers before their consumers.
//
// Each edge carries a Routing that decides which side of the edge provides
// the shared resource. Routing is resolved and validated when the edge is
// connected, so a misconfigured graph fails at startup and not in the middle
// of a frame. At execution time nodes ask their peers for resources through
// the ExecutionContext.
package rendergraph
