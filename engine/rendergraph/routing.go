package rendergraph

import "fmt"

// Key identifies a resource flowing between a producer and a consumer.
// Connected pins share the same key.
type Key int

// Routing decides which side of an edge owns the shared resource.
type Routing int

const (
	// RoutingNone means no resource flows. The edge only orders execution.
	RoutingNone Routing = iota
	// RoutingDontCare lets the other side decide.
	RoutingDontCare
	// ResourceProvidedByConsumer means the consumer owns the resource and the
	// producer renders into it. A window is the typical example.
	ResourceProvidedByConsumer
	// ResourceProvidedByProducer means the producer owns the resource and the
	// consumer reads it, like a shadow map.
	ResourceProvidedByProducer
)

func (r Routing) String() string {
	switch r {
	case RoutingNone:
		return "none"
	case RoutingDontCare:
		return "dont_care"
	case ResourceProvidedByConsumer:
		return "resource_provided_by_consumer"
	case ResourceProvidedByProducer:
		return "resource_provided_by_producer"
	}
	return fmt.Sprintf("Routing(%d)", int(r))
}

// ResolveRouting combines the routing of an output pin with the routing of
// the input pin it is connected to.
func ResolveRouting(output, input Routing) (Routing, error) {
	if output == RoutingNone || input == RoutingNone {
		if output == input {
			return RoutingNone, nil
		}
		return RoutingNone, fmt.Errorf("%w: output %s, input %s", ErrRoutingMismatch, output, input)
	}

	switch {
	case output == RoutingDontCare && input == RoutingDontCare:
		return ResourceProvidedByProducer, nil
	case output == RoutingDontCare:
		return input, nil
	case input == RoutingDontCare:
		return output, nil
	case output == input:
		return output, nil
	}
	return RoutingNone, fmt.Errorf("%w: output %s, input %s", ErrRoutingMismatch, output, input)
}
