// Package dummy provides simulated adapters for every capability port.
//
// They need no hardware or remote service and are meant for development,
// demos and tests. Readings are random but plausible: solar production
// follows the time of day and batteries charge from surplus.
package dummy
