// Package broker provides the mqtt_broker external service and the adapters
// that use it: an energy monitor fed by sensor topics and a notifier that
// publishes JSON messages.
//
// The service wraps infrastructure/mqtt, so subscriptions survive
// reconnects and the client announces its status under edgemining/system.
package broker
