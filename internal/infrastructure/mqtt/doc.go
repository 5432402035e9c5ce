// Package mqtt wraps the paho MQTT client for the core's own event
// connection and for mqtt_broker external services.
//
// A Client tracks its subscriptions and restores them after a reconnect,
// announces itself on a retained status topic, and registers a last will so
// the broker marks it offline if the process dies.
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe("home/energy/+/power", 1, func(topic string, payload []byte) error {
//	    return handle(topic, payload)
//	})
//
// Topics published by the core live under edgemining/; see Topics.
package mqtt
