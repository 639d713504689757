// Package mqtt provides the MQTT client used by plantline.
//
// The broker carries two kinds of traffic:
//   - run progress published by the engine (plantline/runs/<id>/progress)
//   - the variable protocol spoken with the virtual twin gateway
//     (plantline/virtual/...), see Topics
//
// The client reconnects with exponential backoff, restores its
// subscriptions after a reconnect and announces itself on
// plantline/system/status with a Last Will for unexpected disconnects.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllVirtualStates(), 1,
//	    func(topic string, payload []byte) error {
//	        return nil
//	    })
package mqtt
