// Package mqtt connects qrauto to an MQTT broker.
//
// The broker is optional. When enabled it carries:
//   - run lifecycle events (qrauto/run/{id}/started, .../completed)
//   - remote run requests on qrauto/command/run, consumed by `qrauto listen`
//   - a retained online/offline status with Last Will on qrauto/system/status
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.CommandRun(), 1,
//	    func(topic string, payload []byte) error {
//	        return handleRunRequest(payload)
//	    })
package mqtt
