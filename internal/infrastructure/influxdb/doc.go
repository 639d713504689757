// Package influxdb writes plantline run telemetry to InfluxDB.
//
// Two measurements are recorded:
//
//	command_latency  tags backend, class, verb   field duration_ms
//	run              tags kind, status           fields total, completed
//
// Writes are non-blocking and batched according to the batch_size and
// flush_interval settings. Write failures surface through the callback set
// with SetOnError; connection and health check errors are returned directly.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	eng := engine.New(engine.Deps{Telemetry: client, ...})
package influxdb
