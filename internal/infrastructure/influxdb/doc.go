// Package influxdb records automation run metrics in InfluxDB v2.
//
// Two measurements are written:
//   - automation_run: one point per run, tagged by source and status, with
//     steps, completed and duration_ms fields
//   - automation_step: one point per executed step, tagged by action kind,
//     with index and elapsed_ms fields
//
// Writes are non-blocking and batched by the underlying client; async write
// failures reach the callback set with SetOnError.
//
// Usage:
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteRunMetric(influxdb.RunMetric{Source: "camera", Status: "completed", Steps: 4})
package influxdb
