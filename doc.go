// Package trafficgen synthesizes toll-transaction test data for ALPR
// pipelines: sampled license plates per jurisdiction, composite vehicle
// images with simulated environmental degradation, and structured
// transaction records dispatched in batches to a file or queue sink.
package trafficgen
