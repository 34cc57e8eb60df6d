// Package services implements the core pipeline: source registry,
// query planner, execution engine, synthesizer and the chat façade.
package services
