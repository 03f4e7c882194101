// Package core defines the shared data model for StockSense runs: subjects,
// observations, findings, run results, run configuration, and the three-level
// error taxonomy (connector, agent, orchestration).
//
// Everything here is plain data. Connectors produce Observations, agents turn
// them into Findings, and the engine merges Findings into a sealed RunResult.
// Values are immutable once handed across a concurrency boundary.
package core
