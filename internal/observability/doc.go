// Package observability provides structured logging, the domain event log,
// metrics derived from that log, task health alerts and Slack notification
// for taskgraph. Events are persisted as JSON Lines (JSONL) so they can be
// tailed and filtered without a database.
package observability
