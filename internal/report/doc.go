// Package report is the Error Reporter: the single place components send
// failures that the user or operator should know about.
//
//	r := report.New(sqliteStore, logger)
//	r.Report(err, "conversation", report.SeverityError)
//
// Report never blocks and never fails. Each report is logged at the level
// matching its severity, classified with llm.Classify, and, when a Sink is
// configured, written asynchronously with its own timeout. Sink errors and
// panics are logged and dropped. Flush waits for pending writes on shutdown.
package report
