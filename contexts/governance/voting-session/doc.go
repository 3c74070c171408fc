// Package votingsession implements time-boxed yes/no voting on topics inside
// the governance context.
//
// A topic owner opens exactly one session per topic. Members vote through the
// internal path and outside voters through the external path, which checks a
// secret only for identities already registered. Eligibility is re-validated
// under a per-topic write lock so the duplicate check and the append commit
// together, and the outcome is recomputed from the clock and the tallies on
// every read. State changes emit topic.created, session.opened and vote.cast
// through an outbox relayed by the worker process.
package votingsession
