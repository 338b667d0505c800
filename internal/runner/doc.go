// Package runner times one provider call on one request and threads the
// result through the transcript cache and run history.
//
// Run stamps a fresh run id on the context so every log line of the call
// carries it. Cache and history failures are logged as warnings and never
// fail the run; only the provider decides success. Compare feeds the same
// request to several providers one after another.
package runner
