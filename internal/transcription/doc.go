// Package transcription holds the provider-neutral data model and the shared
// control flow used by every speech-to-text backend.
//
// # Types
//
// Request describes one audio source (URL or local path) plus provider option
// overrides and is immutable once built. Job mirrors the remote state of an
// asynchronous transcription. Transcript is the uniform result every Provider
// returns.
//
// # Polling
//
// PollUntilTerminal drives submit-and-poll providers: it polls immediately,
// sleeps a fixed interval between polls, and stops on the first terminal
// status. The loop is bounded by a maximum attempt count and an optional
// deadline; exhausting either yields services.ErrTimedOut.
package transcription
