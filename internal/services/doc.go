// Package services defines shared utilities consumed by the transcription
// provider clients and the runner.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, provider names, and provider request
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures into
//     submission, job, response-shape, timeout, transport, configuration, and
//     validation kinds.
//   - PayloadError, which keeps the raw provider body attached to a failure so
//     the CLI can show it verbatim.
//
// Provider clients live in subpackages (assemblyai, deepgram, openai) and all
// report failures through these markers so callers handle one error contract.
package services
