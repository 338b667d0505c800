// Command scribe sends audio to AssemblyAI, Deepgram, or OpenAI Whisper and
// prints the transcript with the elapsed wall-clock time.
//
// Besides transcribe, the CLI compares providers side by side, lists past
// runs from the history database, manages the transcript cache, runs
// preflight checks, and writes or validates the TOML configuration. Logs go
// to stderr so stdout carries only command output.
package main
