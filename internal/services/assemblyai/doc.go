// Package assemblyai implements the submit-and-poll transcription flow
// against the AssemblyAI v2 REST API.
//
// Local sources are uploaded first through /v2/upload; the returned
// upload URL becomes the job's audio_url. Job status is then polled at a
// fixed interval through transcription.PollUntilTerminal, bounded by an
// attempt count and an overall deadline.
package assemblyai
