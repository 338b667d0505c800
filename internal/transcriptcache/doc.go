// Package transcriptcache persists completed transcripts keyed by audio
// content, provider and options so repeated runs skip the remote call.
//
// The cache is a single JSON file. Every read and every read-modify-write
// holds a gofrs/flock lock on a sibling ".lock" file, so several scribe
// processes can share one cache. An empty path disables the cache and turns
// every operation into a no-op.
package transcriptcache
