// Package textutil compares transcripts by word content.
//
// A Fingerprint is a term-frequency vector over lowercase words. Punctuation
// and case are ignored so providers that format text differently still
// compare as equal when they heard the same words.
package textutil
