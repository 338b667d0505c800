// Package language normalizes the language values passed to transcription
// providers.
//
// Users may write a language as an ISO 639-1 code ("en"), an ISO 639-2 code
// ("eng"), an English word ("english"), or a BCP-47 tag ("en-US", "pt_BR").
// Normalize folds all of these into the lowercase code or canonical tag that
// the provider APIs accept, and rejects values that are not languages.
package language
