package history

import (
	"database/sql"
	"strings"
	"time"
)

const runColumns = "id, provider, source, status, transcript, error_message, error_kind, confidence, language, job_id, cached, elapsed_ms, created_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		id         string
		provider   string
		source     string
		statusStr  string
		transcript sql.NullString
		errorMsg   sql.NullString
		errorKind  sql.NullString
		confidence sql.NullFloat64
		language   sql.NullString
		jobID      sql.NullString
		cached     sql.NullInt64
		elapsedMS  sql.NullInt64
		createdRaw sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&provider,
		&source,
		&statusStr,
		&transcript,
		&errorMsg,
		&errorKind,
		&confidence,
		&language,
		&jobID,
		&cached,
		&elapsedMS,
		&createdRaw,
	); err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:         id,
		Provider:   provider,
		Source:     source,
		Status:     Status(statusStr),
		Transcript: transcript.String,
		Error:      errorMsg.String,
		ErrorKind:  errorKind.String,
		Confidence: confidence.Float64,
		Language:   language.String,
		JobID:      jobID.String,
		Cached:     cached.Int64 != 0,
		Elapsed:    time.Duration(elapsedMS.Int64) * time.Millisecond,
	}
	if createdRaw.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, createdRaw.String); err == nil {
			rec.CreatedAt = ts
		}
	}
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
