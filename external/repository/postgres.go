package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/imcaffiene/webinar-platform/internal/meeting"
	"github.com/imcaffiene/webinar-platform/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const meetingColumns = `id, name, user_id, agent_id, status::text, started_at, ended_at, transcript_url, recording_url, summary, created_at, updated_at`

// lastErrorMaxLen bounds the error text stored on a pipeline job row.
const lastErrorMaxLen = 2000

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

// Shutdown closes the pool when the injector shuts down.
func (r *PostgresRepository) Shutdown() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) GetMeeting(ctx context.Context, id string) (*meeting.Meeting, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id)
	return scanMeeting(row)
}

func (r *PostgresRepository) GetMeetingForUser(ctx context.Context, id, userID string) (*meeting.Meeting, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = $1 AND user_id = $2`, id, userID)
	return scanMeeting(row)
}

func (r *PostgresRepository) GetStartableMeeting(ctx context.Context, id string) (*meeting.Meeting, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+meetingColumns+` FROM meetings
		 WHERE id = $1 AND status::text <> ALL($2)`,
		id, meeting.NonStartableStatuses())
	return scanMeeting(row)
}

func (r *PostgresRepository) GetMeetingWithStatus(ctx context.Context, id string, status meeting.Status) (*meeting.Meeting, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = $1 AND status::text = $2`,
		id, string(status))
	return scanMeeting(row)
}

func (r *PostgresRepository) ActivateMeeting(ctx context.Context, id string, startedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE meetings SET status = 'active', started_at = $2, updated_at = NOW()
		 WHERE id = $1 AND status::text <> ALL($3)`,
		id, startedAt, meeting.NonStartableStatuses())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) EndActiveMeeting(ctx context.Context, id string, endedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE meetings SET status = 'processing', ended_at = $2, updated_at = NOW()
		 WHERE id = $1 AND status = 'active'`,
		id, endedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) SetTranscriptURL(ctx context.Context, id, transcriptURL string) (*meeting.Meeting, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE meetings SET transcript_url = $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+meetingColumns,
		id, transcriptURL)
	return scanMeeting(row)
}

func (r *PostgresRepository) SetRecordingURL(ctx context.Context, id, recordingURL string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE meetings SET recording_url = $2, updated_at = NOW() WHERE id = $1`,
		id, recordingURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CompleteMeeting never resurrects a canceled meeting or skips past one that never started.
func (r *PostgresRepository) CompleteMeeting(ctx context.Context, input repository.CompleteMeetingInput) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE meetings
		 SET summary = $2, status = 'completed', ended_at = COALESCE(ended_at, $3), updated_at = NOW()
		 WHERE id = $1 AND status IN ('active', 'processing', 'completed')`,
		input.MeetingID, input.Summary, input.EndedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) GetAgent(ctx context.Context, id string) (*meeting.Agent, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, user_id, instructions FROM agents WHERE id = $1`, id)
	var a meeting.Agent
	if err := row.Scan(&a.ID, &a.Name, &a.UserID, &a.Instructions); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *PostgresRepository) ListAgentsByIDs(ctx context.Context, ids []string) ([]meeting.Agent, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, user_id, instructions FROM agents WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []meeting.Agent
	for rows.Next() {
		var a meeting.Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.UserID, &a.Instructions); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) ListUsersByIDs(ctx context.Context, ids []string) ([]meeting.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []meeting.User
	for rows.Next() {
		var u meeting.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// LoadOrCreateJob counts one attempt per call. A different transcript URL, or a
// job that previously exhausted its retries, starts over from pending.
func (r *PostgresRepository) LoadOrCreateJob(ctx context.Context, meetingID, transcriptURL string) (*repository.PipelineJob, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO pipeline_jobs (id, meeting_id, transcript_url, stage, attempts)
		 VALUES ($1, $2, $3, 'pending', 1)
		 ON CONFLICT (meeting_id) DO UPDATE SET
			stage = CASE
				WHEN pipeline_jobs.transcript_url <> EXCLUDED.transcript_url OR pipeline_jobs.stage = 'failed' THEN 'pending'
				ELSE pipeline_jobs.stage END,
			attempts = CASE
				WHEN pipeline_jobs.transcript_url <> EXCLUDED.transcript_url OR pipeline_jobs.stage = 'failed' THEN 1
				ELSE pipeline_jobs.attempts + 1 END,
			last_error = CASE
				WHEN pipeline_jobs.transcript_url <> EXCLUDED.transcript_url THEN NULL
				ELSE pipeline_jobs.last_error END,
			transcript_url = EXCLUDED.transcript_url,
			updated_at = NOW()
		 RETURNING id, meeting_id, transcript_url, stage, attempts, last_error, created_at, updated_at`,
		uuid.NewString(), meetingID, transcriptURL)
	var (
		job       repository.PipelineJob
		stage     string
		lastError *string
	)
	if err := row.Scan(&job.ID, &job.MeetingID, &job.TranscriptURL, &stage, &job.Attempts, &lastError, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	job.Stage = repository.PipelineStage(stage)
	if lastError != nil {
		job.LastError = *lastError
	}
	return &job, nil
}

func (r *PostgresRepository) AdvanceJob(ctx context.Context, meetingID string, stage repository.PipelineStage) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE pipeline_jobs SET stage = $2, updated_at = NOW() WHERE meeting_id = $1`,
		meetingID, string(stage))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) RecordJobFailure(ctx context.Context, meetingID string, cause error, terminal bool) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	msg = truncateUTF8(msg, lastErrorMaxLen)
	_, err := r.pool.Exec(ctx,
		`UPDATE pipeline_jobs
		 SET last_error = $2, stage = CASE WHEN $3::boolean THEN 'failed' ELSE stage END, updated_at = NOW()
		 WHERE meeting_id = $1`,
		meetingID, msg, terminal)
	return err
}

func (r *PostgresRepository) SaveStepResult(ctx context.Context, meetingID, step string, payload []byte) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO pipeline_step_results (meeting_id, step, payload)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (meeting_id, step) DO UPDATE SET payload = EXCLUDED.payload, created_at = NOW()`,
		meetingID, step, payload)
	return err
}

func (r *PostgresRepository) LoadStepResult(ctx context.Context, meetingID, step string) ([]byte, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx,
		`SELECT payload FROM pipeline_step_results WHERE meeting_id = $1 AND step = $2`,
		meetingID, step).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return payload, nil
}

func scanMeeting(row pgx.Row) (*meeting.Meeting, error) {
	var (
		m             meeting.Meeting
		status        string
		transcriptURL *string
		recordingURL  *string
		summary       *string
	)
	err := row.Scan(&m.ID, &m.Name, &m.UserID, &m.AgentID, &status, &m.StartedAt, &m.EndedAt,
		&transcriptURL, &recordingURL, &summary, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan meeting: %w", err)
	}
	m.Status = meeting.Status(status)
	if !m.Status.IsValid() {
		return nil, fmt.Errorf("scan meeting %s: unknown status %q", m.ID, status)
	}
	if m.Status.HasEnded() && m.EndedAt == nil {
		slog.Warn("meeting has ended but ended_at is unset", "meeting_id", m.ID, "status", status)
	}
	m.TranscriptURL = derefString(transcriptURL)
	m.RecordingURL = derefString(recordingURL)
	m.Summary = derefString(summary)
	return &m, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a multi-byte character.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
