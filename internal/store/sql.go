package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v4/stdlib"
	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/prdflow/internal/errors"
	"git.home.luguber.info/inful/prdflow/internal/jobs"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// SQLStore implements Store on database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the database named by databaseURL. postgres:// and
// postgresql:// URLs use the pgx driver; anything else is treated as a SQLite
// path (":memory:" supported).
func Open(databaseURL string) (*SQLStore, error) {
	var (
		db  *sql.DB
		d   dialect
		err error
	)
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		d = dialectPostgres
		db, err = sql.Open("pgx", databaseURL)
		if err == nil {
			db.SetMaxOpenConns(10)
			db.SetConnMaxIdleTime(5 * time.Minute)
		}
	} else {
		d = dialectSQLite
		db, err = sql.Open("sqlite", databaseURL)
		if err == nil {
			// SQLite has a single writer; one pooled connection keeps the
			// claim serialization trivially correct and makes per-connection
			// pragmas stick.
			db.SetMaxOpenConns(1)
			_, err = db.Exec("PRAGMA foreign_keys = ON")
		}
	}
	if err != nil {
		return nil, errors.StorageError("open database", err).WithContext("url", redact(databaseURL))
	}

	s := &SQLStore{db: db, dialect: d}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// redact strips credentials from a database URL for log-safe context.
func redact(u string) string {
	if at := strings.LastIndex(u, "@"); at != -1 {
		if scheme := strings.Index(u, "://"); scheme != -1 && scheme+3 < at {
			return u[:scheme+3] + "***" + u[at:]
		}
	}
	return u
}

func (s *SQLStore) migrate() error {
	eventsPK := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.dialect == dialectPostgres {
		eventsPK = "BIGSERIAL PRIMARY KEY"
	}
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		repo_url TEXT NOT NULL,
		branch TEXT NOT NULL,
		prd_path TEXT NOT NULL,
		mode TEXT NOT NULL,
		status TEXT NOT NULL,
		build_status TEXT NOT NULL,
		build_message TEXT NOT NULL DEFAULT '',
		metadata TEXT,
		callback_url TEXT NOT NULL DEFAULT '',
		worker_execution_id TEXT NOT NULL DEFAULT '',
		pr_url TEXT NOT NULL DEFAULT '',
		live_url TEXT NOT NULL DEFAULT '',
		deploy_site_id TEXT NOT NULL DEFAULT '',
		db_project_id TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	CREATE TABLE IF NOT EXISTS job_events (
		id %s,
		job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		event TEXT NOT NULL,
		detail TEXT,
		created_at BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_job_events_job_id ON job_events(job_id);
	`, eventsPK)
	if _, err := s.db.Exec(schema); err != nil {
		return errors.StorageError("initialize schema", err)
	}
	return nil
}

// rebind converts ?-style placeholders to $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const jobColumns = `id, repo_url, branch, prd_path, mode, status, build_status, build_message,
	metadata, callback_url, worker_execution_id, pr_url, live_url, deploy_site_id, db_project_id,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*jobs.Job, error) {
	var (
		j                    jobs.Job
		metadata             sql.NullString
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&j.ID, &j.RepoURL, &j.Branch, &j.PRDPath, &j.Mode, &j.Status, &j.BuildStatus, &j.BuildMessage,
		&metadata, &j.CallbackURL, &j.WorkerExecutionID, &j.PRURL, &j.LiveURL, &j.DeploySiteID, &j.DBProjectID,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if metadata.Valid && metadata.String != "" {
		j.Metadata = json.RawMessage(metadata.String)
	}
	j.CreatedAt = time.UnixMilli(createdAt).UTC()
	j.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &j, nil
}

// CreateJob persists a new pending job with defaulted fields.
func (s *SQLStore) CreateJob(ctx context.Context, params jobs.CreateParams) (*jobs.Job, error) {
	if params.Branch == "" {
		params.Branch = jobs.DefaultBranch
	}
	if params.PRDPath == "" {
		params.PRDPath = jobs.DefaultPRDPath
	}
	if params.Mode == "" {
		params.Mode = jobs.ModeFullBuild
	}

	now := time.Now().UnixMilli()
	j := &jobs.Job{
		ID:           uuid.NewString(),
		RepoURL:      params.RepoURL,
		Branch:       params.Branch,
		PRDPath:      params.PRDPath,
		Mode:         params.Mode,
		Status:       jobs.StatusPending,
		BuildStatus:  jobs.BuildQueued,
		BuildMessage: "Build queued",
		Metadata:     params.Metadata,
		CallbackURL:  params.CallbackURL,
		CreatedAt:    time.UnixMilli(now).UTC(),
		UpdatedAt:    time.UnixMilli(now).UTC(),
	}

	var metadata any
	if len(j.Metadata) > 0 {
		metadata = string(j.Metadata)
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO jobs (id, repo_url, branch, prd_path, mode, status, build_status, build_message,
			metadata, callback_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		j.ID, j.RepoURL, j.Branch, j.PRDPath, string(j.Mode), string(j.Status), string(j.BuildStatus),
		j.BuildMessage, metadata, j.CallbackURL, now, now,
	)
	if err != nil {
		return nil, errors.StorageError("insert job", err)
	}
	return j, nil
}

// FindActiveJob returns the newest pending/running job for the tuple, or nil.
func (s *SQLStore) FindActiveJob(ctx context.Context, repoURL, branch string) (*jobs.Job, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+jobColumns+` FROM jobs
		WHERE repo_url = ? AND branch = ? AND status IN ('pending', 'running')
		ORDER BY created_at DESC LIMIT 1`),
		repoURL, branch,
	)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.StorageError("find active job", err)
	}
	return j, nil
}

// GetJob returns the job or nil when absent.
func (s *SQLStore) GetJob(ctx context.Context, id string) (*jobs.Job, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`), id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.StorageError("get job", err)
	}
	return j, nil
}

// ClaimNextPending atomically promotes the oldest pending job to running.
// The read-modify-write happens in one round trip; Postgres additionally
// locks the selected row with SKIP LOCKED so concurrent replicas never claim
// the same job twice.
func (s *SQLStore) ClaimNextPending(ctx context.Context) (*jobs.Job, error) {
	lock := ""
	if s.dialect == dialectPostgres {
		lock = " FOR UPDATE SKIP LOCKED"
	}
	query := `
		UPDATE jobs SET status = 'running', updated_at = ?
		WHERE id = (
			SELECT id FROM jobs WHERE status = 'pending'
			ORDER BY created_at ASC, id ASC LIMIT 1` + lock + `
		)
		RETURNING ` + jobColumns
	row := s.db.QueryRowContext(ctx, s.rebind(query), time.Now().UnixMilli())
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.StorageError("claim pending job", err)
	}
	return j, nil
}

// CountRunning returns how many jobs are currently running.
func (s *SQLStore) CountRunning(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE status = 'running'`).Scan(&n)
	if err != nil {
		return 0, errors.StorageError("count running jobs", err)
	}
	return n, nil
}

// SetExecutionID writes the execution id at most once per job.
func (s *SQLStore) SetExecutionID(ctx context.Context, id, execID string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE jobs SET worker_execution_id = ?, updated_at = ?
		WHERE id = ? AND worker_execution_id = ''`),
		execID, time.Now().UnixMilli(), id,
	)
	if err != nil {
		return errors.StorageError("set execution id", err)
	}
	return nil
}

// SetStatus writes the orchestration status and bumps updated_at. A job in a
// terminal state is never transitioned out of it; such writes no-op.
func (s *SQLStore) SetStatus(ctx context.Context, id string, status jobs.Status) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE jobs SET status = ?, updated_at = ?
		WHERE id = ? AND status NOT IN ('completed', 'failed')`),
		string(status), time.Now().UnixMilli(), id,
	)
	if err != nil {
		return errors.StorageError("set status", err)
	}
	return nil
}

// BumpUpdatedAt touches updated_at without any other change.
func (s *SQLStore) BumpUpdatedAt(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`UPDATE jobs SET updated_at = ? WHERE id = ?`),
		time.Now().UnixMilli(), id,
	)
	if err != nil {
		return errors.StorageError("bump updated_at", err)
	}
	return nil
}

// AppendEvent inserts one event row. The INSERT..SELECT form makes a missing
// job observable as zero affected rows instead of a driver-specific foreign
// key violation.
func (s *SQLStore) AppendEvent(ctx context.Context, jobID, event string, detail json.RawMessage) error {
	var detailVal any
	if len(detail) > 0 {
		detailVal = string(detail)
	}
	res, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO job_events (job_id, event, detail, created_at)
		SELECT ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM jobs WHERE id = ?)`),
		jobID, event, detailVal, time.Now().UnixMilli(), jobID,
	)
	if err != nil {
		return errors.StorageError("append event", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.StorageError("append event", err)
	}
	if affected == 0 {
		return errors.NotFoundError("job not found").WithContext("job_id", jobID)
	}
	return nil
}

// ListEvents returns the job's events in ingest order.
func (s *SQLStore) ListEvents(ctx context.Context, jobID string) ([]jobs.Event, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, job_id, event, detail, created_at FROM job_events
		WHERE job_id = ? ORDER BY created_at ASC, id ASC`),
		jobID,
	)
	if err != nil {
		return nil, errors.StorageError("list events", err)
	}
	defer rows.Close()

	var events []jobs.Event
	for rows.Next() {
		var (
			e         jobs.Event
			detail    sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.JobID, &e.Event, &detail, &createdAt); err != nil {
			return nil, errors.StorageError("scan event", err)
		}
		if detail.Valid && detail.String != "" {
			e.Detail = json.RawMessage(detail.String)
		}
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("iterate events", err)
	}
	return events, nil
}

// SetFact writes one extracted deployment fact. The fact name maps to a fixed
// column; unknown facts are rejected before touching the database.
func (s *SQLStore) SetFact(ctx context.Context, id string, fact jobs.Fact, value string) error {
	var column string
	switch fact {
	case jobs.FactPRURL:
		column = "pr_url"
	case jobs.FactLiveURL:
		column = "live_url"
	case jobs.FactDeploySiteID:
		column = "deploy_site_id"
	case jobs.FactDBProjectID:
		column = "db_project_id"
	default:
		return errors.ValidationError("unknown job fact").WithContext("fact", string(fact))
	}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE jobs SET `+column+` = ?, updated_at = ? WHERE id = ?`),
		value, time.Now().UnixMilli(), id,
	)
	if err != nil {
		return errors.StorageError("set job fact", err)
	}
	return nil
}

// SetBuildStatus writes the advisory build status and message.
func (s *SQLStore) SetBuildStatus(ctx context.Context, id string, status jobs.BuildStatus, message string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE jobs SET build_status = ?, build_message = ?, updated_at = ? WHERE id = ?`),
		string(status), message, time.Now().UnixMilli(), id,
	)
	if err != nil {
		return errors.StorageError("set build status", err)
	}
	return nil
}

// SweepStale fails every running job whose updated_at is older than the
// threshold. Returns the number of jobs transitioned.
func (s *SQLStore) SweepStale(ctx context.Context, threshold time.Duration) (int, error) {
	now := time.Now()
	cutoff := now.Add(-threshold).UnixMilli()
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE jobs SET status = 'failed', updated_at = ?
		WHERE status = 'running' AND updated_at < ?`),
		now.UnixMilli(), cutoff,
	)
	if err != nil {
		return 0, errors.StorageError("sweep stale jobs", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errors.StorageError("sweep stale jobs", err)
	}
	return int(affected), nil
}

// Ping reports database reachability.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.StorageError("ping database", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
