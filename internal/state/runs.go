package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/codeswap/codeswap/pkg/models"
)

// RunSummary is the per-run row returned by ListRuns.
type RunSummary struct {
	RunID      string
	CrewName   string
	UserTask   string
	Status     models.RunStatus
	TotalCost  float64
	StartedAt  time.Time
	FinishedAt *time.Time
}

// SaveRun records a finished crew run and its subtasks. Saving the same
// run id again replaces the previous record.
func (db *DB) SaveRun(run *models.CrewRun, totalCost float64, finishedAt time.Time) error {
	return db.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO runs
				(id, crew_name, user_task, status, final_result, total_cost, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, run.RunID, run.Crew.Name, run.UserTask, string(run.Status),
			run.FinalResult, totalCost, formatTime(run.StartTime), formatTime(finishedAt))
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		if _, err := tx.Exec("DELETE FROM subtasks WHERE run_id = ?", run.RunID); err != nil {
			return fmt.Errorf("clear old subtasks: %w", err)
		}
		for _, st := range run.Subtasks {
			_, err := tx.Exec(`
				INSERT INTO subtasks
					(id, run_id, description, assigned_to, status, result, input_tokens, output_tokens, cost)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, st.ID, run.RunID, st.Description, st.AssignedTo, string(st.Status),
				st.Result, st.InputTokens, st.OutputTokens, st.CostUSD)
			if err != nil {
				return fmt.Errorf("insert subtask %s: %w", st.ID, err)
			}
		}
		return nil
	})
}

// GetRun loads one recorded run with its subtasks.
func (db *DB) GetRun(runID string) (*RunSummary, []*models.Subtask, error) {
	var (
		summary    RunSummary
		status     string
		startedAt  string
		finishedAt sql.NullString
	)
	err := db.QueryRow(`
		SELECT id, crew_name, user_task, status, total_cost, started_at, finished_at
		FROM runs WHERE id = ?
	`, runID).Scan(&summary.RunID, &summary.CrewName, &summary.UserTask,
		&status, &summary.TotalCost, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query run: %w", err)
	}

	summary.Status = models.RunStatus(status)
	if t, err := parseTime(startedAt); err == nil {
		summary.StartedAt = t
	}
	if finishedAt.Valid {
		if t, err := parseTime(finishedAt.String); err == nil {
			summary.FinishedAt = &t
		}
	}

	rows, err := db.Query(`
		SELECT id, description, assigned_to, status, result, input_tokens, output_tokens, cost
		FROM subtasks WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("query subtasks: %w", err)
	}
	defer rows.Close()

	var subtasks []*models.Subtask
	for rows.Next() {
		var (
			st       models.Subtask
			stStatus string
			result   sql.NullString
		)
		if err := rows.Scan(&st.ID, &st.Description, &st.AssignedTo, &stStatus,
			&result, &st.InputTokens, &st.OutputTokens, &st.CostUSD); err != nil {
			return nil, nil, fmt.Errorf("scan subtask: %w", err)
		}
		st.Status = models.SubtaskStatus(stStatus)
		st.Result = result.String
		subtasks = append(subtasks, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate subtasks: %w", err)
	}

	return &summary, subtasks, nil
}

// ListRuns returns recorded runs, newest first, up to limit. A limit of 0
// means no limit.
func (db *DB) ListRuns(limit int) ([]RunSummary, error) {
	query := `
		SELECT id, crew_name, user_task, status, total_cost, started_at, finished_at
		FROM runs ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			summary    RunSummary
			status     string
			startedAt  string
			finishedAt sql.NullString
		)
		if err := rows.Scan(&summary.RunID, &summary.CrewName, &summary.UserTask,
			&status, &summary.TotalCost, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		summary.Status = models.RunStatus(status)
		if t, err := parseTime(startedAt); err == nil {
			summary.StartedAt = t
		}
		if finishedAt.Valid {
			if t, err := parseTime(finishedAt.String); err == nil {
				summary.FinishedAt = &t
			}
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// PurgeOldRuns deletes runs that started before the cutoff duration ago.
// Returns the number of runs deleted.
func (db *DB) PurgeOldRuns(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	result, err := db.Exec("DELETE FROM runs WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge old runs: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}
