package repository

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"sheetcheck/internal/models"
	"sheetcheck/internal/utils"
)

// RunRepository persists validation runs and their results.
type RunRepository struct {
	db *sqlx.DB
}

func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run and backfills its ID.
func (r *RunRepository) Create(run *models.ValidationRun) error {
	query := `INSERT INTO validation_runs
	          (run_code, user_id, filename, file_path, skip_references, status)
	          VALUES (:run_code, :user_id, :filename, :file_path, :skip_references, :status)`
	result, err := r.db.NamedExec(query, run)
	if err != nil {
		return fmt.Errorf("failed to create validation run: %w", err)
	}
	id, _ := result.LastInsertId()
	run.ID = int(id)
	return nil
}

// FindByID returns a single run by its numeric ID.
func (r *RunRepository) FindByID(id int) (*models.ValidationRun, error) {
	var run models.ValidationRun
	query := "SELECT * FROM validation_runs WHERE id = ? LIMIT 1"
	if err := r.db.Get(&run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// FindByCode returns a single run by its public run code.
func (r *RunRepository) FindByCode(code string) (*models.ValidationRun, error) {
	var run models.ValidationRun
	query := "SELECT * FROM validation_runs WHERE run_code = ? LIMIT 1"
	if err := r.db.Get(&run, query, code); err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns one page of runs plus the total count. A user ID of 0 lists
// every user's runs (admin view). Search matches run code and filename; an
// optional status filter narrows further.
func (r *RunRepository) List(userID int, params utils.PaginationParams, status string) ([]models.ValidationRun, int64, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if userID > 0 {
		where = append(where, "user_id = ?")
		args = append(args, userID)
	}
	if params.Search != "" {
		where = append(where, "(run_code LIKE ? OR filename LIKE ?)")
		pattern := "%" + params.Search + "%"
		args = append(args, pattern, pattern)
	}
	if status != "" {
		where = append(where, "status = ?")
		args = append(args, status)
	}
	condition := strings.Join(where, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM validation_runs WHERE " + condition
	if err := r.db.Get(&total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count validation runs: %w", err)
	}

	runs := []models.ValidationRun{}
	listQuery := "SELECT * FROM validation_runs WHERE " + condition +
		" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, params.Limit, utils.GetOffset(params.Page, params.Limit))
	if err := r.db.Select(&runs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list validation runs: %w", err)
	}

	return runs, total, nil
}

// UpdateStatus moves a run to a new state, storing the failure message when
// there is one.
func (r *RunRepository) UpdateStatus(id int, status, errorMessage string) error {
	query := "UPDATE validation_runs SET status = ?, error_message = ? WHERE id = ?"
	_, err := r.db.Exec(query, status, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	return nil
}

// SaveResults persists the outcome of a finished run: final state, counters,
// the report document and the artifact location.
func (r *RunRepository) SaveResults(run *models.ValidationRun) error {
	query := `UPDATE validation_runs SET
	          status = :status,
	          total_sheets = :total_sheets,
	          total_rows = :total_rows,
	          total_errors = :total_errors,
	          structure_valid = :structure_valid,
	          artifact_path = :artifact_path,
	          report_json = :report_json,
	          error_message = :error_message
	          WHERE id = :id`
	_, err := r.db.NamedExec(query, run)
	if err != nil {
		return fmt.Errorf("failed to save run results: %w", err)
	}
	return nil
}

// Delete removes a run row. The caller is responsible for removing the
// stored files.
func (r *RunRepository) Delete(id int) error {
	_, err := r.db.Exec("DELETE FROM validation_runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete validation run: %w", err)
	}
	return nil
}

// CountByStatus aggregates run counts per state for the dashboard. A user ID
// of 0 aggregates across all users.
func (r *RunRepository) CountByStatus(userID int) (map[string]int, error) {
	rows := []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}{}
	query := "SELECT status, COUNT(*) AS count FROM validation_runs GROUP BY status"
	args := []interface{}{}
	if userID > 0 {
		query = "SELECT status, COUNT(*) AS count FROM validation_runs WHERE user_id = ? GROUP BY status"
		args = append(args, userID)
	}
	if err := r.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to count runs by status: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
