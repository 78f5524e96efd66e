package database

import (
	"context"
	"database/sql"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

type TaskRepository struct {
	DB *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{DB: db}
}

const taskSelect = `
	SELECT t.id, t.institution_id, t.assignee_id, t.title, t.due_date, t.done, t.notes, t.origin, t.created_at,
	       i.name, COALESCE(u.full_name, '')
	FROM tasks t
	JOIN institutions i ON i.id = t.institution_id
	LEFT JOIN users u ON u.id = t.assignee_id`

func (r *TaskRepository) Create(ctx context.Context, t *entity.Task) error {
	query := `
		INSERT INTO tasks (id, institution_id, assignee_id, title, due_date, done, notes, origin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.DB.ExecContext(ctx, query,
		t.ID, t.InstitutionID, nullStringPtr(t.AssigneeID), t.Title, t.DueDate,
		t.Done, t.Notes, string(t.Origin), t.CreatedAt,
	)
	return mapError("create task", err)
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*entity.Task, error) {
	t, err := scanTask(r.DB.QueryRowContext(ctx, taskSelect+` WHERE t.id = $1`, id))
	if err != nil {
		return nil, mapError("find task", err)
	}
	return t, nil
}

// List returns tasks soonest due first.
func (r *TaskRepository) List(ctx context.Context, f entity.TaskFilter) ([]entity.Task, error) {
	w := &whereBuilder{}
	if f.InstitutionID != "" {
		w.add("t.institution_id = ?", f.InstitutionID)
	}
	if f.AssigneeID != "" {
		w.add("t.assignee_id = ?", f.AssigneeID)
	}
	if f.Origin != "" {
		w.add("t.origin = ?", string(f.Origin))
	}
	if f.Done != nil {
		w.add("t.done = ?", *f.Done)
	}

	rows, err := r.DB.QueryContext(ctx, taskSelect+w.String()+` ORDER BY t.due_date, t.created_at`, w.args...)
	if err != nil {
		return nil, mapError("list tasks", err)
	}
	defer rows.Close()

	out := []entity.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, mapError("scan task", err)
		}
		out = append(out, *t)
	}
	return out, mapError("list tasks", rows.Err())
}

func (r *TaskRepository) SetDone(ctx context.Context, id string, done bool) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE tasks SET done = $2 WHERE id = $1`, id, done)
	return mustAffect("set task done", res, err)
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return mustAffect("delete task", res, err)
}

func scanTask(s rowScanner) (*entity.Task, error) {
	var (
		t        entity.Task
		assignee sql.NullString
		origin   string
	)
	err := s.Scan(&t.ID, &t.InstitutionID, &assignee, &t.Title, &t.DueDate, &t.Done, &t.Notes, &origin, &t.CreatedAt,
		&t.InstitutionName, &t.AssigneeName)
	if err != nil {
		return nil, err
	}
	t.AssigneeID = stringPtr(assignee)
	t.Origin = entity.TaskOrigin(origin)
	return &t, nil
}
