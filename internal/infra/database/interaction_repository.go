package database

import (
	"context"
	"database/sql"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

type InteractionRepository struct {
	DB *sql.DB
}

func NewInteractionRepository(db *sql.DB) *InteractionRepository {
	return &InteractionRepository{DB: db}
}

// Create inserts the interaction and advances the institution's
// last_interaction in the same statement.
func (r *InteractionRepository) Create(ctx context.Context, in *entity.Interaction) error {
	query := `
		WITH ins AS (
			INSERT INTO interactions (id, institution_id, date, medium, notes, author_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING institution_id, date
		)
		UPDATE institutions i
		SET last_interaction = GREATEST(i.last_interaction, ins.date), updated_at = NOW()
		FROM ins
		WHERE i.id = ins.institution_id
	`
	_, err := r.DB.ExecContext(ctx, query,
		in.ID, in.InstitutionID, in.Date, string(in.Medium), in.Notes,
		nullStringPtr(in.AuthorID), in.CreatedAt,
	)
	return mapError("create interaction", err)
}

func (r *InteractionRepository) ListByInstitution(ctx context.Context, institutionID string) ([]entity.Interaction, error) {
	query := `
		SELECT id, institution_id, date, medium, notes, author_id, created_at
		FROM interactions
		WHERE institution_id = $1
		ORDER BY date DESC, created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, institutionID)
	if err != nil {
		return nil, mapError("list interactions", err)
	}
	defer rows.Close()

	out := []entity.Interaction{}
	for rows.Next() {
		var (
			in     entity.Interaction
			medium string
			author sql.NullString
		)
		if err := rows.Scan(&in.ID, &in.InstitutionID, &in.Date, &medium, &in.Notes, &author, &in.CreatedAt); err != nil {
			return nil, mapError("scan interaction", err)
		}
		in.Medium = entity.Medium(medium)
		in.AuthorID = stringPtr(author)
		out = append(out, in)
	}
	return out, mapError("list interactions", rows.Err())
}
