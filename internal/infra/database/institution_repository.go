package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

type InstitutionRepository struct {
	DB *sql.DB
}

func NewInstitutionRepository(db *sql.DB) *InstitutionRepository {
	return &InstitutionRepository{DB: db}
}

const institutionColumns = `
	i.id, i.name,
	i.rector_name, i.rector_email, i.rector_phone,
	i.counterpart_name, i.counterpart_email, i.counterpart_phone,
	i.website, i.country, i.city, i.address,
	i.first_contact, i.last_interaction, i.initial_contact_medium,
	i.num_teachers, i.num_students, i.avg_fee,
	i.stage, i.substage, i.program_proposed, i.proposal_value,
	i.contract_start, i.contract_end, i.observations,
	i.owner_id, COALESCE(u.full_name, ''), i.no_interest_reason,
	i.created_at, i.updated_at`

const institutionFrom = ` FROM institutions i LEFT JOIN users u ON u.id = i.owner_id`

func (r *InstitutionRepository) Create(ctx context.Context, i *entity.Institution) error {
	query := `
		INSERT INTO institutions (
			id, name,
			rector_name, rector_email, rector_phone,
			counterpart_name, counterpart_email, counterpart_phone,
			website, country, city, address,
			first_contact, last_interaction, initial_contact_medium,
			num_teachers, num_students, avg_fee,
			stage, substage, program_proposed, proposal_value,
			contract_start, contract_end, observations,
			owner_id, no_interest_reason, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29
		)
	`

	_, err := r.DB.ExecContext(ctx, query,
		i.ID, i.Name,
		i.Rector.Name, i.Rector.Email, i.Rector.Phone,
		i.Counterpart.Name, i.Counterpart.Email, i.Counterpart.Phone,
		nullString(i.Website), i.Country, i.City, nullString(i.Address),
		i.FirstContact, nullTime(i.LastInteraction), string(i.InitialContactMedium),
		i.NumTeachers, i.NumStudents, i.AvgFee,
		string(i.Stage), string(i.Substage), i.ProgramProposed, i.ProposalValue,
		nullTime(i.ContractStart), nullTime(i.ContractEnd), nullString(i.Observations),
		nullStringPtr(i.OwnerID), i.NoInterestReason, i.CreatedAt, i.UpdatedAt,
	)
	return mapError("create institution", err)
}

// Update writes the editable fields. Position and last_interaction have
// their own statements.
func (r *InstitutionRepository) Update(ctx context.Context, i *entity.Institution) error {
	query := `
		UPDATE institutions SET
			name = $2,
			rector_name = $3, rector_email = $4, rector_phone = $5,
			counterpart_name = $6, counterpart_email = $7, counterpart_phone = $8,
			website = $9, country = $10, city = $11, address = $12,
			first_contact = $13, initial_contact_medium = $14,
			num_teachers = $15, num_students = $16, avg_fee = $17,
			program_proposed = $18, proposal_value = $19,
			contract_start = $20, contract_end = $21, observations = $22,
			owner_id = $23, no_interest_reason = $24, updated_at = $25
		WHERE id = $1
	`

	res, err := r.DB.ExecContext(ctx, query,
		i.ID, i.Name,
		i.Rector.Name, i.Rector.Email, i.Rector.Phone,
		i.Counterpart.Name, i.Counterpart.Email, i.Counterpart.Phone,
		nullString(i.Website), i.Country, i.City, nullString(i.Address),
		i.FirstContact, string(i.InitialContactMedium),
		i.NumTeachers, i.NumStudents, i.AvgFee,
		i.ProgramProposed, i.ProposalValue,
		nullTime(i.ContractStart), nullTime(i.ContractEnd), nullString(i.Observations),
		nullStringPtr(i.OwnerID), i.NoInterestReason, i.UpdatedAt,
	)
	return mustAffect("update institution", res, err)
}

func (r *InstitutionRepository) UpdatePosition(ctx context.Context, id string, pos entity.Position) error {
	query := `
		UPDATE institutions SET
			stage = $2,
			substage = $3,
			no_interest_reason = CASE WHEN $2 = 'not_interested' THEN no_interest_reason ELSE '' END,
			updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query, id, string(pos.Stage), string(pos.Substage))
	return mustAffect("update institution position", res, err)
}

func (r *InstitutionRepository) TouchLastInteraction(ctx context.Context, id string, date time.Time) error {
	query := `
		UPDATE institutions
		SET last_interaction = GREATEST(last_interaction, $2::date), updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query, id, entity.DateOf(date))
	return mustAffect("touch last_interaction", res, err)
}

// Delete removes the institution; interactions and tasks go with it.
func (r *InstitutionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM institutions WHERE id = $1`, id)
	return mustAffect("delete institution", res, err)
}

func (r *InstitutionRepository) FindByID(ctx context.Context, id string) (*entity.Institution, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT`+institutionColumns+institutionFrom+` WHERE i.id = $1`, id)
	inst, err := scanInstitution(row)
	if err != nil {
		return nil, mapError("find institution", err)
	}
	return inst, nil
}

func (r *InstitutionRepository) List(ctx context.Context, f entity.InstitutionFilter) ([]entity.Institution, error) {
	w := institutionWhere(f)
	query := `SELECT` + institutionColumns + institutionFrom + w.String() + ` ORDER BY ` + stageOrder + `, i.last_interaction DESC NULLS LAST, i.name`
	if f.Limit > 0 {
		query += ` LIMIT ` + w.next(f.Limit)
	}
	if f.Offset > 0 {
		query += ` OFFSET ` + w.next(f.Offset)
	}

	rows, err := r.DB.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, mapError("list institutions", err)
	}
	defer rows.Close()

	out := []entity.Institution{}
	for rows.Next() {
		inst, err := scanInstitution(rows)
		if err != nil {
			return nil, mapError("scan institution", err)
		}
		out = append(out, *inst)
	}
	return out, mapError("list institutions", rows.Err())
}

func (r *InstitutionRepository) Count(ctx context.Context, f entity.InstitutionFilter) (int, error) {
	w := institutionWhere(f)
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM institutions i`+w.String(), w.args...).Scan(&n)
	if err != nil {
		return 0, mapError("count institutions", err)
	}
	return n, nil
}

// stageOrder sorts rows in board order.
var stageOrder = func() string {
	var b strings.Builder
	b.WriteString("CASE i.stage")
	for n, s := range entity.Stages {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", s, n)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(entity.Stages))
	return b.String()
}()

func institutionWhere(f entity.InstitutionFilter) *whereBuilder {
	w := &whereBuilder{}
	if len(f.Stages) > 0 {
		stages := make([]string, len(f.Stages))
		for n, s := range f.Stages {
			stages[n] = string(s)
		}
		w.add("i.stage = ANY(?)", pq.Array(stages))
	}
	if f.Substage != "" {
		w.add("i.substage = ?", string(f.Substage))
	}
	if f.Medium != "" {
		w.add("i.initial_contact_medium = ?", string(f.Medium))
	}
	if f.Country != "" {
		w.add("LOWER(i.country) = LOWER(?)", f.Country)
	}
	if f.City != "" {
		w.add("LOWER(i.city) = LOWER(?)", f.City)
	}
	if f.OwnerID != "" {
		w.add("i.owner_id = ?", f.OwnerID)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		w.add("i.name ILIKE '%' || ? || '%'", q)
	}
	if f.StaleBefore != nil {
		w.add("(i.last_interaction IS NULL OR i.last_interaction < ?)", *f.StaleBefore)
	}
	return w
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstitution(s rowScanner) (*entity.Institution, error) {
	var (
		i                                     entity.Institution
		website, address, observations, owner sql.NullString
		lastInteraction, start, end           sql.NullTime
		medium, stage, substage               string
	)
	err := s.Scan(
		&i.ID, &i.Name,
		&i.Rector.Name, &i.Rector.Email, &i.Rector.Phone,
		&i.Counterpart.Name, &i.Counterpart.Email, &i.Counterpart.Phone,
		&website, &i.Country, &i.City, &address,
		&i.FirstContact, &lastInteraction, &medium,
		&i.NumTeachers, &i.NumStudents, &i.AvgFee,
		&stage, &substage, &i.ProgramProposed, &i.ProposalValue,
		&start, &end, &observations,
		&owner, &i.OwnerName, &i.NoInterestReason,
		&i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	i.Website, i.Address, i.Observations = website.String, address.String, observations.String
	i.LastInteraction, i.ContractStart, i.ContractEnd = timePtr(lastInteraction), timePtr(start), timePtr(end)
	i.OwnerID = stringPtr(owner)
	i.InitialContactMedium = entity.Medium(medium)
	i.Stage, i.Substage = entity.Stage(stage), entity.Substage(substage)
	return &i, nil
}
