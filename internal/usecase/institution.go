package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

const (
	defaultPerPage = 50
	maxPerPage     = 200
)

type InstitutionUseCase struct {
	Repo           entity.InstitutionRepository
	Users          entity.UserRepository
	MoveStage      *MoveStageUseCase
	Clock          Clock
	StaleAfterDays int
	Log            *zap.Logger
}

func NewInstitutionUseCase(
	repo entity.InstitutionRepository,
	users entity.UserRepository,
	moveStage *MoveStageUseCase,
	clock Clock,
	staleAfterDays int,
	log *zap.Logger,
) *InstitutionUseCase {
	return &InstitutionUseCase{
		Repo:           repo,
		Users:          users,
		MoveStage:      moveStage,
		Clock:          clock,
		StaleAfterDays: staleAfterDays,
		Log:            log,
	}
}

func (uc *InstitutionUseCase) Register(ctx context.Context, p entity.Principal, in InstitutionInput) (*entity.Institution, error) {
	if err := authorize(p, entity.RoleAdmin, entity.RoleSales); err != nil {
		return nil, err
	}

	errs := validateStruct(in)
	inst := entity.NewInstitution(in.Name, toContact(in.Rector), toContact(in.Counterpart), uc.Clock.now())
	inst.FirstContact = uc.Clock.Today()
	today := uc.Clock.Today()
	inst.LastInteraction = &today

	pos, perrs := parsePosition(in.Stage, in.Substage, inst.Position())
	errs = append(errs, perrs...)
	ierrs, err := uc.applyInput(ctx, inst, in)
	if err != nil {
		return nil, err
	}
	errs = append(errs, ierrs...)
	if in.LastInteraction != "" {
		if d, err := parseDate(in.LastInteraction); err == nil {
			inst.LastInteraction = &d
		}
	}
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	inst.Stage, inst.Substage = pos.Stage, pos.Substage
	if inst.OwnerID == nil && p.Role == entity.RoleSales {
		owner := p.UserID
		inst.OwnerID = &owner
		inst.OwnerName = p.FullName
	}
	inst.Normalize()
	if err := inst.Validate(); err != nil {
		return nil, validationFailed([]ValidationError{{Field: "institution", Message: err.Error()}})
	}

	if err := uc.Repo.Create(ctx, inst); err != nil {
		return nil, repoError("create institution", "institución", err)
	}

	uc.Log.Info("institution registered",
		zap.String("institution_id", inst.ID),
		zap.String("name", inst.Name),
		zap.String("by", p.Username))
	return inst, nil
}

func (uc *InstitutionUseCase) Get(ctx context.Context, id string) (*entity.Institution, error) {
	inst, err := uc.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, repoError("load institution", "institución", err)
	}
	return inst, nil
}

func (uc *InstitutionUseCase) List(ctx context.Context, in ListInstitutionsInput) (*InstitutionPage, error) {
	filter, errs := uc.buildFilter(in)
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	page, perPage := pageBounds(in.Page, in.PerPage)
	total, err := uc.Repo.Count(ctx, filter)
	if err != nil {
		return nil, repoError("count institutions", "institución", err)
	}

	filter.Limit = perPage
	filter.Offset = (page - 1) * perPage
	items, err := uc.Repo.List(ctx, filter)
	if err != nil {
		return nil, repoError("list institutions", "institución", err)
	}
	if items == nil {
		items = []entity.Institution{}
	}

	return &InstitutionPage{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}

// Board returns one column per stage with its total and one page of leads.
func (uc *InstitutionUseCase) Board(ctx context.Context, in ListInstitutionsInput) ([]BoardColumn, error) {
	filter, errs := uc.buildFilter(in)
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	stages := filter.Stages
	if len(stages) == 0 {
		stages = entity.Stages
	}

	page, perPage := pageBounds(in.Page, in.PerPage)
	columns := make([]BoardColumn, 0, len(stages))
	for _, stage := range stages {
		f := filter
		f.Stages = []entity.Stage{stage}

		count, err := uc.Repo.Count(ctx, f)
		if err != nil {
			return nil, repoError("count institutions", "institución", err)
		}
		f.Limit = perPage
		f.Offset = (page - 1) * perPage
		items, err := uc.Repo.List(ctx, f)
		if err != nil {
			return nil, repoError("list institutions", "institución", err)
		}
		if items == nil {
			items = []entity.Institution{}
		}
		columns = append(columns, BoardColumn{Stage: stage, Label: stage.Label(), Count: count, Items: items})
	}
	return columns, nil
}

// Update edits an institution. A changed stage or substage is applied as a
// stage move so the pipeline interaction and follow-up tasks are written.
func (uc *InstitutionUseCase) Update(ctx context.Context, p entity.Principal, id string, in InstitutionInput) (*MoveStageOutput, error) {
	if err := authorize(p, entity.RoleAdmin, entity.RoleSales); err != nil {
		return nil, err
	}

	errs := validateStruct(in)
	current, err := uc.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, repoError("load institution", "institución", err)
	}

	updated := *current
	ierrs, err := uc.applyInput(ctx, &updated, in)
	if err != nil {
		return nil, err
	}
	errs = append(errs, ierrs...)
	target, perrs := parsePosition(in.Stage, in.Substage, current.Position())
	errs = append(errs, perrs...)
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	updated.Stage, updated.Substage = target.Stage, target.Substage
	updated.Normalize()
	if err := updated.Validate(); err != nil {
		return nil, validationFailed([]ValidationError{{Field: "institution", Message: err.Error()}})
	}
	// the position is written by the stage move below
	updated.Stage, updated.Substage = current.Stage, current.Substage
	updated.UpdatedAt = uc.Clock.now()

	if err := uc.Repo.Update(ctx, &updated); err != nil {
		return nil, repoError("update institution", "institución", err)
	}
	if in.LastInteraction != "" {
		if d, err := parseDate(in.LastInteraction); err == nil {
			if err := uc.Repo.TouchLastInteraction(ctx, id, d); err != nil {
				return nil, repoError("update last interaction", "institución", err)
			}
		}
	}

	out := &MoveStageOutput{Tasks: []entity.Task{}}
	if target != current.Position() {
		moved, err := uc.MoveStage.Execute(ctx, p, id, MoveStageInput{
			Stage:    string(target.Stage),
			Substage: string(target.Substage),
			Date:     in.InteractionDate,
		})
		if err != nil {
			return nil, err
		}
		out = moved
	}

	fresh, err := uc.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, repoError("load institution", "institución", err)
	}
	out.Institution = fresh

	uc.Log.Info("institution updated",
		zap.String("institution_id", id),
		zap.Bool("stage_changed", out.Changed),
		zap.String("by", p.Username))
	return out, nil
}

// Delete removes an institution together with its interactions and tasks.
func (uc *InstitutionUseCase) Delete(ctx context.Context, p entity.Principal, id string) error {
	if err := authorize(p, entity.RoleAdmin); err != nil {
		return err
	}
	if err := uc.Repo.Delete(ctx, id); err != nil {
		return repoError("delete institution", "institución", err)
	}
	uc.Log.Warn("institution deleted", zap.String("institution_id", id), zap.String("by", p.Username))
	return nil
}

func (uc *InstitutionUseCase) applyInput(ctx context.Context, inst *entity.Institution, in InstitutionInput) ([]ValidationError, error) {
	var errs []ValidationError

	inst.Name = cleanText(in.Name)
	inst.Rector = toContact(in.Rector)
	inst.Counterpart = toContact(in.Counterpart)
	inst.Website = strings.TrimSpace(in.Website)
	if c := cleanText(in.Country); c != "" {
		inst.Country = c
	}
	inst.City = cleanText(in.City)
	inst.Address = cleanText(in.Address)

	if in.FirstContact != "" {
		if d, err := parseDate(in.FirstContact); err == nil {
			inst.FirstContact = d
		}
	}
	if in.InitialContactMedium != "" {
		m, err := entity.ParseMedium(in.InitialContactMedium)
		if err != nil || m == entity.MediumPipeline {
			errs = append(errs, ValidationError{Field: "initial_contact_medium", Message: "is not a known contact medium"})
		} else {
			inst.InitialContactMedium = m
		}
	}

	inst.NumTeachers = in.NumTeachers
	inst.NumStudents = in.NumStudents
	inst.AvgFee = in.AvgFee
	inst.ProposalValue = in.ProposalValue

	if in.ProgramProposed != "" {
		prog, ok := entity.ParseProgram(in.ProgramProposed)
		if !ok {
			errs = append(errs, ValidationError{Field: "program_proposed", Message: "is not a known program"})
		} else {
			inst.ProgramProposed = prog
		}
	}

	var err error
	if inst.ContractStart, err = optionalDate(in.ContractStart); err != nil {
		inst.ContractStart = nil
	}
	if inst.ContractEnd, err = optionalDate(in.ContractEnd); err != nil {
		inst.ContractEnd = nil
	}
	inst.Observations = cleanText(in.Observations)
	inst.NoInterestReason = cleanText(in.NoInterestReason)

	inst.OwnerID, inst.OwnerName = nil, ""
	if ownerID := strings.TrimSpace(in.OwnerID); ownerID != "" {
		u, err := uc.Users.FindByID(ctx, ownerID)
		switch {
		case errors.Is(err, entity.ErrNotFound):
			errs = append(errs, ValidationError{Field: "owner_id", Message: "is not a known user"})
		case err != nil:
			return nil, repoError("load owner", "usuario", err)
		case !u.Active:
			errs = append(errs, ValidationError{Field: "owner_id", Message: "user is inactive"})
		default:
			inst.OwnerID = &u.ID
			inst.OwnerName = u.FullName
		}
	}

	return errs, nil
}

func (uc *InstitutionUseCase) buildFilter(in ListInstitutionsInput) (entity.InstitutionFilter, []ValidationError) {
	return institutionFilter(in, uc.Clock, uc.StaleAfterDays)
}

func institutionFilter(in ListInstitutionsInput, clock Clock, staleAfterDays int) (entity.InstitutionFilter, []ValidationError) {
	var errs []ValidationError
	f := entity.InstitutionFilter{
		Country: strings.TrimSpace(in.Country),
		City:    strings.TrimSpace(in.City),
		OwnerID: strings.TrimSpace(in.OwnerID),
		Query:   strings.TrimSpace(in.Query),
	}

	for _, s := range in.Stages {
		if strings.TrimSpace(s) == "" {
			continue
		}
		stage, err := entity.ParseStage(s)
		if err != nil {
			errs = append(errs, ValidationError{Field: "stages", Message: "unknown stage " + s})
			continue
		}
		f.Stages = append(f.Stages, stage)
	}
	if in.Substage != "" {
		sub, err := entity.ParseSubstage(in.Substage)
		if err != nil {
			errs = append(errs, ValidationError{Field: "substage", Message: "unknown substage"})
		}
		f.Substage = sub
	}
	if in.Medium != "" {
		m, err := entity.ParseMedium(in.Medium)
		if err != nil {
			errs = append(errs, ValidationError{Field: "medium", Message: "unknown contact medium"})
		}
		f.Medium = m
	}
	if in.StaleOnly {
		cutoff := staleCutoff(clock, staleAfterDays)
		f.StaleBefore = &cutoff
	}
	return f, errs
}

func staleCutoff(clock Clock, days int) time.Time {
	if days <= 0 {
		days = 7
	}
	return clock.Today().AddDate(0, 0, -days)
}

// parsePosition reads stage and substage, keeping def for empty values.
func parsePosition(stage, substage string, def entity.Position) (entity.Position, []ValidationError) {
	var errs []ValidationError
	pos := def
	if strings.TrimSpace(stage) != "" {
		s, err := entity.ParseStage(stage)
		if err != nil {
			errs = append(errs, ValidationError{Field: "stage", Message: "is not a known stage"})
		}
		pos.Stage = s
	}
	if strings.TrimSpace(substage) != "" {
		s, err := entity.ParseSubstage(substage)
		if err != nil {
			errs = append(errs, ValidationError{Field: "substage", Message: "is not a known substage"})
		}
		pos.Substage = s
	}
	return pos, errs
}

func toContact(in ContactInput) entity.Contact {
	return entity.Contact{
		Name:  cleanText(in.Name),
		Email: strings.ToLower(strings.TrimSpace(in.Email)),
		Phone: strings.TrimSpace(in.Phone),
	}
}

func pageBounds(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
