package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

type InteractionUseCase struct {
	Institutions entity.InstitutionRepository
	Repo         entity.InteractionRepository
	Clock        Clock
	Logger       *zap.Logger
}

func NewInteractionUseCase(institutions entity.InstitutionRepository, repo entity.InteractionRepository, clock Clock, log *zap.Logger) *InteractionUseCase {
	return &InteractionUseCase{Institutions: institutions, Repo: repo, Clock: clock, Logger: log}
}

// Log appends an interaction. The institution's last interaction only moves
// forward, so back-dated entries leave it unchanged.
func (uc *InteractionUseCase) Log(ctx context.Context, p entity.Principal, institutionID string, in LogInteractionInput) (*entity.Interaction, error) {
	if err := authorize(p, entity.RoleAdmin, entity.RoleSales, entity.RoleSupport); err != nil {
		return nil, err
	}

	errs := validateStruct(in)
	medium, err := entity.ParseMedium(in.Medium)
	if in.Medium != "" && (err != nil || medium == entity.MediumPipeline) {
		errs = append(errs, ValidationError{Field: "medium", Message: "is not a known contact medium"})
	}
	notes := cleanText(in.Notes)
	if in.Notes != "" && notes == "" {
		errs = append(errs, ValidationError{Field: "notes", Message: "is required"})
	}
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	if _, err := uc.Institutions.FindByID(ctx, institutionID); err != nil {
		return nil, repoError("load institution", "institución", err)
	}

	date, _ := dateOr(in.Date, uc.Clock.Today())
	interaction := entity.NewInteraction(institutionID, date, medium, notes, uc.Clock.now())
	author := p.UserID
	interaction.AuthorID = &author

	if err := uc.Repo.Create(ctx, interaction); err != nil {
		return nil, repoError("log interaction", "interacción", err)
	}

	uc.Logger.Info("interaction logged",
		zap.String("institution_id", institutionID),
		zap.String("medium", string(medium)),
		zap.Time("date", interaction.Date))
	return interaction, nil
}

func (uc *InteractionUseCase) List(ctx context.Context, institutionID string) ([]entity.Interaction, error) {
	if _, err := uc.Institutions.FindByID(ctx, institutionID); err != nil {
		return nil, repoError("load institution", "institución", err)
	}
	items, err := uc.Repo.ListByInstitution(ctx, institutionID)
	if err != nil {
		return nil, repoError("list interactions", "interacción", err)
	}
	if items == nil {
		items = []entity.Interaction{}
	}
	return items, nil
}
