package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

// MoveStageUseCase moves a lead on the board. The position change, the
// follow-up tasks it triggers and the pipeline interaction are written as
// one compensated sequence.
type MoveStageUseCase struct {
	Repo         entity.InstitutionRepository
	Tasks        entity.TaskRepository
	Interactions entity.InteractionRepository
	Clock        Clock
	Log          *zap.Logger
}

func NewMoveStageUseCase(
	repo entity.InstitutionRepository,
	tasks entity.TaskRepository,
	interactions entity.InteractionRepository,
	clock Clock,
	log *zap.Logger,
) *MoveStageUseCase {
	return &MoveStageUseCase{
		Repo:         repo,
		Tasks:        tasks,
		Interactions: interactions,
		Clock:        clock,
		Log:          log,
	}
}

func (uc *MoveStageUseCase) Execute(ctx context.Context, p entity.Principal, institutionID string, in MoveStageInput) (*MoveStageOutput, error) {
	if err := authorize(p, entity.RoleAdmin, entity.RoleSales); err != nil {
		return nil, err
	}

	errs := validateStruct(in)
	inst, err := uc.Repo.FindByID(ctx, institutionID)
	if err != nil {
		return nil, repoError("load institution", "institución", err)
	}
	target, perrs := parsePosition(in.Stage, in.Substage, inst.Position())
	errs = append(errs, perrs...)
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	tr, err := entity.ValidateTransition(inst.Position(), target)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidTransition) {
			return nil, &DomainError{Code: CodeInvalidTransition, Message: err.Error()}
		}
		return nil, validationFailed([]ValidationError{{Field: "stage", Message: err.Error()}})
	}
	if !tr.Changed() {
		return &MoveStageOutput{Institution: inst, Tasks: []entity.Task{}}, nil
	}

	date, _ := dateOr(in.Date, uc.Clock.Today())
	now := uc.Clock.now()

	txn := NewTransaction(uc.Log)
	txn.AddOperation("update_position", func(ctx context.Context) error {
		return uc.Repo.UpdatePosition(ctx, inst.ID, tr.To)
	})
	txn.AddCompensation("restore_position", func(ctx context.Context) error {
		return uc.Repo.UpdatePosition(ctx, inst.ID, tr.From)
	})

	tasks := make([]entity.Task, 0, len(tr.FollowUps))
	for _, rule := range tr.FollowUps {
		task := entity.NewTask(inst.ID, rule.Title, date.AddDate(0, 0, rule.DueInDays), entity.TaskOriginPipeline, now)
		task.AssigneeID = inst.OwnerID
		task.AssigneeName = inst.OwnerName
		task.InstitutionName = inst.Name
		task.Notes = "Generado al mover a " + tr.To.Substage.Label()

		txn.AddOperation("create_follow_up", func(ctx context.Context) error {
			return uc.Tasks.Create(ctx, task)
		})
		txn.AddCompensation("delete_follow_up", func(ctx context.Context) error {
			return uc.Tasks.Delete(ctx, task.ID)
		})
		tasks = append(tasks, *task)
	}

	notes := fmt.Sprintf("Etapa: %s → %s", tr.From, tr.To)
	if extra := cleanText(in.Notes); extra != "" {
		notes += "\n" + extra
	}
	interaction := entity.NewInteraction(inst.ID, date, entity.MediumPipeline, notes, now)
	author := p.UserID
	interaction.AuthorID = &author
	txn.AddOperation("log_interaction", func(ctx context.Context) error {
		return uc.Interactions.Create(ctx, interaction)
	})

	if err := txn.Execute(ctx); err != nil {
		uc.Log.Error("stage move failed",
			zap.String("institution_id", inst.ID),
			zap.String("from", tr.From.String()),
			zap.String("to", tr.To.String()),
			zap.Error(err))
		return nil, &TechnicalError{Code: CodeDatabase, Message: "failed to move institution", Err: err}
	}

	inst.Stage, inst.Substage = tr.To.Stage, tr.To.Substage
	inst.Normalize()
	if inst.LastInteraction == nil || interaction.Date.After(*inst.LastInteraction) {
		d := interaction.Date
		inst.LastInteraction = &d
	}

	uc.Log.Info("institution moved",
		zap.String("institution_id", inst.ID),
		zap.String("from", tr.From.String()),
		zap.String("to", tr.To.String()),
		zap.Int("follow_ups", len(tasks)),
		zap.String("by", p.Username))

	return &MoveStageOutput{
		Institution: inst,
		Changed:     true,
		Interaction: interaction,
		Tasks:       tasks,
	}, nil
}
