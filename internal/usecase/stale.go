package usecase

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

// StaleLeadsUseCase finds leads without recent contact. Nothing is persisted:
// every call recomputes the list from last_interaction.
type StaleLeadsUseCase struct {
	Institutions entity.InstitutionRepository
	Tasks        entity.TaskRepository
	Clock        Clock
	AfterDays    int
	Log          *zap.Logger
}

func NewStaleLeadsUseCase(institutions entity.InstitutionRepository, tasks entity.TaskRepository, clock Clock, afterDays int, log *zap.Logger) *StaleLeadsUseCase {
	if afterDays <= 0 {
		afterDays = 7
	}
	return &StaleLeadsUseCase{Institutions: institutions, Tasks: tasks, Clock: clock, AfterDays: afterDays, Log: log}
}

// List returns stale leads, never-contacted first and then oldest contact first.
func (uc *StaleLeadsUseCase) List(ctx context.Context) ([]StaleLead, error) {
	cutoff := staleCutoff(uc.Clock, uc.AfterDays)
	items, err := uc.Institutions.List(ctx, entity.InstitutionFilter{StaleBefore: &cutoff})
	if err != nil {
		return nil, repoError("list stale leads", "institución", err)
	}

	today := uc.Clock.Today()
	leads := make([]StaleLead, 0, len(items))
	for _, inst := range items {
		if !inst.IsStale(cutoff) {
			continue
		}
		lead := StaleLead{Institution: inst}
		if inst.LastInteraction != nil {
			days := int(today.Sub(entity.DateOf(*inst.LastInteraction)).Hours() / 24)
			lead.DaysSinceContact = &days
		}
		leads = append(leads, lead)
	}

	sort.SliceStable(leads, func(i, j int) bool {
		a, b := leads[i].Institution.LastInteraction, leads[j].Institution.LastInteraction
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return a.Before(*b)
	})
	return leads, nil
}

// CreateFollowUp creates the standard follow-up task for a stale lead. An open
// task already created from an alert is returned instead of a new one.
func (uc *StaleLeadsUseCase) CreateFollowUp(ctx context.Context, p entity.Principal, institutionID string) (*StaleFollowUpOutput, error) {
	if err := authorize(p, entity.RoleAdmin, entity.RoleSales); err != nil {
		return nil, err
	}

	inst, err := uc.Institutions.FindByID(ctx, institutionID)
	if err != nil {
		return nil, repoError("load institution", "institución", err)
	}

	open := false
	existing, err := uc.Tasks.List(ctx, entity.TaskFilter{
		InstitutionID: inst.ID,
		Origin:        entity.TaskOriginStaleAlert,
		Done:          &open,
	})
	if err != nil {
		return nil, repoError("list tasks", "tarea", err)
	}
	if len(existing) > 0 {
		return &StaleFollowUpOutput{Task: &existing[0], Created: false}, nil
	}

	title := fmt.Sprintf("Seguimiento - Lead sin contacto >%dd", uc.AfterDays)
	task := entity.NewTask(inst.ID, title, uc.Clock.Today().AddDate(0, 0, 1), entity.TaskOriginStaleAlert, uc.Clock.now())
	task.Notes = "Generado desde alerta"
	task.AssigneeID = inst.OwnerID
	task.AssigneeName = inst.OwnerName
	task.InstitutionName = inst.Name

	if err := uc.Tasks.Create(ctx, task); err != nil {
		return nil, repoError("create task", "tarea", err)
	}

	uc.Log.Info("stale follow-up created",
		zap.String("institution_id", inst.ID),
		zap.String("task_id", task.ID),
		zap.String("by", p.Username))
	return &StaleFollowUpOutput{Task: task, Created: true}, nil
}
