package usecase

import (
	"context"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

type DashboardUseCase struct {
	Institutions   entity.InstitutionRepository
	Tasks          entity.TaskRepository
	Clock          Clock
	StaleAfterDays int
	Log            *zap.Logger
}

func NewDashboardUseCase(institutions entity.InstitutionRepository, tasks entity.TaskRepository, clock Clock, staleAfterDays int, log *zap.Logger) *DashboardUseCase {
	return &DashboardUseCase{Institutions: institutions, Tasks: tasks, Clock: clock, StaleAfterDays: staleAfterDays, Log: log}
}

// Metrics summarizes the pipeline. Sales users see their own institutions
// and tasks only.
func (uc *DashboardUseCase) Metrics(ctx context.Context, p entity.Principal) (*DashboardMetrics, error) {
	institutions, tasks, err := uc.load(ctx, p)
	if err != nil {
		return nil, err
	}
	m := uc.compute(institutions, tasks)
	return &m, nil
}

// SalesOverview is the personal view of a sales user: owned institutions and
// open tasks assigned to them.
func (uc *DashboardUseCase) SalesOverview(ctx context.Context, p entity.Principal) (*SalesOverview, error) {
	if err := authorize(p, entity.RoleAdmin, entity.RoleSales); err != nil {
		return nil, err
	}

	owned, err := uc.Institutions.List(ctx, entity.InstitutionFilter{OwnerID: p.UserID})
	if err != nil {
		return nil, repoError("list institutions", "institución", err)
	}
	open := false
	tasks, err := uc.Tasks.List(ctx, entity.TaskFilter{AssigneeID: p.UserID, Done: &open})
	if err != nil {
		return nil, repoError("list tasks", "tarea", err)
	}
	if owned == nil {
		owned = []entity.Institution{}
	}
	if tasks == nil {
		tasks = []entity.Task{}
	}

	return &SalesOverview{
		Metrics:      uc.compute(owned, tasks),
		Institutions: owned,
		Tasks:        tasks,
	}, nil
}

func (uc *DashboardUseCase) load(ctx context.Context, p entity.Principal) ([]entity.Institution, []entity.Task, error) {
	var instFilter entity.InstitutionFilter
	var taskFilter entity.TaskFilter
	if p.Role == entity.RoleSales {
		instFilter.OwnerID = p.UserID
		taskFilter.AssigneeID = p.UserID
	}
	institutions, err := uc.Institutions.List(ctx, instFilter)
	if err != nil {
		return nil, nil, repoError("list institutions", "institución", err)
	}
	open := false
	taskFilter.Done = &open
	tasks, err := uc.Tasks.List(ctx, taskFilter)
	if err != nil {
		return nil, nil, repoError("list tasks", "tarea", err)
	}
	return institutions, tasks, nil
}

func (uc *DashboardUseCase) compute(institutions []entity.Institution, openTasks []entity.Task) DashboardMetrics {
	today := uc.Clock.Today()
	cutoff := staleCutoff(uc.Clock, uc.StaleAfterDays)

	stageCount := map[entity.Stage]int{}
	stageDays := map[entity.Stage]float64{}
	mediumCount := map[entity.Medium]int{}

	m := DashboardMetrics{TotalLeads: len(institutions)}
	for i := range institutions {
		inst := &institutions[i]
		stageCount[inst.Stage]++
		stageDays[inst.Stage] += today.Sub(entity.DateOf(inst.FirstContact)).Hours() / 24
		mediumCount[inst.InitialContactMedium]++

		switch inst.Stage {
		case entity.StageWon:
			m.WonValue += inst.ProposalValue
		case entity.StageQueued, entity.StageInProgress:
			m.PotentialValue += inst.PotentialValue()
		}
		if inst.IsStale(cutoff) {
			m.StaleLeads++
		}
	}

	m.ByStage = make([]StageCount, 0, len(entity.Stages))
	for _, s := range entity.Stages {
		sc := StageCount{Stage: s, Label: s.Label(), Count: stageCount[s]}
		if sc.Count > 0 {
			sc.AvgDaysInPipeline = round1(stageDays[s] / float64(sc.Count))
		}
		m.ByStage = append(m.ByStage, sc)
	}

	m.ByMedium = []MediumCount{}
	for medium, n := range mediumCount {
		m.ByMedium = append(m.ByMedium, MediumCount{Medium: medium, Label: medium.Label(), Count: n})
	}
	sortMediums(m.ByMedium)

	if queued := stageCount[entity.StageQueued]; queued > 0 {
		rate := round1(float64(stageCount[entity.StageWon]) / float64(queued) * 100)
		m.ConversionRate = &rate
	}

	m.OpenTasks = len(openTasks)
	for i := range openTasks {
		if openTasks[i].Overdue(today) {
			m.OverdueTasks++
		}
	}
	return m
}

// sortMediums orders by count, then code, so responses are stable.
func sortMediums(ms []MediumCount) {
	slices.SortFunc(ms, func(a, b MediumCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(string(a.Medium), string(b.Medium))
	})
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
