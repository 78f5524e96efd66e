package usecase

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

type TaskUseCase struct {
	Repo         entity.TaskRepository
	Institutions entity.InstitutionRepository
	Users        entity.UserRepository
	Clock        Clock
	Log          *zap.Logger
}

func NewTaskUseCase(repo entity.TaskRepository, institutions entity.InstitutionRepository, users entity.UserRepository, clock Clock, log *zap.Logger) *TaskUseCase {
	return &TaskUseCase{Repo: repo, Institutions: institutions, Users: users, Clock: clock, Log: log}
}

func (uc *TaskUseCase) Create(ctx context.Context, p entity.Principal, in CreateTaskInput) (*entity.Task, error) {
	if err := authorize(p, entity.RoleAdmin, entity.RoleSales); err != nil {
		return nil, err
	}

	errs := validateStruct(in)
	title := cleanText(in.Title)
	if in.Title != "" && title == "" {
		errs = append(errs, ValidationError{Field: "title", Message: "is required"})
	}

	var assignee *entity.User
	if id := strings.TrimSpace(in.AssigneeID); id != "" {
		u, err := uc.Users.FindByID(ctx, id)
		switch {
		case errors.Is(err, entity.ErrNotFound):
			errs = append(errs, ValidationError{Field: "assignee_id", Message: "is not a known user"})
		case err != nil:
			return nil, repoError("load assignee", "usuario", err)
		case !assignable(u):
			errs = append(errs, ValidationError{Field: "assignee_id", Message: "must be an active sales or support user"})
		default:
			assignee = u
		}
	}

	var inst *entity.Institution
	if id := strings.TrimSpace(in.InstitutionID); id != "" {
		found, err := uc.Institutions.FindByID(ctx, id)
		switch {
		case errors.Is(err, entity.ErrNotFound):
			errs = append(errs, ValidationError{Field: "institution_id", Message: "is not a known institution"})
		case err != nil:
			return nil, repoError("load institution", "institución", err)
		default:
			inst = found
		}
	}
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	due, _ := parseDate(in.DueDate)
	task := entity.NewTask(inst.ID, title, due, entity.TaskOriginManual, uc.Clock.now())
	task.Notes = cleanText(in.Notes)
	task.InstitutionName = inst.Name
	if assignee != nil {
		task.AssigneeID = &assignee.ID
		task.AssigneeName = assignee.FullName
	}

	if err := uc.Repo.Create(ctx, task); err != nil {
		return nil, repoError("create task", "tarea", err)
	}

	uc.Log.Info("task created",
		zap.String("task_id", task.ID),
		zap.String("institution_id", inst.ID),
		zap.String("by", p.Username))
	return task, nil
}

func (uc *TaskUseCase) List(ctx context.Context, in ListTasksInput) ([]entity.Task, error) {
	f := entity.TaskFilter{
		InstitutionID: strings.TrimSpace(in.InstitutionID),
		AssigneeID:    strings.TrimSpace(in.AssigneeID),
		Origin:        entity.TaskOrigin(strings.TrimSpace(in.Origin)),
		Done:          in.Done,
	}
	tasks, err := uc.Repo.List(ctx, f)
	if err != nil {
		return nil, repoError("list tasks", "tarea", err)
	}
	if tasks == nil {
		tasks = []entity.Task{}
	}
	return tasks, nil
}

// SetDone toggles a task. Support users may only toggle their own tasks.
func (uc *TaskUseCase) SetDone(ctx context.Context, p entity.Principal, id string, done bool) (*entity.Task, error) {
	task, err := uc.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, repoError("load task", "tarea", err)
	}
	if p.Role == entity.RoleSupport && (task.AssigneeID == nil || *task.AssigneeID != p.UserID) {
		return nil, forbidden()
	}
	if err := uc.Repo.SetDone(ctx, id, done); err != nil {
		return nil, repoError("update task", "tarea", err)
	}
	task.Done = done
	return task, nil
}

func (uc *TaskUseCase) Delete(ctx context.Context, p entity.Principal, id string) error {
	if err := authorize(p, entity.RoleAdmin); err != nil {
		return err
	}
	if err := uc.Repo.Delete(ctx, id); err != nil {
		return repoError("delete task", "tarea", err)
	}
	uc.Log.Info("task deleted", zap.String("task_id", id), zap.String("by", p.Username))
	return nil
}

func assignable(u *entity.User) bool {
	return u.Active && (u.Role == entity.RoleSales || u.Role == entity.RoleSupport)
}
