// Package testutil holds in-memory repositories that behave like the
// Postgres ones, for use-case tests.
package testutil

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

// Store keeps every table in memory. Fail injects an error for an operation
// such as "tasks.create"; the error is returned until cleared.
type Store struct {
	mu           sync.Mutex
	institutions map[string]entity.Institution
	interactions []entity.Interaction
	tasks        map[string]entity.Task
	users        map[string]entity.User
	fail         map[string]error
}

func NewStore() *Store {
	return &Store{
		institutions: map[string]entity.Institution{},
		tasks:        map[string]entity.Task{},
		users:        map[string]entity.User{},
		fail:         map[string]error{},
	}
}

func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

func (s *Store) failure(op string) error {
	return s.fail[op]
}

func (s *Store) Institutions() *InstitutionRepo { return &InstitutionRepo{s} }
func (s *Store) Interactions() *InteractionRepo { return &InteractionRepo{s} }
func (s *Store) Tasks() *TaskRepo               { return &TaskRepo{s} }
func (s *Store) Users() *UserRepo               { return &UserRepo{s} }

type InstitutionRepo struct{ s *Store }

func (r *InstitutionRepo) Create(_ context.Context, i *entity.Institution) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("institutions.create"); err != nil {
		return err
	}
	if _, ok := r.s.institutions[i.ID]; ok {
		return entity.ErrDuplicate
	}
	r.s.institutions[i.ID] = *i
	return nil
}

func (r *InstitutionRepo) Update(_ context.Context, i *entity.Institution) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("institutions.update"); err != nil {
		return err
	}
	cur, ok := r.s.institutions[i.ID]
	if !ok {
		return entity.ErrNotFound
	}
	next := *i
	// position and last_interaction have their own statements
	next.Stage, next.Substage = cur.Stage, cur.Substage
	next.LastInteraction = cur.LastInteraction
	next.CreatedAt = cur.CreatedAt
	r.s.institutions[i.ID] = next
	return nil
}

func (r *InstitutionRepo) UpdatePosition(_ context.Context, id string, pos entity.Position) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("institutions.update_position"); err != nil {
		return err
	}
	cur, ok := r.s.institutions[id]
	if !ok {
		return entity.ErrNotFound
	}
	cur.Stage, cur.Substage = pos.Stage, pos.Substage
	cur.Normalize()
	r.s.institutions[id] = cur
	return nil
}

func (r *InstitutionRepo) TouchLastInteraction(_ context.Context, id string, date time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.touch(id, date)
}

func (s *Store) touch(id string, date time.Time) error {
	cur, ok := s.institutions[id]
	if !ok {
		return entity.ErrNotFound
	}
	d := entity.DateOf(date)
	if cur.LastInteraction == nil || d.After(*cur.LastInteraction) {
		cur.LastInteraction = &d
	}
	s.institutions[id] = cur
	return nil
}

func (r *InstitutionRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.institutions[id]; !ok {
		return entity.ErrNotFound
	}
	delete(r.s.institutions, id)
	r.s.interactions = slices.DeleteFunc(r.s.interactions, func(in entity.Interaction) bool {
		return in.InstitutionID == id
	})
	for tid, t := range r.s.tasks {
		if t.InstitutionID == id {
			delete(r.s.tasks, tid)
		}
	}
	return nil
}

func (r *InstitutionRepo) FindByID(_ context.Context, id string) (*entity.Institution, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.institutions[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	r.s.fillOwner(&i)
	return &i, nil
}

func (r *InstitutionRepo) List(_ context.Context, f entity.InstitutionFilter) ([]entity.Institution, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("institutions.list"); err != nil {
		return nil, err
	}
	out := r.s.filter(f)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []entity.Institution{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *InstitutionRepo) Count(_ context.Context, f entity.InstitutionFilter) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.filter(f)), nil
}

func (s *Store) filter(f entity.InstitutionFilter) []entity.Institution {
	out := []entity.Institution{}
	for _, i := range s.institutions {
		if len(f.Stages) > 0 && !slices.Contains(f.Stages, i.Stage) {
			continue
		}
		if f.Substage != "" && i.Substage != f.Substage {
			continue
		}
		if f.Medium != "" && i.InitialContactMedium != f.Medium {
			continue
		}
		if f.Country != "" && !strings.EqualFold(i.Country, f.Country) {
			continue
		}
		if f.City != "" && !strings.EqualFold(i.City, f.City) {
			continue
		}
		if f.OwnerID != "" && (i.OwnerID == nil || *i.OwnerID != f.OwnerID) {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(i.Name), strings.ToLower(f.Query)) {
			continue
		}
		if f.StaleBefore != nil && !i.IsStale(*f.StaleBefore) {
			continue
		}
		s.fillOwner(&i)
		out = append(out, i)
	}

	sort.Slice(out, func(a, b int) bool {
		sa, sb := slices.Index(entity.Stages, out[a].Stage), slices.Index(entity.Stages, out[b].Stage)
		if sa != sb {
			return sa < sb
		}
		la, lb := out[a].LastInteraction, out[b].LastInteraction
		switch {
		case la == nil && lb != nil:
			return false
		case la != nil && lb == nil:
			return true
		case la != nil && lb != nil && !la.Equal(*lb):
			return la.After(*lb)
		}
		return out[a].Name < out[b].Name
	})
	return out
}

func (s *Store) fillOwner(i *entity.Institution) {
	i.OwnerName = ""
	if i.OwnerID != nil {
		if u, ok := s.users[*i.OwnerID]; ok {
			i.OwnerName = u.FullName
		}
	}
}

type InteractionRepo struct{ s *Store }

func (r *InteractionRepo) Create(_ context.Context, in *entity.Interaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("interactions.create"); err != nil {
		return err
	}
	if err := r.s.touch(in.InstitutionID, in.Date); err != nil {
		return err
	}
	r.s.interactions = append(r.s.interactions, *in)
	return nil
}

func (r *InteractionRepo) ListByInstitution(_ context.Context, institutionID string) ([]entity.Interaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []entity.Interaction{}
	for _, in := range r.s.interactions {
		if in.InstitutionID == institutionID {
			out = append(out, in)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if !out[a].Date.Equal(out[b].Date) {
			return out[a].Date.After(out[b].Date)
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out, nil
}

type TaskRepo struct{ s *Store }

func (r *TaskRepo) Create(_ context.Context, t *entity.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("tasks.create"); err != nil {
		return err
	}
	if _, ok := r.s.institutions[t.InstitutionID]; !ok {
		return entity.ErrNotFound
	}
	stored := *t
	stored.InstitutionName, stored.AssigneeName = "", ""
	r.s.tasks[t.ID] = stored
	return nil
}

func (r *TaskRepo) FindByID(_ context.Context, id string) (*entity.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	r.s.fillTask(&t)
	return &t, nil
}

func (r *TaskRepo) List(_ context.Context, f entity.TaskFilter) ([]entity.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []entity.Task{}
	for _, t := range r.s.tasks {
		if f.InstitutionID != "" && t.InstitutionID != f.InstitutionID {
			continue
		}
		if f.AssigneeID != "" && (t.AssigneeID == nil || *t.AssigneeID != f.AssigneeID) {
			continue
		}
		if f.Origin != "" && t.Origin != f.Origin {
			continue
		}
		if f.Done != nil && t.Done != *f.Done {
			continue
		}
		r.s.fillTask(&t)
		out = append(out, t)
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].DueDate.Equal(out[b].DueDate) {
			return out[a].DueDate.Before(out[b].DueDate)
		}
		return out[a].CreatedAt.Before(out[b].CreatedAt)
	})
	return out, nil
}

func (r *TaskRepo) SetDone(_ context.Context, id string, done bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return entity.ErrNotFound
	}
	t.Done = done
	r.s.tasks[id] = t
	return nil
}

func (r *TaskRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tasks[id]; !ok {
		return entity.ErrNotFound
	}
	delete(r.s.tasks, id)
	return nil
}

func (s *Store) fillTask(t *entity.Task) {
	if i, ok := s.institutions[t.InstitutionID]; ok {
		t.InstitutionName = i.Name
	}
	if t.AssigneeID != nil {
		if u, ok := s.users[*t.AssigneeID]; ok {
			t.AssigneeName = u.FullName
		}
	}
}

type UserRepo struct{ s *Store }

func (r *UserRepo) Create(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return entity.ErrDuplicate
		}
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *UserRepo) Update(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[u.ID]
	if !ok {
		return entity.ErrNotFound
	}
	for id, existing := range r.s.users {
		if id != u.ID && strings.EqualFold(existing.Email, u.Email) {
			return entity.ErrDuplicate
		}
	}
	cur.Email, cur.FullName, cur.Phone, cur.Role, cur.Active = u.Email, u.FullName, u.Phone, u.Role, u.Active
	r.s.users[u.ID] = cur
	return nil
}

func (r *UserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return entity.ErrNotFound
	}
	u.PasswordHash, u.Salt = hash, ""
	r.s.users[id] = u
	return nil
}

func (r *UserRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return entity.ErrNotFound
	}
	u.LastLogin = &at
	r.s.users[id] = u
	return nil
}

func (r *UserRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return entity.ErrNotFound
	}
	delete(r.s.users, id)
	for tid, t := range r.s.tasks {
		if t.AssigneeID != nil && *t.AssigneeID == id {
			t.AssigneeID = nil
			r.s.tasks[tid] = t
		}
	}
	for iid, i := range r.s.institutions {
		if i.OwnerID != nil && *i.OwnerID == id {
			i.OwnerID = nil
			r.s.institutions[iid] = i
		}
	}
	return nil
}

func (r *UserRepo) FindByID(_ context.Context, id string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepo) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Username, username) {
			return &u, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (r *UserRepo) List(_ context.Context) ([]entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]entity.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Username < out[b].Username })
	return out, nil
}
