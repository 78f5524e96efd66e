package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

func TestStaleLeadsOldestFirst(t *testing.T) {
	e := newEnv(t)
	fresh := validInput("Colegio Reciente")
	e.register(t, fresh)

	older := validInput("Colegio Antiguo")
	older.LastInteraction = "2025-01-15"
	e.register(t, older)

	old := validInput("Colegio Olvidado")
	old.LastInteraction = "2025-02-20"
	e.register(t, old)

	edge := validInput("Colegio Limite")
	edge.LastInteraction = "2025-03-03"
	e.register(t, edge)

	leads, err := e.stale.List(context.Background())
	require.NoError(t, err)

	require.Len(t, leads, 2)
	assert.Equal(t, "Colegio Antiguo", leads[0].Institution.Name)
	assert.Equal(t, 54, *leads[0].DaysSinceContact)
	assert.Equal(t, "Colegio Olvidado", leads[1].Institution.Name)
	assert.Equal(t, 18, *leads[1].DaysSinceContact)
}

func TestStaleFollowUpIsDeduplicated(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	in := validInput("Colegio Olvidado")
	in.LastInteraction = "2025-02-01"
	inst := e.register(t, in)

	first, err := e.stale.CreateFollowUp(ctx, salesP, inst.ID)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "Seguimiento - Lead sin contacto >7d", first.Task.Title)
	assert.Equal(t, day("2025-03-11"), first.Task.DueDate)
	assert.Equal(t, "Generado desde alerta", first.Task.Notes)
	assert.Equal(t, entity.TaskOriginStaleAlert, first.Task.Origin)

	second, err := e.stale.CreateFollowUp(ctx, salesP, inst.ID)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Task.ID, second.Task.ID)

	// once done, a new alert creates a new task
	_, err = e.tasks.SetDone(ctx, adminP, first.Task.ID, true)
	require.NoError(t, err)
	third, err := e.stale.CreateFollowUp(ctx, salesP, inst.ID)
	require.NoError(t, err)
	assert.True(t, third.Created)
}

func TestStaleFollowUpUnknownInstitution(t *testing.T) {
	e := newEnv(t)

	_, err := e.stale.CreateFollowUp(context.Background(), adminP, "missing")

	assert.Equal(t, CodeNotFound, domainCode(err))
}
