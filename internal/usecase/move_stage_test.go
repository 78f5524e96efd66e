package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

func TestMoveStageToProposalSent(t *testing.T) {
	e := newEnv(t)
	inst := e.register(t, validInput("Colegio Test"))

	out, err := e.moveStage.Execute(context.Background(), salesP, inst.ID, MoveStageInput{
		Stage:    "En Proceso",
		Substage: "Envío propuesta",
		Date:     "2025-03-11",
		Notes:    "Propuesta enviada por correo",
	})
	require.NoError(t, err)

	require.Len(t, out.Tasks, 1)
	assert.Equal(t, "Seguimiento de propuesta enviada", out.Tasks[0].Title)
	assert.Equal(t, day("2025-03-13"), out.Tasks[0].DueDate)
	require.NotNil(t, out.Interaction)
	assert.Equal(t, "Etapa: En cola/Primera reunión → En Proceso/Envío propuesta\nPropuesta enviada por correo", out.Interaction.Notes)
	assert.Equal(t, salesP.UserID, *out.Interaction.AuthorID)
}

func TestMoveStageSamePositionIsNoop(t *testing.T) {
	e := newEnv(t)
	inst := e.register(t, validInput("Colegio Test"))

	out, err := e.moveStage.Execute(context.Background(), adminP, inst.ID, MoveStageInput{Stage: "queued", Substage: "first_meeting"})
	require.NoError(t, err)

	assert.False(t, out.Changed)
	assert.Nil(t, out.Interaction)
	history, _ := e.interactions.List(context.Background(), inst.ID)
	assert.Empty(t, history)
}

func TestMoveStageStageOnlyKeepsSubstageAndSkipsTasks(t *testing.T) {
	e := newEnv(t)
	inst := e.register(t, validInput("Colegio Test"))

	out, err := e.moveStage.Execute(context.Background(), adminP, inst.ID, MoveStageInput{Stage: "in_progress"})
	require.NoError(t, err)

	assert.True(t, out.Changed)
	assert.Equal(t, entity.SubstageFirstMeeting, out.Institution.Substage)
	assert.Empty(t, out.Tasks)
}

func TestMoveStageAssignsFollowUpToOwner(t *testing.T) {
	e := newEnv(t)
	inst, err := e.institutions.Register(context.Background(), salesP, validInput("Colegio Test"))
	require.NoError(t, err)

	out, err := e.moveStage.Execute(context.Background(), salesP, inst.ID, MoveStageInput{Substage: "meeting_scheduled"})
	require.NoError(t, err)

	require.Len(t, out.Tasks, 1)
	require.NotNil(t, out.Tasks[0].AssigneeID)
	assert.Equal(t, salesP.UserID, *out.Tasks[0].AssigneeID)
	assert.Equal(t, day("2025-03-10"), out.Tasks[0].DueDate)
}

func TestMoveStageRejectsUnknownSubstage(t *testing.T) {
	e := newEnv(t)
	inst := e.register(t, validInput("Colegio Test"))

	_, err := e.moveStage.Execute(context.Background(), adminP, inst.ID, MoveStageInput{Substage: "firmado"})

	assert.Equal(t, CodeValidation, domainCode(err))
}

func TestMoveStageRestoresPositionWhenTaskFails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inst := e.register(t, validInput("Colegio Test"))
	e.store.Fail("tasks.create", errors.New("disk full"))

	_, err := e.moveStage.Execute(ctx, adminP, inst.ID, MoveStageInput{Stage: "in_progress", Substage: "proposal_sent"})

	require.Error(t, err)
	assert.True(t, IsTechnicalError(err))
	stored, err := e.institutions.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StageQueued, stored.Stage)
	assert.Equal(t, entity.SubstageFirstMeeting, stored.Substage)
	history, _ := e.interactions.List(ctx, inst.ID)
	assert.Empty(t, history)
}

func TestMoveStageRemovesTasksWhenInteractionFails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inst := e.register(t, validInput("Colegio Test"))
	e.store.Fail("interactions.create", errors.New("timeout"))

	_, err := e.moveStage.Execute(ctx, adminP, inst.ID, MoveStageInput{Substage: "meeting_scheduled"})

	require.Error(t, err)
	tasks, err := e.tasks.List(ctx, ListTasksInput{InstitutionID: inst.ID})
	require.NoError(t, err)
	assert.Empty(t, tasks)
	stored, _ := e.institutions.Get(ctx, inst.ID)
	assert.Equal(t, entity.SubstageFirstMeeting, stored.Substage)
}

func TestMoveStageLeavingNotInterestedClearsReason(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	in := validInput("Colegio Test")
	in.Stage = "not_interested"
	in.Substage = "not_interested"
	in.NoInterestReason = "Sin presupuesto"
	inst := e.register(t, in)
	assert.Equal(t, "Sin presupuesto", inst.NoInterestReason)

	out, err := e.moveStage.Execute(ctx, adminP, inst.ID, MoveStageInput{Stage: "queued", Substage: "first_meeting"})
	require.NoError(t, err)

	assert.Empty(t, out.Institution.NoInterestReason)
	stored, _ := e.institutions.Get(ctx, inst.ID)
	assert.Empty(t, stored.NoInterestReason)
}
