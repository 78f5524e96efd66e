package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

func TestRegisterInstitutionDefaults(t *testing.T) {
	e := newEnv(t)

	inst := e.register(t, validInput("Colegio Test"))

	assert.NotEmpty(t, inst.ID)
	assert.Equal(t, entity.StageQueued, inst.Stage)
	assert.Equal(t, entity.SubstageFirstMeeting, inst.Substage)
	assert.Equal(t, "Ecuador", inst.Country)
	assert.Equal(t, entity.DefaultProgram, inst.ProgramProposed)
	assert.Equal(t, entity.MediumWhatsapp, inst.InitialContactMedium)
	assert.Equal(t, day("2025-03-10"), inst.FirstContact)
	require.NotNil(t, inst.LastInteraction)
	assert.Equal(t, day("2025-03-10"), *inst.LastInteraction)

	stored, err := e.institutions.Get(context.Background(), inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "Colegio Test", stored.Name)
}

func TestRegisterInstitutionValidation(t *testing.T) {
	e := newEnv(t)
	in := validInput("")
	in.Rector.Email = "no-es-un-correo"
	in.Stage = "cerrado"
	in.NumTeachers = -1

	_, err := e.institutions.Register(context.Background(), adminP, in)

	require.Error(t, err)
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CodeValidation, de.Code)

	fields := map[string]bool{}
	for _, f := range de.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["name"])
	assert.True(t, fields["rector.email"])
	assert.True(t, fields["stage"])
	assert.True(t, fields["num_teachers"])
}

func TestRegisterInstitutionSanitizesFreeText(t *testing.T) {
	e := newEnv(t)
	in := validInput("Colegio <b>Andino</b>")
	in.Observations = `<script>alert(1)</script>Llamar el lunes`

	inst := e.register(t, in)

	assert.Equal(t, "Colegio Andino", inst.Name)
	assert.Equal(t, "Llamar el lunes", inst.Observations)
}

func TestRegisterBySalesDefaultsOwner(t *testing.T) {
	e := newEnv(t)

	inst, err := e.institutions.Register(context.Background(), salesP, validInput("Colegio Norte"))

	require.NoError(t, err)
	require.NotNil(t, inst.OwnerID)
	assert.Equal(t, salesP.UserID, *inst.OwnerID)
}

func TestRegisterBySupportForbidden(t *testing.T) {
	e := newEnv(t)

	_, err := e.institutions.Register(context.Background(), supportP, validInput("Colegio Sur"))

	assert.Equal(t, CodeForbidden, domainCode(err))
}

func TestRegisterRejectsUnknownOwner(t *testing.T) {
	e := newEnv(t)
	in := validInput("Colegio Este")
	in.OwnerID = "nobody"

	_, err := e.institutions.Register(context.Background(), adminP, in)

	assert.Equal(t, CodeValidation, domainCode(err))
}

// TestUpdateToMeetingScheduledCreatesTask - editing the substage schedules the confirmation task
func TestUpdateToMeetingScheduledCreatesTask(t *testing.T) {
	e := newEnv(t)
	inst := e.register(t, validInput("Colegio Test"))

	in := validInput("Colegio Test")
	in.Stage = "in_progress"
	in.Substage = "meeting_scheduled"
	in.InteractionDate = "2025-03-12"

	out, err := e.institutions.Update(context.Background(), adminP, inst.ID, in)
	require.NoError(t, err)

	assert.True(t, out.Changed)
	assert.Equal(t, entity.StageInProgress, out.Institution.Stage)
	assert.Equal(t, entity.SubstageMeetingScheduled, out.Institution.Substage)
	require.Len(t, out.Tasks, 1)
	assert.Equal(t, "Confirmar reunión agendada", out.Tasks[0].Title)
	assert.Equal(t, day("2025-03-12"), out.Tasks[0].DueDate)
	assert.Equal(t, entity.TaskOriginPipeline, out.Tasks[0].Origin)

	tasks, err := e.tasks.List(context.Background(), ListTasksInput{InstitutionID: inst.ID})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	history, err := e.interactions.List(context.Background(), inst.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entity.MediumPipeline, history[0].Medium)
	assert.Contains(t, history[0].Notes, "Reunión agendada")

	require.NotNil(t, out.Institution.LastInteraction)
	assert.Equal(t, day("2025-03-12"), *out.Institution.LastInteraction)
}

func TestUpdateWithoutPositionChangeWritesNoHistory(t *testing.T) {
	e := newEnv(t)
	inst := e.register(t, validInput("Colegio Test"))

	in := validInput("Colegio Test Renombrado")
	in.Observations = "nuevo contacto"

	out, err := e.institutions.Update(context.Background(), adminP, inst.ID, in)
	require.NoError(t, err)

	assert.False(t, out.Changed)
	assert.Equal(t, "Colegio Test Renombrado", out.Institution.Name)
	assert.Empty(t, out.Tasks)

	history, err := e.interactions.List(context.Background(), inst.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestUpdateLastInteractionNeverMovesBack(t *testing.T) {
	e := newEnv(t)
	inst := e.register(t, validInput("Colegio Test"))

	in := validInput("Colegio Test")
	in.LastInteraction = "2025-01-01"
	out, err := e.institutions.Update(context.Background(), adminP, inst.ID, in)
	require.NoError(t, err)
	assert.Equal(t, day("2025-03-10"), *out.Institution.LastInteraction)

	in.LastInteraction = "2025-03-20"
	out, err = e.institutions.Update(context.Background(), adminP, inst.ID, in)
	require.NoError(t, err)
	assert.Equal(t, day("2025-03-20"), *out.Institution.LastInteraction)
}

func TestUpdateUnknownInstitution(t *testing.T) {
	e := newEnv(t)

	_, err := e.institutions.Update(context.Background(), adminP, "missing", validInput("X"))

	assert.Equal(t, CodeNotFound, domainCode(err))
}

func TestDeleteInstitutionCascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inst := e.register(t, validInput("Colegio Test"))
	_, err := e.moveStage.Execute(ctx, adminP, inst.ID, MoveStageInput{Substage: "proposal_sent"})
	require.NoError(t, err)

	assert.Equal(t, CodeForbidden, domainCode(e.institutions.Delete(ctx, salesP, inst.ID)))
	require.NoError(t, e.institutions.Delete(ctx, adminP, inst.ID))

	_, err = e.institutions.Get(ctx, inst.ID)
	assert.Equal(t, CodeNotFound, domainCode(err))
	tasks, err := e.tasks.List(ctx, ListTasksInput{InstitutionID: inst.ID})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestListInstitutionsFilters(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, validInput("Colegio Alfa"))
	e.register(t, validInput("Escuela Beta"))
	_, err := e.moveStage.Execute(ctx, adminP, a.ID, MoveStageInput{Stage: "won", Substage: "contract_signed"})
	require.NoError(t, err)

	page, err := e.institutions.List(ctx, ListInstitutionsInput{Stages: []string{"Ganado"}})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "Colegio Alfa", page.Items[0].Name)

	page, err = e.institutions.List(ctx, ListInstitutionsInput{Query: "escuela"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	page, err = e.institutions.List(ctx, ListInstitutionsInput{PerPage: 1, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Items, 1)

	_, err = e.institutions.List(ctx, ListInstitutionsInput{Stages: []string{"bogus"}})
	assert.Equal(t, CodeValidation, domainCode(err))
}

func TestBoardHasOneColumnPerStage(t *testing.T) {
	e := newEnv(t)
	e.register(t, validInput("Colegio Uno"))
	e.register(t, validInput("Colegio Dos"))

	columns, err := e.institutions.Board(context.Background(), ListInstitutionsInput{})
	require.NoError(t, err)

	require.Len(t, columns, len(entity.Stages))
	assert.Equal(t, entity.StageQueued, columns[0].Stage)
	assert.Equal(t, 2, columns[0].Count)
	assert.Len(t, columns[0].Items, 2)
	assert.Equal(t, 0, columns[2].Count)
	assert.NotNil(t, columns[2].Items)
}
