package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

func TestDashboardMetrics(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uc := NewDashboardUseCase(e.store.Institutions(), e.store.Tasks(), e.clock, 7, zap.NewNop())

	a := e.register(t, validInput("Colegio A"))
	e.register(t, validInput("Colegio B"))
	old := validInput("Colegio C")
	old.FirstContact = "2025-02-08"
	old.LastInteraction = "2025-02-08"
	old.InitialContactMedium = "email"
	e.register(t, old)

	won := validInput("Colegio D")
	won.Stage = "won"
	won.Substage = "payment_received"
	won.ProposalValue = 5000
	e.register(t, won)

	_, err := e.moveStage.Execute(ctx, adminP, a.ID, MoveStageInput{Stage: "in_progress", Substage: "proposal_sent", Date: "2025-03-01"})
	require.NoError(t, err)

	m, err := uc.Metrics(ctx, adminP)
	require.NoError(t, err)

	assert.Equal(t, 4, m.TotalLeads)
	require.Len(t, m.ByStage, 4)
	assert.Equal(t, 2, m.ByStage[0].Count)
	assert.Equal(t, 1, m.ByStage[1].Count)
	assert.Equal(t, 1, m.ByStage[2].Count)
	assert.InDelta(t, 15.0, m.ByStage[0].AvgDaysInPipeline, 0.01)
	require.NotNil(t, m.ConversionRate)
	assert.InDelta(t, 50.0, *m.ConversionRate, 0.01)
	assert.InDelta(t, 5000.0, m.WonValue, 0.01)
	assert.InDelta(t, 3*40*120.0, m.PotentialValue, 0.01)
	assert.Equal(t, 1, m.StaleLeads)
	assert.Equal(t, 1, m.OpenTasks)
	assert.Equal(t, 1, m.OverdueTasks)

	require.Len(t, m.ByMedium, 2)
	assert.Equal(t, entity.MediumWhatsapp, m.ByMedium[0].Medium)
	assert.Equal(t, 3, m.ByMedium[0].Count)
}

func TestDashboardConversionUndefinedWithoutQueue(t *testing.T) {
	e := newEnv(t)
	uc := NewDashboardUseCase(e.store.Institutions(), e.store.Tasks(), e.clock, 7, zap.NewNop())

	m, err := uc.Metrics(context.Background(), adminP)
	require.NoError(t, err)

	assert.Nil(t, m.ConversionRate)
	assert.Equal(t, 0, m.TotalLeads)
	assert.NotNil(t, m.ByMedium)
}

func TestSalesOverviewIsScopedToUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uc := NewDashboardUseCase(e.store.Institutions(), e.store.Tasks(), e.clock, 7, zap.NewNop())

	mine, err := e.institutions.Register(ctx, salesP, validInput("Colegio Propio"))
	require.NoError(t, err)
	e.register(t, validInput("Colegio Ajeno"))
	_, err = e.moveStage.Execute(ctx, salesP, mine.ID, MoveStageInput{Substage: "meeting_scheduled", Date: "2025-03-05"})
	require.NoError(t, err)

	out, err := uc.SalesOverview(ctx, salesP)
	require.NoError(t, err)

	require.Len(t, out.Institutions, 1)
	assert.Equal(t, "Colegio Propio", out.Institutions[0].Name)
	require.Len(t, out.Tasks, 1)
	assert.Equal(t, 1, out.Metrics.OverdueTasks)

	_, err = uc.SalesOverview(ctx, supportP)
	assert.Equal(t, CodeForbidden, domainCode(err))
}
