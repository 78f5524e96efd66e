package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStageAcceptsCodesAndLabels(t *testing.T) {
	cases := map[string]Stage{
		"queued":                  StageQueued,
		"En cola":                 StageQueued,
		"  en   PROCESO ":         StageInProgress,
		"Ganado":                  StageWon,
		"No interesado":           StageNotInterested,
		"Cerrado / Ganado":        StageWon,
		"Perdido / No interesado": StageNotInterested,
		"Abierto":                 StageQueued,
	}
	for in, want := range cases {
		got, err := ParseStage(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStage("Archivado")
	assert.True(t, errors.Is(err, ErrInvalidStage))
}

func TestParseSubstageAndMedium(t *testing.T) {
	s, err := ParseSubstage("Reunión agendada")
	require.NoError(t, err)
	assert.Equal(t, SubstageMeetingScheduled, s)

	_, err = ParseSubstage("limbo")
	assert.ErrorIs(t, err, ErrInvalidSubstage)

	m, err := ParseMedium("Correo electrónico")
	require.NoError(t, err)
	assert.Equal(t, MediumEmail, m)

	m, err = ParseMedium("WHATSAPP")
	require.NoError(t, err)
	assert.Equal(t, MediumWhatsapp, m)
}

func TestValidateTransitionFollowUps(t *testing.T) {
	from := Position{Stage: StageQueued, Substage: SubstageFirstMeeting}

	tr, err := ValidateTransition(from, Position{Stage: StageInProgress, Substage: SubstageMeetingScheduled})
	require.NoError(t, err)
	require.Len(t, tr.FollowUps, 1)
	assert.Equal(t, "Confirmar reunión agendada", tr.FollowUps[0].Title)
	assert.Equal(t, 0, tr.FollowUps[0].DueInDays)

	tr, err = ValidateTransition(from, Position{Stage: StageInProgress, Substage: SubstageProposalSent})
	require.NoError(t, err)
	require.Len(t, tr.FollowUps, 1)
	assert.Equal(t, "Seguimiento de propuesta enviada", tr.FollowUps[0].Title)
	assert.Equal(t, 2, tr.FollowUps[0].DueInDays)
}

func TestValidateTransitionNoFollowUpWhenSubstageUnchanged(t *testing.T) {
	from := Position{Stage: StageQueued, Substage: SubstageProposalSent}
	tr, err := ValidateTransition(from, Position{Stage: StageInProgress, Substage: SubstageProposalSent})
	require.NoError(t, err)
	assert.Empty(t, tr.FollowUps)
	assert.True(t, tr.Changed())

	tr, err = ValidateTransition(from, from)
	require.NoError(t, err)
	assert.False(t, tr.Changed())
}

func TestValidateTransitionRejectsUnknownTarget(t *testing.T) {
	from := Position{Stage: StageQueued, Substage: SubstageFirstMeeting}

	_, err := ValidateTransition(from, Position{Stage: "archived", Substage: SubstageFirstMeeting})
	assert.ErrorIs(t, err, ErrInvalidStage)

	_, err = ValidateTransition(from, Position{Stage: StageWon, Substage: "paid"})
	assert.ErrorIs(t, err, ErrInvalidSubstage)
}

func TestValidateTransitionFromLegacyPosition(t *testing.T) {
	tr, err := ValidateTransition(Position{Stage: "Abierto", Substage: "Primera reunión"},
		Position{Stage: StageWon, Substage: SubstageContractSigned})
	require.NoError(t, err)
	assert.True(t, tr.Changed())
}

func TestEveryStageCanReachEveryStage(t *testing.T) {
	for _, from := range Stages {
		for _, to := range Stages {
			_, err := ValidateTransition(Position{Stage: from, Substage: SubstageOnHold}, Position{Stage: to, Substage: SubstageOnHold})
			assert.NoError(t, err, "%s -> %s", from, to)
		}
	}
}

func TestInstitutionValidateAndStale(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	c := Contact{Name: "Ana", Email: "ana@colegio.ec", Phone: "+593 99"}
	inst := NewInstitution("Colegio Andino", c, c, now)
	require.NoError(t, inst.Validate())
	assert.Equal(t, DateOf(now), *inst.LastInteraction)

	assert.False(t, inst.IsStale(DateOf(now).AddDate(0, 0, -7)))
	old := DateOf(now).AddDate(0, 0, -8)
	inst.LastInteraction = &old
	assert.True(t, inst.IsStale(DateOf(now).AddDate(0, 0, -7)))
	inst.LastInteraction = nil
	assert.True(t, inst.IsStale(DateOf(now).AddDate(0, 0, -7)))

	inst.Rector.Email = ""
	assert.Error(t, inst.Validate())
}

func TestInstitutionNormalizeClearsNoInterestReason(t *testing.T) {
	inst := &Institution{Stage: StageInProgress, NoInterestReason: "presupuesto"}
	inst.Normalize()
	assert.Empty(t, inst.NoInterestReason)

	inst = &Institution{Stage: StageNotInterested, NoInterestReason: "presupuesto"}
	inst.Normalize()
	assert.Equal(t, "presupuesto", inst.NoInterestReason)
}

func TestPotentialValue(t *testing.T) {
	inst := &Institution{NumTeachers: 40, AvgFee: 12.5}
	assert.InDelta(t, 500.0, inst.PotentialValue(), 0.001)
}
