package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

const importCSV = `name,rector_name,rector_email,rector_phone,pais,num_teachers,stage,assigned_commercial
Colegio Alfa,Ana Ruiz,ANA@alfa.ec,+593 991111111,Colombia,12.0,En Proceso,ventas1
,Pedro,,,,,,
Colegio Beta,,,,,muchos,bogus,nadie
`

func TestImportInstitutionsFromCSV(t *testing.T) {
	e := newEnv(t)
	uc := NewImportInstitutionsUseCase(e.store.Institutions(), e.store.Users(), e.clock, zap.NewNop())

	report, err := uc.Execute(context.Background(), adminP, "leads.csv", []byte(importCSV))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Rows, 3)

	alfa := report.Rows[0]
	assert.Equal(t, 2, alfa.Line)
	assert.False(t, alfa.Skipped)
	assert.Contains(t, alfa.Defaults, "counterpart_email")
	assert.NotContains(t, alfa.Defaults, "country")
	assert.NotContains(t, alfa.Defaults, "stage")

	assert.True(t, report.Rows[1].Skipped)
	assert.Equal(t, "empty name", report.Rows[1].Reason)

	beta := report.Rows[2]
	assert.ElementsMatch(t, []string{
		"rector_name", "rector_email", "rector_phone",
		"counterpart_name", "counterpart_email", "counterpart_phone",
		"country", "num_teachers", "initial_contact_medium", "stage", "substage",
		"program_proposed", "owner",
	}, beta.Defaults)

	inst, err := e.institutions.Get(context.Background(), alfa.InstitutionID)
	require.NoError(t, err)
	assert.Equal(t, "Colombia", inst.Country)
	assert.Equal(t, 12, inst.NumTeachers)
	assert.Equal(t, entity.StageInProgress, inst.Stage)
	assert.Equal(t, "ana@alfa.ec", inst.Rector.Email)
	assert.Equal(t, "Por definir", inst.Counterpart.Name)
	require.NotNil(t, inst.OwnerID)
	assert.Equal(t, salesP.UserID, *inst.OwnerID)

	b, err := e.institutions.Get(context.Background(), beta.InstitutionID)
	require.NoError(t, err)
	assert.Equal(t, "pendiente@muyu.com", b.Rector.Email)
	assert.Equal(t, "+593 000000000", b.Rector.Phone)
	assert.Equal(t, entity.StageQueued, b.Stage)
	assert.Nil(t, b.OwnerID)
}

func TestImportRequiresNameColumn(t *testing.T) {
	e := newEnv(t)
	uc := NewImportInstitutionsUseCase(e.store.Institutions(), e.store.Users(), e.clock, zap.NewNop())

	_, err := uc.Execute(context.Background(), adminP, "leads.csv", []byte("rector_name,ciudad\nAna,Quito\n"))

	assert.Equal(t, CodeValidation, domainCode(err))
}

func TestImportRejectsLegacyExcel(t *testing.T) {
	e := newEnv(t)
	uc := NewImportInstitutionsUseCase(e.store.Institutions(), e.store.Users(), e.clock, zap.NewNop())

	_, err := uc.Execute(context.Background(), adminP, "leads.xls", []byte{0xd0, 0xcf})

	assert.Equal(t, CodeUnsupportedFile, domainCode(err))
}

func TestImportBySalesOwnsRowsWithoutOwner(t *testing.T) {
	e := newEnv(t)
	uc := NewImportInstitutionsUseCase(e.store.Institutions(), e.store.Users(), e.clock, zap.NewNop())

	report, err := uc.Execute(context.Background(), salesP, "leads.csv", []byte("name\nColegio Gamma\n"))
	require.NoError(t, err)
	require.Equal(t, 1, report.Created)

	inst, err := e.institutions.Get(context.Background(), report.Rows[0].InstitutionID)
	require.NoError(t, err)
	require.NotNil(t, inst.OwnerID)
	assert.Equal(t, salesP.UserID, *inst.OwnerID)
}

func TestImportSkipsMarkupOnlyNames(t *testing.T) {
	e := newEnv(t)
	uc := NewImportInstitutionsUseCase(e.store.Institutions(), e.store.Users(), e.clock, zap.NewNop())

	report, err := uc.Execute(context.Background(), adminP, "leads.csv", []byte("name,ciudad\n<b></b>,Quito\nColegio <i>Delta</i>,Cuenca\n"))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Skipped)
	assert.True(t, report.Rows[0].Skipped)
	assert.Equal(t, "empty name", report.Rows[0].Reason)
	assert.Equal(t, "Colegio Delta", report.Rows[1].Name)
}

func TestParseAmount(t *testing.T) {
	cases := map[string]float64{"120": 120, "$1,500.50": 1500.5, "85,5": 85.5}
	for in, want := range cases {
		got, ok := parseAmount(in)
		assert.True(t, ok, in)
		assert.InDelta(t, want, got, 0.001, in)
	}
	_, ok := parseAmount("-3")
	assert.False(t, ok)
}
