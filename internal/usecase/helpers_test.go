package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/entity"
	"github.com/xavierca1/muyu-crm/internal/infra/integration/whatsapp"
	"github.com/xavierca1/muyu-crm/internal/infra/mail"
	"github.com/xavierca1/muyu-crm/internal/testutil"
)

var testNow = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

func fixedClock() Clock {
	return Clock{Now: func() time.Time { return testNow }, Location: time.UTC}
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

var (
	adminP   = entity.Principal{UserID: "u-admin", Username: "admin", Role: entity.RoleAdmin, FullName: "Admin"}
	salesP   = entity.Principal{UserID: "u-sales", Username: "ventas1", Role: entity.RoleSales, FullName: "Ventas Uno", Email: "ventas1@muyu.com"}
	supportP = entity.Principal{UserID: "u-support", Username: "soporte1", Role: entity.RoleSupport, FullName: "Soporte Uno"}
)

// env wires every use case against one in-memory store.
type env struct {
	store        *testutil.Store
	clock        Clock
	moveStage    *MoveStageUseCase
	institutions *InstitutionUseCase
	interactions *InteractionUseCase
	tasks        *TaskUseCase
	stale        *StaleLeadsUseCase
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s := testutil.NewStore()
	clock := fixedClock()
	log := zap.NewNop()

	move := NewMoveStageUseCase(s.Institutions(), s.Tasks(), s.Interactions(), clock, log)
	e := &env{
		store:        s,
		clock:        clock,
		moveStage:    move,
		institutions: NewInstitutionUseCase(s.Institutions(), s.Users(), move, clock, 7, log),
		interactions: NewInteractionUseCase(s.Institutions(), s.Interactions(), clock, log),
		tasks:        NewTaskUseCase(s.Tasks(), s.Institutions(), s.Users(), clock, log),
		stale:        NewStaleLeadsUseCase(s.Institutions(), s.Tasks(), clock, 7, log),
	}

	for _, p := range []entity.Principal{adminP, salesP, supportP} {
		u := entity.NewUser(p.Username, p.Username+"@muyu.com", p.FullName, p.Role, testNow)
		u.ID = p.UserID
		u.Phone = "+593 991234567"
		require.NoError(t, s.Users().Create(context.Background(), u))
	}
	return e
}

func validInput(name string) InstitutionInput {
	return InstitutionInput{
		Name:        name,
		Rector:      ContactInput{Name: "Ana Rector", Email: "rector@colegio.ec", Phone: "+593 991111111"},
		Counterpart: ContactInput{Name: "Luis Contraparte", Email: "contra@colegio.ec", Phone: "+593 992222222"},
		City:        "Quito",
		NumTeachers: 40,
		AvgFee:      120,
	}
}

// register creates an institution as admin and returns it.
func (e *env) register(t *testing.T, in InstitutionInput) *entity.Institution {
	t.Helper()
	inst, err := e.institutions.Register(context.Background(), adminP, in)
	require.NoError(t, err)
	return inst
}

func domainCode(err error) string {
	if de, ok := err.(*DomainError); ok {
		return de.Code
	}
	if te, ok := err.(*TechnicalError); ok {
		return te.Code
	}
	return ""
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) Send(ctx context.Context, msg mail.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockEmailService) Address() string {
	return "comercial@muyu.com"
}

// MockDispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, msg mail.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockWhatsApp
type MockWhatsApp struct {
	mock.Mock
}

func (m *MockWhatsApp) Configured() bool {
	return m.Called().Bool(0)
}

func (m *MockWhatsApp) SendText(ctx context.Context, in whatsapp.SendTextInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

// MockChatModel
type MockChatModel struct {
	mock.Mock
}

func (m *MockChatModel) Configured() bool {
	return m.Called().Bool(0)
}

func (m *MockChatModel) Complete(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

// MockEmbedder
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float64), args.Error(1)
}

// MockExtractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) ExtractText(data []byte) (string, error) {
	args := m.Called(data)
	return args.String(0), args.Error(1)
}
