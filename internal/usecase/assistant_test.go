package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/infra/pdf"
)

func TestChunkWords(t *testing.T) {
	words := strings.Fields(strings.Repeat("palabra ", 4500))

	chunks := chunkWords(words, 2000)

	require.Len(t, chunks, 3)
	assert.Len(t, strings.Fields(chunks[2]), 500)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float64{1, 2}, []float64{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosine([]float64{1}, []float64{1, 2}))
}

func TestDocumentUploadAndAsk(t *testing.T) {
	extractor := new(MockExtractor)
	embedder := new(MockEmbedder)
	chat := new(MockChatModel)
	chat.On("Configured").Return(true)

	text := strings.Repeat("precios ", 2000) + strings.Repeat("horarios ", 10)
	extractor.On("ExtractText", []byte("%PDF-data")).Return(text, nil)
	embedder.On("Embed", mock.Anything, mock.MatchedBy(func(in []string) bool { return len(in) == 2 })).
		Return([][]float64{{1, 0}, {0, 1}}, nil)
	embedder.On("Embed", mock.Anything, []string{"¿Cuál es el horario?"}).
		Return([][]float64{{0.1, 0.9}}, nil)
	chat.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "horarios") && !strings.Contains(p, "precios")
	})).Return("De 8 a 13h", nil)

	uc := NewDocumentQAUseCase(extractor, embedder, chat, fixedClock(), zap.NewNop())
	info, err := uc.Upload(context.Background(), "manual.pdf", []byte("%PDF-data"))
	require.NoError(t, err)
	assert.Equal(t, 2010, info.Words)
	assert.Equal(t, 2, info.Chunks)

	ans, err := uc.Ask(context.Background(), info.ID, AskDocumentInput{Question: "¿Cuál es el horario?"})
	require.NoError(t, err)
	assert.Equal(t, "De 8 a 13h", ans.Answer)
	assert.Equal(t, 1, ans.Chunk)
	chat.AssertExpectations(t)
}

func TestDocumentUploadWithoutText(t *testing.T) {
	extractor := new(MockExtractor)
	chat := new(MockChatModel)
	chat.On("Configured").Return(true)
	extractor.On("ExtractText", mock.Anything).Return("", pdf.ErrNoText)

	uc := NewDocumentQAUseCase(extractor, new(MockEmbedder), chat, fixedClock(), zap.NewNop())
	_, err := uc.Upload(context.Background(), "scan.pdf", []byte("%PDF"))

	assert.Equal(t, CodeUnsupportedFile, domainCode(err))
}

func TestDocumentStoreEvictsOldest(t *testing.T) {
	uc := NewDocumentQAUseCase(nil, nil, nil, fixedClock(), zap.NewNop())
	uc.MaxDocuments = 2
	for _, id := range []string{"a", "b", "c"} {
		uc.store(&document{info: DocumentInfo{ID: id}})
	}

	_, hasA := uc.docs["a"]
	_, hasC := uc.docs["c"]
	assert.False(t, hasA)
	assert.True(t, hasC)
	assert.Len(t, uc.docs, 2)
}

func TestAskUnknownDocument(t *testing.T) {
	chat := new(MockChatModel)
	chat.On("Configured").Return(true)
	uc := NewDocumentQAUseCase(nil, nil, chat, fixedClock(), zap.NewNop())

	_, err := uc.Ask(context.Background(), "missing", AskDocumentInput{Question: "hola"})

	assert.Equal(t, CodeNotFound, domainCode(err))
}

const prospectsCSV = `nombre,email,ciudad
Juan Perez,juan@colegio.ec,Quito
Maria Lopez,maria@escuela.ec,Cuenca
Juan Carlos,jc@colegio.ec,Quito
`

func TestTableRowCountAnsweredLocally(t *testing.T) {
	chat := new(MockChatModel)
	uc := NewTableQAUseCase(chat, zap.NewNop())

	ans, err := uc.Ask(context.Background(), "p.csv", []byte(prospectsCSV), AskTableInput{Question: "¿Cuántas filas tiene?"})
	require.NoError(t, err)

	assert.Equal(t, TableAnswerCount, ans.Kind)
	assert.Equal(t, "La tabla tiene 3 filas.", ans.Answer)
	chat.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestTableDirectEmailIntent(t *testing.T) {
	uc := NewTableQAUseCase(new(MockChatModel), zap.NewNop())

	ans, err := uc.Ask(context.Background(), "p.csv", []byte(prospectsCSV), AskTableInput{
		Question: "Manda un mail a juan con el asunto: Reunión y el mensaje: Nos vemos el lunes",
	})
	require.NoError(t, err)

	assert.Equal(t, TableAnswerSendEmail, ans.Kind)
	require.NotNil(t, ans.Email)
	assert.Equal(t, "Reunión", ans.Email.Subject)
	assert.Equal(t, "Nos vemos el lunes", ans.Email.Message)
	assert.Equal(t, []string{"juan@colegio.ec", "jc@colegio.ec"}, ans.Email.Recipients)
	assert.Equal(t, "nombre", ans.Email.NameColumn)
	assert.Equal(t, "email", ans.Email.EmailColumn)
}

func TestTableMassEmailIntent(t *testing.T) {
	uc := NewTableQAUseCase(new(MockChatModel), zap.NewNop())

	ans, err := uc.Ask(context.Background(), "p.csv", []byte(prospectsCSV), AskTableInput{Question: "envía un correo masivo a todos"})
	require.NoError(t, err)

	assert.Equal(t, TableAnswerMassEmail, ans.Kind)
	assert.Equal(t, []string{"email"}, ans.EmailColumns)
	assert.Len(t, ans.Email.Recipients, 3)
}

func TestTableQuestionUsesMatchedRow(t *testing.T) {
	chat := new(MockChatModel)
	chat.On("Configured").Return(true)
	chat.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Columna: ciudad") && strings.Contains(p, "Valor: Cuenca") &&
			strings.HasSuffix(p, "Pregunta: ¿En qué ciudad está Maria Lopez?\nRespuesta:")
	})).Return("Cuenca", nil)
	uc := NewTableQAUseCase(chat, zap.NewNop())

	ans, err := uc.Ask(context.Background(), "p.csv", []byte(prospectsCSV), AskTableInput{Question: "¿En qué ciudad está Maria Lopez?"})
	require.NoError(t, err)

	assert.Equal(t, TableAnswerModel, ans.Kind)
	assert.Equal(t, "Cuenca", ans.Answer)
	chat.AssertExpectations(t)
}

func TestTableQuestionSamplesRows(t *testing.T) {
	var csv strings.Builder
	csv.WriteString("id,valor\n")
	for i := 0; i < 25; i++ {
		csv.WriteString("x,1\n")
	}
	chat := new(MockChatModel)
	chat.On("Configured").Return(true)
	chat.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Count(p, `"valor": "1"`) == 10
	})).Return("ok", nil)
	uc := NewTableQAUseCase(chat, zap.NewNop())

	ans, err := uc.Ask(context.Background(), "t.csv", []byte(csv.String()), AskTableInput{Question: "resume los datos"})
	require.NoError(t, err)
	assert.Contains(t, ans.Note, "muestra de 10 filas")
}

func TestTableQuestionWithoutModel(t *testing.T) {
	chat := new(MockChatModel)
	chat.On("Configured").Return(false)
	uc := NewTableQAUseCase(chat, zap.NewNop())

	_, err := uc.Ask(context.Background(), "p.csv", []byte(prospectsCSV), AskTableInput{Question: "resume"})

	assert.Equal(t, CodeNotConfigured, domainCode(err))
}

func TestTableModelFailure(t *testing.T) {
	chat := new(MockChatModel)
	chat.On("Configured").Return(true)
	chat.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("rate limited"))
	uc := NewTableQAUseCase(chat, zap.NewNop())

	_, err := uc.Ask(context.Background(), "p.csv", []byte(prospectsCSV), AskTableInput{Question: "resume"})

	assert.Equal(t, CodeAI, domainCode(err))
}
