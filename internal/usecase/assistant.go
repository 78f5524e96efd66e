package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/infra/pdf"
)

const (
	defaultChunkWords   = 2000
	defaultMaxDocuments = 20
)

var errAssistantOff = &DomainError{Code: CodeNotConfigured, Message: "el asistente de IA no está configurado"}

type document struct {
	info    DocumentInfo
	chunks  []string
	vectors [][]float64
}

// DocumentQAUseCase answers questions about uploaded PDFs. Documents live in
// memory only; the oldest is evicted once MaxDocuments is reached.
type DocumentQAUseCase struct {
	Extractor    TextExtractor
	Embedder     Embedder
	Chat         ChatModel
	Clock        Clock
	ChunkWords   int
	MaxDocuments int
	Log          *zap.Logger

	mu    sync.Mutex
	docs  map[string]*document
	order []string
}

func NewDocumentQAUseCase(extractor TextExtractor, embedder Embedder, chat ChatModel, clock Clock, log *zap.Logger) *DocumentQAUseCase {
	return &DocumentQAUseCase{
		Extractor:    extractor,
		Embedder:     embedder,
		Chat:         chat,
		Clock:        clock,
		ChunkWords:   defaultChunkWords,
		MaxDocuments: defaultMaxDocuments,
		Log:          log,
		docs:         map[string]*document{},
	}
}

func (uc *DocumentQAUseCase) Upload(ctx context.Context, filename string, data []byte) (*DocumentInfo, error) {
	if !uc.Chat.Configured() {
		return nil, errAssistantOff
	}

	text, err := uc.Extractor.ExtractText(data)
	if err != nil {
		if errors.Is(err, pdf.ErrNoText) {
			return nil, &DomainError{Code: CodeUnsupportedFile, Message: "el PDF no contiene texto extraíble"}
		}
		return nil, &DomainError{Code: CodeUnsupportedFile, Message: err.Error()}
	}

	words := strings.Fields(text)
	chunks := chunkWords(words, uc.ChunkWords)
	vectors, err := uc.Embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, &TechnicalError{Code: CodeAI, Message: "failed to embed document", Err: err}
	}
	if len(vectors) != len(chunks) {
		return nil, &TechnicalError{Code: CodeAI, Message: fmt.Sprintf("got %d embeddings for %d chunks", len(vectors), len(chunks))}
	}

	doc := &document{
		info: DocumentInfo{
			ID:        uuid.New().String(),
			Filename:  filename,
			Words:     len(words),
			Chunks:    len(chunks),
			CreatedAt: uc.Clock.now(),
		},
		chunks:  chunks,
		vectors: vectors,
	}
	uc.store(doc)

	uc.Log.Info("document loaded",
		zap.String("document_id", doc.info.ID),
		zap.String("file", filename),
		zap.Int("words", doc.info.Words),
		zap.Int("chunks", doc.info.Chunks))
	info := doc.info
	return &info, nil
}

// Ask answers from the single chunk closest to the question.
func (uc *DocumentQAUseCase) Ask(ctx context.Context, documentID string, in AskDocumentInput) (*DocumentAnswer, error) {
	if errs := validateStruct(in); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	if !uc.Chat.Configured() {
		return nil, errAssistantOff
	}

	uc.mu.Lock()
	doc, ok := uc.docs[documentID]
	uc.mu.Unlock()
	if !ok {
		return nil, notFound("documento")
	}

	q, err := uc.Embedder.Embed(ctx, []string{in.Question})
	if err != nil || len(q) == 0 {
		return nil, &TechnicalError{Code: CodeAI, Message: "failed to embed question", Err: err}
	}

	best, score := 0, -1.0
	for i, v := range doc.vectors {
		if s := cosine(q[0], v); s > score {
			best, score = i, s
		}
	}

	prompt := fmt.Sprintf("Basado en el siguiente documento:\n\n%s\n\nResponde la siguiente pregunta:\n\n%s", doc.chunks[best], in.Question)
	answer, err := uc.Chat.Complete(ctx, "Responde solo con la información del documento. Si no está en el texto, dilo.", prompt)
	if err != nil {
		return nil, &TechnicalError{Code: CodeAI, Message: "failed to query model", Err: err}
	}

	return &DocumentAnswer{DocumentID: documentID, Answer: answer, Chunk: best, Score: score}, nil
}

func (uc *DocumentQAUseCase) store(doc *document) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.docs == nil {
		uc.docs = map[string]*document{}
	}
	limit := uc.MaxDocuments
	if limit <= 0 {
		limit = defaultMaxDocuments
	}
	for len(uc.order) >= limit {
		delete(uc.docs, uc.order[0])
		uc.order = uc.order[1:]
	}
	uc.docs[doc.info.ID] = doc
	uc.order = append(uc.order, doc.info.ID)
}

func chunkWords(words []string, size int) []string {
	if size <= 0 {
		size = defaultChunkWords
	}
	chunks := make([]string, 0, len(words)/size+1)
	for i := 0; i < len(words); i += size {
		end := min(i+size, len(words))
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
