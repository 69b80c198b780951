package qa

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	chunkeruc "github.com/hackrx-cloud/docqa/internal/usecase/chunker"
	retrieveruc "github.com/hackrx-cloud/docqa/internal/usecase/retriever"
)

// --- Mocks ---

type mockExtractor struct {
	text string
	err  error
}

func (m *mockExtractor) ExtractText(_ context.Context, _ []byte) (string, error) {
	return m.text, m.err
}

type mockCompleter struct {
	answer    string
	err       error
	called    bool
	lastCtx   string
	lastQ     string
	lastToken int
}

func (m *mockCompleter) GenerateAnswer(_ context.Context, question, contextText string, maxTokens int) (string, error) {
	m.called = true
	m.lastQ = question
	m.lastCtx = contextText
	m.lastToken = maxTokens
	return m.answer, m.err
}

func mustChunker(t *testing.T, size, overlap int) *chunkeruc.Service {
	t.Helper()
	c, err := chunkeruc.New(size, overlap)
	if err != nil {
		t.Fatalf("chunker.New: %v", err)
	}
	return c
}

func newService(t *testing.T, extractor Extractor, completer Completer) *Service {
	t.Helper()
	return New(extractor, mustChunker(t, 1000, 100), retrieveruc.New(), completer, zap.NewNop())
}

// --- Tests ---

func TestAnswerQuestion_BeforeIngestion(t *testing.T) {
	svc := newService(t, &mockExtractor{}, &mockCompleter{answer: "unused"})

	res := svc.AnswerQuestion(context.Background(), "anything?")
	if res.Success() {
		t.Fatal("expected failure before ingestion")
	}
	if res.Confidence() != 0 {
		t.Errorf("expected confidence 0, got %f", res.Confidence())
	}
	if len(res.ContextUsed()) != 0 {
		t.Errorf("expected empty context, got %d chunks", len(res.ContextUsed()))
	}
}

func TestProcessDocument_ExtractionFailureLeavesStateUnchanged(t *testing.T) {
	extractor := &mockExtractor{text: "first document about grace periods"}
	svc := newService(t, extractor, &mockCompleter{answer: "a"})

	if _, err := svc.ProcessDocument(context.Background(), []byte("pdf")); err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}

	extractor.text = ""
	extractor.err = errors.New("corrupt pdf")
	if _, err := svc.ProcessDocument(context.Background(), []byte("bad")); err == nil {
		t.Fatal("expected extraction error")
	}

	// The first document is still answerable.
	res := svc.AnswerQuestion(context.Background(), "grace periods")
	if !res.Success() {
		t.Errorf("expected first document to survive failed re-ingestion: %s", res.ErrorMessage())
	}
}

func TestProcessDocument_CleansText(t *testing.T) {
	extractor := &mockExtractor{text: "hello\n\n\tworld  ©®  (ok)."}
	svc := newService(t, extractor, nil)

	stats, err := svc.ProcessDocument(context.Background(), []byte("pdf"))
	if err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}
	if stats.Chunks != 1 {
		t.Fatalf("expected 1 chunk, got %d", stats.Chunks)
	}

	// Whitespace collapses first, then the unsafe characters are
	// stripped, leaving a double space where they stood.
	summary := svc.Summary()
	if summary.Preview != "hello world  (ok)." {
		t.Errorf("unexpected cleaned text: %q", summary.Preview)
	}
}

func TestProcessDocument_KeepsNonASCIIText(t *testing.T) {
	text := "Льготный период составляет тридцать дней."
	svc := newService(t, &mockExtractor{text: text}, &mockCompleter{answer: "a"})

	if _, err := svc.ProcessDocument(context.Background(), []byte("pdf")); err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}

	summary := svc.Summary()
	if summary.Preview != text {
		t.Fatalf("non-ASCII text mangled: %q", summary.Preview)
	}

	res := svc.AnswerQuestion(context.Background(), "Льготный период")
	if !res.Success() {
		t.Errorf("expected non-ASCII document to stay searchable: %s", res.ErrorMessage())
	}
}

func TestAnswerQuestion_NoRelevantContext(t *testing.T) {
	svc := newService(t, &mockExtractor{text: "alpha beta gamma"}, &mockCompleter{answer: "a"})
	if _, err := svc.ProcessDocument(context.Background(), []byte("pdf")); err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}

	res := svc.AnswerQuestion(context.Background(), "zeppelin quartz")
	if res.Success() {
		t.Fatal("expected failure for irrelevant question")
	}
	if res.Confidence() != 0 {
		t.Errorf("expected confidence 0, got %f", res.Confidence())
	}
}

func TestAnswerQuestion_CompleterDisabled(t *testing.T) {
	svc := newService(t, &mockExtractor{text: "the grace period is thirty days"}, nil)
	if _, err := svc.ProcessDocument(context.Background(), []byte("pdf")); err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}
	if svc.AIEnabled() {
		t.Error("expected AI disabled")
	}

	res := svc.AnswerQuestion(context.Background(), "grace period")
	if res.Success() {
		t.Fatal("expected failure with nil completer")
	}
	if len(res.ContextUsed()) == 0 {
		t.Error("expected retrieved context to be reported even when AI is disabled")
	}
}

func TestAnswerQuestion_CompletionExhausted(t *testing.T) {
	completer := &mockCompleter{err: errors.New("exhausted")}
	svc := newService(t, &mockExtractor{text: "the grace period is thirty days"}, completer)
	if _, err := svc.ProcessDocument(context.Background(), []byte("pdf")); err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}

	res := svc.AnswerQuestion(context.Background(), "grace period")
	if res.Success() {
		t.Fatal("expected failure when completion is exhausted")
	}
	if res.Confidence() != 0 {
		t.Errorf("expected confidence 0, got %f", res.Confidence())
	}
	if len(res.ContextUsed()) == 0 {
		t.Error("expected context_used populated from retrieval")
	}
}

func TestAnswerQuestion_Success(t *testing.T) {
	completer := &mockCompleter{answer: "Thirty days."}
	svc := newService(t, &mockExtractor{text: "the grace period is thirty days"}, completer)
	if _, err := svc.ProcessDocument(context.Background(), []byte("pdf")); err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}

	res := svc.AnswerQuestion(context.Background(), "grace period")
	if !res.Success() {
		t.Fatalf("expected success, got %s", res.ErrorMessage())
	}
	if res.Text() != "Thirty days." {
		t.Errorf("unexpected answer %q", res.Text())
	}
	if res.Confidence() <= 0 || res.Confidence() > 1 {
		t.Errorf("confidence out of range: %f", res.Confidence())
	}
	if !completer.called {
		t.Error("expected completer to be called")
	}
	if completer.lastToken != DefaultMaxAnswerTokens {
		t.Errorf("expected default token bound, got %d", completer.lastToken)
	}
}

func TestAnswerQuestion_ContextJoinedWithBlankLines(t *testing.T) {
	completer := &mockCompleter{answer: "ok"}
	text := strings.Repeat("grace period sentence one. ", 6) +
		strings.Repeat("grace period sentence two. ", 6)
	svc := New(&mockExtractor{text: text}, mustChunker(t, 60, 10), retrieveruc.New(), completer, zap.NewNop())
	if _, err := svc.ProcessDocument(context.Background(), []byte("pdf")); err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}

	res := svc.AnswerQuestion(context.Background(), "grace period")
	if !res.Success() {
		t.Fatalf("expected success: %s", res.ErrorMessage())
	}
	if len(res.ContextUsed()) < 2 {
		t.Fatalf("expected multiple context chunks, got %d", len(res.ContextUsed()))
	}
	if !strings.Contains(completer.lastCtx, "\n\n") {
		t.Error("expected chunk texts joined with blank lines")
	}
}

func TestAnswerQuestion_ConfidenceClampedToOne(t *testing.T) {
	// Full word overlap plus the phrase bonus yields a raw score of 1.5.
	completer := &mockCompleter{answer: "ok"}
	svc := newService(t, &mockExtractor{text: "the grace period is thirty days"}, completer)
	if _, err := svc.ProcessDocument(context.Background(), []byte("pdf")); err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}

	res := svc.AnswerQuestion(context.Background(), "grace period")
	if !res.Success() {
		t.Fatalf("expected success: %s", res.ErrorMessage())
	}
	if res.Confidence() != 1 {
		t.Errorf("expected confidence clamped to 1, got %f", res.Confidence())
	}
}

func TestEndToEnd_GracePeriodRetrievalOrder(t *testing.T) {
	text := "The grace period is thirty days. The waiting period for pre-existing disease is 36 months."
	completer := &mockCompleter{answer: "Thirty days."}
	svc := New(&mockExtractor{text: text}, mustChunker(t, 50, 10), retrieveruc.New(), completer, zap.NewNop())

	if _, err := svc.ProcessDocument(context.Background(), []byte("pdf")); err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}

	res := svc.AnswerQuestion(context.Background(), "What is the grace period?")
	if !res.Success() {
		t.Fatalf("expected success: %s", res.ErrorMessage())
	}

	used := res.ContextUsed()
	if len(used) == 0 {
		t.Fatal("expected context chunks")
	}
	if !strings.Contains(used[0].Text(), "grace period") {
		t.Errorf("expected the grace-period chunk first, got %q", used[0].Text())
	}
}

func TestConcurrentReadsDuringIngestion(t *testing.T) {
	svc := newService(t, &mockExtractor{text: "the grace period is thirty days"}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				svc.Summary()
				svc.AnswerQuestion(context.Background(), "grace period")
			}
		}()
	}

	for i := 0; i < 50; i++ {
		if _, err := svc.ProcessDocument(context.Background(), []byte("pdf")); err != nil {
			t.Errorf("ProcessDocument: %v", err)
			break
		}
	}
	wg.Wait()
}

func TestBatch_EmptyQuestions(t *testing.T) {
	svc := newService(t, &mockExtractor{text: "some document text"}, &mockCompleter{answer: "a"})

	answers := svc.ProcessDocumentAndAnswer(context.Background(), []byte("pdf"), nil)
	if answers == nil {
		t.Fatal("expected non-nil answers slice")
	}
	if len(answers) != 0 {
		t.Fatalf("expected empty answers, got %d", len(answers))
	}
}

func TestBatch_IngestFailureRepeatsError(t *testing.T) {
	svc := newService(t, &mockExtractor{err: errors.New("corrupt pdf")}, &mockCompleter{answer: "a"})

	questions := []string{"q1", "q2", "q3"}
	answers := svc.ProcessDocumentAndAnswer(context.Background(), []byte("bad"), questions)
	if len(answers) != len(questions) {
		t.Fatalf("expected %d answers, got %d", len(questions), len(answers))
	}
	for i := 1; i < len(answers); i++ {
		if answers[i] != answers[0] {
			t.Errorf("expected identical error strings, got %q vs %q", answers[0], answers[i])
		}
	}
	if !strings.Contains(answers[0], "Error processing document") {
		t.Errorf("unexpected error string %q", answers[0])
	}
}

func TestBatch_MixedOutcomes(t *testing.T) {
	completer := &mockCompleter{answer: "Thirty days."}
	svc := newService(t, &mockExtractor{text: "the grace period is thirty days"}, completer)

	answers := svc.ProcessDocumentAndAnswer(context.Background(), []byte("pdf"),
		[]string{"grace period", "zeppelin quartz"})
	if len(answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(answers))
	}
	if answers[0] != "Thirty days." {
		t.Errorf("unexpected first answer %q", answers[0])
	}
	if !strings.HasPrefix(answers[1], "Error: ") {
		t.Errorf("expected error string for irrelevant question, got %q", answers[1])
	}
}

func TestSummary(t *testing.T) {
	svc := newService(t, &mockExtractor{text: "the grace period is thirty days"}, nil)

	if svc.Summary().Processed {
		t.Error("expected unprocessed summary before ingestion")
	}

	if _, err := svc.ProcessDocument(context.Background(), []byte("pdf")); err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}

	sum := svc.Summary()
	if !sum.Processed {
		t.Fatal("expected processed summary")
	}
	if sum.Chunks != 1 {
		t.Errorf("expected 1 chunk, got %d", sum.Chunks)
	}
	if sum.Characters == 0 || sum.AvgChunkLength == 0 {
		t.Errorf("expected non-zero stats: %+v", sum)
	}
}
