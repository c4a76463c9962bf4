package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/mock/gomock"

	"rasoi-ai/internal/dedupe"
	"rasoi-ai/internal/langdetect"
	"rasoi-ai/internal/storage"
	"rasoi-ai/internal/tagging"
	"rasoi-ai/internal/vectorstore"
	"rasoi-ai/internal/vectorstore/mocks"
)

// memoryContextualStore is an in-memory ContextualStore for pipeline tests.
type memoryContextualStore struct {
	entries   []storage.ContextualEntry
	nextID    int64
	languages map[int64]string
	tags      map[int64][]string
}

func newMemoryContextualStore() *memoryContextualStore {
	return &memoryContextualStore{
		nextID:    1,
		languages: make(map[int64]string),
		tags:      make(map[int64][]string),
	}
}

func (m *memoryContextualStore) ListAll(ctx context.Context) ([]storage.ContextualEntry, error) {
	return m.entries, nil
}

func (m *memoryContextualStore) ListURLs(ctx context.Context) (map[string]struct{}, error) {
	urls := make(map[string]struct{}, len(m.entries))
	for _, e := range m.entries {
		urls[e.SourceURL] = struct{}{}
	}
	return urls, nil
}

func (m *memoryContextualStore) InsertIfAbsent(ctx context.Context, entry *storage.ContextualEntry) (bool, error) {
	for _, e := range m.entries {
		if e.SourceURL == entry.SourceURL {
			return false, nil
		}
	}
	entry.ID = m.nextID
	m.nextID++
	if entry.Language == "" {
		entry.Language = "en"
	}
	m.entries = append(m.entries, *entry)
	return true, nil
}

func (m *memoryContextualStore) UpdateTags(ctx context.Context, id int64, tags []string) error {
	m.tags[id] = tags
	return nil
}

func (m *memoryContextualStore) UpdateLanguage(ctx context.Context, id int64, language string) error {
	m.languages[id] = language
	return nil
}

type memoryRecipeStore struct {
	recipes []storage.Recipe
	tags    map[int64][]string
}

func (m *memoryRecipeStore) List(ctx context.Context, cuisine, search string) ([]storage.Recipe, error) {
	return m.recipes, nil
}

func (m *memoryRecipeStore) ListAll(ctx context.Context) ([]storage.Recipe, error) {
	return m.recipes, nil
}

func (m *memoryRecipeStore) InsertIfAbsent(ctx context.Context, recipe *storage.Recipe) (bool, error) {
	m.recipes = append(m.recipes, *recipe)
	return true, nil
}

func (m *memoryRecipeStore) UpdateTags(ctx context.Context, id int64, tags []string) error {
	if m.tags == nil {
		m.tags = make(map[int64][]string)
	}
	m.tags[id] = tags
	return nil
}

// textEmbedder returns a fixed vector per text and orthogonal defaults, so
// every candidate looks unique unless the test says otherwise.
type textEmbedder struct {
	vectors map[string][]float32
	calls   [][]string
}

func (f *textEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if vec, ok := f.vectors[text]; ok {
			out[i] = vec
			continue
		}
		// Unique direction per position keeps items distinct.
		vec := make([]float32, len(texts)+1)
		vec[i] = 1
		out[i] = vec
	}
	return out, nil
}

func writeRawPosts(t *testing.T, posts []RawPost) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scraped_contextual_posts.json")
	data, err := json.Marshal(posts)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestRunnerLoadSkipsKnownAndDuplicateURLs(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := newMemoryContextualStore()
	_, err := store.InsertIfAbsent(context.Background(), &storage.ContextualEntry{
		Question:  "already stored",
		Answer:    "yes",
		SourceURL: "https://example.com/p/old",
	})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}

	embedder := &textEmbedder{vectors: map[string][]float32{
		"old": {0, 0, 1},
		"q1":  {1, 0, 0},
		"q2":  {1, 0.01, 0}, // near-duplicate of q1, lower score
		"q3":  {0, 1, 0},
	}}

	path := writeRawPosts(t, []RawPost{
		{Question: "old", Answer: "seen before", SourceURL: "https://example.com/p/old", Score: 50},
		{Question: "q1", Answer: "a1", SourceURL: "https://example.com/p/1", Score: 9},
		{Question: "q2", Answer: "a2", SourceURL: "https://example.com/p/2", Score: 3},
		{Question: "q3", Answer: "a3", SourceURL: "https://example.com/p/3", Score: 1},
	})

	runner := NewRunner(Deps{
		Contextual:  store,
		Recipes:     &memoryRecipeStore{},
		Deduper:     dedupe.NewEngine(embedder, dedupe.DefaultParams()),
		Tagger:      tagging.NewTagger(tagging.DefaultParams()),
		Detector:    langdetect.NewDetector(),
		Embedder:    embedder,
		Store:       mocks.NewMockVectorStore(ctrl),
		Collection:  "cooking",
		RawDataPath: path,
	})

	if err := runner.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The stored URL is untouched, the near-duplicate pair keeps the higher
	// score, and the unique post survives: 1 seeded + 2 inserted.
	if len(store.entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(store.entries))
	}
	urls, _ := store.ListURLs(context.Background())
	if _, ok := urls["https://example.com/p/1"]; !ok {
		t.Error("cluster winner (score 9) must be inserted")
	}
	if _, ok := urls["https://example.com/p/2"]; ok {
		t.Error("cluster loser (score 3) must be dropped")
	}
	if _, ok := urls["https://example.com/p/3"]; !ok {
		t.Error("unique post must be inserted")
	}
}

func TestRunnerLoadClustersOnQuestionText(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := newMemoryContextualStore()
	embedder := &textEmbedder{vectors: map[string][]float32{
		"Why is my dal watery?": {1, 0},
	}}

	// Same question, different answers: both posts embed to the pinned
	// vector, so they must land in one cluster.
	path := writeRawPosts(t, []RawPost{
		{Question: "Why is my dal watery?", Answer: "Simmer longer.", SourceURL: "https://example.com/p/1", Score: 2},
		{Question: "Why is my dal watery?", Answer: "Add less water next time.", SourceURL: "https://example.com/p/2", Score: 7},
	})

	runner := NewRunner(Deps{
		Contextual:  store,
		Recipes:     &memoryRecipeStore{},
		Deduper:     dedupe.NewEngine(embedder, dedupe.DefaultParams()),
		Tagger:      tagging.NewTagger(tagging.DefaultParams()),
		Detector:    langdetect.NewDetector(),
		Embedder:    embedder,
		Store:       mocks.NewMockVectorStore(ctrl),
		Collection:  "cooking",
		RawDataPath: path,
	})

	if err := runner.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only the question text reaches the embedder; the answers stay out of
	// the similarity computation entirely.
	if len(embedder.calls) != 1 {
		t.Fatalf("got %d embed calls, want 1", len(embedder.calls))
	}
	for _, text := range embedder.calls[0] {
		if text != "Why is my dal watery?" {
			t.Errorf("embedded %q, want the bare question", text)
		}
	}

	if len(store.entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(store.entries))
	}
	if store.entries[0].Answer != "Add less water next time." {
		t.Errorf("kept answer %q, want the higher-scored post", store.entries[0].Answer)
	}
}

func TestRunnerLoadStoredPostAbsorbsFreshDuplicate(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := newMemoryContextualStore()
	_, err := store.InsertIfAbsent(context.Background(), &storage.ContextualEntry{
		Question:  "How long to soak rajma?",
		Answer:    "Overnight, at least eight hours.",
		SourceURL: "https://example.com/p/stored",
	})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}

	embedder := &textEmbedder{vectors: map[string][]float32{
		"How long to soak rajma?":        {1, 0},
		"How long should rajma be soaked": {1, 0.01},
	}}

	// The stored post re-appears in the batch next to a fresh rewording
	// under a new URL. The stored post wins its cluster, the guard skips
	// its URL, and the rewording never reaches storage.
	path := writeRawPosts(t, []RawPost{
		{Question: "How long to soak rajma?", Answer: "Overnight, at least eight hours.", SourceURL: "https://example.com/p/stored", Score: 40},
		{Question: "How long should rajma be soaked", Answer: "A few hours is fine.", SourceURL: "https://example.com/p/fresh", Score: 2},
	})

	runner := NewRunner(Deps{
		Contextual:  store,
		Recipes:     &memoryRecipeStore{},
		Deduper:     dedupe.NewEngine(embedder, dedupe.DefaultParams()),
		Tagger:      tagging.NewTagger(tagging.DefaultParams()),
		Detector:    langdetect.NewDetector(),
		Embedder:    embedder,
		Store:       mocks.NewMockVectorStore(ctrl),
		Collection:  "cooking",
		RawDataPath: path,
	})

	if err := runner.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.entries) != 1 {
		t.Fatalf("got %d entries, want only the seeded one", len(store.entries))
	}
	urls, _ := store.ListURLs(context.Background())
	if _, ok := urls["https://example.com/p/fresh"]; ok {
		t.Error("rewording of a stored question must not be inserted")
	}
}

func TestRunnerDetectLanguages(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := newMemoryContextualStore()
	ctx := context.Background()

	_, _ = store.InsertIfAbsent(ctx, &storage.ContextualEntry{
		Question:  "How do I stop my dosa from sticking to the pan?",
		Answer:    "Season the pan well and keep the heat medium.",
		SourceURL: "https://example.com/p/en",
	})
	_, _ = store.InsertIfAbsent(ctx, &storage.ContextualEntry{
		Question:  "Paneer kaise banate hain ghar par?",
		Answer:    "Doodh ko ubal kar nimbu daalo aur chhaan lo, thoda dabao.",
		SourceURL: "https://example.com/p/hien",
	})

	runner := NewRunner(Deps{
		Contextual: store,
		Recipes:    &memoryRecipeStore{},
		Deduper:    dedupe.NewEngine(&textEmbedder{}, dedupe.DefaultParams()),
		Tagger:     tagging.NewTagger(tagging.DefaultParams()),
		Detector:   langdetect.NewDetector(),
		Embedder:   &textEmbedder{},
		Store:      mocks.NewMockVectorStore(ctrl),
		Collection: "cooking",
	})

	if err := runner.DetectLanguages(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The English entry already carries the default "en" and is not rewritten.
	if lang, ok := store.languages[1]; ok {
		t.Errorf("english entry was rewritten to %q", lang)
	}
	if store.languages[2] != langdetect.LangHinglish {
		t.Errorf("language = %q, want %q", store.languages[2], langdetect.LangHinglish)
	}
}

func TestRunnerBuildIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := newMemoryContextualStore()
	ctx := context.Background()

	_, _ = store.InsertIfAbsent(ctx, &storage.ContextualEntry{
		Question:  "q1",
		Answer:    "a1",
		SourceURL: "https://example.com/p/1",
	})
	_, _ = store.InsertIfAbsent(ctx, &storage.ContextualEntry{
		Question:  "q2",
		Answer:    "a2",
		SourceURL: "https://example.com/p/2",
	})

	embedder := &textEmbedder{}
	vectorStore := mocks.NewMockVectorStore(ctrl)

	var captured []vectorstore.Point
	vectorStore.EXPECT().
		Upsert(gomock.Any(), "cooking", gomock.Any()).
		DoAndReturn(func(ctx context.Context, collection string, points []vectorstore.Point) error {
			captured = points
			return nil
		})

	runner := NewRunner(Deps{
		Contextual: store,
		Recipes:    &memoryRecipeStore{},
		Deduper:    dedupe.NewEngine(embedder, dedupe.DefaultParams()),
		Tagger:     tagging.NewTagger(tagging.DefaultParams()),
		Detector:   langdetect.NewDetector(),
		Embedder:   embedder,
		Store:      vectorStore,
		Collection: "cooking",
	})

	if err := runner.BuildIndex(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(captured) != 2 {
		t.Fatalf("got %d points, want 2", len(captured))
	}
	if captured[0].Meta["text_chunk"] != "Question: q1\nAnswer: a1" {
		t.Errorf("text_chunk = %q", captured[0].Meta["text_chunk"])
	}
	if captured[0].Meta["question"] != "q1" {
		t.Errorf("question meta = %q", captured[0].Meta["question"])
	}

	// The same URL always maps to the same point ID.
	again := pointID(store.entries[0])
	if captured[0].ID != again {
		t.Errorf("point ID not stable: %q vs %q", captured[0].ID, again)
	}
	if captured[0].ID == captured[1].ID {
		t.Error("different URLs must map to different point IDs")
	}
}
