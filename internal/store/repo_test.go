package store

import (
	"testing"

	"github.com/memgate-labs/memgate/internal/config"
	"github.com/memgate-labs/memgate/internal/embedding"
)

const testDims = 64

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := OpenMemory(testDims)
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	embedCfg := config.EmbeddingConfig{Provider: "local", Dimensions: testDims}
	svc, err := embedding.NewService(embedCfg, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	return NewRepo(db, svc, config.RetrievalConfig{Scope: config.ScopeHybrid}, true, nil)
}

func TestSaveAndSearch(t *testing.T) {
	repo := newTestRepo(t)

	if _, err := repo.SaveDocument("My number is 9876543210.", "/tmp/contacts.txt"); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	if _, err := repo.SaveDocument("I earn $100k.", "/tmp/salary.txt"); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	results, err := repo.Search("number", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (lexical guardrail should drop the salary row): %v", len(results), results)
	}
	if results[0] != "My number is 9876543210." {
		t.Errorf("unexpected result: %q", results[0])
	}
}

func TestSaveEmptyText(t *testing.T) {
	repo := newTestRepo(t)
	m, err := repo.SaveUserFact("   \n\t  ", "")
	if err != nil {
		t.Fatalf("SaveUserFact: %v", err)
	}
	if m != nil {
		t.Error("whitespace-only fact should not be stored")
	}
	n, _ := repo.DB().Count("")
	if n != 0 {
		t.Errorf("store should be empty, has %d", n)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.SaveUserFact("something", ""); err != nil {
		t.Fatal(err)
	}
	results, err := repo.Search("   ", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("empty query should return empty results, got %v", results)
	}
}

func TestPersonalIntentRetrieval(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.SaveUserFact("JOHN DOE", "identity"); err != nil {
		t.Fatal(err)
	}
	results, err := repo.Search("what is my name", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0] != "JOHN DOE" {
		t.Errorf("name intent heuristic should surface the stored name, got %v", results)
	}
}

func TestScopeFactsOnly(t *testing.T) {
	db, err := OpenMemory(testDims)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	svc, _ := embedding.NewService(config.EmbeddingConfig{Provider: "local", Dimensions: testDims}, nil, nil)
	repo := NewRepo(db, svc, config.RetrievalConfig{Scope: config.ScopeFactsOnly}, true, nil)

	if _, err := repo.SaveDocument("coffee notes from a document", "/tmp/a.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.SaveUserFact("I like coffee", "prefs"); err != nil {
		t.Fatal(err)
	}

	results, err := repo.Search("coffee", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0] != "I like coffee" {
		t.Errorf("facts_only scope leaked documents: %v", results)
	}
}

func TestDeleteDocumentsBySource(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.SaveDocument("chunk one", "/home/u/notes/report.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.SaveDocument("chunk two", "/home/u/notes/report.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.SaveDocument("other file", "/home/u/notes/other.txt"); err != nil {
		t.Fatal(err)
	}

	// Deletion keys on basename, so a different directory with the same
	// file name is jointly matched.
	n, err := repo.DeleteDocumentsBySource("/elsewhere/report.txt")
	if err != nil {
		t.Fatalf("DeleteDocumentsBySource: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	remaining, _ := repo.DB().Count(SourceDocument)
	if remaining != 1 {
		t.Errorf("remaining = %d, want 1", remaining)
	}
}

func TestClearScopesBySource(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.SaveDocument("doc text", "/tmp/a.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.SaveUserFact("fact text", ""); err != nil {
		t.Fatal(err)
	}

	n, err := repo.ClearDocuments()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("ClearDocuments = %d, want 1", n)
	}
	facts, _ := repo.DB().Count(SourceUserFact)
	if facts != 1 {
		t.Error("ClearDocuments must not touch user facts")
	}

	// The store still accepts writes after a clear — schema survives.
	if _, err := repo.SaveDocument("fresh doc", "/tmp/b.txt"); err != nil {
		t.Errorf("store broken after clear: %v", err)
	}

	n, err = repo.ClearUserFacts()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("ClearUserFacts = %d, want 1", n)
	}
}

func TestRecent(t *testing.T) {
	repo := newTestRepo(t)
	for _, text := range []string{"first", "second", "third"} {
		if _, err := repo.SaveUserFact(text, ""); err != nil {
			t.Fatal(err)
		}
	}
	records, err := repo.Recent(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Text != "third" {
		t.Errorf("most recent first: got %q", records[0].Text)
	}
}

func TestLocalEmbeddingDeterminism(t *testing.T) {
	svc, _ := embedding.NewService(config.EmbeddingConfig{Provider: "local", Dimensions: testDims}, nil, nil)
	a, err := svc.Embed("the same input text")
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.Embed("the same input text")
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != testDims {
		t.Fatalf("dims = %d, want %d", len(a), testDims)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("local embedding not deterministic at index %d", i)
		}
	}
}
