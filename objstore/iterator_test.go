package objstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestObjectIterator_WalksAllPages(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if _, err := client.PutObject(ctx, fmt.Sprintf("it/%d", i), []byte("x"), PutOptions{}); err != nil {
			t.Fatal(err)
		}
	}

	it := client.Objects(ctx, "it/", 3)
	defer it.Close()

	var keys []string
	for it.Next() {
		keys = append(keys, it.Summary().Key)
	}
	if err := it.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if len(keys) != 7 {
		t.Errorf("walked %d keys, want 7: %v", len(keys), keys)
	}
	if it.Pages() != 3 {
		t.Errorf("Pages = %d, want 3", it.Pages())
	}
	// Exhausted iterators stay exhausted.
	if it.Next() {
		t.Error("Next() returned true after exhaustion")
	}
}

func TestObjectIterator_EmptyListing(t *testing.T) {
	_, client := newTestClient(t)

	it := client.Objects(context.Background(), "nothing/", 0)
	defer it.Close()

	if it.Next() {
		t.Error("Next() = true on empty listing")
	}
	if err := it.Err(); err != nil {
		t.Errorf("Err = %v", err)
	}
}

func TestObjectIterator_CloseStopsIteration(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := client.PutObject(ctx, fmt.Sprintf("c/%d", i), []byte("x"), PutOptions{}); err != nil {
			t.Fatal(err)
		}
	}

	it := client.Objects(ctx, "c/", 0)
	if !it.Next() {
		t.Fatal("expected at least one object")
	}
	if err := it.Close(); err != nil {
		t.Fatal(err)
	}
	if it.Next() {
		t.Error("Next() = true after Close()")
	}
	// Close is idempotent.
	if err := it.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestObjectIterator_SurfacesListError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "<Error><Code>AccessDenied</Code></Error>", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	client, err := New(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	it := client.Objects(context.Background(), "", 0)
	if it.Next() {
		t.Error("Next() = true on failing provider")
	}
	if !errors.Is(it.Err(), ErrList) {
		t.Errorf("Err = %v, want ErrList", it.Err())
	}
}

func TestObjectIterator_CountsSkippedEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, `<ListBucketResult>`+
			`<IsTruncated>false</IsTruncated>`+
			`<Contents><Key>ok</Key><Size>5</Size><ETag>"e"</ETag>`+
			`<LastModified>2026-01-01T00:00:00Z</LastModified></Contents>`+
			`<Contents><Key>broken</Key></Contents>`+
			`</ListBucketResult>`)
	}))
	t.Cleanup(srv.Close)

	client, err := New(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	stats, err := client.Stats(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if stats.ObjectCount != 1 {
		t.Errorf("ObjectCount = %d, want 1", stats.ObjectCount)
	}
	if stats.SkippedEntries != 1 {
		t.Errorf("SkippedEntries = %d, want 1", stats.SkippedEntries)
	}
}
