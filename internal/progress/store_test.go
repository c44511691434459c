package progress

import (
	"context"
	"reflect"
	"sync"
	"testing"
)

type memKV struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemKV() *memKV {
	return &memKV{m: make(map[string][]byte)}
}

func (kv *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.m[key]
	return v, ok, nil
}

func (kv *memKV) Set(_ context.Context, key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.m[key] = value
	return nil
}

func (kv *memKV) Del(_ context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.m, key)
	return nil
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(newMemKV())
	ctx := context.Background()

	state := NewState()
	state.SelectAnswer(1, "b")
	state.SelectAnswer(3, "a")
	state.ToggleBookmark(2)
	state.ToggleBookmark(7)
	state.Navigate(2, 9)

	if err := store.Save(ctx, "progress:user:42:mock-exam", state); err != nil {
		t.Fatal(err)
	}

	loaded, found, err := store.Load(ctx, "progress:user:42:mock-exam")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("saved progress not found")
	}
	if !reflect.DeepEqual(loaded.Answers, state.Answers) {
		t.Fatalf("answers = %v, want %v", loaded.Answers, state.Answers)
	}
	if !reflect.DeepEqual(loaded.Bookmarked, state.Bookmarked) {
		t.Fatalf("bookmarks = %v, want %v", loaded.Bookmarked, state.Bookmarked)
	}
	if loaded.CurrentIndex != 2 {
		t.Fatalf("current index = %d, want 2", loaded.CurrentIndex)
	}
}

func TestLoadReportsPresenceNotContent(t *testing.T) {
	kv := newMemKV()
	store := NewStore(kv)
	ctx := context.Background()

	// Absent key.
	if _, found, err := store.Load(ctx, "missing"); err != nil || found {
		t.Fatalf("absent: found=%v err=%v", found, err)
	}

	// A malformed document still counts as present, with no progress.
	_ = kv.Set(ctx, "broken", []byte("{not json"))
	state, found, err := store.Load(ctx, "broken")
	if err != nil || !found {
		t.Fatalf("malformed: found=%v err=%v", found, err)
	}
	if !state.IsEmpty() {
		t.Fatalf("malformed document loaded progress: %+v", state)
	}

	// An empty document is how a freshly opened session looks.
	_ = kv.Set(ctx, "empty", []byte(`{"answers":{},"current_index":0}`))
	if _, found, err := store.Load(ctx, "empty"); err != nil || !found {
		t.Fatalf("empty: found=%v err=%v", found, err)
	}
}

func TestClearYieldsNoProgress(t *testing.T) {
	store := NewStore(newMemKV())
	ctx := context.Background()

	state := NewState()
	state.SelectAnswer(1, "a")
	if err := store.Save(ctx, "k", state); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := store.Load(ctx, "k"); found {
		t.Fatal("progress still present after Clear")
	}
}

func TestSelectAnswerOverwrites(t *testing.T) {
	state := NewState()
	state.SelectAnswer(5, "a")
	state.SelectAnswer(5, "c")

	if got := state.Answers[5]; got != "c" {
		t.Fatalf("answer = %q, want overwrite to %q", got, "c")
	}
	if len(state.Answers) != 1 {
		t.Fatalf("answers map has %d entries, want 1", len(state.Answers))
	}
}

func TestToggleBookmark(t *testing.T) {
	state := NewState()
	state.ToggleBookmark(3)
	state.ToggleBookmark(1)
	if !reflect.DeepEqual(state.Bookmarked, []int{1, 3}) {
		t.Fatalf("bookmarks = %v, want [1 3]", state.Bookmarked)
	}

	state.ToggleBookmark(3)
	if !reflect.DeepEqual(state.Bookmarked, []int{1}) {
		t.Fatalf("bookmarks after untoggle = %v, want [1]", state.Bookmarked)
	}
}

func TestNavigateClamps(t *testing.T) {
	state := NewState()

	state.Navigate(-4, 9)
	if state.CurrentIndex != 0 {
		t.Fatalf("index = %d, want clamp to 0", state.CurrentIndex)
	}

	state.Navigate(50, 9)
	if state.CurrentIndex != 9 {
		t.Fatalf("index = %d, want clamp to 9", state.CurrentIndex)
	}

	state.Navigate(4, 9)
	if state.CurrentIndex != 4 {
		t.Fatalf("index = %d, want 4", state.CurrentIndex)
	}
}

func TestSlug(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Barrister Mock Exam — Set A", "barrister-mock-exam-set-a"},
		{"  Solicitor  FREE  ", "solicitor-free"},
		{"Exam #2 (2026)", "exam-2-2026"},
	}
	for _, tc := range tests {
		if got := Slug(tc.in); got != tc.want {
			t.Errorf("Slug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestKeysDifferPerActor(t *testing.T) {
	// Two actors on the same exam must never share a key fragment pair.
	slug := Slug("Barrister Mock Exam")
	a := "user:1:" + slug
	b := "user:2:" + slug
	g := "guest:3f1c:" + slug
	if a == b || a == g || b == g {
		t.Fatal("actor keys collide")
	}
}
