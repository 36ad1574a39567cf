package store

import (
	"bytes"
	"errors"
	"testing"
)

func TestStickerRepository_Create(t *testing.T) {
	s := newTestStore(t)
	repo := s.Stickers()

	st := &Sticker{
		Name:      "heart",
		Source:    "/tmp/heart.png",
		Width:     300,
		Height:    240,
		Thumbnail: []byte("RIFF....WEBP"),
	}
	if err := repo.Create(st); err != nil {
		t.Fatalf("failed to create sticker: %v", err)
	}

	if st.ID == "" {
		t.Error("Create should assign an ID")
	}
	if st.Kind != StickerKindImage {
		t.Errorf("Kind = %q, want image by default", st.Kind)
	}
	if st.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set after create")
	}

	got, err := repo.GetByID(st.ID)
	if err != nil {
		t.Fatalf("failed to get sticker: %v", err)
	}
	if got.Name != st.Name || got.Source != st.Source || got.Width != 300 || got.Height != 240 {
		t.Errorf("GetByID() = %+v, want %+v", got, st)
	}
	if !bytes.Equal(got.Thumbnail, st.Thumbnail) {
		t.Error("thumbnail should round trip")
	}
	if got.LastUsedAt != nil {
		t.Error("a new sticker has not been used")
	}
}

func TestStickerRepository_NotFound(t *testing.T) {
	repo := newTestStore(t).Stickers()

	tests := []struct {
		name string
		call func() error
	}{
		{"get", func() error { _, err := repo.GetByID("nope"); return err }},
		{"thumbnail", func() error { _, err := repo.Thumbnail("nope"); return err }},
		{"touch", func() error { return repo.Touch("nope") }},
		{"delete", func() error { return repo.Delete("nope") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrNotFound) {
				t.Errorf("error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStickerRepository_ListOrder(t *testing.T) {
	s := newTestStore(t)
	repo := s.Stickers()

	list, err := repo.List()
	if err != nil {
		t.Fatal(err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("empty catalog should list as an empty slice, got %v", list)
	}

	var ids []string
	for _, name := range []string{"first", "second", "third"} {
		st := &Sticker{Name: name, Kind: StickerKindText, Source: "data:image/webp;base64,AA=="}
		if err := repo.Create(st); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, st.ID)
	}

	if err := repo.Touch(ids[0]); err != nil {
		t.Fatal(err)
	}

	list, err = repo.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("List() returned %d stickers, want 3", len(list))
	}
	if list[0].ID != ids[0] || list[0].LastUsedAt == nil {
		t.Errorf("recently used sticker should come first, got %q", list[0].Name)
	}
	for _, st := range list {
		if st.Source != "" || st.Thumbnail != nil {
			t.Errorf("List() should leave out source and thumbnail for %q", st.Name)
		}
		if st.Kind != StickerKindText {
			t.Errorf("Kind = %q, want text", st.Kind)
		}
	}
}

func TestStickerRepository_Delete(t *testing.T) {
	repo := newTestStore(t).Stickers()

	st := &Sticker{Name: "gone", Source: "x.png"}
	if err := repo.Create(st); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(st.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(st.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
}
