package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// StickerKind says how a sticker was created.
type StickerKind string

const (
	// StickerKindImage is a sticker loaded from a file, URL or data URI.
	StickerKindImage StickerKind = "image"
	// StickerKindText is a sticker rendered from a caption.
	StickerKindText StickerKind = "text"
)

// Sticker is a catalog entry. Source is anything the sticker loader accepts.
type Sticker struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Kind       StickerKind `json:"kind"`
	Source     string      `json:"-"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Thumbnail  []byte      `json:"-"`
	CreatedAt  time.Time   `json:"created_at"`
	LastUsedAt *time.Time  `json:"last_used_at,omitempty"`
}

// StickerRepository provides CRUD operations for stickers.
type StickerRepository struct {
	db *sql.DB
}

// Stickers returns the sticker repository for this store.
func (s *Store) Stickers() *StickerRepository {
	return &StickerRepository{db: s.db}
}

// Create inserts a new sticker, assigning an ID if it has none.
func (r *StickerRepository) Create(st *Sticker) error {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.Kind == "" {
		st.Kind = StickerKindImage
	}
	st.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO stickers (id, name, kind, source, width, height, thumbnail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.Name, string(st.Kind), st.Source, st.Width, st.Height, st.Thumbnail, st.CreatedAt,
	)
	return err
}

// GetByID retrieves a sticker, including its source and thumbnail.
func (r *StickerRepository) GetByID(id string) (*Sticker, error) {
	st := &Sticker{}
	var kind string
	var lastUsed sql.NullTime

	err := r.db.QueryRow(
		`SELECT id, name, kind, source, width, height, thumbnail, created_at, last_used_at
		 FROM stickers WHERE id = ?`,
		id,
	).Scan(&st.ID, &st.Name, &kind, &st.Source, &st.Width, &st.Height, &st.Thumbnail, &st.CreatedAt, &lastUsed)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	st.Kind = StickerKind(kind)
	if lastUsed.Valid {
		st.LastUsedAt = &lastUsed.Time
	}
	return st, nil
}

// List retrieves all stickers, most recently used first and then newest
// first. Sources and thumbnails are left out.
func (r *StickerRepository) List() ([]*Sticker, error) {
	rows, err := r.db.Query(
		`SELECT id, name, kind, width, height, created_at, last_used_at
		 FROM stickers
		 ORDER BY last_used_at IS NULL, last_used_at DESC, created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stickers := []*Sticker{}
	for rows.Next() {
		st := &Sticker{}
		var kind string
		var lastUsed sql.NullTime

		if err := rows.Scan(&st.ID, &st.Name, &kind, &st.Width, &st.Height, &st.CreatedAt, &lastUsed); err != nil {
			return nil, err
		}

		st.Kind = StickerKind(kind)
		if lastUsed.Valid {
			st.LastUsedAt = &lastUsed.Time
		}
		stickers = append(stickers, st)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stickers, nil
}

// Thumbnail returns the stored WebP thumbnail of a sticker. A sticker saved
// without one yields an empty slice.
func (r *StickerRepository) Thumbnail(id string) ([]byte, error) {
	var thumb []byte
	err := r.db.QueryRow(`SELECT thumbnail FROM stickers WHERE id = ?`, id).Scan(&thumb)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return thumb, nil
}

// Touch records that a sticker was just put on screen.
func (r *StickerRepository) Touch(id string) error {
	result, err := r.db.Exec(`UPDATE stickers SET last_used_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Delete removes a sticker from the database by its ID.
func (r *StickerRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM stickers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
