package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Book represents one entry in the user's collection. Optional columns carry
// the nullzero tag so an empty value is stored as NULL and omitted from JSON,
// never written as an empty placeholder.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID              string    `bun:"id,pk" json:"id"`
	Title           string    `bun:"title,notnull" json:"title"`
	Author          string    `bun:"author,notnull" json:"author"`
	ISBN            string    `bun:"isbn,nullzero" json:"isbn,omitempty"`
	Year            string    `bun:"year,nullzero" json:"year,omitempty"`
	Genre           string    `bun:"genre,nullzero" json:"genre,omitempty"`
	Description     string    `bun:"description,nullzero" json:"description,omitempty"`
	CoverImageURL   string    `bun:"cover_image_url,nullzero" json:"coverImageUrl,omitempty"`
	AICoverImageURL string    `bun:"ai_cover_image_url,nullzero" json:"aiCoverImageUrl,omitempty"`
	VoiceURL        string    `bun:"voice_url,nullzero" json:"voiceUrl,omitempty"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt       time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}
