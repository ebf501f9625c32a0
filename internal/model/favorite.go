package model

import "time"

type Favorite struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_fav_user_doc" json:"user_id"`
	DocumentID uint      `gorm:"not null;uniqueIndex:idx_fav_user_doc" json:"document_id"`
	TeamID     uint      `gorm:"not null;index" json:"team_id"`
	CreatedAt  time.Time `json:"created_at"`
}
