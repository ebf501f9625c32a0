package model

import "time"

// KnowledgeBase is the root of a team's folder tree. Created at team setup,
// deleted only with team teardown.
type KnowledgeBase struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TeamID      uint      `gorm:"not null;uniqueIndex" json:"team_id"`
	Name        string    `gorm:"size:256;not null" json:"name"`
	Description string    `gorm:"size:1024" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
