package entities

import "time"

type Recording struct {
	Location        string    `json:"location" gorm:"type:varchar(1024);primaryKey"`
	DurationSeconds int64     `json:"duration_seconds" gorm:"type:bigint;not null;default:0"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Recording) TableName() string {
	return "recordings"
}
