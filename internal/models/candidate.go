package models

import "time"

type Candidate struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"type:text;not null" json:"name"`
	Email           string    `gorm:"type:text;index" json:"email"`
	Phone           string    `gorm:"type:text" json:"phone"`
	Location        string    `gorm:"type:text" json:"location"`
	ExperienceYears int       `gorm:"default:0" json:"experience_years"`
	TechnicalSkills string    `gorm:"type:text" json:"technical_skills"`
	SeniorityLevel  string    `gorm:"type:text" json:"seniority_level"`
	EducationLevel  string    `gorm:"type:text" json:"education_level"`
	CreatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Candidate) TableName() string {
	return "candidates"
}

type Job struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"type:text;not null" json:"title"`
	Department      string    `gorm:"type:text" json:"department"`
	Location        string    `gorm:"type:text" json:"location"`
	ExperienceLevel string    `gorm:"type:text" json:"experience_level"`
	Requirements    string    `gorm:"type:text" json:"requirements"`
	Description     string    `gorm:"type:text" json:"description"`
	Status          string    `gorm:"type:text;default:'active'" json:"status"`
	CreatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}
