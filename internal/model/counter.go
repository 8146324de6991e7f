package model

import "time"

// Counter is a service desk offering appointments (Admissions, Fees, ...).
type Counter struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Number          int       `json:"number"`
	Department      string    `json:"department"`
	AssignedFaculty []int64   `json:"assigned_faculty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}
