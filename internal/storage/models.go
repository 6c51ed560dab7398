package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Appointment is a stored appointment request. Optional fields are empty
// strings when the customer left them blank.
type Appointment struct {
	ID            string
	CreatedAt     time.Time
	Name          string
	Phone         string
	Email         string
	Location      string
	ServiceType   string
	PreferredDate string
	PreferredTime string
	VehicleMake   string
	VehicleModel  string
	VehicleYear   string
	Notes         string
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}

// JobCounts is the number of jobs in each status.
type JobCounts map[string]int
