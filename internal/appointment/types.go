// Package appointment accepts, validates and looks up appointment requests
// submitted from the chat widget.
package appointment

import (
	"strings"
	"time"

	"github.com/gotodobbs/assistant/internal/storage"
)

// LeadExportJobType is the job queue type for mirroring a new appointment
// into the leads file.
const LeadExportJobType = "lead_export"

// Request is the create payload. Field names follow the widget's camelCase
// JSON. Either Phone or all of Location, ServiceType, PreferredDate and
// PreferredTime must be present.
type Request struct {
	Name          string `json:"name"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	Location      string `json:"location,omitempty"`
	ServiceType   string `json:"serviceType,omitempty"`
	PreferredDate string `json:"preferredDate,omitempty"`
	PreferredTime string `json:"preferredTime,omitempty"`
	VehicleMake   string `json:"vehicleMake,omitempty"`
	VehicleModel  string `json:"vehicleModel,omitempty"`
	VehicleYear   string `json:"vehicleYear,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// Record is an accepted appointment as returned to clients.
type Record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Request
}

func (r Request) trimmed() Request {
	t := strings.TrimSpace
	return Request{
		Name:          t(r.Name),
		Phone:         t(r.Phone),
		Email:         t(r.Email),
		Location:      t(r.Location),
		ServiceType:   t(r.ServiceType),
		PreferredDate: t(r.PreferredDate),
		PreferredTime: t(r.PreferredTime),
		VehicleMake:   t(r.VehicleMake),
		VehicleModel:  t(r.VehicleModel),
		VehicleYear:   t(r.VehicleYear),
		Notes:         t(r.Notes),
	}
}

// document returns the non-empty fields keyed by their JSON names, the shape
// the schema validates.
func (r Request) document() map[string]any {
	doc := map[string]any{}
	for k, v := range map[string]string{
		"name":          r.Name,
		"phone":         r.Phone,
		"email":         r.Email,
		"location":      r.Location,
		"serviceType":   r.ServiceType,
		"preferredDate": r.PreferredDate,
		"preferredTime": r.PreferredTime,
		"vehicleMake":   r.VehicleMake,
		"vehicleModel":  r.VehicleModel,
		"vehicleYear":   r.VehicleYear,
		"notes":         r.Notes,
	} {
		if v != "" {
			doc[k] = v
		}
	}
	return doc
}

// FromStorage converts a stored row into a Record.
func FromStorage(a storage.Appointment) Record {
	return Record{
		ID:        a.ID,
		CreatedAt: a.CreatedAt.UTC(),
		Request: Request{
			Name:          a.Name,
			Phone:         a.Phone,
			Email:         a.Email,
			Location:      a.Location,
			ServiceType:   a.ServiceType,
			PreferredDate: a.PreferredDate,
			PreferredTime: a.PreferredTime,
			VehicleMake:   a.VehicleMake,
			VehicleModel:  a.VehicleModel,
			VehicleYear:   a.VehicleYear,
			Notes:         a.Notes,
		},
	}
}

func (r Record) toStorage() storage.Appointment {
	return storage.Appointment{
		ID:            r.ID,
		CreatedAt:     r.CreatedAt,
		Name:          r.Name,
		Phone:         r.Phone,
		Email:         r.Email,
		Location:      r.Location,
		ServiceType:   r.ServiceType,
		PreferredDate: r.PreferredDate,
		PreferredTime: r.PreferredTime,
		VehicleMake:   r.VehicleMake,
		VehicleModel:  r.VehicleModel,
		VehicleYear:   r.VehicleYear,
		Notes:         r.Notes,
	}
}
