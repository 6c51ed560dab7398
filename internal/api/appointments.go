package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gotodobbs/assistant/internal/appointment"
)

func handleCreateAppointment(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req appointment.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		rec, err := deps.Appointments.Create(req)
		if err != nil {
			var ve *appointment.ValidationError
			if errors.As(err, &ve) {
				httpFieldError(w, ve.Fields, "%s", ve.Error())
				return
			}
			deps.Logger.Error("creating appointment", "request_id", middleware.GetReqID(r.Context()), "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "Failed to create appointment")
			return
		}

		writeJSON(w, http.StatusCreated, rec)
	}
}

func handleListAppointments(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "limit must be a non-negative integer")
				return
			}
			limit = n
		}

		recs, err := deps.Appointments.List(limit)
		if err != nil {
			deps.Logger.Error("listing appointments", "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "Failed to fetch appointments")
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func handleGetAppointment(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := deps.Appointments.Get(chi.URLParam(r, "id"))
		if errors.Is(err, appointment.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "Appointment not found")
			return
		}
		if err != nil {
			deps.Logger.Error("loading appointment", "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "Failed to fetch appointment")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}
