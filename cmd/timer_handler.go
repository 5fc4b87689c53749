package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"tomatoService/internal/auth"
	"tomatoService/internal/clock"
	"tomatoService/internal/history"
	"tomatoService/internal/platform"
)

const recentSegments = 10

type soundPlayer interface {
	PlaySound(ctx context.Context) error
}

// TimerHandler exposes the timer message protocol over HTTP
type TimerHandler struct {
	service  *clock.TimerService
	sound    soundPlayer
	recorder history.Recorder
}

func NewTimerHandler(service *clock.TimerService, sound soundPlayer, recorder history.Recorder) *TimerHandler {
	return &TimerHandler{service: service, sound: sound, recorder: recorder}
}

// StateResponse is the live view returned by GET /state
type StateResponse struct {
	State       clock.TimerState `json:"state"`
	RemainingMs int64            `json:"remainingMs"`
	Display     string           `json:"display"`
	Progress    float64          `json:"progress"`
}

// PlaySoundResponse answers a PLAY_SOUND message, which carries no state
type PlaySoundResponse struct {
	OK bool `json:"ok"`
}

// StatsResponse is returned by GET /stats
type StatsResponse struct {
	history.Summary
	Productivity float64               `json:"productivity"`
	Recent       []clock.SegmentRecord `json:"recent"`
}

type notificationClickRequest struct {
	ID string `json:"id" validate:"max=64"`
}

func (h *TimerHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var msg clock.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON", "Failed to parse message")
		return
	}

	if msg.Type == clock.MsgPlaySound {
		if err := h.sound.PlaySound(r.Context()); err != nil {
			log.Printf("Failed to play sound: %v", err)
			writeErrorResponse(w, http.StatusInternalServerError, "Failed to play sound", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, PlaySoundResponse{OK: true})
		return
	}

	if msg.Type != clock.MsgGetState {
		log.Printf("📨 %s from %s", msg.Type, requester(r))
	}

	state, err := h.service.HandleMessage(r.Context(), msg)
	if err != nil {
		log.Printf("Failed to handle %s: %v", msg.Type, err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clock.Response{State: state})
}

func (h *TimerHandler) GetState(w http.ResponseWriter, r *http.Request) {
	msg := clock.Message{Type: clock.MsgGetState}
	state, err := h.service.HandleMessage(r.Context(), msg)
	if err != nil {
		log.Printf("Failed to load state: %v", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(state))
}

func (h *TimerHandler) NotificationClick(w http.ResponseWriter, r *http.Request) {
	var req notificationClickRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON", "Failed to parse request body")
			return
		}
	}
	if err := validate.Struct(req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Validation error", validationMessage(err))
		return
	}

	// Clicks on other notifications are acknowledged but ignored
	if req.ID != "" && req.ID != platform.NotificationID {
		writeJSON(w, http.StatusOK, clock.Response{State: h.service.GetState()})
		return
	}

	state, err := h.service.HandleNotificationClick(r.Context())
	if err != nil {
		log.Printf("Failed to handle notification click: %v", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clock.Response{State: state})
}

func (h *TimerHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	summary, err := h.recorder.Summary(r.Context())
	if err != nil {
		log.Printf("Failed to load stats: %v", err)
		writeErrorResponse(w, http.StatusServiceUnavailable, "History unavailable", err.Error())
		return
	}
	recent, err := h.recorder.Recent(r.Context(), recentSegments)
	if err != nil {
		log.Printf("Failed to load recent segments: %v", err)
		writeErrorResponse(w, http.StatusServiceUnavailable, "History unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Summary:      summary,
		Productivity: summary.Productivity(),
		Recent:       recent,
	})
}

// snapshot is the first event sent to a new SSE client
func (h *TimerHandler) snapshot() any {
	return h.view(h.service.GetState())
}

func (h *TimerHandler) view(state clock.TimerState) StateResponse {
	now := h.service.Now()
	remaining := clock.RemainingMs(state, now)
	return StateResponse{
		State:       state,
		RemainingMs: remaining,
		Display:     clock.FormatDuration(remaining),
		Progress:    clock.CalculateProgress(state, now),
	}
}

// requester names the token subject, or "anonymous" when auth is off
func requester(r *http.Request) string {
	if subject, ok := auth.GetSubjectFromContext(r.Context()); ok && subject != "" {
		return subject
	}
	return "anonymous"
}

func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, platform.ErrStoreUnavailable) {
		writeErrorResponse(w, http.StatusServiceUnavailable, "Timer unavailable", err.Error())
		return
	}
	writeErrorResponse(w, http.StatusInternalServerError, "Timer error", err.Error())
}
