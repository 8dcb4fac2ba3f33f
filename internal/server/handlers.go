package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/leonardotrapani/sttbridge/internal/pipeline"
	"github.com/leonardotrapani/sttbridge/internal/queue"
)

const rootBanner = "Speech-to-Text Backend is running."

type audioRequest struct {
	AudioChunk *string `json:"audio_chunk"`
}

type modeRequest struct {
	OnlineMode *bool `json:"online_mode"`
}

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type modeResponse struct {
	Status     string `json:"status"`
	OnlineMode bool   `json:"online_mode"`
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	if !s.controller.IsOnline() {
		s.writeError(w, http.StatusBadRequest, "Online mode is not active")
		return
	}

	var req audioRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.AudioChunk == nil || *req.AudioChunk == "" {
		s.writeError(w, http.StatusBadRequest, "No audio_chunk provided")
		return
	}

	chunk, err := base64.StdEncoding.DecodeString(*req.AudioChunk)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Error decoding audio data: %v", err))
		return
	}

	if err := s.controller.Submit(queue.Chunk(chunk)); err != nil {
		switch {
		case errors.Is(err, pipeline.ErrOffline):
			s.writeError(w, http.StatusBadRequest, "Online mode is not active")
		case errors.Is(err, queue.ErrQueueFull):
			s.logger.Warn("rejecting chunk, queue full", slog.Int("bytes", len(chunk)))
			s.writeError(w, http.StatusServiceUnavailable, "Audio queue is full")
		case errors.Is(err, queue.ErrEmptyChunk):
			s.writeError(w, http.StatusBadRequest, "No audio_chunk provided")
		default:
			s.logger.Error("failed to enqueue chunk", slog.Any("error", err))
			s.writeError(w, http.StatusInternalServerError, "Failed to enqueue audio chunk")
		}
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Status: "success", Message: "Audio chunk received"})
}

func (s *Server) handleTranscription(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.controller.Poll())
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.OnlineMode == nil {
		s.writeError(w, http.StatusBadRequest, "No online_mode provided")
		return
	}

	online := s.controller.SetOnline(*req.OnlineMode)
	s.writeJSON(w, http.StatusOK, modeResponse{Status: "success", OnlineMode: online})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, rootBanner)
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if s.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	}

	dec := json.NewDecoder(r.Body)
	err := dec.Decode(v)
	if err == nil {
		var extra json.RawMessage
		err = dec.Decode(&extra)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err == nil {
			err = errors.New("unexpected data after JSON value")
		}
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("Request body exceeds %d bytes", maxErr.Limit)
	}
	return fmt.Errorf("Invalid JSON body: %v", err)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, messageResponse{Status: "error", Message: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", slog.Int("status", status), slog.Any("error", err))
	}
}
