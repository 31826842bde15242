package adminserver

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("adminserver: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"ok": false, "error": message})
}

func writeSuccess(w http.ResponseWriter, result interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "result": result})
}

func containerIDParam(r *http.Request) (uint16, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(id), nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]interface{}{
		"uptime_seconds": time.Since(s.startTime).Seconds(),
	})
}

func (s *Server) handleListContainers(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]interface{}{"containers": s.sm.ContainerIDs()})
}

func (s *Server) handleCreateContainer(w http.ResponseWriter, r *http.Request) {
	id, err := containerIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid container id")
		return
	}
	if err := s.sm.CreateContainer(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeSuccess(w, map[string]interface{}{"id": id})
}

func (s *Server) handleRemoveContainer(w http.ResponseWriter, r *http.Request) {
	id, err := containerIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid container id")
		return
	}
	if err := s.sm.RemoveContainer(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeSuccess(w, map[string]interface{}{"id": id})
}

func (s *Server) handleContainerStats(w http.ResponseWriter, r *http.Request) {
	id, err := containerIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid container id")
		return
	}
	numPages, reads, writes, err := s.sm.ContainerStats(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeSuccess(w, map[string]interface{}{
		"id":        id,
		"num_pages": numPages,
		"reads":     reads,
		"writes":    writes,
	})
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if err := s.sm.Shutdown(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeSuccess(w, map[string]interface{}{"shutdown": true})
}
