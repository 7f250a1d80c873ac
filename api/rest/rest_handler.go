package rest

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/service"
)

type Handler struct {
	Service *service.Service
	logger  *zap.Logger
}

func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{Service: svc, logger: logger}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type boardLayersResponse struct {
	BoardId string               `json:"boardId"`
	Layers  []service.LayerEntry `json:"layers"`
}

func (h *Handler) HandleBoardLayers(w http.ResponseWriter, r *http.Request) {
	boardId, ok := h.boardId(w, r)
	if !ok {
		return
	}
	if _, ok := h.authenticate(w, r); !ok {
		return
	}

	layers, err := h.Service.BoardLayers(r.Context(), boardId)
	if err != nil {
		h.logger.Error("load board layers failed", zap.String("boardId", boardId), zap.Error(err))
		http.Error(w, "failed to load board", http.StatusInternalServerError)
		return
	}

	h.sendResponse(w, boardLayersResponse{BoardId: boardId, Layers: layers})
}

type boardPresenceResponse struct {
	BoardId      string                 `json:"boardId"`
	Participants []models.OtherPresence `json:"participants"`
}

func (h *Handler) HandleBoardPresence(w http.ResponseWriter, r *http.Request) {
	boardId, ok := h.boardId(w, r)
	if !ok {
		return
	}
	if _, ok := h.authenticate(w, r); !ok {
		return
	}

	participants, err := h.Service.BoardPresence(r.Context(), boardId)
	if err != nil {
		h.logger.Error("load board presence failed", zap.String("boardId", boardId), zap.Error(err))
		http.Error(w, "failed to load presence", http.StatusInternalServerError)
		return
	}

	h.sendResponse(w, boardPresenceResponse{BoardId: boardId, Participants: participants})
}

type deleteBoardResponse struct {
	Success bool `json:"success"`
}

func (h *Handler) HandleDeleteBoard(w http.ResponseWriter, r *http.Request) {
	boardId, ok := h.boardId(w, r)
	if !ok {
		return
	}
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteBoard(r.Context(), boardId, user); err != nil {
		h.logger.Error("delete board failed", zap.String("boardId", boardId), zap.Error(err))
		http.Error(w, "failed to delete board", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	h.sendResponse(w, deleteBoardResponse{Success: true})
}

func (h *Handler) boardId(w http.ResponseWriter, r *http.Request) (string, bool) {
	boardId := r.PathValue("id")
	if err := service.ValidateBoardId(boardId); err != nil {
		http.Error(w, "invalid board id", http.StatusBadRequest)
		return "", false
	}
	return boardId, true
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, err := h.Service.AuthenticateToken(r.Context(), h.getTokenFromAuthHeader(r))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return models.User{}, false
	}
	return user, true
}

func (h *Handler) sendResponse(w http.ResponseWriter, resp any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *Handler) getTokenFromAuthHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return ""
	}
	return strings.TrimPrefix(authHeader, prefix)
}
