package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	attuneErrors "github.com/attune-oss/attune/internal/errors"
	"github.com/attune-oss/attune/internal/memory"
	"github.com/attune-oss/attune/internal/store"
)

// --- Helpers ---

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	jsonResponse(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// statusFromError maps the error taxonomy to HTTP status codes.
func statusFromError(err error) int {
	switch attuneErrors.AsCode(err) {
	case attuneErrors.CodeNotFound:
		return http.StatusNotFound
	case attuneErrors.CodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	jsonError(w, statusFromError(err), err.Error())
}

// userID authenticates the request or writes a 401, returning ok=false.
func (s *Server) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := s.auth.Authenticate(r)
	if err != nil {
		jsonError(w, http.StatusUnauthorized, err.Error())
		return "", false
	}
	return id, true
}

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": s.cfg.Version,
		"name":    s.cfg.Name,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, s.metrics.GetSummary())
}

// --- Chat ---

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// handleChat runs one streaming turn. Validation happens before the first
// stream byte, so a missing or foreign conversation still gets a plain
// HTTP error instead of a broken event stream.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := s.orch.Prepare(userID, req.ConversationID, req.Content)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	turn.Attach(sse)

	if err := turn.Run(r.Context()); err != nil {
		s.logger.Warn("turn ended with error",
			"conversation_id", req.ConversationID, "error", err)
	}
}

// --- Agents ---

type createAgentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Persona     string `json:"persona"`
	ModelID     string `json:"model_id"`
}

func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	agents, err := s.store.ListAgents()
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, agents)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := s.store.GetAgent(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, agent)
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Persona == "" {
		jsonError(w, http.StatusBadRequest, "name and persona are required")
		return
	}
	if req.ModelID != "" {
		if _, err := s.store.GetModel(req.ModelID); err != nil {
			s.errorResponse(w, err)
			return
		}
	}

	agent := &store.Agent{
		Name:        req.Name,
		Description: req.Description,
		Persona:     req.Persona,
		ModelID:     req.ModelID,
	}
	if err := s.store.CreateAgent(agent); err != nil {
		s.errorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, agent)
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAgent(r.PathValue("id")); err != nil {
		s.errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Models ---

type createModelRequest struct {
	Provider    string `json:"provider"`
	ModelName   string `json:"model_name"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleListModels(w http.ResponseWriter, _ *http.Request) {
	models, err := s.store.ListModels()
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, models)
}

func (s *Server) handleCreateModel(w http.ResponseWriter, r *http.Request) {
	var req createModelRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Provider == "" || req.ModelName == "" {
		jsonError(w, http.StatusBadRequest, "provider and model_name are required")
		return
	}

	model := &store.Model{
		Provider:    req.Provider,
		ModelName:   req.ModelName,
		DisplayName: req.DisplayName,
	}
	if err := s.store.CreateModel(model); err != nil {
		s.errorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, model)
}

func (s *Server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteModel(r.PathValue("id")); err != nil {
		s.errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Conversations ---

type createConversationRequest struct {
	AgentID string `json:"agent_id"`
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	convs, err := s.store.ListConversations(userID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, convs)
}

// getOwnedConversation loads a conversation and hides other users' threads
// behind the same 404 as a missing one.
func (s *Server) getOwnedConversation(userID, id string) (*store.Conversation, error) {
	conv, err := s.store.GetConversation(id)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, attuneErrors.New(attuneErrors.CodeNotFound, "conversation not found: "+id)
	}
	return conv, nil
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	conv, err := s.getOwnedConversation(userID, r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, conv)
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var req createConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := s.store.GetAgent(req.AgentID); err != nil {
		s.errorResponse(w, err)
		return
	}

	conv := &store.Conversation{UserID: userID, AgentID: req.AgentID}
	if err := s.store.CreateConversation(conv); err != nil {
		s.errorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, conv)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	if _, err := s.getOwnedConversation(userID, r.PathValue("id")); err != nil {
		s.errorResponse(w, err)
		return
	}
	if err := s.store.DeleteConversation(r.PathValue("id")); err != nil {
		s.errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListMessages pages backwards through a conversation transcript.
// Query params: limit (default 50), before (message id cursor). The page
// itself is returned oldest-first.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	conv, err := s.getOwnedConversation(userID, r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			jsonError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}

	msgs, err := s.store.ListMessagesPage(conv.ID, limit, r.URL.Query().Get("before"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, msgs)
}

// --- Memories ---

type createMemoryRequest struct {
	Category string `json:"category"`
	Fact     string `json:"fact"`
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var categories []memory.Category
	if raw := r.URL.Query().Get("category"); raw != "" {
		cat := memory.Category(raw)
		if !memory.ValidCategory(raw) {
			jsonError(w, http.StatusBadRequest, "unknown category: "+raw)
			return
		}
		categories = []memory.Category{cat}
	}

	recs, err := s.memory.List(r.Context(), userID, categories)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, recs)
}

func (s *Server) handleSearchMemories(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		jsonError(w, http.StatusBadRequest, "q is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			jsonError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}

	results, err := s.memory.Search(r.Context(), userID, query, limit)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, results)
}

func (s *Server) handleCreateMemory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var req createMemoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := s.memory.Remember(r.Context(), userID, memory.Category(req.Category), req.Fact)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, rec)
}

func (s *Server) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	if err := s.memory.Forget(r.Context(), userID, r.PathValue("id")); err != nil {
		s.errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
