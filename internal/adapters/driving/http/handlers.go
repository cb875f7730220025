package http

import (
	"encoding/json"
	"net/http"

	"github.com/cdm-corpus/corpus/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"unresolved symbol"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// ObjectResponse represents a resolved definition.
// @Description Resolved definition summary
type ObjectResponse struct {
	DeclaredPath string `json:"declaredPath"`
	ObjectType   string `json:"objectType"`
}

// RelationshipResponse represents one entity-to-entity relationship.
// @Description Entity relationship
type RelationshipResponse struct {
	FromEntity        string `json:"fromEntity"`
	FromAttribute     string `json:"fromAttribute"`
	ToEntity          string `json:"toEntity"`
	ToAttribute       string `json:"toAttribute"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// handleHealth godoc
// @Summary      Health check
// @Description  Pings the distributed lock, if one is configured; no storage namespace is pinged
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.corpus.Healthy(r.Context(), nil); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleVersion godoc
// @Summary      Version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// handleFetchObject godoc
// @Summary      Fetch a declared object by corpus path
// @Tags         Objects
// @Produce      json
// @Param        path  path  string  true  "corpus path"
// @Success      200  {object}  ObjectResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /objects/{path} [get]
func (s *Server) handleFetchObject(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	def, err := s.corpus.FetchObject(r.Context(), path, nil, false)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, ObjectResponse{
		DeclaredPath: def.DeclaredPath,
		ObjectType:   def.ObjectType().String(),
	})
}

// handleCalculateEntityGraph godoc
// @Summary      Extract relationships for every entity in a manifest
// @Tags         Manifests
// @Produce      json
// @Param        path  path  string  true  "manifest corpus path"
// @Success      202  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /manifests/{path} [post]
func (s *Server) handleCalculateEntityGraph(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if err := s.corpus.CalculateEntityGraph(r.Context(), path); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusAccepted, StatusResponse{Status: "ok"})
}

// handleIncomingRelationships godoc
// @Summary      List relationships pointing at an entity
// @Tags         Relationships
// @Produce      json
// @Param        entity  path  string  true  "logical entity path"
// @Success      200  {array}  RelationshipResponse
// @Router       /relationships/incoming/{entity} [get]
func (s *Server) handleIncomingRelationships(w http.ResponseWriter, r *http.Request) {
	entity := r.PathValue("entity")
	writeJSON(w, http.StatusOK, toRelationshipResponses(s.corpus.FetchIncomingRelationships(entity)))
}

// handleOutgoingRelationships godoc
// @Summary      List relationships originating from an entity
// @Tags         Relationships
// @Produce      json
// @Param        entity  path  string  true  "logical entity path"
// @Success      200  {array}  RelationshipResponse
// @Router       /relationships/outgoing/{entity} [get]
func (s *Server) handleOutgoingRelationships(w http.ResponseWriter, r *http.Request) {
	entity := r.PathValue("entity")
	writeJSON(w, http.StatusOK, toRelationshipResponses(s.corpus.FetchOutgoingRelationships(entity)))
}

func toRelationshipResponses(rels []*domain.Relationship) []RelationshipResponse {
	out := make([]RelationshipResponse, 0, len(rels))
	for _, rel := range rels {
		out = append(out, RelationshipResponse{
			FromEntity:    rel.FromEntity,
			FromAttribute: rel.FromAttribute,
			ToEntity:      rel.ToEntity,
			ToAttribute:   rel.ToAttribute,
		})
	}
	return out
}
