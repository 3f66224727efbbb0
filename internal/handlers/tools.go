package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/datec-bo/facturaflow/internal/middleware"
	"github.com/datec-bo/facturaflow/internal/tools"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

type toolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// listTools returns the registered tool names and descriptions
func (r *Router) listTools(w http.ResponseWriter, req *http.Request) {
	registered := r.registry.List()
	infos := make([]toolInfo, 0, len(registered))
	for _, t := range registered {
		infos = append(infos, toolInfo{Name: t.Name, Description: t.Description})
	}
	respondJSON(w, http.StatusOK, infos)
}

// executeTool runs one tool. The body is the tool's parameter object; the
// response is always the tool envelope, whatever the outcome.
func (r *Router) executeTool(w http.ResponseWriter, req *http.Request) {
	name := mux.Vars(req)["name"]

	body, err := io.ReadAll(req.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	result := r.executor.Execute(req.Context(), &tools.ExecutionContext{
		ToolName:  name,
		Params:    json.RawMessage(body),
		AgentID:   agentID(req),
		IPAddress: req.RemoteAddr,
	})

	respondJSON(w, http.StatusOK, result)
}

// agentID pulls the caller identity from the validated JWT claims
func agentID(req *http.Request) string {
	claims, ok := req.Context().Value(middleware.AgentContextKey).(jwt.MapClaims)
	if !ok {
		return ""
	}
	if id, ok := claims["agent_id"].(string); ok {
		return id
	}
	return ""
}
