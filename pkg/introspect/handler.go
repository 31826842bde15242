package introspect

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/mnohosten/laura-db/pkg/storage"
)

// Handler is an HTTP handler serving the introspection schema over POST.
type Handler struct {
	schema graphql.Schema
}

// NewHandler builds a Handler over sm's container statistics.
func NewHandler(sm *storage.StorageManager) (*Handler, error) {
	schema, err := Schema(sm)
	if err != nil {
		return nil, err
	}
	return &Handler{schema: schema}, nil
}

type request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "introspection endpoint only accepts POST requests", http.StatusMethodNotAllowed)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
