package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// DisplayNameFinder はユーザーIDから表示名を引く処理です。
type DisplayNameFinder interface {
	GetUserDisplayNameByUserID(userID string) string
}

// PublicHandler handles public API endpoints
type PublicHandler struct {
	names DisplayNameFinder
}

// NewPublicHandler creates a new instance of PublicHandler
func NewPublicHandler(names DisplayNameFinder) *PublicHandler {
	return &PublicHandler{
		names: names,
	}
}

func PublicHandlerFunc(w http.ResponseWriter, r *http.Request) {
	log.Println("Request to public endpoint: /api/public")
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "Hello, this is public content! (From /api/public)")
}

// GetUserDisplayNameHandler fetches the display name for a given user ID.
// GET /api/user/{userID}/display-name
func (h *PublicHandler) GetUserDisplayNameHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	if userID == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "ユーザーIDが指定されていません")
		return
	}

	response := map[string]string{
		"userID":      userID,
		"displayName": h.names.GetUserDisplayNameByUserID(userID),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("GetUserDisplayNameHandler: JSONエンコードエラー: %v", err)
	}
}
