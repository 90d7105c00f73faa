package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/api/handlers"
	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/services/puyo"
)

// Dependencies はルーターが使うサービス群です。
// Results と Names が nil の場合、対応するエンドポイントは登録されません。
type Dependencies struct {
	Sessions       *puyo.SessionManager
	Results        database.ResultRepository
	Names          handlers.DisplayNameFinder
	JWTSecret      string
	BypassAuth     bool
	AllowedOrigins []string
}

// NewRouter はすべてのHTTP/WebSocketエンドポイントを登録したハンドラーを返します。
//
// Parameters:
//   deps : ハンドラーが使うサービスと認証設定
// Returns:
//   http.Handler: CORS ミドルウェアを適用済みのルーター
func NewRouter(deps Dependencies) http.Handler {
	r := mux.NewRouter()

	// 認証不要な公開エンドポイント
	r.HandleFunc("/api/public", handlers.PublicHandlerFunc).Methods(http.MethodGet)

	gameHandler := handlers.NewGameHandler(deps.Sessions, deps.JWTSecret, deps.BypassAuth)
	r.HandleFunc("/api/rooms/{roomID}", gameHandler.GetRoomStatus).Methods(http.MethodGet)
	// WebSocketは接続後の認証メッセージで認証する
	r.HandleFunc("/ws/{roomID}", gameHandler.HandleWebSocketConnection)

	// 認証が必要なルート
	protectedRouter := r.PathPrefix("/api/rooms").Subrouter()
	protectedRouter.Use(middleware.AuthMiddleware(deps.JWTSecret, deps.BypassAuth))
	protectedRouter.HandleFunc("", gameHandler.CreateRoom).Methods(http.MethodPost)

	if deps.Results != nil {
		resultHandler := handlers.NewResultHandler(deps.Results)
		r.HandleFunc("/api/results", resultHandler.GetTopResults).Methods(http.MethodGet)
		r.HandleFunc("/api/results", resultHandler.PostScore).Methods(http.MethodPost)
		r.HandleFunc("/api/results/user/{userID}", resultHandler.GetUserResult).Methods(http.MethodGet)
	}
	if deps.Names != nil {
		publicHandler := handlers.NewPublicHandler(deps.Names)
		r.HandleFunc("/api/user/{userID}/display-name", publicHandler.GetUserDisplayNameHandler).Methods(http.MethodGet)
	}

	return middleware.CORSHandler(deps.AllowedOrigins)(r)
}
