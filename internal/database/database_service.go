package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "github.com/lib/pq" // PostgreSQLドライバー
)

// Schema はアプリケーションが使用するテーブル定義です。起動時に何度適用しても問題ありません。
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id        UUID PRIMARY KEY,
	user_name TEXT
);

CREATE TABLE IF NOT EXISTS results (
	id         BIGSERIAL PRIMARY KEY,
	user_id    TEXT        NOT NULL,
	score      INTEGER     NOT NULL CHECK (score >= 0),
	max_chain  INTEGER     NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS results_score_idx ON results (score DESC, created_at ASC);
CREATE INDEX IF NOT EXISTS results_user_idx ON results (user_id);
`

// DatabaseService provides methods for interacting with the database.
type DatabaseService struct {
	DB *sql.DB
}

// NewDatabaseService creates a new instance of DatabaseService and establishes a database connection.
func NewDatabaseService(databaseURL string) (*DatabaseService, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL が空です")
	}
	log.Printf("データベース接続を試行中: URLの最初の50文字: %s...", databaseURL[:min(len(databaseURL), 50)]) // URLの冒頭をログ出力
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		log.Printf("DatabaseService Error: sql.Openに失敗しました: %v", err)
		return nil, fmt.Errorf("データベースへの接続オブジェクト作成に失敗しました: %w", err)
	}

	// データベース接続の確認 (Ping)
	if err := db.Ping(); err != nil {
		log.Printf("DatabaseService Error: db.Pingに失敗しました: %v", err)
		db.Close()
		return nil, fmt.Errorf("データベースのPingに失敗しました。接続情報やネットワークを確認してください: %w", err)
	}

	log.Println("データベースに正常に接続しました。")
	return &DatabaseService{DB: db}, nil
}

// ApplySchema はテーブル定義をデータベースに適用します。
func (s *DatabaseService) ApplySchema() error {
	if _, err := s.DB.Exec(Schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗しました: %w", err)
	}
	return nil
}

// Close はデータベース接続を閉じます。
func (s *DatabaseService) Close() error {
	return s.DB.Close()
}

// GetUserDisplayNameByUserID fetches the display name (user_name) for a given user ID (UUID).
// If the user doesn't exist or user_name is empty, returns "ゲスト".
func (s *DatabaseService) GetUserDisplayNameByUserID(userID string) string {
	var userName sql.NullString
	query := `SELECT user_name FROM users WHERE id = $1`
	err := s.DB.QueryRow(query, userID).Scan(&userName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("DatabaseService Info: ユーザーID %s が見つからないため、「ゲスト」を返します", userID)
			return "ゲスト"
		}
		log.Printf("DatabaseService Error: ユーザー名の取得に失敗しました: %v, 「ゲスト」を返します", err)
		return "ゲスト"
	}

	// user_nameがNULLまたは空文字列の場合も「ゲスト」を返す
	if !userName.Valid || userName.String == "" {
		return "ゲスト"
	}
	return userName.String
}
