package main

import (
	"fmt"
	"log"

	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/database"
)

// データベースへの接続確認とスキーマ適用を行うコマンドです。
//   go run .
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("エラー: 設定の読み込みに失敗しました: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("エラー: DATABASE_URL 環境変数が設定されていません。")
	}

	fmt.Println("テスト開始: データベース接続を試行中...")
	dbService, err := database.NewDatabaseService(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("エラー: %v", err)
	}
	defer dbService.Close() // 関数終了時に接続を閉じる

	fmt.Println("成功: データベースに正常に接続し、Pingが成功しました！")

	if err := dbService.ApplySchema(); err != nil {
		log.Fatalf("エラー: %v", err)
	}
	fmt.Println("成功: results テーブルのスキーマを適用しました。")

	// テストとして簡単なクエリを実行してみる
	var version string
	if err := dbService.DB.QueryRow("SELECT version()").Scan(&version); err != nil {
		log.Printf("警告: SELECT version() クエリの実行に失敗しました: %v", err)
	} else {
		fmt.Printf("データベースバージョン: %s\n", version)
	}

	var count int
	if err := dbService.DB.QueryRow("SELECT COUNT(*) FROM results").Scan(&count); err != nil {
		log.Printf("警告: results テーブルの件数取得に失敗しました: %v", err)
	} else {
		fmt.Printf("保存済みのゲーム結果: %d 件\n", count)
	}
}
