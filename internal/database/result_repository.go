package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/models"
)

// ResultRepository はゲーム結果関連のデータベース操作を定義するインターフェースです。
type ResultRepository interface {
	// CreateResult は新しいゲーム結果レコードを作成します
	CreateResult(tx *sql.Tx, userID string, score, maxChain int) (*models.Result, error)

	// GetTopResults は上位N件の結果を取得します（ランキング用）
	GetTopResults(limit int) ([]models.ResultResponse, error)

	// GetUserBestScore は指定したユーザーの最高スコアを取得します
	GetUserBestScore(userID string) (*models.Result, error)

	// GetUserRanking は指定したユーザーの現在のランキング順位を取得します
	GetUserRanking(userID string) (*models.ResultResponse, error)
}

// resultRepositoryImpl はResultRepositoryインターフェースの実装です。
type resultRepositoryImpl struct {
	db *sql.DB
}

// NewResultRepository はResultRepositoryの新しいインスタンスを作成します。
func NewResultRepository(db *sql.DB) ResultRepository {
	return &resultRepositoryImpl{db: db}
}

const insertResultQuery = "INSERT INTO results (user_id, score, max_chain, created_at) VALUES ($1, $2, $3, $4) RETURNING id"

// CreateResult は新しいゲーム結果レコードを作成します。tx が nil の場合はトランザクションを使いません。
func (r *resultRepositoryImpl) CreateResult(tx *sql.Tx, userID string, score, maxChain int) (*models.Result, error) {
	now := time.Now()
	var id int64

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRow(insertResultQuery, userID, score, maxChain, now)
	} else {
		row = r.db.QueryRow(insertResultQuery, userID, score, maxChain, now)
	}

	if err := row.Scan(&id); err != nil {
		return nil, fmt.Errorf("ゲーム結果レコードの作成に失敗しました: %w", err)
	}

	return &models.Result{
		ID:        id,
		UserID:    userID,
		Score:     score,
		MaxChain:  maxChain,
		CreatedAt: now,
	}, nil
}

// GetTopResults は上位N件の結果を取得します（ランキング用）。
func (r *resultRepositoryImpl) GetTopResults(limit int) ([]models.ResultResponse, error) {
	query := `
		SELECT
			id, user_id, score, max_chain, created_at,
			ROW_NUMBER() OVER (ORDER BY score DESC, created_at ASC) as rank
		FROM results
		ORDER BY score DESC, created_at ASC
		LIMIT $1
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("ゲーム結果取得に失敗しました: %w", err)
	}
	defer rows.Close()

	results := make([]models.ResultResponse, 0, limit)
	for rows.Next() {
		var result models.ResultResponse
		err := rows.Scan(&result.ID, &result.UserID, &result.Score, &result.MaxChain, &result.CreatedAt, &result.Rank)
		if err != nil {
			return nil, fmt.Errorf("ゲーム結果データのスキャンに失敗しました: %w", err)
		}
		results = append(results, result)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ゲーム結果取得中にエラーが発生しました: %w", err)
	}

	return results, nil
}

// GetUserBestScore は指定したユーザーの最高スコアを取得します。記録がなければ nil を返します。
func (r *resultRepositoryImpl) GetUserBestScore(userID string) (*models.Result, error) {
	query := `
		SELECT id, user_id, score, max_chain, created_at
		FROM results
		WHERE user_id = $1
		ORDER BY score DESC, created_at ASC
		LIMIT 1
	`

	var result models.Result
	err := r.db.QueryRow(query, userID).Scan(&result.ID, &result.UserID, &result.Score, &result.MaxChain, &result.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // ユーザーのスコアが存在しない場合はnilを返す
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの最高スコア取得に失敗しました: %w", err)
	}

	return &result, nil
}

// GetUserRanking は指定したユーザーの現在のランキング順位を取得します。
func (r *resultRepositoryImpl) GetUserRanking(userID string) (*models.ResultResponse, error) {
	bestScore, err := r.GetUserBestScore(userID)
	if err != nil {
		return nil, err
	}
	if bestScore == nil {
		return nil, nil // ユーザーのスコアが存在しない
	}

	// そのスコアより上にある記録の数で順位を決める
	query := `
		SELECT COUNT(*) + 1 as rank
		FROM results
		WHERE score > $1 OR (score = $1 AND created_at < $2)
	`

	var rank int
	if err := r.db.QueryRow(query, bestScore.Score, bestScore.CreatedAt).Scan(&rank); err != nil {
		return nil, fmt.Errorf("ユーザーランキング順位の計算に失敗しました: %w", err)
	}

	return &models.ResultResponse{
		ID:        bestScore.ID,
		UserID:    bestScore.UserID,
		Score:     bestScore.Score,
		MaxChain:  bestScore.MaxChain,
		CreatedAt: bestScore.CreatedAt,
		Rank:      rank,
	}, nil
}
