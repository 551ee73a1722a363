package jsonl

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter はリクエスト本文のトークン数をカウントする
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter は新しいTokenCounterを作成する
// cl100k_baseエンコーディングを使用する
func NewTokenCounter() (*TokenCounter, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}

	return &TokenCounter{encoding: encoding}, nil
}

// CountTokens はテキストのトークン数をカウントする
func (tc *TokenCounter) CountTokens(text string) int {
	if tc == nil || tc.encoding == nil {
		return EstimateTokens(text)
	}
	tokens := tc.encoding.Encode(text, nil, nil)
	return len(tokens)
}

// CountRequest はバッチリクエスト1件の全メッセージのトークン数を返す
func (tc *TokenCounter) CountRequest(req *BatchRequest) int {
	total := 0
	for _, msg := range req.Body.Messages {
		total += tc.CountTokens(msg.Content)
	}
	return total
}

// EstimateTokens はテキストの推定トークン数を返す
// エンコーディングが利用できない場合のフォールバック（文字数を基準）
func EstimateTokens(text string) int {
	return len([]rune(text)) / 3
}
