package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// maxLineBytes はJSONL1行の上限サイズ
// バッチリクエストの本文は長いプロンプトを含みうる
const maxLineBytes = 4 << 20

// FileStats は入力ファイル検証の結果
type FileStats struct {
	// Requests はリクエスト行数
	Requests int
	// Tokens はメッセージ内容の合計トークン数（推定）
	Tokens int
}

// ValidateFile はバッチ入力JSONLファイルを検証し、統計を返す
//
// 各行が well-formed なバッチリクエストであること、custom_id が空でなく
// ファイル内で一意であることを確認する。counter が nil の場合は
// 文字数ベースの推定でトークン数を数える。
func ValidateFile(path string, counter *TokenCounter) (FileStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileStats{}, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	return validate(f, counter)
}

func validate(r io.Reader, counter *TokenCounter) (FileStats, error) {
	var stats FileStats
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req BatchRequest
		if err := json.Unmarshal(line, &req); err != nil {
			return stats, fmt.Errorf("line %d: invalid JSON: %w", lineNo, err)
		}

		if req.CustomID == "" {
			return stats, fmt.Errorf("line %d: custom_id is required", lineNo)
		}
		if _, dup := seen[req.CustomID]; dup {
			return stats, fmt.Errorf("line %d: duplicate custom_id %q", lineNo, req.CustomID)
		}
		seen[req.CustomID] = struct{}{}

		if req.Method != http.MethodPost {
			return stats, fmt.Errorf("line %d: method must be POST, got %q", lineNo, req.Method)
		}
		if req.URL == "" {
			return stats, fmt.Errorf("line %d: url is required", lineNo)
		}
		if len(req.Body.Messages) == 0 {
			return stats, fmt.Errorf("line %d: body.messages must not be empty", lineNo)
		}

		stats.Requests++
		stats.Tokens += counter.CountRequest(&req)
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read input file: %w", err)
	}

	if stats.Requests == 0 {
		return stats, fmt.Errorf("input file contains no requests")
	}

	return stats, nil
}
