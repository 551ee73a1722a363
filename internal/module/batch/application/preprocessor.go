package application

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jinford/batchtrack/internal/module/batch/adapter/jsonl"
)

// DefaultChunkSize はジョブ1件あたりのリクエスト数
const DefaultChunkSize = 1000

// Preprocessor はプロンプト一覧をジョブ単位のJSONL入力ファイルへ分割する
// 各行は一意のcustom_idを持つチャット補完リクエストになる
type Preprocessor struct {
	// Model はリクエストに設定するモデル名
	Model string
	// SystemPrompt は全リクエスト共通のシステムプロンプト
	SystemPrompt string
	// ChunkSize はジョブ1件あたりの行数（0ならDefaultChunkSize）
	ChunkSize int
	// Endpoint はリクエストのurlフィールド（空ならDefaultEndpoint）
	Endpoint string
}

// Prepare はpromptsPathの各行を1リクエストとして読み込み、
// outputDir配下に job_<n>.jsonl として分割保存する。生成したファイルパスを返す。
//
// 既存ディレクトリへの上書きは拒否する（送信済み入力の破壊防止）。
func (p *Preprocessor) Prepare(promptsPath, outputDir string) ([]string, error) {
	if _, err := os.Stat(outputDir); err == nil {
		return nil, fmt.Errorf("output directory %s already exists", outputDir)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat output directory: %w", err)
	}

	prompts, err := readPromptLines(promptsPath)
	if err != nil {
		return nil, err
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("prompts file %s contains no prompts", promptsPath)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	chunkSize := p.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	endpoint := p.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	var paths []string
	for chunk := 0; chunk*chunkSize < len(prompts); chunk++ {
		start := chunk * chunkSize
		end := min(start+chunkSize, len(prompts))

		requests := make([]jsonl.BatchRequest, 0, end-start)
		for _, prompt := range prompts[start:end] {
			messages := []jsonl.Message{}
			if p.SystemPrompt != "" {
				messages = append(messages, jsonl.Message{Role: "system", Content: p.SystemPrompt})
			}
			messages = append(messages, jsonl.Message{Role: "user", Content: prompt})

			requests = append(requests, jsonl.BatchRequest{
				CustomID: uuid.New().String(),
				Method:   http.MethodPost,
				URL:      endpoint,
				Body: jsonl.RequestBody{
					Model:       p.Model,
					Temperature: 0,
					Messages:    messages,
				},
			})
		}

		path := filepath.Join(outputDir, fmt.Sprintf("job_%d.jsonl", chunk))
		if err := jsonl.WriteFile(path, requests); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// readPromptLines はプロンプトファイルを1行1プロンプトとして読み込む
// 空行は無視する
func readPromptLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open prompts file: %w", err)
	}
	defer f.Close()

	var prompts []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		prompts = append(prompts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	return prompts, nil
}
