package application

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/batchtrack/internal/module/batch/adapter/jsonl"
)

// writePrompts はテスト用のプロンプトファイルを作成する
func writePrompts(t *testing.T, lines string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "prompts.txt")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0644))
	return path
}

// readRequests は生成されたJSONLファイルを読み戻す
func readRequests(t *testing.T, path string) []jsonl.BatchRequest {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var requests []jsonl.BatchRequest
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var req jsonl.BatchRequest
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &req))
		requests = append(requests, req)
	}
	require.NoError(t, scanner.Err())
	return requests
}

func TestPreprocessor_Prepare_ChunksPrompts(t *testing.T) {
	// 5プロンプトをチャンクサイズ2で分割すると3ファイルになる
	prompts := writePrompts(t, "p1\np2\np3\np4\np5\n")
	outputDir := filepath.Join(t.TempDir(), "jobs")

	p := &Preprocessor{Model: "gpt-4o-mini", ChunkSize: 2}
	paths, err := p.Prepare(prompts, outputDir)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	assert.Equal(t, filepath.Join(outputDir, "job_0.jsonl"), paths[0])
	assert.Equal(t, filepath.Join(outputDir, "job_1.jsonl"), paths[1])
	assert.Equal(t, filepath.Join(outputDir, "job_2.jsonl"), paths[2])

	assert.Len(t, readRequests(t, paths[0]), 2)
	assert.Len(t, readRequests(t, paths[1]), 2)
	assert.Len(t, readRequests(t, paths[2]), 1)
}

func TestPreprocessor_Prepare_RequestShape(t *testing.T) {
	prompts := writePrompts(t, "こんにちは\n")
	outputDir := filepath.Join(t.TempDir(), "jobs")

	p := &Preprocessor{
		Model:        "gpt-4o-mini",
		SystemPrompt: "あなたは翻訳者です",
	}
	paths, err := p.Prepare(prompts, outputDir)
	require.NoError(t, err)
	require.Len(t, paths, 1)

	requests := readRequests(t, paths[0])
	require.Len(t, requests, 1)

	req := requests[0]
	assert.NotEmpty(t, req.CustomID)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, DefaultEndpoint, req.URL)
	assert.Equal(t, "gpt-4o-mini", req.Body.Model)
	assert.Zero(t, req.Body.Temperature)
	require.Len(t, req.Body.Messages, 2)
	assert.Equal(t, "system", req.Body.Messages[0].Role)
	assert.Equal(t, "あなたは翻訳者です", req.Body.Messages[0].Content)
	assert.Equal(t, "user", req.Body.Messages[1].Role)
	assert.Equal(t, "こんにちは", req.Body.Messages[1].Content)
}

func TestPreprocessor_Prepare_UniqueCustomIDs(t *testing.T) {
	prompts := writePrompts(t, "a\nb\nc\nd\ne\nf\n")
	outputDir := filepath.Join(t.TempDir(), "jobs")

	p := &Preprocessor{Model: "gpt-4o-mini", ChunkSize: 3}
	paths, err := p.Prepare(prompts, outputDir)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, path := range paths {
		for _, req := range readRequests(t, path) {
			assert.False(t, seen[req.CustomID], "custom_idはジョブ間でも一意")
			seen[req.CustomID] = true
		}
	}
	assert.Len(t, seen, 6)
}

func TestPreprocessor_Prepare_SkipsEmptyLines(t *testing.T) {
	prompts := writePrompts(t, "a\n\n\nb\n  \nc\n")
	outputDir := filepath.Join(t.TempDir(), "jobs")

	p := &Preprocessor{Model: "gpt-4o-mini"}
	paths, err := p.Prepare(prompts, outputDir)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Len(t, readRequests(t, paths[0]), 3)
}

func TestPreprocessor_Prepare_RefusesExistingOutputDir(t *testing.T) {
	// 送信済み入力の上書き防止
	prompts := writePrompts(t, "a\n")
	outputDir := t.TempDir()

	p := &Preprocessor{Model: "gpt-4o-mini"}
	_, err := p.Prepare(prompts, outputDir)
	assert.ErrorContains(t, err, "already exists")
}

func TestPreprocessor_Prepare_EmptyPromptsFile(t *testing.T) {
	prompts := writePrompts(t, "\n\n")
	outputDir := filepath.Join(t.TempDir(), "jobs")

	p := &Preprocessor{Model: "gpt-4o-mini"}
	_, err := p.Prepare(prompts, outputDir)
	assert.Error(t, err)
}
