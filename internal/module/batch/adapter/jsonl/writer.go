package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// WriteFile はバッチリクエスト列をJSONLファイルとして書き出す
func WriteFile(path string, requests []BatchRequest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create jsonl file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i := range requests {
		line, err := json.Marshal(&requests[i])
		if err != nil {
			return fmt.Errorf("failed to marshal request %d: %w", i, err)
		}
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("failed to write jsonl line: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write jsonl line: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush jsonl file: %w", err)
	}

	return nil
}
