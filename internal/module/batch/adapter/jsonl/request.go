package jsonl

// Message はチャット形式の1メッセージ
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RequestBody はバッチリクエストの本体
type RequestBody struct {
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	Messages    []Message `json:"messages"`
}

// BatchRequest はJSONLファイルの1行に対応するバッチリクエスト
// フォーマットはOpenAI Batch APIの入力仕様に準拠する
type BatchRequest struct {
	CustomID string      `json:"custom_id"`
	Method   string      `json:"method"`
	URL      string      `json:"url"`
	Body     RequestBody `json:"body"`
}
