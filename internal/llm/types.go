package llm

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest contains the parameters for an LLM completion request.
// Pointer options are sent only when set so that an explicit zero reaches
// the server.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature *float64
	Seed        *int
	KeepAlive   *int
}

// CompletionResponse contains the result of an LLM completion request.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// Deterministic returns req with temperature 0, seed 42 and keep_alive 0.
func Deterministic(req CompletionRequest) CompletionRequest {
	temp, seed, keep := 0.0, 42, 0
	req.Temperature = &temp
	req.Seed = &seed
	req.KeepAlive = &keep
	return req
}
