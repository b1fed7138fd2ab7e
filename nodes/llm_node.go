package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"nearflow"
)

// LLMNodeConfig controls how the LLM is called.
type LLMNodeConfig struct {
	Name           string
	Model          string
	SystemPrompt   string
	InputKey       string
	OutputKey      string
	Temperature    float32
	MaxTokens      int
	Stop           []string
	ContinueOnFail bool
	Logger         zerolog.Logger
}

// DefaultLLMNodeConfig returns a starter config for a prompt-based node.
func DefaultLLMNodeConfig(prompt string) LLMNodeConfig {
	return LLMNodeConfig{
		Name:         "llm",
		Model:        openai.GPT3Dot5Turbo,
		SystemPrompt: prompt,
		InputKey:     "input",
		OutputKey:    "llm_output",
		Temperature:  0.5,
		MaxTokens:    256,
		Stop:         []string{},
		Logger:       zerolog.Nop(),
	}
}

// LLMNode sends a field of every item to OpenAI's chat completion API and
// stores the answer on the item.
type LLMNode struct {
	client *openai.Client
	cfg    LLMNodeConfig
	items  *ItemNode
}

func NewLLMNode(client *openai.Client, cfg LLMNodeConfig) *LLMNode {
	if cfg.Name == "" {
		cfg.Name = "llm-node"
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT3Dot5Turbo
	}
	if cfg.OutputKey == "" {
		cfg.OutputKey = "llm_output"
	}
	if cfg.InputKey == "" {
		cfg.InputKey = "input"
	}
	n := &LLMNode{client: client, cfg: cfg}
	n.items = NewItemNode(cfg.Name, n.complete, cfg.ContinueOnFail, cfg.Logger)
	return n
}

func (n *LLMNode) Name() string {
	return n.cfg.Name
}

func (n *LLMNode) Run(ctx context.Context, shared map[string]any) (nearflow.NodeResult, error) {
	return n.items.Run(ctx, shared)
}

func (n *LLMNode) complete(ctx context.Context, _ int, item map[string]any) (map[string]any, error) {
	input := promptInput(item[n.cfg.InputKey])
	if n.client == nil {
		return map[string]any{n.cfg.OutputKey: fmt.Sprintf("mock response for %s", input)}, nil
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: n.cfg.SystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: input},
	}
	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       n.cfg.Model,
		Messages:    messages,
		Temperature: n.cfg.Temperature,
		MaxTokens:   n.cfg.MaxTokens,
		Stop:        n.cfg.Stop,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM node %s call failed: %w", n.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM node %s returned empty choice list", n.Name())
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	return map[string]any{n.cfg.OutputKey: content}, nil
}

// promptInput renders strings as-is and anything else as JSON.
func promptInput(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func init() {
	RegisterNode(NodeDefinition{
		ID:          "llm",
		DisplayName: "LLM",
		Description: "Calls OpenAI via go-openai for every item; without an API key it produces a mock response.",
		Group:       "ai",
		Example:     `node explain = llm system="Summarize this NEAR balance" input=formatted output=summary`,
	})
}
