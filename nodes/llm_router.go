package nodes

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"nearflow"
)

// LLMRouterConfig configures how a router turns LLM outputs into actions.
type LLMRouterConfig struct {
	Name        string
	Model       string
	Prompt      string
	Actions     []string
	InputKey    string
	Default     string
	Temperature float32
	MaxTokens   int
}

// LLMRouter asks the LLM which branch to execute next, based on a field of
// the first item that has not failed.
type LLMRouter struct {
	client *openai.Client
	cfg    LLMRouterConfig
}

func NewLLMRouter(client *openai.Client, cfg LLMRouterConfig) *LLMRouter {
	if cfg.Name == "" {
		cfg.Name = "llm-router"
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT3Dot5Turbo
	}
	if cfg.InputKey == "" {
		cfg.InputKey = "input"
	}
	if cfg.Default == "" && len(cfg.Actions) > 0 {
		cfg.Default = cfg.Actions[0]
	}
	return &LLMRouter{client: client, cfg: cfg}
}

func (lr *LLMRouter) Name() string {
	return lr.cfg.Name
}

func (lr *LLMRouter) Run(ctx context.Context, shared map[string]any) (nearflow.NodeResult, error) {
	if lr.client == nil {
		return nearflow.ResultWithAction(lr.cfg.Default), nil
	}
	items, err := nearflow.EnsureItems(shared)
	if err != nil {
		return nil, err
	}
	var input string
	for _, item := range items {
		if !item.Failed() {
			input = promptInput(item.JSON[lr.cfg.InputKey])
			break
		}
	}

	resp, err := lr.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: lr.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: lr.cfg.Prompt},
			{Role: openai.ChatMessageRoleUser, Content: input},
		},
		Temperature: lr.cfg.Temperature,
		MaxTokens:   lr.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM router %s call failed: %w", lr.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM router %s returned no choices", lr.Name())
	}

	answer := strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content))
	for _, action := range lr.cfg.Actions {
		if strings.Contains(answer, strings.ToLower(action)) {
			return nearflow.ResultWithAction(action), nil
		}
	}
	return nearflow.ResultWithAction(lr.cfg.Default), nil
}

func init() {
	RegisterNode(NodeDefinition{
		ID:          "llm_router",
		DisplayName: "LLM Router",
		Description: "Prompts an LLM to pick a named action from the supplied list; without an API key it picks the default.",
		Group:       "ai",
		Parameters: []ParameterDefinition{
			{Name: "actions", DisplayName: "Actions", Type: ParameterString, Required: true, Placeholder: "stake,hold"},
			{Name: "prompt", DisplayName: "Prompt", Type: ParameterString},
			{Name: "input", DisplayName: "Input Field", Type: ParameterString, Default: "input"},
			{Name: "default", DisplayName: "Default Action", Type: ParameterString},
			{Name: "model", DisplayName: "Model", Type: ParameterString},
		},
		Example: `node decide = llm_router actions=stake,hold prompt="Pick one" input=formatted`,
		Factory: func(cfg NodeConfig) (Node, error) {
			var actions []string
			for _, a := range strings.Split(cfg.Params["actions"], ",") {
				if a = strings.TrimSpace(a); a != "" {
					actions = append(actions, a)
				}
			}
			if len(actions) == 0 {
				return nil, fmt.Errorf("node %s: parameter \"actions\" is required", cfg.ID)
			}
			for name := range cfg.Params {
				switch name {
				case "actions", "prompt", "input", "default", "model":
				default:
					return nil, fmt.Errorf("node %s: unknown parameter %q", cfg.ID, name)
				}
			}
			return NewLLMRouter(cfg.OpenAI, LLMRouterConfig{
				Name:     cfg.ID,
				Model:    cfg.Params["model"],
				Prompt:   cfg.Params["prompt"],
				Actions:  actions,
				InputKey: cfg.Params["input"],
				Default:  cfg.Params["default"],
			}), nil
		},
	})
}
