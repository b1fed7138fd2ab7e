package nodes

import (
	"fmt"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"nearflow"
	"nearflow/kv"
	"nearflow/near"
)

// Node is an alias for the core workflow node interface.
type Node = nearflow.Node

// NodeConfig carries everything a catalog node may need to be built.
type NodeConfig struct {
	ID             string
	Params         map[string]string
	ContinueOnFail bool

	Connector *near.Connector
	Store     kv.KVStore
	OpenAI    *openai.Client
	Logger    zerolog.Logger
}

// NodeFactory builds a node from its configuration.
type NodeFactory func(cfg NodeConfig) (Node, error)

// BuildNode constructs a registered node by type.
func BuildNode(nodeType string, cfg NodeConfig) (Node, error) {
	def, ok := NodeDefinitionFor(nodeType)
	if !ok || def.Factory == nil {
		return nil, fmt.Errorf("unsupported node type %q", nodeType)
	}
	if cfg.ID == "" {
		cfg.ID = nodeType
	}
	return def.Factory(cfg)
}
