package nodes

import (
	"context"

	"github.com/rs/zerolog"

	"nearflow"
)

// LoggerNode logs a message with selected fields of every item.
type LoggerNode struct {
	id      string
	Message string
	Fields  []string
	log     zerolog.Logger
}

func NewLoggerNode(id string, log zerolog.Logger, message string, fields ...string) *LoggerNode {
	return &LoggerNode{
		id:      id,
		Message: message,
		Fields:  fields,
		log:     log.With().Str("node", id).Logger(),
	}
}

func (ln *LoggerNode) Name() string {
	return ln.id
}

func (ln *LoggerNode) Run(ctx context.Context, shared map[string]any) (nearflow.NodeResult, error) {
	items, err := nearflow.ItemsFrom(shared)
	if err != nil {
		return nil, err
	}
	for idx, item := range items {
		event := ln.log.Info().Int("item", idx)
		for _, field := range ln.Fields {
			if val, ok := item.JSON[field]; ok {
				event = event.Interface(field, val)
			}
		}
		if item.Error != nil {
			event = event.Str("error", item.Error.Message)
		}
		event.Msg(ln.Message)
	}
	return nearflow.ResultWithItems(nearflow.ActionNext, len(items)), nil
}

func init() {
	RegisterNode(NodeDefinition{
		ID:          "logger",
		DisplayName: "Logger",
		Description: "Logs a message with selected fields of every item.",
		Group:       "core",
		Example:     `node debug = logger "balance" accountId formatted`,
	})
}
