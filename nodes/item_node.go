package nodes

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"nearflow"
)

// ItemOperation runs a node's operation for one item and returns the fields
// to merge into the item's JSON.
type ItemOperation func(ctx context.Context, index int, item map[string]any) (map[string]any, error)

// ItemNode applies an operation to every item in shared state, in order.
// Failed items either abort the node or, with ContinueOnFail, are reported as
// error items appended after the processed ones.
type ItemNode struct {
	id             string
	op             ItemOperation
	ContinueOnFail bool
	log            zerolog.Logger
}

func NewItemNode(id string, op ItemOperation, continueOnFail bool, log zerolog.Logger) *ItemNode {
	return &ItemNode{
		id:             id,
		op:             op,
		ContinueOnFail: continueOnFail,
		log:            log.With().Str("node", id).Logger(),
	}
}

func (n *ItemNode) Name() string {
	return n.id
}

func (n *ItemNode) Run(ctx context.Context, shared map[string]any) (nearflow.NodeResult, error) {
	input, err := nearflow.EnsureItems(shared)
	if err != nil {
		return nil, err
	}

	items := make([]nearflow.Item, len(input))
	for i := range input {
		items[i] = input[i].Clone()
		if items[i].JSON == nil {
			items[i].JSON = make(map[string]any)
		}
	}

	var failed []nearflow.Item
	for idx := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if items[idx].Failed() {
			continue
		}

		snapshot := nearflow.CloneJSON(items[idx].JSON)
		out, err := n.op(ctx, idx, items[idx].JSON)
		if err != nil {
			wrapped := nearflow.WrapItemError(n.id, idx, err)
			if !n.ContinueOnFail {
				return nil, wrapped
			}
			var opErr *nearflow.NodeOperationError
			errors.As(wrapped, &opErr)
			n.log.Warn().Int("item", idx).Err(err).Msg("item failed, continuing")
			failed = append(failed, nearflow.Item{
				JSON:       snapshot,
				Error:      opErr,
				PairedItem: &nearflow.PairedItem{Item: idx},
			})
			continue
		}
		for k, v := range out {
			items[idx].JSON[k] = v
		}
		n.log.Debug().Int("item", idx).Msg("item processed")
	}

	// An attempt that outlived its deadline must not publish its items.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items = append(items, failed...)
	nearflow.SetItems(shared, items)
	return nearflow.ResultWithItems(nearflow.ActionNext, len(items)), nil
}
