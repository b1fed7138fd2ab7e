package nodes

import (
	"context"
	"errors"
	"reflect"

	"golang.org/x/sync/errgroup"

	"nearflow"
	"nearflow/utils"
)

// ParallelNode runs branch nodes concurrently, each on its own copy of the
// items and bounded by its own timeout attribute. The fields a branch adds
// or changes are merged into the items in branch order; fields it only
// carried over are left alone. Error items of the branches are appended
// after the items.
type ParallelNode struct {
	id       string
	branches []Node
	limit    int
}

// NewParallelNode runs at most limit branches at a time; zero means no limit.
func NewParallelNode(id string, limit int, branches ...Node) *ParallelNode {
	return &ParallelNode{id: id, branches: branches, limit: limit}
}

func (pn *ParallelNode) Name() string {
	return pn.id
}

func (pn *ParallelNode) Branches() []Node {
	return pn.branches
}

func (pn *ParallelNode) Run(ctx context.Context, shared map[string]any) (nearflow.NodeResult, error) {
	input, err := nearflow.EnsureItems(shared)
	if err != nil {
		return nil, err
	}

	results := make([][]nearflow.Item, len(pn.branches))
	group, ctx := errgroup.WithContext(ctx)
	if pn.limit > 0 {
		group.SetLimit(pn.limit)
	}
	for i, branch := range pn.branches {
		branchShared := copyShared(shared)
		nearflow.SetItems(branchShared, cloneItems(input))
		group.Go(func() error {
			branchCtx := ctx
			if aware, ok := branch.(AttributeAwareNode); ok && aware.Attributes().Timeout > 0 {
				var cancel context.CancelFunc
				branchCtx, cancel = context.WithTimeout(ctx, aware.Attributes().Timeout)
				defer cancel()
			}
			if _, err := branch.Run(branchCtx, branchShared); err != nil {
				return err
			}
			items, err := nearflow.ItemsFrom(branchShared)
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		var opErr *nearflow.NodeOperationError
		if errors.As(err, &opErr) {
			return nil, err
		}
		return nil, nearflow.NewNodeOperationError(pn.id, 0, err)
	}

	merged := cloneItems(input)
	var failed []nearflow.Item
	for _, items := range results {
		for idx, item := range items {
			if idx >= len(merged) {
				failed = append(failed, item)
				continue
			}
			changed := changedFields(input[idx].JSON, item.JSON)
			if len(changed) > 0 {
				merged[idx].JSON = utils.MergeMaps(merged[idx].JSON, changed)
			}
		}
	}
	merged = append(merged, failed...)
	nearflow.SetItems(shared, merged)
	return nearflow.ResultWithItems(nearflow.ActionNext, len(merged)), nil
}

// changedFields returns the fields of out that are new or differ from before,
// leaving out values a branch only carried over from its input copy.
func changedFields(before, out map[string]any) map[string]any {
	changed := make(map[string]any)
	for k, v := range out {
		if prev, ok := before[k]; ok && reflect.DeepEqual(prev, v) {
			continue
		}
		changed[k] = v
	}
	return changed
}

func copyShared(shared map[string]any) map[string]any {
	result := make(map[string]any, len(shared))
	for k, v := range shared {
		result[k] = v
	}
	return result
}

func cloneItems(items []nearflow.Item) []nearflow.Item {
	out := make([]nearflow.Item, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}

func init() {
	RegisterNode(NodeDefinition{
		ID:          "parallel",
		DisplayName: "Parallel",
		Description: "Runs previously declared nodes concurrently on copies of the items and merges their output.",
		Group:       "core",
		Example:     `node lookup = parallel balance status limit=2`,
	})
}
