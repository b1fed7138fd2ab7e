package nodes

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parameters every node accepts besides its own.
const (
	ParamContinueOnFail = "continue_on_fail"
	ParamRetries        = "retries"
	ParamRetryDelay     = "retry_delay"
	ParamTimeout        = "timeout"
)

// NodeAttributes are the execution rules a flow applies around a node.
type NodeAttributes struct {
	// RetryAttempts is the number of reruns after a failed attempt.
	RetryAttempts int
	// RetryDelay is the pause before the first retry; later retries back off
	// exponentially.
	RetryDelay time.Duration
	// Timeout bounds a single attempt. Zero means no limit.
	Timeout time.Duration
}

// TakeAttributes removes the common parameters from params and returns the
// attributes and continue-on-fail flag they describe.
func TakeAttributes(params map[string]string) (NodeAttributes, bool, error) {
	var attrs NodeAttributes
	continueOnFail := false

	if raw, ok := params[ParamContinueOnFail]; ok {
		continueOnFail = ParseBool(raw)
		delete(params, ParamContinueOnFail)
	}
	if raw, ok := params[ParamRetries]; ok {
		retries, err := strconv.Atoi(raw)
		if err != nil || retries < 0 {
			return attrs, false, fmt.Errorf("invalid retries %q", raw)
		}
		attrs.RetryAttempts = retries
		delete(params, ParamRetries)
	}
	for name, target := range map[string]*time.Duration{
		ParamRetryDelay: &attrs.RetryDelay,
		ParamTimeout:    &attrs.Timeout,
	} {
		raw, ok := params[name]
		if !ok {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return attrs, false, fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
		if d < 0 {
			return attrs, false, fmt.Errorf("invalid %s %q: negative duration", name, raw)
		}
		*target = d
		delete(params, name)
	}
	return attrs, continueOnFail, nil
}

// ParseBool reads the loose boolean forms used in scripts.
func ParseBool(raw string) bool {
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// AttributeAwareNode is a node carrying NodeAttributes.
type AttributeAwareNode interface {
	Node
	Attributes() NodeAttributes
}

// WrapNodeWithAttributes attaches attrs to node. Nodes that already carry
// attributes are returned unchanged.
func WrapNodeWithAttributes(node Node, attrs NodeAttributes) Node {
	if node == nil {
		return nil
	}
	if _, ok := node.(AttributeAwareNode); ok {
		return node
	}
	return &attributedNode{Node: node, attrs: attrs}
}

type attributedNode struct {
	Node
	attrs NodeAttributes
}

func (a *attributedNode) Attributes() NodeAttributes {
	return a.attrs
}
