package flows

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"nearflow"
	"nearflow/kv"
	"nearflow/near"
	"nearflow/nodes"
)

// DSLEnv holds the shared dependencies handed to nodes built from a script.
type DSLEnv struct {
	Connector *near.Connector
	Store     kv.KVStore
	OpenAI    *openai.Client
	// LLMModel is the model of llm nodes that do not name one.
	LLMModel string
	Logger   zerolog.Logger
}

type dslTransition struct {
	from   string
	action string
	to     string
}

type dslParser struct {
	env         DSLEnv
	nodes       map[string]Node
	order       []string
	branches    map[string]bool
	start       string
	transitions []dslTransition
	listeners   []dslTransition
}

// ParseFlowDSL builds a flow from a simple line-oriented DSL:
//
//	node <id> = <type> [positional...] [name=value...]
//	node <id> = parallel <branch-id>... [limit=N]
//	start <id>
//	connect <from> [action] <to>
//	listen <signal> <id>
func ParseFlowDSL(script string, env DSLEnv) (*Flow, error) {
	parser := &dslParser{
		env:      env,
		nodes:    make(map[string]Node),
		branches: make(map[string]bool),
	}
	if err := parser.parse(script); err != nil {
		return nil, err
	}
	return parser.build()
}

func (p *dslParser) parse(script string) error {
	scanner := bufio.NewScanner(strings.NewReader(script))
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		tokens, err := tokenizeLine(raw)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		if len(tokens) == 0 {
			continue
		}
		switch tokens[0] {
		case "node":
			err = p.parseNode(tokens)
		case "start":
			err = p.parseStart(tokens)
		case "connect":
			err = p.parseConnect(tokens)
		case "listen":
			err = p.parseListen(tokens)
		default:
			err = fmt.Errorf("unsupported directive %q", tokens[0])
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
	}
	return scanner.Err()
}

func (p *dslParser) parseNode(tokens []string) error {
	if len(tokens) < 4 || tokens[2] != "=" {
		return fmt.Errorf("invalid node definition, expected `node <id> = <type> ...`")
	}
	id := tokens[1]
	if _, exists := p.nodes[id]; exists {
		return fmt.Errorf("node %q already defined", id)
	}
	nodeType := tokens[3]
	args := tokens[4:]
	node, err := p.buildNode(id, nodeType, args)
	if err != nil {
		return fmt.Errorf("node %q: %w", id, err)
	}
	p.nodes[id] = node
	p.order = append(p.order, id)
	return nil
}

func (p *dslParser) parseListen(tokens []string) error {
	if len(tokens) != 3 {
		return fmt.Errorf("listen directive expects a signal and a node name")
	}
	p.listeners = append(p.listeners, dslTransition{action: tokens[1], to: tokens[2]})
	return nil
}

func (p *dslParser) parseStart(tokens []string) error {
	if len(tokens) != 2 {
		return fmt.Errorf("start directive expects a single node name")
	}
	p.start = tokens[1]
	return nil
}

func (p *dslParser) parseConnect(tokens []string) error {
	if len(tokens) < 3 {
		return fmt.Errorf("connect directive requires at least source and target node")
	}
	from := tokens[1]
	action := ""
	to := ""

	switch len(tokens) {
	case 3:
		to = tokens[2]
	case 4:
		if tokens[2] == "->" {
			to = tokens[3]
		} else {
			action = tokens[2]
			to = tokens[3]
		}
	case 5:
		if tokens[2] != "->" {
			return fmt.Errorf("unexpected connect syntax")
		}
		to = tokens[3]
		action = tokens[4]
	default:
		return fmt.Errorf("unexpected connect syntax")
	}

	if action == "" {
		action = nearflow.ActionNext
	}

	p.transitions = append(p.transitions, dslTransition{from: from, action: action, to: to})
	return nil
}

func (p *dslParser) build() (*Flow, error) {
	if len(p.nodes) == 0 {
		return nil, fmt.Errorf("no nodes defined in DSL")
	}

	start := p.start
	if start == "" {
		for _, id := range p.order {
			if !p.branches[id] {
				start = id
				break
			}
		}
	}
	if start == "" {
		return nil, fmt.Errorf("a start node must be declared")
	}

	startNode, err := p.lookup(start)
	if err != nil {
		return nil, fmt.Errorf("start node: %w", err)
	}

	builder := NewFlowBuilder(startNode)
	for _, id := range p.order {
		if id == start || p.branches[id] {
			continue
		}
		builder.Add(p.nodes[id])
	}

	for _, tr := range p.transitions {
		fromNode, err := p.lookup(tr.from)
		if err != nil {
			return nil, fmt.Errorf("transition from %w", err)
		}
		toNode, err := p.lookup(tr.to)
		if err != nil {
			return nil, fmt.Errorf("transition to %w", err)
		}
		if tr.action == "" {
			tr.action = nearflow.ActionNext
		}
		builder.Connect(fromNode, tr.action, toNode)
	}

	for _, l := range p.listeners {
		node, err := p.lookup(l.to)
		if err != nil {
			return nil, fmt.Errorf("listener %w", err)
		}
		builder.Listen(l.action, node)
	}

	return builder.Build(), nil
}

// lookup resolves a node that may be used in the flow graph.
func (p *dslParser) lookup(id string) (Node, error) {
	node, ok := p.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %q is not defined", id)
	}
	if p.branches[id] {
		return nil, fmt.Errorf("node %q is a parallel branch", id)
	}
	return node, nil
}

func (p *dslParser) buildNode(id, nodeType string, args []string) (Node, error) {
	positional, named := splitArgs(args)
	attrs, continueOnFail, err := nodes.TakeAttributes(named)
	if err != nil {
		return nil, err
	}

	var node Node
	switch nodeType {
	case "llm":
		node, err = p.buildLLM(id, positional, named, continueOnFail)
	case "logger":
		node, err = p.buildLogger(id, positional)
	case "delay":
		node, err = p.buildDelay(id, positional, named)
	case "set":
		node, err = buildSet(id, positional, named)
	case "kv_read", "kv_write":
		node, err = p.buildKV(id, nodeType, positional, named, continueOnFail)
	case "parallel":
		node, err = p.buildParallel(id, positional, named)
	default:
		if len(positional) > 0 {
			return nil, fmt.Errorf("%s takes only name=value parameters, got %q", nodeType, positional[0])
		}
		node, err = nodes.BuildNode(nodeType, nodes.NodeConfig{
			ID:             id,
			Params:         named,
			ContinueOnFail: continueOnFail,
			Connector:      p.env.Connector,
			Store:          p.env.Store,
			OpenAI:         p.env.OpenAI,
			Logger:         p.env.Logger,
		})
	}
	if err != nil {
		return nil, err
	}

	if attrs != (nodes.NodeAttributes{}) {
		node = nodes.WrapNodeWithAttributes(node, attrs)
	}
	return node, nil
}

func (p *dslParser) buildLLM(id string, positional []string, named map[string]string, continueOnFail bool) (Node, error) {
	cfg := nodes.DefaultLLMNodeConfig("")
	cfg.Name = id
	cfg.ContinueOnFail = continueOnFail
	cfg.Logger = p.env.Logger
	if p.env.LLMModel != "" {
		cfg.Model = p.env.LLMModel
	}

	if model, ok := named["model"]; ok && model != "" {
		cfg.Model = model
	}
	if system, ok := named["system"]; ok && system != "" {
		cfg.SystemPrompt = system
	}
	if system, ok := named["system_prompt"]; ok && system != "" {
		cfg.SystemPrompt = system
	}
	if prompt, ok := named["prompt"]; ok && prompt != "" && cfg.SystemPrompt == "" {
		cfg.SystemPrompt = prompt
	}
	if temp, ok := named["temperature"]; ok {
		parsed, err := strconv.ParseFloat(temp, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid temperature %q: %w", temp, err)
		}
		cfg.Temperature = float32(parsed)
	}
	if tokens, ok := named["max_tokens"]; ok {
		parsed, err := strconv.Atoi(tokens)
		if err != nil {
			return nil, fmt.Errorf("invalid max_tokens %q: %w", tokens, err)
		}
		cfg.MaxTokens = parsed
	}
	if input, ok := named["input"]; ok && input != "" {
		cfg.InputKey = input
	}
	if output, ok := named["output"]; ok && output != "" {
		cfg.OutputKey = output
	}

	if len(positional) > 0 && cfg.SystemPrompt == "" {
		cfg.SystemPrompt = positional[0]
	}

	return nodes.NewLLMNode(p.env.OpenAI, cfg), nil
}

func (p *dslParser) buildLogger(id string, args []string) (Node, error) {
	message := id
	var keys []string
	if len(args) > 0 {
		message = args[0]
		if len(args) > 1 {
			keys = args[1:]
		}
	}
	return nodes.NewLoggerNode(id, p.env.Logger, message, keys...), nil
}

// buildDelay accepts the duration positionally, as in `delay 500ms`.
func (p *dslParser) buildDelay(id string, positional []string, named map[string]string) (Node, error) {
	if len(positional) > 0 {
		named["duration"] = positional[0]
	}
	return nodes.BuildNode("delay", nodes.NodeConfig{ID: id, Params: named})
}

func buildSet(id string, positional []string, named map[string]string) (Node, error) {
	var key, value string
	if len(positional) >= 2 {
		key = positional[0]
		value = positional[1]
	} else {
		key = named["key"]
		value = named["value"]
	}

	if key == "" || value == "" {
		return nil, fmt.Errorf("set node requires key and value")
	}
	return nodes.NewSetNode(id, key, value), nil
}

func (p *dslParser) buildKV(id, nodeType string, positional []string, named map[string]string, continueOnFail bool) (Node, error) {
	if p.env.Store == nil {
		return nil, fmt.Errorf("%s requires a configured store", nodeType)
	}
	key := named["key"]
	field := named["field"]
	if len(positional) > 0 && key == "" {
		key = positional[0]
	}
	if len(positional) > 1 && field == "" {
		field = positional[1]
	}
	if key == "" {
		return nil, fmt.Errorf("%s requires a key", nodeType)
	}

	if nodeType == "kv_read" {
		if field == "" {
			return nil, fmt.Errorf("kv_read requires an output field")
		}
		return nodes.NewKVReadNode(id, p.env.Store, key, field, continueOnFail, p.env.Logger)
	}
	return nodes.NewKVWriteNode(id, p.env.Store, key, field, continueOnFail, p.env.Logger)
}

// buildParallel takes earlier nodes as branches. Branches leave the flow
// graph and only run inside the parallel node.
func (p *dslParser) buildParallel(id string, positional []string, named map[string]string) (Node, error) {
	if len(positional) == 0 {
		return nil, fmt.Errorf("parallel node requires at least one branch")
	}
	limit := 0
	for name, raw := range named {
		if name != "limit" {
			return nil, fmt.Errorf("parallel takes only the limit parameter, got %q", name)
		}
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("invalid limit %q", raw)
		}
		limit = parsed
	}
	branches := make([]Node, 0, len(positional))
	for _, ref := range positional {
		if p.branches[ref] {
			return nil, fmt.Errorf("node %q is already a parallel branch", ref)
		}
		if ref == p.start {
			return nil, fmt.Errorf("start node %q cannot be a parallel branch", ref)
		}
		branch, ok := p.nodes[ref]
		if !ok {
			return nil, fmt.Errorf("branch %q must be defined before the parallel node", ref)
		}
		branches = append(branches, branch)
	}
	for _, ref := range positional {
		p.branches[ref] = true
	}
	return nodes.NewParallelNode(id, limit, branches...), nil
}

func splitArgs(args []string) (positional []string, named map[string]string) {
	named = make(map[string]string)
	for _, arg := range args {
		if idx := strings.Index(arg, "="); idx >= 0 {
			named[arg[:idx]] = arg[idx+1:]
			continue
		}
		positional = append(positional, arg)
	}
	return positional, named
}

func tokenizeLine(line string) ([]string, error) {
	var tokens []string
	var buf strings.Builder
	inQuote := false
	escaping := false

	for _, r := range line {
		switch {
		case escaping:
			buf.WriteRune(r)
			escaping = false
		case r == '\\':
			escaping = true
		case r == '"':
			if inQuote {
				tokens = append(tokens, buf.String())
				buf.Reset()
			}
			inQuote = !inQuote
		case unicode.IsSpace(r) && !inQuote:
			if buf.Len() > 0 {
				tokens = append(tokens, buf.String())
				buf.Reset()
			}
		default:
			buf.WriteRune(r)
		}
	}

	if escaping {
		return nil, fmt.Errorf("unfinished escape sequence")
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quoted string")
	}

	if buf.Len() > 0 {
		tokens = append(tokens, buf.String())
	}

	return tokens, nil
}
