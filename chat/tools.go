package chat

import (
	"context"
	"encoding/json"
	"strings"

	"bitwise74/labyrinth-api/llm"
	"bitwise74/labyrinth-api/model"
	"bitwise74/labyrinth-api/search"
	"bitwise74/labyrinth-api/stock"
	"bitwise74/labyrinth-api/validators"

	"go.uber.org/zap"
)

const (
	ToolNone     = "none"
	ToolSearch   = "search"
	ToolRetrieve = "retrieve"
	ToolStock    = "stock"
)

const plannerPrompt = `You decide which single tool, if any, helps answer the user's latest message.

Tools:
- search: search the web. Set "query" to a concise search query.
- retrieve: read the content of one specific URL the user gave. Set "url".
- stock: show historical stock prices and a chart. Use it for ANY question about stocks, stock prices or stock charts. Set "symbol" (e.g. AAPL), optionally "compare_symbols" and "interval" (one of 1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max).
- none: answer directly.

Only choose from the tools listed in the schema. Always fill every field, use an empty string or an empty list for the ones the chosen tool doesn't need.`

// plan is the planner output
type plan struct {
	Tool           string   `json:"tool"`
	Query          string   `json:"query"`
	URL            string   `json:"url"`
	Symbol         string   `json:"symbol"`
	CompareSymbols []string `json:"compare_symbols"`
	Interval       string   `json:"interval"`
}

func planSchema(tools []string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tool":            map[string]any{"type": "string", "enum": tools},
			"query":           map[string]any{"type": "string"},
			"url":             map[string]any{"type": "string"},
			"symbol":          map[string]any{"type": "string"},
			"compare_symbols": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"interval":        map[string]any{"type": "string"},
		},
		"required":             []string{"tool", "query", "url", "symbol", "compare_symbols", "interval"},
		"additionalProperties": false,
	}
}

func (o *Orchestrator) availableTools(req *Request) []string {
	tools := []string{ToolNone}
	if req.SearchMode && o.search != nil {
		tools = append(tools, ToolSearch, ToolRetrieve)
	}
	if o.stock != nil {
		tools = append(tools, ToolStock)
	}

	return tools
}

// planTool asks the planner for a tool. Any failure means no tool.
func (o *Orchestrator) planTool(ctx context.Context, req *Request, question string) plan {
	tools := o.availableTools(req)
	if len(tools) == 1 || o.planner == nil {
		return plan{Tool: ToolNone}
	}

	raw, err := o.planner.GenerateJSON(ctx, llm.JSONRequest{
		System:      plannerPrompt,
		Prompt:      question,
		SchemaName:  "tool_choice",
		Schema:      planSchema(tools),
		Temperature: 0,
	})
	if err != nil {
		zap.L().Warn("Tool planning failed", zap.String("chatID", req.ID), zap.Error(err))
		return plan{Tool: ToolNone}
	}

	var p plan
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		zap.L().Warn("Tool planning returned invalid JSON", zap.String("chatID", req.ID), zap.Error(err))
		return plan{Tool: ToolNone}
	}

	for _, t := range tools {
		if p.Tool == t {
			return p
		}
	}

	return plan{Tool: ToolNone}
}

// runTool executes p and returns the invocation to record, nil for no tool
func (o *Orchestrator) runTool(ctx context.Context, req *Request, p plan, question string) *model.ToolInvocation {
	inv := &model.ToolInvocation{
		ToolCallID: o.newID(),
		ToolName:   p.Tool,
		State:      "result",
	}

	switch p.Tool {
	case ToolSearch:
		sr := validators.SearchRequest{Query: strings.TrimSpace(p.Query)}
		if sr.Query == "" {
			sr.Query = question
		}

		args := map[string]any{"query": sr.Query}
		inv.Args = args

		if err := validators.SearchValidator(&sr); err != nil {
			inv.Result = search.ErrorResults(sr.Query, err)
			break
		}

		args["max_results"] = sr.MaxResults
		args["search_depth"] = sr.SearchDepth
		inv.Result = o.search.Search(ctx, sr)

	case ToolRetrieve:
		inv.Args = map[string]any{"url": p.URL}
		inv.Result = o.search.Retrieve(ctx, p.URL)

	case ToolStock:
		interval := p.Interval
		if !stock.ValidInterval(interval) {
			interval = stock.DefaultInterval
		}

		inv.Args = map[string]any{"symbol": p.Symbol, "interval": interval, "compare_symbols": p.CompareSymbols}

		if !req.StockMode {
			inv.Result = &model.StockResult{Content: stock.DisabledMessage}
			break
		}

		symbols, err := validators.SymbolsValidator(p.Symbol, strings.Join(p.CompareSymbols, ","))
		if err != nil {
			inv.Result = &model.StockResult{Content: "Failed to get stock data: " + err.Error()}
			break
		}

		inv.Result = o.stock.Chart(ctx, symbols, interval)

	default:
		return nil
	}

	return inv
}

// toolContext renders a tool result for the answering model
func toolContext(inv *model.ToolInvocation) string {
	if inv == nil {
		return ""
	}

	raw, err := json.Marshal(inv.Result)
	if err != nil {
		return ""
	}

	return "\n\nThe " + inv.ToolName + " tool returned the following result, use it to answer and cite sources where possible:\n" + string(raw)
}
