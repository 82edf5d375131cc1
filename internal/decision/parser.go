// Package decision extracts a structured final decision from free-form
// model output. The algorithm is a fixed two-phase repair: local syntactic
// cleanup first, then exactly one model-assisted fix, never more. The bound
// keeps latency and cost predictable.
package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/SPYQWER1/aiagents-stock/internal/llm"
)

const jsonFixPersona = "你是一个 JSON 格式修复专家。"

const jsonFixPromptTpl = `下面这段文本本应是一个合法的 JSON 对象，但解析失败了。

【解析错误】
%s

【原始输出】
%s

请修复其中的格式问题（引号、逗号、括号等），只输出修复后的 JSON 对象本身，不要输出任何解释。`

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// fullwidth and curly quote variants that models emit in Chinese output
var quoteNormalizer = strings.NewReplacer(
	"“", `"`, // “
	"”", `"`, // ”
	"＂", `"`, // ＂
	"‘", `'`, // ‘
	"’", `'`, // ’
)

// Parser turns raw decision text into a structured map.
type Parser struct {
	gateway llm.Gateway
}

func NewParser(gateway llm.Gateway) *Parser {
	return &Parser{gateway: gateway}
}

// Parse never fails: if the text cannot be parsed even after one repair
// call, it degrades to {"decision_text": raw, "error": <parse error>}.
func (p *Parser) Parse(ctx context.Context, raw string) map[string]any {
	decision, parseErr := extractJSON(raw)
	if parseErr == nil {
		return decision
	}

	// Local cleanup first, no network call yet.
	decision, cleanErr := extractJSON(cleanup(raw))
	if cleanErr == nil {
		return decision
	}
	log.Printf("decision: first parse attempt failed: %v", parseErr)

	repaired, repairErr := p.repair(ctx, raw, parseErr)
	if repairErr != nil {
		log.Printf("decision: repair call failed: %v", repairErr)
		return fallback(raw, parseErr)
	}

	decision, err := extractJSON(repaired)
	if err == nil {
		return decision
	}
	decision, err = extractJSON(cleanup(repaired))
	if err == nil {
		return decision
	}
	log.Printf("decision: repaired output still unparseable: %v", err)
	return fallback(raw, parseErr)
}

// repair makes the single bounded model-assisted fix attempt.
func (p *Parser) repair(ctx context.Context, raw string, parseErr error) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(jsonFixPersona),
		schema.UserMessage(fmt.Sprintf(jsonFixPromptTpl, parseErr.Error(), raw)),
	}
	// Low temperature to keep the fix literal.
	return p.gateway.Generate(ctx, messages, llm.GenerateOptions{Temperature: 0.1, MaxTokens: 2000})
}

// extractJSON parses the outermost brace-delimited object in text.
func extractJSON(text string) (map[string]any, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object found in output")
	}

	var decision map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &decision); err != nil {
		return nil, fmt.Errorf("parse decision JSON: %w", err)
	}
	return decision, nil
}

func cleanup(text string) string {
	text = quoteNormalizer.Replace(text)
	return trailingCommaRe.ReplaceAllString(text, "$1")
}

func fallback(raw string, parseErr error) map[string]any {
	return map[string]any{
		"decision_text": raw,
		"error":         parseErr.Error(),
	}
}
