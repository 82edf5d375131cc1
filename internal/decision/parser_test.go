package decision

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/SPYQWER1/aiagents-stock/internal/llm"
)

// fakeGateway returns canned responses and counts calls.
type fakeGateway struct {
	response string
	err      error
	calls    int
}

func (f *fakeGateway) Generate(ctx context.Context, messages []*schema.Message, opts llm.GenerateOptions) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestParseEmbeddedJSON(t *testing.T) {
	gw := &fakeGateway{}
	p := NewParser(gw)

	decision := p.Parse(context.Background(), `Result: {"rating": "买入", "target_price": "20.0"}`)

	if decision["rating"] != "买入" {
		t.Fatalf("rating = %v", decision["rating"])
	}
	if decision["target_price"] != "20.0" {
		t.Fatalf("target_price = %v", decision["target_price"])
	}
	if gw.calls != 0 {
		t.Fatalf("expected no repair calls, got %d", gw.calls)
	}
}

func TestParseTrailingCommaFixedLocally(t *testing.T) {
	gw := &fakeGateway{}
	p := NewParser(gw)

	decision := p.Parse(context.Background(), `{"rating": "持有", "confidence": "中",}`)

	if decision["rating"] != "持有" {
		t.Fatalf("rating = %v", decision["rating"])
	}
	if _, hasErr := decision["error"]; hasErr {
		t.Fatalf("local cleanup should not degrade to fallback: %v", decision)
	}
	if gw.calls != 0 {
		t.Fatalf("trailing comma must be fixed without a gateway call, got %d calls", gw.calls)
	}
}

func TestParseFullwidthQuotesFixedLocally(t *testing.T) {
	gw := &fakeGateway{}
	p := NewParser(gw)

	decision := p.Parse(context.Background(), "{“rating”: “减持”}")

	if decision["rating"] != "减持" {
		t.Fatalf("rating = %v", decision["rating"])
	}
	if gw.calls != 0 {
		t.Fatalf("expected no repair calls, got %d", gw.calls)
	}
}

func TestParseRepairedByGateway(t *testing.T) {
	gw := &fakeGateway{response: `{"rating": "买入", "position": "30%"}`}
	p := NewParser(gw)

	decision := p.Parse(context.Background(), "评级是买入，仓位三成。")

	if decision["rating"] != "买入" {
		t.Fatalf("rating = %v", decision["rating"])
	}
	if gw.calls != 1 {
		t.Fatalf("expected exactly one repair call, got %d", gw.calls)
	}
}

func TestParseFallbackAfterFailedRepair(t *testing.T) {
	gw := &fakeGateway{response: "还是不会输出 JSON"}
	p := NewParser(gw)

	raw := "Mock Analysis Result"
	decision := p.Parse(context.Background(), raw)

	if decision["decision_text"] != raw {
		t.Fatalf("decision_text = %v", decision["decision_text"])
	}
	errMsg, _ := decision["error"].(string)
	if errMsg == "" {
		t.Fatalf("expected non-empty error marker, got %v", decision)
	}
	if gw.calls != 1 {
		t.Fatalf("repair must be attempted exactly once, got %d", gw.calls)
	}
}

func TestParseFallbackWhenGatewayFails(t *testing.T) {
	gw := &fakeGateway{err: &llm.CallError{Provider: "deepseek-chat", Err: context.DeadlineExceeded}}
	p := NewParser(gw)

	decision := p.Parse(context.Background(), "no json here")

	if decision["decision_text"] != "no json here" {
		t.Fatalf("decision_text = %v", decision["decision_text"])
	}
	if gw.calls != 1 {
		t.Fatalf("expected one attempted repair call, got %d", gw.calls)
	}
}
