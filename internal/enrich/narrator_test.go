package enrich

import (
	"context"
	"testing"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/resilience"
)

type mockAPI struct {
	text  string
	err   error
	calls int
}

func (m *mockAPI) newMessage(ctx context.Context, params sdk.MessageNewParams) (*sdk.Message, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &sdk.Message{
		Content: []sdk.ContentBlockUnion{{Type: "text", Text: m.text}},
	}, nil
}

func testClient(api messageAPI) *Client {
	return &Client{
		api:       api,
		model:     "claude-haiku-4-5-20251001",
		maxTokens: 1024,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		breaker:   resilience.NewBreaker(3, time.Minute, nil),
	}
}

func testProperty() model.PropertyRecord {
	return model.PropertyRecord{
		ID: "p1", Address: "101 Oak St", ZIP: "75001", AskingPrice: 90000,
	}
}

func testAnalysis() *model.AnalysisResult {
	return &model.AnalysisResult{
		PropertyID: "p1",
		Valuation:  model.ValuationEstimate{ARV: 200000, RepairEstimate: 20000},
		MAO: model.MAOSet{
			Recommended:         86500,
			RecommendedStrategy: model.StrategySubTo,
			Viable:              true,
		},
		Classification: model.Classification{Tier: model.ClassHot},
	}
}

func TestNarrate_Success(t *testing.T) {
	api := &mockAPI{text: `{"summary": "Deep discount with strong equity.", "suggested_strategy": "wholesale"}`}
	c := testClient(api)

	n := c.Narrate(context.Background(), testProperty(), testAnalysis())
	assert.True(t, n.Generated)
	assert.Equal(t, "Deep discount with strong equity.", n.Summary)
	assert.Equal(t, "wholesale", n.SuggestedStrategy)
	assert.Equal(t, 1, api.calls)
}

func TestNarrate_APIFailureFallsBack(t *testing.T) {
	api := &mockAPI{err: eris.New("rate limited")}
	c := testClient(api)

	n := c.Narrate(context.Background(), testProperty(), testAnalysis())
	assert.False(t, n.Generated)
	assert.Contains(t, n.Summary, "101 Oak St")
	assert.Contains(t, n.Summary, "HOT")
}

func TestNarrate_OpenBreakerSkipsAPI(t *testing.T) {
	api := &mockAPI{err: eris.New("down")}
	c := testClient(api)

	p, a := testProperty(), testAnalysis()
	for i := 0; i < 3; i++ {
		c.Narrate(context.Background(), p, a)
	}
	require.Equal(t, 3, api.calls)

	// Circuit is now open; the next call never reaches the API.
	n := c.Narrate(context.Background(), p, a)
	assert.Equal(t, 3, api.calls)
	assert.False(t, n.Generated)
}

func TestNarrate_UnknownStrategyDropped(t *testing.T) {
	api := &mockAPI{text: `{"summary": "Looks fine.", "suggested_strategy": "hold and pray"}`}
	c := testClient(api)

	n := c.Narrate(context.Background(), testProperty(), testAnalysis())
	assert.True(t, n.Generated)
	assert.Empty(t, n.SuggestedStrategy)
}

func TestParseNarrative_ToleratesProse(t *testing.T) {
	resp, err := parseNarrative(`Here you go: {"summary": "Solid buy.", "suggested_strategy": "flip"} Hope that helps.`)
	require.NoError(t, err)
	assert.Equal(t, "Solid buy.", resp.Summary)
	assert.Equal(t, "flip", resp.SuggestedStrategy)
}

func TestParseNarrative_NoJSON(t *testing.T) {
	_, err := parseNarrative("I cannot help with that.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no JSON object")
}

func TestNormalizeStrategy(t *testing.T) {
	assert.Equal(t, "brrrr", normalizeStrategy(" BRRRR "))
	assert.Equal(t, "sub_to", normalizeStrategy("sub_to"))
	assert.Equal(t, "", normalizeStrategy("buy low sell high"))
}

func TestFallback_Deterministic(t *testing.T) {
	p, a := testProperty(), testAnalysis()

	first := Fallback(p, a)
	second := Fallback(p, a)
	assert.Equal(t, first, second)
	assert.False(t, first.Generated)
	assert.Contains(t, first.Summary, "sub_to")
	assert.Contains(t, first.Summary, "$86500")
}
