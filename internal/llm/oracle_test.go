package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/pricemove/internal/models"
)

type stubCompleter struct {
	reply string
	err   error
	last  Request
}

func (s *stubCompleter) Complete(ctx context.Context, req Request) (string, error) {
	s.last = req
	return s.reply, s.err
}

func TestParseScores_FencedJSON(t *testing.T) {
	raw := "Here you go:\n```json\n{\"^GSPC\": {\"significance\": 0.72, \"articles\": [{\"title\": \"Fed cuts\", \"url\": \"https://n/fed\", \"published_time\": \"yesterday\"}]}}\n```"
	scores, err := ParseScores(raw)
	require.NoError(t, err)
	require.Contains(t, scores, "^GSPC")
	assert.InDelta(t, 0.72, scores["^GSPC"].Significance, 1e-9)
	require.Len(t, scores["^GSPC"].Articles, 1)
	assert.Equal(t, "https://n/fed", scores["^GSPC"].Articles[0].URL)
}

func TestParseScores_StringSignificanceAndCase(t *testing.T) {
	scores, err := ParseScores(`{"aapl": {"significance": "0.4", "articles": []}}`)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, scores["AAPL"].Significance, 1e-9)
}

func TestParseScores_OutOfRangeIsPassedThrough(t *testing.T) {
	scores, err := ParseScores(`{"MSFT": {"significance": 1.7}}`)
	require.NoError(t, err)
	assert.Equal(t, 1.7, scores["MSFT"].Significance)
}

func TestParseScores_Rejects(t *testing.T) {
	for _, raw := range []string{
		"",
		"no json here",
		"{}",
		`{"AAPL": {"articles": []}}`,
		`{"AAPL": {"significance": "high"}}`,
		`{"AAPL": [1,2]}`,
	} {
		_, err := ParseScores(raw)
		assert.ErrorIs(t, err, models.ErrOracleResponse, raw)
	}
}

func TestOracle_ScoreRelevanceRequestsJSON(t *testing.T) {
	stub := &stubCompleter{reply: `{"AAPL": {"significance": 0.6, "articles": []}}`}
	o := NewOracle(stub, WithScoringTemperature(0.1), WithMaxTokens(1000))

	scores, err := o.ScoreRelevance(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, scores["AAPL"].Significance, 1e-9)
	assert.True(t, stub.last.JSON)
	assert.Equal(t, float32(0.1), stub.last.Temperature)
	assert.Equal(t, 1000, stub.last.MaxTokens)
	assert.Equal(t, "sys", stub.last.System)
}

func TestOracle_SummarizeIsPlainText(t *testing.T) {
	stub := &stubCompleter{reply: "  AAPL went up 2.00% today after earnings.  \n"}
	o := NewOracle(stub)

	text, err := o.Summarize(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "AAPL went up 2.00% today after earnings.", text)
	assert.False(t, stub.last.JSON)
	assert.Equal(t, float32(0.3), stub.last.Temperature)
}

func TestOracle_PropagatesProviderError(t *testing.T) {
	o := NewOracle(&stubCompleter{err: errors.New("429")})
	_, err := o.ScoreRelevance(context.Background(), "s", "u")
	assert.Error(t, err)
	_, err = o.Summarize(context.Background(), "s", "u")
	assert.Error(t, err)
}

func TestNewCompleter_UnknownProvider(t *testing.T) {
	_, err := NewCompleter(context.Background(), ProviderConfig{Provider: "nope"}, nil)
	assert.Error(t, err)

	_, err = NewCompleter(context.Background(), ProviderConfig{Provider: "anthropic"}, nil)
	assert.Error(t, err)
}
