package polymarket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServers levanta un CLOB y un Gamma falsos y devuelve el Client apuntando a ellos.
func newTestServers(t *testing.T, markets map[string]clobMarket, mids map[string]string, gamma []gammaMarket) *Client {
	t.Helper()

	clob := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/markets/"):
			id := strings.TrimPrefix(r.URL.Path, "/markets/")
			m, ok := markets[id]
			if !ok {
				http.Error(w, `{"error":"market not found"}`, http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(m)
		case r.URL.Path == "/midpoints":
			json.NewEncoder(w).Encode(mids)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(clob.Close)

	gammaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(gamma)
	}))
	t.Cleanup(gammaSrv.Close)

	return NewClient(clob.URL, gammaSrv.URL)
}

func TestFetchWatchedMarkets_HappyPath(t *testing.T) {
	client := newTestServers(t,
		map[string]clobMarket{
			"0xaaa": {
				ConditionID: "0xaaa",
				Active:      true,
				Tokens: []clobToken{
					{TokenID: "tok-yes", Outcome: "Yes"},
					{TokenID: "tok-no", Outcome: "No"},
				},
			},
		},
		map[string]string{"tok-yes": "0.62"},
		[]gammaMarket{{ConditionID: "0xaaa", Question: "Will X happen?", Slug: "will-x"}},
	)

	markets, err := client.FetchWatchedMarkets(context.Background(), []string{"0xaaa"})
	require.NoError(t, err)
	require.Len(t, markets, 1)

	m := markets[0]
	assert.Equal(t, "0xaaa", m.ConditionID)
	assert.InDelta(t, 0.62, m.YesPrice, 1e-9)
	assert.Equal(t, "Will X happen?", m.Question)
	assert.True(t, m.Tradeable())
}

func TestFetchWatchedMarkets_UnknownIDSkipped(t *testing.T) {
	client := newTestServers(t,
		map[string]clobMarket{
			"0xaaa": {
				ConditionID: "0xaaa",
				Active:      true,
				Tokens:      []clobToken{{TokenID: "tok-yes", Outcome: "Yes"}},
			},
		},
		map[string]string{"tok-yes": "0.40"},
		nil,
	)

	markets, err := client.FetchWatchedMarkets(context.Background(), []string{"0xaaa", "0xmissing"})
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "0xaaa", markets[0].ConditionID)
}

func TestFetchWatchedMarkets_EmptyWatchlist(t *testing.T) {
	client := NewClient("", "")
	markets, err := client.FetchWatchedMarkets(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, markets)
}
