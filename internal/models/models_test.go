package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWallTime(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
		dateKey  string
	}{
		{name: "datetime-local", input: "2024-03-05T09:30", expected: "2024-03-05T09:30:00", dateKey: "2024-03-05"},
		{name: "with seconds", input: "2024-03-05T09:30:15", expected: "2024-03-05T09:30:15", dateKey: "2024-03-05"},
		{name: "date only", input: "2024-03-05", expected: "2024-03-05T00:00:00", dateKey: "2024-03-05"},
		{name: "space separated", input: "2024-03-05 23:59:59", expected: "2024-03-05T23:59:59", dateKey: "2024-03-05"},
		// The offset is dropped: 23:30 at -05:00 stays on the 5th.
		{name: "rfc3339 keeps wall clock", input: "2024-03-05T23:30:00-05:00", expected: "2024-03-05T23:30:00", dateKey: "2024-03-05"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w, err := ParseWallTime(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, w.String())
			assert.Equal(t, tc.dateKey, w.DateKey())
			assert.Equal(t, time.UTC, w.Location())
		})
	}

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseWallTime("next tuesday")
		assert.Error(t, err)
	})
}

func TestTradeJSON_LegacyRecord(t *testing.T) {
	// A record as the browser version stored it: roi as a string, no leverage.
	raw := `{"id":1704447000000,"date":"2024-01-05T10:30","market":"Forex","symbol":"EURUSD",
		"type":"Short","qty":100000,"entryPrice":1.2,"exitPrice":1.195,"fees":0,
		"status":"Closed","pnl":500,"roi":"12.50","pips":50}`

	var trade Trade
	require.NoError(t, json.Unmarshal([]byte(raw), &trade))
	trade.ApplyDefaults()

	assert.Equal(t, int64(1704447000000), trade.ID)
	assert.Equal(t, "2024-01-05", trade.Date.DateKey())
	assert.Equal(t, Percent(12.5), trade.ROI)
	assert.Equal(t, float64(1), trade.Leverage)
	assert.True(t, trade.IsClosed())

	out, err := json.Marshal(trade)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"roi":12.5`)
	assert.Contains(t, string(out), `"date":"2024-01-05T10:30:00"`)
}

func TestPercent(t *testing.T) {
	var p Percent
	require.NoError(t, json.Unmarshal([]byte(`-3.25`), &p))
	assert.Equal(t, Percent(-3.25), p)
	require.NoError(t, json.Unmarshal([]byte(`0`), &p))
	assert.Equal(t, Percent(0), p)
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &p))
	assert.Equal(t, "7.10%", Percent(7.1).String())
}

func TestDisplayMarket(t *testing.T) {
	assert.Equal(t, "Stock", Trade{}.DisplayMarket())
	assert.Equal(t, "Crypto", Trade{Market: "Crypto"}.DisplayMarket())
}
