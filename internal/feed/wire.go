package feed

import (
	"time"

	"github.com/wonny/riptide/internal/contracts"
)

// wireQuote is the vendor's quote payload, shared by the websocket
// stream and the REST endpoint.
type wireQuote struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"ts"` // unix millis
	Price     float64 `json:"price"`
	PrevClose float64 `json:"prev_close"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Volume    int64   `json:"volume"`
	Amount    float64 `json:"amount"`

	Bids []wireLevel `json:"bids,omitempty"`
	Asks []wireLevel `json:"asks,omitempty"`
}

type wireLevel struct {
	Price float64 `json:"p"`
	Size  int64   `json:"s"`
}

// wireProfile is the vendor's static symbol profile payload.
type wireProfile struct {
	Symbol        string  `json:"symbol"`
	MarketCapYuan float64 `json:"market_cap_yuan"`
	Sector        string  `json:"sector"`
}

// wireFlow is the premium vendor's per-order flow payload.
type wireFlow struct {
	Symbol       string   `json:"symbol"`
	Timestamp    int64    `json:"ts"`
	MainNet      float64  `json:"main_net"`
	MainBuy      float64  `json:"main_buy"`
	MainSell     float64  `json:"main_sell"`
	RetailNet    float64  `json:"retail_net"`
	TurnoverRate *float64 `json:"turnover_rate,omitempty"`
}

func (q *wireQuote) toSnapshot(source string) *contracts.MarketSnapshot {
	snap := &contracts.MarketSnapshot{
		Symbol:    q.Symbol,
		Timestamp: time.UnixMilli(q.Timestamp),
		Source:    source,
		Price:     q.Price,
		PrevClose: q.PrevClose,
		Volume:    q.Volume,
		Amount:    q.Amount,
	}
	if q.Open > 0 {
		snap.Bar = &contracts.OHLC{Open: q.Open, High: q.High, Low: q.Low, Close: q.Price}
	}
	for _, l := range q.Bids {
		snap.Bids = append(snap.Bids, contracts.QuoteLevel{Price: l.Price, Size: l.Size})
	}
	for _, l := range q.Asks {
		snap.Asks = append(snap.Asks, contracts.QuoteLevel{Price: l.Price, Size: l.Size})
	}
	return snap
}

func (f *wireFlow) toFlowSnapshot() *contracts.CapitalFlowSnapshot {
	return &contracts.CapitalFlowSnapshot{
		Symbol:          f.Symbol,
		Timestamp:       time.UnixMilli(f.Timestamp),
		MainNetInflow:   f.MainNet,
		MainBuyAmount:   f.MainBuy,
		MainSellAmount:  f.MainSell,
		RetailNetInflow: f.RetailNet,
		TurnoverRate:    f.TurnoverRate,
		Tier:            contracts.TierRealtimeDetailed,
	}
}
