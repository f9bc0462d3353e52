package handler

import (
	"time"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// JSON representations of the domain types served by the API. Decimals are
// rendered as strings so clients never lose precision to float parsing.

type quoteResponse struct {
	Symbol    string `json:"symbol"`
	Bid       string `json:"bid"`
	Ask       string `json:"ask"`
	Last      string `json:"last"`
	Mid       string `json:"mid,omitempty"`
	Timestamp string `json:"timestamp"`
}

func toQuoteResponse(q domain.Quote) quoteResponse {
	resp := quoteResponse{
		Symbol:    q.Symbol,
		Bid:       q.Bid.String(),
		Ask:       q.Ask.String(),
		Last:      q.Last.String(),
		Timestamp: q.Timestamp.UTC().Format(time.RFC3339),
	}
	if mid, ok := q.Mid(); ok {
		resp.Mid = mid.String()
	}
	return resp
}

type depthLevelResponse [2]string

type depthResponse struct {
	Symbol string               `json:"symbol"`
	Bids   []depthLevelResponse `json:"bids"`
	Asks   []depthLevelResponse `json:"asks"`
}

func toDepthResponse(book domain.OrderBook) depthResponse {
	resp := depthResponse{
		Symbol: book.Symbol,
		Bids:   make([]depthLevelResponse, 0, len(book.Bids)),
		Asks:   make([]depthLevelResponse, 0, len(book.Asks)),
	}
	for _, lvl := range book.Bids {
		resp.Bids = append(resp.Bids, depthLevelResponse{lvl.Price.String(), lvl.Quantity.String()})
	}
	for _, lvl := range book.Asks {
		resp.Asks = append(resp.Asks, depthLevelResponse{lvl.Price.String(), lvl.Quantity.String()})
	}
	return resp
}

type klineResponse struct {
	OpenTime  string `json:"open_time"`
	CloseTime string `json:"close_time"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Close     string `json:"close"`
	Volume    string `json:"volume"`
}

func toKlineResponses(klines []domain.Kline) []klineResponse {
	out := make([]klineResponse, 0, len(klines))
	for _, k := range klines {
		out = append(out, klineResponse{
			OpenTime:  k.OpenTime.UTC().Format(time.RFC3339),
			CloseTime: k.CloseTime.UTC().Format(time.RFC3339),
			Open:      k.Open.String(),
			High:      k.High.String(),
			Low:       k.Low.String(),
			Close:     k.Close.String(),
			Volume:    k.Volume.String(),
		})
	}
	return out
}

type orderResponse struct {
	OrderID       string `json:"order_id"`
	ClientOrderID string `json:"client_order_id,omitempty"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Price         string `json:"price"`
	Quantity      string `json:"quantity"`
	ExecutedQty   string `json:"executed_qty"`
	Status        string `json:"status"`
	TimeInForce   string `json:"time_in_force"`
	CreatedAt     string `json:"created_at"`
}

func toOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		OrderID:       o.OrderID,
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          string(o.Side),
		Type:          string(o.Type),
		Price:         o.Price.String(),
		Quantity:      o.Quantity.String(),
		ExecutedQty:   o.ExecutedQty.String(),
		Status:        string(o.Status),
		TimeInForce:   string(o.TimeInForce),
		CreatedAt:     o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toOrderResponses(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}

type allocationResponse struct {
	RequestID    string `json:"request_id"`
	Status       string `json:"status"`
	ExecutedAt   string `json:"executed_at"`
	Action       string `json:"action"`
	OrderID      string `json:"order_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
	SlippagePct  string `json:"slippage_pct,omitempty"`
	ExpectedFill string `json:"expected_fill,omitempty"`
}

func toAllocationResponse(res domain.AllocationResult) allocationResponse {
	resp := allocationResponse{
		RequestID:  res.RequestID,
		Status:     string(res.Status),
		ExecutedAt: res.ExecutedAt.UTC().Format(time.RFC3339),
		Action:     string(res.Action),
		OrderID:    res.OrderID,
		Reason:     res.Reason,
	}
	if !res.SlippagePct.IsZero() {
		resp.SlippagePct = res.SlippagePct.String()
	}
	if !res.ExpectedFill.IsZero() {
		resp.ExpectedFill = res.ExpectedFill.String()
	}
	return resp
}

func toAllocationResponses(runs []domain.AllocationResult) []allocationResponse {
	out := make([]allocationResponse, 0, len(runs))
	for _, res := range runs {
		out = append(out, toAllocationResponse(res))
	}
	return out
}
