package datanode

import "encoding/json"

// DTOs raw del data node. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.
//
// El gateway serializa los enteros de 64 bits como strings y los doubles como
// números; json.Number acepta ambos.

// --- GET /markets ---

// marketsResponse es la respuesta de GET /markets.
type marketsResponse struct {
	Markets *marketConnection `json:"markets"`
}

type marketConnection struct {
	Edges []marketEdge `json:"edges"`
}

// marketEdge guarda el nodo sin decodificar para devolverlo tal cual.
type marketEdge struct {
	Node   json.RawMessage `json:"node"`
	Cursor string          `json:"cursor"`
}

// marketNode son los campos del nodo que usa el dominio.
type marketNode struct {
	ID                    string             `json:"id"`
	TradableInstrument    tradableInstrument `json:"tradableInstrument"`
	DecimalPlaces         json.Number        `json:"decimalPlaces"`
	PositionDecimalPlaces json.Number        `json:"positionDecimalPlaces"`
	State                 string             `json:"state"`
	TradingMode           string             `json:"tradingMode"`
}

type tradableInstrument struct {
	Instrument struct {
		Code string `json:"code"`
		Name string `json:"name"`
	} `json:"instrument"`
	LogNormalRiskModel *logNormalRiskModel `json:"logNormalRiskModel"`
}

type logNormalRiskModel struct {
	RiskAversionParameter json.Number `json:"riskAversionParameter"`
	Tau                   json.Number `json:"tau"`
	Params                struct {
		Mu    json.Number `json:"mu"`
		R     json.Number `json:"r"`
		Sigma json.Number `json:"sigma"`
	} `json:"params"`
}

// --- GET /market/data/{id}/latest ---

type marketDataResponse struct {
	MarketData json.RawMessage `json:"marketData"`
}

type marketData struct {
	Market                string                 `json:"market"`
	MarkPrice             string                 `json:"markPrice"`
	BestBidPrice          string                 `json:"bestBidPrice"`
	BestOfferPrice        string                 `json:"bestOfferPrice"`
	MidPrice              string                 `json:"midPrice"`
	MarketTradingMode     string                 `json:"marketTradingMode"`
	PriceMonitoringBounds []priceMonitoringBound `json:"priceMonitoringBounds"`
}

type priceMonitoringBound struct {
	MinValidPrice  string `json:"minValidPrice"`
	MaxValidPrice  string `json:"maxValidPrice"`
	ReferencePrice string `json:"referencePrice"`
}
