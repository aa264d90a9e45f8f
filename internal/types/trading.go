package types

import (
	"time"

	"github.com/google/uuid"
)

type TradeType string

const (
	TradeBuy  TradeType = "BUY"
	TradeSell TradeType = "SELL"
)

const (
	CurrencyDinero = "dinero"
	CurrencyNeelam = "neelam"
)

type Stock struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Quantity  int64     `json:"quantity"`
	Price     int64     `json:"price"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StockCreateDto struct {
	Name     string `json:"name" validate:"required,max=64"`
	Quantity int64  `json:"quantity" validate:"gte=0"`
	Price    int64  `json:"price" validate:"gt=0"`
}

type Wallet struct {
	UserID     uuid.UUID        `json:"userId"`
	Currencies map[string]int64 `json:"currencies"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

type UserStock struct {
	UserID            uuid.UUID `json:"userId"`
	StockID           uuid.UUID `json:"stockId"`
	StockName         string    `json:"stockName"`
	Quantity          int64     `json:"quantity"`
	InitialStockValue int64     `json:"initialStockValue"`
}

type TradeRequest struct {
	TradeType   TradeType `json:"tradeType" validate:"required,oneof=BUY SELL"`
	StockID     uuid.UUID `json:"stockId" validate:"required"`
	StockName   string    `json:"stockName" validate:"required"`
	Quantity    int64     `json:"quantity" validate:"required,gt=0"`
	ListedPrice int64     `json:"listedPrice" validate:"required,gt=0"`
	TotalPrice  int64     `json:"totalPrice" validate:"required,gt=0"`
}

type TradeResult struct {
	UserBalance int64 `json:"userBalance"`
	StockPrice  int64 `json:"stockPrice"`
}
