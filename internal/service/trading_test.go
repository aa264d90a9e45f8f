package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Real-Dev-Squad/website-backend/internal/metrics"
	"github.com/Real-Dev-Squad/website-backend/internal/service"
	"github.com/Real-Dev-Squad/website-backend/internal/storage"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

func TestPriceAfterTrade(t *testing.T) {
	cases := []struct {
		name      string
		price     int64
		quantity  int64
		tradeType types.TradeType
		want      int64
	}{
		{"buy ten units moves one percent", 200, 10, types.TradeBuy, 202},
		{"buy small moves at least one", 50, 1, types.TradeBuy, 51},
		{"buy fifty units moves five percent", 100, 50, types.TradeBuy, 105},
		{"sell ten units", 200, 10, types.TradeSell, 198},
		{"sell small moves at least one", 50, 1, types.TradeSell, 49},
		{"sell never drops below one", 1, 500, types.TradeSell, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, service.PriceAfterTrade(tc.price, tc.quantity, tc.tradeType))
		})
	}
}

type tradeFixture struct {
	db     *MockDatabaseStorage
	svc    *service.TradingService
	userID uuid.UUID
	stock  *types.Stock
}

func newTradeFixture(stockQty, dinero int64, holding *types.UserStock) *tradeFixture {
	f := &tradeFixture{db: new(MockDatabaseStorage), userID: uuid.New()}
	f.stock = &types.Stock{ID: uuid.New(), Name: "RDS", Quantity: stockQty, Price: 100}
	f.db.On("GetStockForUpdateTx", mock.Anything, mock.Anything, f.stock.ID).Return(f.stock, nil)
	f.db.On("GetWalletForUpdateTx", mock.Anything, mock.Anything, f.userID).Return(&types.Wallet{
		UserID:     f.userID,
		Currencies: map[string]int64{types.CurrencyDinero: dinero},
	}, nil)
	if holding == nil {
		f.db.On("GetUserStockForUpdateTx", mock.Anything, mock.Anything, f.userID, f.stock.ID).Return(nil, storage.ErrNotFound)
	} else {
		f.db.On("GetUserStockForUpdateTx", mock.Anything, mock.Anything, f.userID, f.stock.ID).Return(holding, nil)
	}
	f.svc = service.NewTradingService(f.db, metrics.NewTradingMetrics(), testLogger)
	return f
}

func (f *tradeFixture) request(tradeType types.TradeType, qty int64) types.TradeRequest {
	return types.TradeRequest{
		TradeType:   tradeType,
		StockID:     f.stock.ID,
		StockName:   f.stock.Name,
		Quantity:    qty,
		ListedPrice: f.stock.Price,
		TotalPrice:  qty * f.stock.Price,
	}
}

func TestTradeBuy(t *testing.T) {
	f := newTradeFixture(50, 1000, nil)
	f.db.On("UpdateStockTx", mock.Anything, mock.Anything, mock.MatchedBy(func(s types.Stock) bool {
		return s.Quantity == 40 && s.Price == 101
	})).Return(nil)
	f.db.On("UpdateWalletTx", mock.Anything, mock.Anything, mock.MatchedBy(func(w types.Wallet) bool {
		return w.Currencies[types.CurrencyDinero] == 0
	})).Return(nil)
	f.db.On("UpsertUserStockTx", mock.Anything, mock.Anything, mock.MatchedBy(func(us types.UserStock) bool {
		return us.Quantity == 10 && us.InitialStockValue == 100 && us.StockName == "RDS"
	})).Return(nil)

	res, err := f.svc.Trade(context.Background(), f.userID, f.request(types.TradeBuy, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.UserBalance)
	assert.Equal(t, int64(101), res.StockPrice)
	f.db.AssertExpectations(t)
}

func TestTradeSell(t *testing.T) {
	f := newTradeFixture(0, 0, &types.UserStock{Quantity: 5, InitialStockValue: 80})
	f.db.On("UpdateStockTx", mock.Anything, mock.Anything, mock.MatchedBy(func(s types.Stock) bool {
		return s.Quantity == 5 && s.Price == 99
	})).Return(nil)
	f.db.On("UpdateWalletTx", mock.Anything, mock.Anything, mock.MatchedBy(func(w types.Wallet) bool {
		return w.Currencies[types.CurrencyDinero] == 500
	})).Return(nil)
	f.db.On("UpsertUserStockTx", mock.Anything, mock.Anything, mock.MatchedBy(func(us types.UserStock) bool {
		return us.Quantity == 0
	})).Return(nil)

	res, err := f.svc.Trade(context.Background(), f.userID, f.request(types.TradeSell, 5))
	require.NoError(t, err)
	assert.Equal(t, int64(500), res.UserBalance)
	f.db.AssertExpectations(t)
}

func TestTradeRejections(t *testing.T) {
	t.Run("total mismatch", func(t *testing.T) {
		f := newTradeFixture(50, 1000, nil)
		req := f.request(types.TradeBuy, 2)
		req.TotalPrice = 1
		_, err := f.svc.Trade(context.Background(), f.userID, req)
		assert.ErrorIs(t, err, service.ErrInvalidTrade)
		f.db.AssertNotCalled(t, "GetStockForUpdateTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stale listed price", func(t *testing.T) {
		f := newTradeFixture(50, 1000, nil)
		req := f.request(types.TradeBuy, 2)
		req.ListedPrice, req.TotalPrice = 90, 180
		_, err := f.svc.Trade(context.Background(), f.userID, req)
		assert.ErrorIs(t, err, service.ErrInvalidTrade)
	})

	t.Run("not enough stock", func(t *testing.T) {
		f := newTradeFixture(1, 1000, nil)
		_, err := f.svc.Trade(context.Background(), f.userID, f.request(types.TradeBuy, 2))
		assert.ErrorIs(t, err, service.ErrInsufficientStock)
	})

	t.Run("not enough dinero", func(t *testing.T) {
		f := newTradeFixture(50, 100, nil)
		_, err := f.svc.Trade(context.Background(), f.userID, f.request(types.TradeBuy, 2))
		assert.ErrorIs(t, err, service.ErrInsufficientFunds)
	})

	t.Run("selling more than held", func(t *testing.T) {
		f := newTradeFixture(50, 0, &types.UserStock{Quantity: 1})
		_, err := f.svc.Trade(context.Background(), f.userID, f.request(types.TradeSell, 2))
		assert.ErrorIs(t, err, service.ErrInsufficientStock)
		f.db.AssertNotCalled(t, "UpdateWalletTx", mock.Anything, mock.Anything, mock.Anything)
	})
}
