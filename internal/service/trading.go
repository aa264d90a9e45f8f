package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"

	"github.com/Real-Dev-Squad/website-backend/internal/metrics"
	"github.com/Real-Dev-Squad/website-backend/internal/storage"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

type TradingService struct {
	db        storage.DatabaseStorage
	sanitizer *bluemonday.Policy
	metrics   *metrics.TradingMetrics
	logger    *logrus.Entry
}

func NewTradingService(db storage.DatabaseStorage, tradingMetrics *metrics.TradingMetrics, logger *logrus.Logger) *TradingService {
	return &TradingService{
		db:        db,
		sanitizer: bluemonday.StrictPolicy(),
		metrics:   tradingMetrics,
		logger:    logger.WithField("service", "trading"),
	}
}

func (s *TradingService) ListStocks(ctx context.Context) ([]types.Stock, error) {
	return s.db.ListStocks(ctx)
}

func (s *TradingService) CreateStock(ctx context.Context, dto types.StockCreateDto) (*types.Stock, error) {
	dto.Name = s.sanitizer.Sanitize(dto.Name)
	stock, err := s.db.CreateStock(ctx, dto)
	if errors.Is(err, storage.ErrConflict) {
		return nil, ErrStockExists
	}
	return stock, err
}

func (s *TradingService) ListUserStocks(ctx context.Context, userID uuid.UUID) ([]types.UserStock, error) {
	return s.db.ListUserStocks(ctx, userID)
}

func (s *TradingService) GetWallet(ctx context.Context, userID uuid.UUID) (*types.Wallet, error) {
	return s.db.GetWallet(ctx, userID)
}

// Trade executes a BUY or SELL for userID. Stock, wallet and holding rows are
// locked for the duration of the transaction.
func (s *TradingService) Trade(ctx context.Context, userID uuid.UUID, req types.TradeRequest) (*types.TradeResult, error) {
	if req.Quantity <= 0 || req.ListedPrice <= 0 || req.TotalPrice != req.Quantity*req.ListedPrice {
		s.metrics.RecordRejected(string(req.TradeType))
		return nil, fmt.Errorf("%w: total price does not match quantity and listed price", ErrInvalidTrade)
	}

	var result types.TradeResult
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		stock, err := s.db.GetStockForUpdateTx(ctx, tx, req.StockID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrStockNotFound
			}
			return err
		}
		if stock.Price != req.ListedPrice {
			return fmt.Errorf("%w: listed price %d is stale, current price is %d", ErrInvalidTrade, req.ListedPrice, stock.Price)
		}

		wallet, err := s.db.GetWalletForUpdateTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		holding, err := s.db.GetUserStockForUpdateTx(ctx, tx, userID, stock.ID)
		if errors.Is(err, storage.ErrNotFound) {
			holding = &types.UserStock{
				UserID:            userID,
				StockID:           stock.ID,
				StockName:         stock.Name,
				InitialStockValue: stock.Price,
			}
		} else if err != nil {
			return err
		}

		switch req.TradeType {
		case types.TradeBuy:
			if stock.Quantity < req.Quantity {
				return ErrInsufficientStock
			}
			if wallet.Currencies[types.CurrencyDinero] < req.TotalPrice {
				return ErrInsufficientFunds
			}
			stock.Quantity -= req.Quantity
			wallet.Currencies[types.CurrencyDinero] -= req.TotalPrice
			holding.Quantity += req.Quantity
		case types.TradeSell:
			if holding.Quantity < req.Quantity {
				return ErrInsufficientStock
			}
			stock.Quantity += req.Quantity
			wallet.Currencies[types.CurrencyDinero] += req.TotalPrice
			holding.Quantity -= req.Quantity
		default:
			return fmt.Errorf("%w: unknown trade type %q", ErrInvalidTrade, req.TradeType)
		}
		stock.Price = PriceAfterTrade(stock.Price, req.Quantity, req.TradeType)

		if err := s.db.UpdateStockTx(ctx, tx, *stock); err != nil {
			return err
		}
		if err := s.db.UpdateWalletTx(ctx, tx, *wallet); err != nil {
			return err
		}
		if err := s.db.UpsertUserStockTx(ctx, tx, *holding); err != nil {
			return err
		}

		result = types.TradeResult{
			UserBalance: wallet.Currencies[types.CurrencyDinero],
			StockPrice:  stock.Price,
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordRejected(string(req.TradeType))
		return nil, err
	}

	s.metrics.RecordTrade(string(req.TradeType), req.TotalPrice)
	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"stock_id":   req.StockID,
		"trade_type": req.TradeType,
		"quantity":   req.Quantity,
	}).Info("trade completed")
	return &result, nil
}

// PriceAfterTrade moves price by one percent per ten units traded, at least
// one dinero, never below one.
func PriceAfterTrade(price, quantity int64, tradeType types.TradeType) int64 {
	change := int64(math.Round(float64(price) * float64(quantity) / 1000))
	if change < 1 {
		change = 1
	}
	if tradeType == types.TradeBuy {
		return price + change
	}
	if price-change < 1 {
		return 1
	}
	return price - change
}
