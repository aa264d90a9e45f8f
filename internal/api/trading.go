package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

func (s *Server) ListStocks(c echo.Context) error {
	stocks, err := s.deps.Trading.ListStocks(c.Request().Context())
	if err != nil {
		return s.handleError(c, err, "failed to list stocks")
	}
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, stocks))
}

func (s *Server) CreateStock(c echo.Context) error {
	var dto types.StockCreateDto
	if err := bindRequest(c, &dto); err != nil {
		return err
	}
	stock, err := s.deps.Trading.CreateStock(c.Request().Context(), dto)
	if err != nil {
		return s.handleError(c, err, "failed to create stock")
	}
	status := http.StatusCreated
	return c.JSON(status, NewSuccessResponse(status, stock))
}

func (s *Server) ListUserStocks(c echo.Context) error {
	stocks, err := s.deps.Trading.ListUserStocks(c.Request().Context(), userFrom(c).ID)
	if err != nil {
		return s.handleError(c, err, "failed to list user stocks")
	}
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, stocks))
}

func (s *Server) GetWallet(c echo.Context) error {
	wallet, err := s.deps.Trading.GetWallet(c.Request().Context(), userFrom(c).ID)
	if err != nil {
		return s.handleError(c, err, "failed to get wallet")
	}
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, wallet))
}

func (s *Server) TradeStock(c echo.Context) error {
	var req types.TradeRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}
	result, err := s.deps.Trading.Trade(c.Request().Context(), userFrom(c).ID, req)
	if err != nil {
		return s.handleError(c, err, "failed to trade stock")
	}
	status := http.StatusOK
	return c.JSON(status, NewSuccessResponse(status, result))
}
