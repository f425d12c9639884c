package binance

import (
	"context"

	"github.com/adshao/go-binance/v2"
)

// Service interfaces for mocking the Binance API

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	Price(price string) CreateOrderService
	TimeInForce(tif binance.TimeInForceType) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// CancelOrderService interface for canceling orders.
type CancelOrderService interface {
	Symbol(symbol string) CancelOrderService
	OrderID(orderID int64) CancelOrderService
	Do(ctx context.Context) (*binance.CancelOrderResponse, error)
}

// GetAccountService interface for getting account info.
type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// ListOpenOrdersService interface for listing open orders.
type ListOpenOrdersService interface {
	Symbol(symbol string) ListOpenOrdersService
	Do(ctx context.Context) ([]*binance.Order, error)
}

// KlinesService interface for downloading historical bars.
type KlinesService interface {
	Symbol(symbol string) KlinesService
	Interval(interval string) KlinesService
	StartTime(startTime int64) KlinesService
	EndTime(endTime int64) KlinesService
	Limit(limit int) KlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// Client abstracts the Binance client for testing.
type Client interface {
	NewCreateOrderService() CreateOrderService
	NewCancelOrderService() CancelOrderService
	NewGetAccountService() GetAccountService
	NewListOpenOrdersService() ListOpenOrdersService
	NewKlinesService() KlinesService
}

// realClient wraps the actual binance.Client.
type realClient struct {
	client *binance.Client
}

func (r *realClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realClient) NewCancelOrderService() CancelOrderService {
	return &realCancelOrderService{service: r.client.NewCancelOrderService()}
}

func (r *realClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

func (r *realClient) NewListOpenOrdersService() ListOpenOrdersService {
	return &realListOpenOrdersService{service: r.client.NewListOpenOrdersService()}
}

func (r *realClient) NewKlinesService() KlinesService {
	return &realKlinesService{service: r.client.NewKlinesService()}
}

// Real service wrappers

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) Price(price string) CreateOrderService {
	s.service = s.service.Price(price)

	return s
}

func (s *realCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	s.service = s.service.TimeInForce(tif)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realCancelOrderService struct {
	service *binance.CancelOrderService
}

func (s *realCancelOrderService) Symbol(symbol string) CancelOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCancelOrderService) OrderID(orderID int64) CancelOrderService {
	s.service = s.service.OrderID(orderID)

	return s
}

func (s *realCancelOrderService) Do(ctx context.Context) (*binance.CancelOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

type realListOpenOrdersService struct {
	service *binance.ListOpenOrdersService
}

func (s *realListOpenOrdersService) Symbol(symbol string) ListOpenOrdersService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realListOpenOrdersService) Do(ctx context.Context) ([]*binance.Order, error) {
	return s.service.Do(ctx)
}

type realKlinesService struct {
	service *binance.KlinesService
}

func (s *realKlinesService) Symbol(symbol string) KlinesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realKlinesService) Interval(interval string) KlinesService {
	s.service = s.service.Interval(interval)

	return s
}

func (s *realKlinesService) StartTime(startTime int64) KlinesService {
	s.service = s.service.StartTime(startTime)

	return s
}

func (s *realKlinesService) EndTime(endTime int64) KlinesService {
	s.service = s.service.EndTime(endTime)

	return s
}

func (s *realKlinesService) Limit(limit int) KlinesService {
	s.service = s.service.Limit(limit)

	return s
}

func (s *realKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}
