// Package binance adapts the Binance spot API to the gateway contract. REST
// calls go through narrow service interfaces so tests can substitute the
// client; market data arrives over a self-healing websocket stream.
package binance

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/pulse-trading/internal/event"
	"github.com/rxtech-lab/pulse-trading/internal/gateway"
	"github.com/rxtech-lab/pulse-trading/internal/logger"
	"github.com/rxtech-lab/pulse-trading/internal/types"
	"github.com/rxtech-lab/pulse-trading/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GatewayName is the name under which this adapter registers.
const GatewayName = "binance"

// decimalPrecision is the fallback quantity precision. Eight decimals cover
// satoshi-sized lots; symbol-specific filters from exchange info take
// precedence in production setups.
const decimalPrecision = 8

// Config holds the adapter settings.
type Config struct {
	APIKey    string
	APISecret string
	// Testnet routes REST and stream traffic to the Binance testnet.
	Testnet bool
}

// Gateway is the Binance spot adapter.
type Gateway struct {
	gateway.BaseGateway

	cfg    Config
	client Client
	log    *logger.Logger
	stream *marketStream

	mu        sync.Mutex
	connected bool
	orders    map[string]types.Order
}

// NewGateway creates the adapter. It does not touch the network until
// Connect.
func NewGateway(cfg Config, events *event.Engine, log *logger.Logger) *Gateway {
	if cfg.Testnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(cfg.APIKey, cfg.APISecret)

	g := &Gateway{
		BaseGateway: gateway.NewBaseGateway(GatewayName, events),
		cfg:         cfg,
		client:      &realClient{client: client},
		log:         log,
		orders:      make(map[string]types.Order),
	}
	g.stream = newMarketStream(g, cfg.Testnet, log)

	return g
}

// newGatewayWithClient builds the adapter around a custom client, used by
// tests.
func newGatewayWithClient(client Client, events *event.Engine, log *logger.Logger) *Gateway {
	g := &Gateway{
		BaseGateway: gateway.NewBaseGateway(GatewayName, events),
		client:      client,
		log:         log,
		orders:      make(map[string]types.Order),
	}
	g.stream = newMarketStream(g, false, log)

	return g
}

// Connect implements gateway.Gateway. It verifies the credentials with an
// account query and starts the market data stream.
func (g *Gateway) Connect(ctx context.Context) error {
	if _, err := g.client.NewGetAccountService().Do(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeGatewayRequestFailed, "failed to query binance account", err)
	}

	g.mu.Lock()
	g.connected = true
	g.mu.Unlock()

	g.stream.start()
	g.WriteLog(types.LogLevelInfo, "binance gateway connected")

	return nil
}

// Subscribe implements gateway.Gateway.
func (g *Gateway) Subscribe(req types.SubscribeRequest) error {
	if req.Symbol == "" {
		return errors.New(errors.ErrCodeInvalidSymbol, "symbol is required")
	}

	g.stream.subscribe(req.Symbol)

	return nil
}

// SendOrder implements gateway.Gateway.
func (g *Gateway) SendOrder(req types.OrderRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	g.mu.Lock()
	connected := g.connected
	g.mu.Unlock()

	if !connected {
		return "", errors.New(errors.ErrCodeGatewayNotConnected, "binance gateway is not connected")
	}

	side := binance.SideTypeBuy
	if req.Direction == types.DirectionShort {
		side = binance.SideTypeSell
	}

	quantity := decimal.NewFromFloat(req.Volume).Round(decimalPrecision)
	if quantity.IsZero() {
		return "", errors.Newf(errors.ErrCodeInvalidVolume,
			"volume %v rounds to zero at %d decimals", req.Volume, decimalPrecision)
	}

	service := g.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(side).
		Quantity(quantity.String())

	switch req.PriceType {
	case types.PriceTypeLimit:
		service = service.
			Type(binance.OrderTypeLimit).
			Price(decimal.NewFromFloat(req.Price).String()).
			TimeInForce(binance.TimeInForceTypeGTC)
	case types.PriceTypeMarket:
		service = service.Type(binance.OrderTypeMarket)
	}

	resp, err := service.Do(context.Background())
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeGatewayRequestFailed, "failed to place binance order", err)
	}

	order := types.Order{
		GatewayName: GatewayName,
		Symbol:      req.Symbol,
		OrderID:     strconv.FormatInt(resp.OrderID, 10),
		Direction:   req.Direction,
		Offset:      req.Offset,
		Price:       req.Price,
		TotalVolume: req.Volume,
		Status:      convertOrderStatus(resp.Status),
		OrderTime:   time.Now(),
	}

	g.mu.Lock()
	g.orders[order.OrderID] = order
	g.mu.Unlock()

	g.OnOrder(order)
	g.publishFills(order, resp.Fills)

	return order.QualifiedID(), nil
}

// publishFills emits trade events for the fills returned synchronously with
// the order response.
func (g *Gateway) publishFills(order types.Order, fills []*binance.Fill) {
	for i, fill := range fills {
		price, _ := strconv.ParseFloat(fill.Price, 64)
		qty, _ := strconv.ParseFloat(fill.Quantity, 64)

		g.OnTrade(types.Trade{
			GatewayName: GatewayName,
			Symbol:      order.Symbol,
			TradeID:     order.OrderID + "-" + strconv.Itoa(i),
			OrderID:     order.OrderID,
			Direction:   order.Direction,
			Offset:      order.Offset,
			Price:       price,
			Volume:      qty,
			TradeTime:   time.Now(),
		})
	}
}

// CancelOrder implements gateway.Gateway.
func (g *Gateway) CancelOrder(req types.CancelRequest) error {
	orderID, err := strconv.ParseInt(req.OrderID, 10, 64)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid binance order ID %q", req.OrderID)
	}

	resp, err := g.client.NewCancelOrderService().
		Symbol(req.Symbol).
		OrderID(orderID).
		Do(context.Background())
	if err != nil {
		return errors.Wrap(errors.ErrCodeGatewayRequestFailed, "failed to cancel binance order", err)
	}

	g.mu.Lock()
	order, known := g.orders[req.OrderID]
	if known {
		order.Status = convertOrderStatus(resp.Status)
		order.CancelTime = time.Now()
		g.orders[req.OrderID] = order
	}
	g.mu.Unlock()

	if known {
		g.OnOrder(order)
	}

	return nil
}

// QueryAccount implements gateway.Gateway. Spot balances are reported as one
// account snapshot plus a long position per non-empty asset.
func (g *Gateway) QueryAccount(ctx context.Context) error {
	account, err := g.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeGatewayRequestFailed, "failed to query binance account", err)
	}

	var total, locked float64

	for _, balance := range account.Balances {
		free, _ := strconv.ParseFloat(balance.Free, 64)
		frozen, _ := strconv.ParseFloat(balance.Locked, 64)

		if free+frozen == 0 {
			continue
		}

		total += free + frozen
		locked += frozen

		g.OnPosition(types.Position{
			GatewayName: GatewayName,
			Symbol:      balance.Asset,
			Direction:   types.DirectionLong,
			Volume:      free + frozen,
			Frozen:      frozen,
		})
	}

	g.OnAccount(types.Account{
		GatewayName: GatewayName,
		AccountID:   "spot",
		Balance:     total,
		Frozen:      locked,
		Available:   total - locked,
	})

	return nil
}

// HistoryBars downloads historical klines for warm-up seeding, oldest first.
func (g *Gateway) HistoryBars(ctx context.Context, symbol string, interval types.BarInterval, start, end time.Time) ([]types.Bar, error) {
	klines, err := g.client.NewKlinesService().
		Symbol(symbol).
		Interval(string(interval)).
		StartTime(start.UnixMilli()).
		EndTime(end.UnixMilli()).
		Limit(1000).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeGatewayRequestFailed, "failed to download binance klines", err)
	}

	bars := make([]types.Bar, 0, len(klines))

	for _, k := range klines {
		open, _ := strconv.ParseFloat(k.Open, 64)
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		closePrice, _ := strconv.ParseFloat(k.Close, 64)
		volume, _ := strconv.ParseFloat(k.Volume, 64)

		bars = append(bars, types.Bar{
			GatewayName: GatewayName,
			Symbol:      symbol,
			Exchange:    "BINANCE",
			Interval:    interval,
			Timestamp:   time.UnixMilli(k.OpenTime),
			Open:        open,
			High:        high,
			Low:         low,
			Close:       closePrice,
			Volume:      volume,
		})
	}

	return bars, nil
}

// Close implements gateway.Gateway.
func (g *Gateway) Close() error {
	g.mu.Lock()
	g.connected = false
	g.mu.Unlock()

	g.stream.stop()
	g.log.Info("binance gateway closed", zap.String("gateway", GatewayName))

	return nil
}

// convertOrderStatus maps a Binance order status onto the internal one.
func convertOrderStatus(status binance.OrderStatusType) types.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew:
		return types.OrderStatusNotTraded
	case binance.OrderStatusTypePartiallyFilled:
		return types.OrderStatusPartTraded
	case binance.OrderStatusTypeFilled:
		return types.OrderStatusAllTraded
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypeExpired:
		return types.OrderStatusCancelled
	case binance.OrderStatusTypeRejected:
		return types.OrderStatusRejected
	default:
		return types.OrderStatusSubmitting
	}
}
