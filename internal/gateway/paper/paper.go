// Package paper implements an in-process simulated exchange gateway. Orders
// rest until a pushed tick crosses their limit price; fills are full and
// immediate. It backs local development and the engine test suites.
package paper

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/pulse-trading/internal/event"
	"github.com/rxtech-lab/pulse-trading/internal/gateway"
	"github.com/rxtech-lab/pulse-trading/internal/logger"
	"github.com/rxtech-lab/pulse-trading/internal/types"
	"github.com/rxtech-lab/pulse-trading/pkg/errors"
	"go.uber.org/zap"
)

// GatewayName is the registry name of the paper gateway.
const GatewayName = "paper"

const defaultBalance = 1_000_000

// Gateway is a simulated exchange. All state is per-instance and guarded by
// one mutex; event publication happens outside vendor I/O so ordering follows
// the call order.
type Gateway struct {
	gateway.BaseGateway

	log *logger.Logger

	mu          sync.Mutex
	connected   bool
	nextOrderID int64
	orders      map[string]*types.Order
	lastTicks   map[string]types.Tick
	subscribed  map[string]struct{}
	balance     float64
}

// New creates a disconnected paper gateway publishing onto events.
func New(events *event.Engine, log *logger.Logger) *Gateway {
	return &Gateway{
		BaseGateway: gateway.NewBaseGateway(GatewayName, events),
		log:         log,
		connected:   false,
		nextOrderID: 0,
		orders:      make(map[string]*types.Order),
		lastTicks:   make(map[string]types.Tick),
		subscribed:  make(map[string]struct{}),
		balance:     defaultBalance,
	}
}

// SetBalance overrides the starting balance. Non-positive values keep the
// default.
func (g *Gateway) SetBalance(balance float64) {
	if balance <= 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.balance = balance
}

// Connect implements gateway.Gateway.
func (g *Gateway) Connect(_ context.Context) error {
	g.mu.Lock()
	g.connected = true
	g.mu.Unlock()

	g.WriteLog(types.LogLevelInfo, "paper gateway connected")
	g.publishAccount()

	return nil
}

// Subscribe implements gateway.Gateway.
func (g *Gateway) Subscribe(req types.SubscribeRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.subscribed[req.Symbol] = struct{}{}

	return nil
}

// SendOrder implements gateway.Gateway. The order is accepted immediately and
// matched against the most recent tick for its symbol, if any.
func (g *Gateway) SendOrder(req types.OrderRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	g.mu.Lock()

	if !g.connected {
		g.mu.Unlock()

		return "", errors.New(errors.ErrCodeGatewayNotConnected, "paper gateway is not connected")
	}

	g.nextOrderID++
	localID := strconv.FormatInt(g.nextOrderID, 10)

	order := &types.Order{
		GatewayName: g.Name(),
		Symbol:      req.Symbol,
		Exchange:    req.Exchange,
		OrderID:     localID,
		Direction:   req.Direction,
		Offset:      req.Offset,
		Price:       req.Price,
		TotalVolume: req.Volume,
		Status:      types.OrderStatusNotTraded,
		OrderTime:   time.Now(),
	}
	g.orders[localID] = order

	tick, hasTick := g.lastTicks[req.Symbol]
	snapshot := *order
	g.mu.Unlock()

	g.OnOrder(snapshot)

	if hasTick || req.PriceType == types.PriceTypeMarket {
		g.matchOrder(localID, tick, hasTick)
	}

	return types.QualifiedID(g.Name(), localID), nil
}

// CancelOrder implements gateway.Gateway.
func (g *Gateway) CancelOrder(req types.CancelRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	g.mu.Lock()

	order, ok := g.orders[req.OrderID]
	if !ok || !order.IsActive() {
		g.mu.Unlock()

		return errors.Newf(errors.ErrCodeOrderNotFound, "no active order %s", req.OrderID)
	}

	order.Status = types.OrderStatusCancelled
	order.CancelTime = time.Now()
	snapshot := *order
	delete(g.orders, req.OrderID)
	g.mu.Unlock()

	g.OnOrder(snapshot)

	return nil
}

// QueryAccount implements gateway.Gateway.
func (g *Gateway) QueryAccount(_ context.Context) error {
	g.publishAccount()

	return nil
}

// Close implements gateway.Gateway.
func (g *Gateway) Close() error {
	g.mu.Lock()
	g.connected = false
	g.mu.Unlock()

	return nil
}

// PushTick feeds a market data snapshot into the simulation: it is published
// as a tick event and then matched against resting orders for the symbol.
func (g *Gateway) PushTick(tick types.Tick) {
	g.mu.Lock()
	g.lastTicks[tick.Symbol] = tick
	ids := make([]string, 0, len(g.orders))

	for id, order := range g.orders {
		if order.Symbol == tick.Symbol {
			ids = append(ids, id)
		}
	}
	g.mu.Unlock()

	g.OnTick(tick)

	for _, id := range ids {
		g.matchOrder(id, tick, true)
	}
}

// matchOrder fills the order if the tick crosses its price. Limit buys fill
// when the ask is at or below the limit; limit sells when the bid is at or
// above. Market orders fill at the best opposing price, or the order price
// when no tick exists yet.
func (g *Gateway) matchOrder(localID string, tick types.Tick, hasTick bool) {
	g.mu.Lock()

	order, ok := g.orders[localID]
	if !ok || !order.IsActive() {
		g.mu.Unlock()

		return
	}

	fillPrice, crossed := fillPrice(order, tick, hasTick)
	if !crossed {
		g.mu.Unlock()

		return
	}

	order.TradedVolume = order.TotalVolume
	order.Status = types.OrderStatusAllTraded
	delete(g.orders, localID)

	trade := types.Trade{
		GatewayName: g.Name(),
		Symbol:      order.Symbol,
		Exchange:    order.Exchange,
		TradeID:     uuid.NewString(),
		OrderID:     order.OrderID,
		Direction:   order.Direction,
		Offset:      order.Offset,
		Price:       fillPrice,
		Volume:      order.TotalVolume,
		TradeTime:   time.Now(),
	}

	cost := trade.Price * trade.Volume
	if order.Direction == types.DirectionLong {
		g.balance -= cost
	} else {
		g.balance += cost
	}

	snapshot := *order
	g.mu.Unlock()

	g.log.Debug("paper fill",
		zap.String("symbol", trade.Symbol),
		zap.String("order_id", trade.OrderID),
		zap.Float64("price", trade.Price),
		zap.Float64("volume", trade.Volume),
	)

	g.OnOrder(snapshot)
	g.OnTrade(trade)
	g.publishAccount()
}

func fillPrice(order *types.Order, tick types.Tick, hasTick bool) (float64, bool) {
	if !hasTick {
		// Market order submitted before any tick: fill at its own price if
		// one was provided, otherwise leave it resting.
		if order.Price > 0 {
			return order.Price, true
		}

		return 0, false
	}

	if order.Direction == types.DirectionLong {
		ask := tick.BestAsk()
		if order.Price == 0 || ask <= order.Price {
			return ask, true
		}

		return 0, false
	}

	bid := tick.BestBid()
	if order.Price == 0 || bid >= order.Price {
		return bid, true
	}

	return 0, false
}

func (g *Gateway) publishAccount() {
	g.mu.Lock()
	balance := g.balance
	g.mu.Unlock()

	g.OnAccount(types.Account{
		GatewayName: g.Name(),
		AccountID:   "paper",
		Balance:     balance,
		Available:   balance,
	})
}
