// Package engine wires the event engine and the gateway adapters together and
// routes order traffic between them. Strategy engines and UI consumers talk to
// gateways only through the MainEngine.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rxtech-lab/pulse-trading/internal/event"
	"github.com/rxtech-lab/pulse-trading/internal/gateway"
	"github.com/rxtech-lab/pulse-trading/internal/logger"
	"github.com/rxtech-lab/pulse-trading/internal/types"
	"github.com/rxtech-lab/pulse-trading/pkg/errors"
	"go.uber.org/zap"
)

// MainEngine owns the event engine and the gateway registry. It also keeps a
// live view of all orders flowing through the system, keyed by qualified ID,
// for UI queries and cancellation by ID.
type MainEngine struct {
	events *event.Engine
	log    *logger.Logger

	mu       sync.RWMutex
	gateways map[string]gateway.Gateway
	orders   map[string]types.Order

	orderHandler *event.HandlerFunc
}

// NewMainEngine creates a main engine around the given event engine.
func NewMainEngine(events *event.Engine, log *logger.Logger) *MainEngine {
	m := &MainEngine{
		events:   events,
		log:      log,
		gateways: make(map[string]gateway.Gateway),
		orders:   make(map[string]types.Order),
	}

	m.orderHandler = event.NewHandlerFunc("main-engine-orders", m.processOrderEvent)
	events.Register(event.TypeOrder, m.orderHandler)

	return m
}

// Events returns the underlying event engine.
func (m *MainEngine) Events() *event.Engine {
	return m.events
}

// Start begins event processing.
func (m *MainEngine) Start() {
	m.events.Start()
}

// AddGateway registers a gateway under its name.
func (m *MainEngine) AddGateway(gw gateway.Gateway) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.gateways[gw.Name()]; exists {
		return errors.Newf(errors.ErrCodeDuplicateGateway, "gateway %s already registered", gw.Name())
	}

	m.gateways[gw.Name()] = gw

	return nil
}

// Gateway looks up a registered gateway by name.
func (m *MainEngine) Gateway(name string) (gateway.Gateway, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	gw, ok := m.gateways[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeGatewayNotFound, "gateway %s not found", name)
	}

	return gw, nil
}

// GatewayNames returns the names of all registered gateways.
func (m *MainEngine) GatewayNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.gateways))
	for name := range m.gateways {
		names = append(names, name)
	}

	return names
}

// Connect connects the named gateway. Failures are reported as log events and
// returned; they are never fatal to the engine.
func (m *MainEngine) Connect(ctx context.Context, gatewayName string) error {
	gw, err := m.Gateway(gatewayName)
	if err != nil {
		return err
	}

	if err := gw.Connect(ctx); err != nil {
		m.WriteLog(types.LogLevelError, "failed to connect gateway "+gatewayName+": "+err.Error())

		return errors.Wrapf(errors.ErrCodeGatewayRequestFailed, err, "connect %s", gatewayName)
	}

	return nil
}

// Subscribe requests market data from the named gateway.
func (m *MainEngine) Subscribe(req types.SubscribeRequest, gatewayName string) error {
	gw, err := m.Gateway(gatewayName)
	if err != nil {
		return err
	}

	return gw.Subscribe(req)
}

// SendOrder validates and routes an order request to the named gateway,
// returning the gateway-qualified order ID.
func (m *MainEngine) SendOrder(req types.OrderRequest, gatewayName string) (string, error) {
	if err := req.Validate(); err != nil {
		m.WriteLog(types.LogLevelError, "rejected order request: "+err.Error())

		return "", err
	}

	gw, err := m.Gateway(gatewayName)
	if err != nil {
		return "", err
	}

	qualifiedID, err := gw.SendOrder(req)
	if err != nil {
		m.WriteLog(types.LogLevelError, "order send failed on "+gatewayName+": "+err.Error())

		return "", err
	}

	m.log.Debug("order routed",
		zap.String("gateway", gatewayName),
		zap.String("order_id", qualifiedID),
		zap.String("symbol", req.Symbol),
		zap.String("reference", req.Reference),
	)

	return qualifiedID, nil
}

// CancelOrder routes a cancel request to the named gateway.
func (m *MainEngine) CancelOrder(req types.CancelRequest, gatewayName string) error {
	gw, err := m.Gateway(gatewayName)
	if err != nil {
		return err
	}

	return gw.CancelOrder(req)
}

// CancelByQualifiedID cancels an order identified by its qualified ID,
// resolving the owning gateway from the ID itself.
func (m *MainEngine) CancelByQualifiedID(symbol, qualifiedID string) error {
	gatewayName, localID, err := types.SplitQualifiedID(qualifiedID)
	if err != nil {
		return err
	}

	return m.CancelOrder(types.CancelRequest{
		Symbol:  symbol,
		OrderID: localID,
	}, gatewayName)
}

// QueryAccount asks the named gateway for a fresh account snapshot.
func (m *MainEngine) QueryAccount(ctx context.Context, gatewayName string) error {
	gw, err := m.Gateway(gatewayName)
	if err != nil {
		return err
	}

	return gw.QueryAccount(ctx)
}

// Order returns the last known state of an order by qualified ID.
func (m *MainEngine) Order(qualifiedID string) (types.Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, ok := m.orders[qualifiedID]

	return order, ok
}

// ActiveOrders returns all orders that have not reached a terminal status.
func (m *MainEngine) ActiveOrders() []types.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()

	active := make([]types.Order, 0)

	for _, order := range m.orders {
		if order.IsActive() {
			active = append(active, order)
		}
	}

	return active
}

// WriteLog publishes a log entry attributed to the core.
func (m *MainEngine) WriteLog(level types.LogLevel, message string) {
	m.events.Put(event.New(event.TypeLog, types.LogEntry{
		Time:    time.Now(),
		Level:   level,
		Message: message,
	}))
}

// Close shuts down every gateway, then stops event processing. No event is in
// flight once Close returns.
func (m *MainEngine) Close() {
	m.mu.RLock()
	gateways := make([]gateway.Gateway, 0, len(m.gateways))

	for _, gw := range m.gateways {
		gateways = append(gateways, gw)
	}
	m.mu.RUnlock()

	for _, gw := range gateways {
		if err := gw.Close(); err != nil {
			m.log.Error("gateway close failed", zap.String("gateway", gw.Name()), zap.Error(err))
		}
	}

	m.events.Stop()
}

func (m *MainEngine) processOrderEvent(e event.Event) {
	order, ok := e.Data.(types.Order)
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.orders[order.QualifiedID()] = order
}
