package binance

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/pulse-trading/internal/logger"
	"github.com/rxtech-lab/pulse-trading/internal/types"
	"go.uber.org/zap"
)

const (
	streamEndpoint        = "wss://stream.binance.com:9443/stream"
	testnetStreamEndpoint = "wss://stream.testnet.binance.vision/stream"

	reconnectDelay    = 5 * time.Second
	maxReconnectDelay = time.Minute
	readTimeout       = 90 * time.Second
)

// marketStream maintains one combined-stream websocket connection and turns
// bookTicker and trade pushes into tick events. The connection heals itself:
// read failures trigger a reconnect with exponential backoff, and
// subscription changes force a reconnect with the updated stream list.
type marketStream struct {
	gw      *Gateway
	log     *logger.Logger
	testnet bool

	mu      sync.Mutex
	symbols map[string]struct{}
	ticks   map[string]types.Tick
	running bool
	quit    chan struct{}
	done    chan struct{}
	conn    *websocket.Conn
}

func newMarketStream(gw *Gateway, testnet bool, log *logger.Logger) *marketStream {
	return &marketStream{
		gw:      gw,
		log:     log,
		testnet: testnet,
		symbols: make(map[string]struct{}),
		ticks:   make(map[string]types.Tick),
	}
}

func (m *marketStream) start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.running = true
	m.quit = make(chan struct{})
	m.done = make(chan struct{})

	go m.run()
}

func (m *marketStream) stopped() bool {
	select {
	case <-m.quit:
		return true
	default:
		return false
	}
}

func (m *marketStream) subscribe(symbol string) {
	m.mu.Lock()
	_, exists := m.symbols[symbol]
	m.symbols[symbol] = struct{}{}
	conn := m.conn
	m.mu.Unlock()

	// Force a reconnect so the new combined-stream URL takes effect.
	if !exists && conn != nil {
		conn.Close()
	}
}

func (m *marketStream) stop() {
	m.mu.Lock()

	if !m.running {
		m.mu.Unlock()

		return
	}

	m.running = false
	close(m.quit)
	conn := m.conn
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	<-m.done
}

func (m *marketStream) url() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	streams := make([]string, 0, len(m.symbols)*2)

	for symbol := range m.symbols {
		lower := strings.ToLower(symbol)
		streams = append(streams, lower+"@bookTicker", lower+"@trade")
	}

	endpoint := streamEndpoint
	if m.testnet {
		endpoint = testnetStreamEndpoint
	}

	return endpoint + "?streams=" + strings.Join(streams, "/")
}

func (m *marketStream) run() {
	defer close(m.done)

	delay := reconnectDelay

	for !m.stopped() {
		m.mu.Lock()
		empty := len(m.symbols) == 0
		m.mu.Unlock()

		if empty {
			if !m.sleep(time.Second) {
				return
			}

			continue
		}

		conn, _, err := websocket.DefaultDialer.Dial(m.url(), nil)
		if err != nil {
			m.log.Warn("market stream dial failed", zap.Error(err))
			m.gw.OnError("stream_dial_failed", err.Error())

			if !m.sleep(delay) {
				return
			}

			if delay *= 2; delay > maxReconnectDelay {
				delay = maxReconnectDelay
			}

			continue
		}

		delay = reconnectDelay

		m.mu.Lock()
		m.conn = conn
		m.mu.Unlock()

		m.readLoop(conn)

		m.mu.Lock()
		m.conn = nil
		m.mu.Unlock()

		conn.Close()
	}
}

func (m *marketStream) sleep(d time.Duration) bool {
	select {
	case <-m.quit:
		return false
	case <-time.After(d):
		return true
	}
}

func (m *marketStream) readLoop(conn *websocket.Conn) {
	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		_, payload, err := conn.ReadMessage()
		if err != nil {
			if !m.stopped() {
				m.log.Warn("market stream read failed", zap.Error(err))
			}

			return
		}

		m.handleMessage(payload)
	}
}

// combinedMessage is the envelope of the /stream endpoint.
type combinedMessage struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type bookTickerData struct {
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

type tradeData struct {
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}

func (m *marketStream) handleMessage(payload []byte) {
	var msg combinedMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		m.log.Warn("malformed stream message", zap.Error(err))

		return
	}

	switch {
	case strings.HasSuffix(msg.Stream, "@bookTicker"):
		m.handleBookTicker(msg.Data)
	case strings.HasSuffix(msg.Stream, "@trade"):
		m.handleTrade(msg.Data)
	}
}

func (m *marketStream) handleBookTicker(data json.RawMessage) {
	var bt bookTickerData
	if err := json.Unmarshal(data, &bt); err != nil {
		return
	}

	m.mu.Lock()
	tick := m.ticks[bt.Symbol]
	tick.Symbol = bt.Symbol
	tick.Exchange = "BINANCE"
	tick.Timestamp = time.Now()
	tick.BidPrices[0], _ = strconv.ParseFloat(bt.BidPrice, 64)
	tick.BidVolumes[0], _ = strconv.ParseFloat(bt.BidQty, 64)
	tick.AskPrices[0], _ = strconv.ParseFloat(bt.AskPrice, 64)
	tick.AskVolumes[0], _ = strconv.ParseFloat(bt.AskQty, 64)
	m.ticks[bt.Symbol] = tick
	m.mu.Unlock()

	if tick.LastPrice > 0 {
		m.gw.OnTick(tick)
	}
}

func (m *marketStream) handleTrade(data json.RawMessage) {
	var td tradeData
	if err := json.Unmarshal(data, &td); err != nil {
		return
	}

	price, _ := strconv.ParseFloat(td.Price, 64)
	qty, _ := strconv.ParseFloat(td.Quantity, 64)

	m.mu.Lock()
	tick := m.ticks[td.Symbol]
	tick.Symbol = td.Symbol
	tick.Exchange = "BINANCE"
	tick.Timestamp = time.UnixMilli(td.TradeTime)
	tick.LastPrice = price
	tick.LastVolume = qty
	tick.Volume += qty
	m.ticks[td.Symbol] = tick
	m.mu.Unlock()

	m.gw.OnTick(tick)
}
