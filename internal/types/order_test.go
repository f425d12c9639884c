package types

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type OrderTestSuite struct {
	suite.Suite
}

func TestOrderSuite(t *testing.T) {
	suite.Run(t, new(OrderTestSuite))
}

func (suite *OrderTestSuite) TestQualifiedID() {
	order := Order{
		GatewayName: "binance",
		OrderID:     "123456",
	}

	suite.Equal("binance.123456", order.QualifiedID())
}

func (suite *OrderTestSuite) TestSplitQualifiedID() {
	tests := []struct {
		name            string
		qualifiedID     string
		expectedGateway string
		expectedLocal   string
		expectedError   bool
	}{
		{
			name:            "Valid qualified ID",
			qualifiedID:     "binance.123456",
			expectedGateway: "binance",
			expectedLocal:   "123456",
			expectedError:   false,
		},
		{
			name:            "Local ID containing separator",
			qualifiedID:     "paper.order.42",
			expectedGateway: "paper",
			expectedLocal:   "order.42",
			expectedError:   false,
		},
		{
			name:          "Missing separator",
			qualifiedID:   "binance123456",
			expectedError: true,
		},
		{
			name:          "Empty gateway name",
			qualifiedID:   ".123456",
			expectedError: true,
		},
		{
			name:          "Empty local ID",
			qualifiedID:   "binance.",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			gateway, local, err := SplitQualifiedID(tt.qualifiedID)
			if tt.expectedError {
				suite.Error(err)

				return
			}

			suite.NoError(err)
			suite.Equal(tt.expectedGateway, gateway)
			suite.Equal(tt.expectedLocal, local)
		})
	}
}

func (suite *OrderTestSuite) TestOrderStatusIsFinished() {
	tests := []struct {
		status   OrderStatus
		finished bool
	}{
		{OrderStatusSubmitting, false},
		{OrderStatusNotTraded, false},
		{OrderStatusPartTraded, false},
		{OrderStatusAllTraded, true},
		{OrderStatusCancelled, true},
		{OrderStatusRejected, true},
	}

	for _, tt := range tests {
		suite.Run(string(tt.status), func() {
			suite.Equal(tt.finished, tt.status.IsFinished())
			suite.Equal(!tt.finished, Order{Status: tt.status}.IsActive())
		})
	}
}

func (suite *OrderTestSuite) TestOrderRequestValidate() {
	tests := []struct {
		name          string
		request       OrderRequest
		expectedError bool
	}{
		{
			name: "Valid limit order",
			request: OrderRequest{
				Symbol:    "BTCUSDT",
				Direction: DirectionLong,
				Offset:    OffsetOpen,
				PriceType: PriceTypeLimit,
				Price:     42000.5,
				Volume:    1,
			},
			expectedError: false,
		},
		{
			name: "Valid market order with zero price",
			request: OrderRequest{
				Symbol:    "BTCUSDT",
				Direction: DirectionShort,
				Offset:    OffsetClose,
				PriceType: PriceTypeMarket,
				Volume:    2,
			},
			expectedError: false,
		},
		{
			name: "Missing symbol",
			request: OrderRequest{
				Direction: DirectionLong,
				Offset:    OffsetOpen,
				PriceType: PriceTypeLimit,
				Price:     100,
				Volume:    1,
			},
			expectedError: true,
		},
		{
			name: "Invalid direction",
			request: OrderRequest{
				Symbol:    "BTCUSDT",
				Direction: "SIDEWAYS",
				Offset:    OffsetOpen,
				PriceType: PriceTypeLimit,
				Price:     100,
				Volume:    1,
			},
			expectedError: true,
		},
		{
			name: "Zero volume",
			request: OrderRequest{
				Symbol:    "BTCUSDT",
				Direction: DirectionLong,
				Offset:    OffsetOpen,
				PriceType: PriceTypeLimit,
				Price:     100,
				Volume:    0,
			},
			expectedError: true,
		},
		{
			name: "Limit order without price",
			request: OrderRequest{
				Symbol:    "BTCUSDT",
				Direction: DirectionLong,
				Offset:    OffsetOpen,
				PriceType: PriceTypeLimit,
				Volume:    1,
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			err := tt.request.Validate()
			if tt.expectedError {
				suite.Error(err)
			} else {
				suite.NoError(err)
			}
		})
	}
}

func (suite *OrderTestSuite) TestTradePositionChange() {
	long := Trade{Direction: DirectionLong, Volume: 3}
	short := Trade{Direction: DirectionShort, Volume: 2}

	suite.Equal(3.0, long.PositionChange())
	suite.Equal(-2.0, short.PositionChange())
}

func (suite *OrderTestSuite) TestTickBestPrices() {
	tick := Tick{LastPrice: 100}
	suite.Equal(100.0, tick.BestBid())
	suite.Equal(100.0, tick.BestAsk())

	tick.BidPrices[0] = 99.5
	tick.AskPrices[0] = 100.5
	suite.Equal(99.5, tick.BestBid())
	suite.Equal(100.5, tick.BestAsk())
}
