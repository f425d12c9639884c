package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

const validConfig = `
gateway: paper
gateways:
  paper:
    balance: 500000
event:
  timer_interval: 2s
storage:
  path: trader.db
strategies:
  - name: double-ma-btc
    type: double_ma
    symbol: BTCUSDT
    auto_start: true
    settings:
      fast_window: 10
      slow_window: 60
`

func (s *ConfigTestSuite) TestParseValidConfig() {
	cfg, err := Parse([]byte(validConfig))
	s.Require().NoError(err)

	s.Equal("paper", cfg.Gateway)
	s.Require().NotNil(cfg.Gateways.Paper)
	s.Equal(500000.0, cfg.Gateways.Paper.Balance)
	s.Equal(2*time.Second, cfg.Event.TimerInterval)
	s.Equal("trader.db", cfg.Storage.Path)

	s.Require().Len(cfg.Strategies, 1)
	s.Equal("double-ma-btc", cfg.Strategies[0].Name)
	s.True(cfg.Strategies[0].AutoStart)
	s.Equal(10, cfg.Strategies[0].Settings["fast_window"])
}

func (s *ConfigTestSuite) TestLoadFromFile() {
	path := filepath.Join(s.T().TempDir(), "config.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(validConfig), 0o600))

	cfg, err := Load(path)
	s.Require().NoError(err)
	s.Equal("paper", cfg.Gateway)
}

func (s *ConfigTestSuite) TestLoadMissingFile() {
	_, err := Load(filepath.Join(s.T().TempDir(), "missing.yaml"))
	s.Require().Error(err)
}

func (s *ConfigTestSuite) TestInvalidConfigs() {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "malformed yaml",
			yaml: "gateway: [",
		},
		{
			name: "missing gateway",
			yaml: "strategies: []",
		},
		{
			name: "unknown gateway",
			yaml: "gateway: kraken",
		},
		{
			name: "binance selected without credentials",
			yaml: "gateway: binance",
		},
		{
			name: "strategy missing symbol",
			yaml: `
gateway: paper
strategies:
  - name: double-ma
    type: double_ma
`,
		},
		{
			name: "duplicate strategy names",
			yaml: `
gateway: paper
strategies:
  - name: double-ma
    type: double_ma
    symbol: BTCUSDT
  - name: double-ma
    type: double_ma
    symbol: ETHUSDT
`,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := Parse([]byte(tt.yaml))
			s.Require().Error(err)
		})
	}
}
