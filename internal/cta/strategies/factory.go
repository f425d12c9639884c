package strategies

import (
	"github.com/rxtech-lab/pulse-trading/internal/cta"
	"github.com/rxtech-lab/pulse-trading/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	TypeDoubleMA    = "double_ma"
	TypeMultiSignal = "multi_signal"
	TypeKingKeltner = "king_keltner"
)

// New builds a strategy by type name, overlaying settings on the type's
// defaults. Settings come straight from the config file.
func New(typeName string, settings map[string]any) (cta.Strategy, error) {
	switch typeName {
	case TypeDoubleMA:
		cfg := DefaultDoubleMAConfig()
		if err := applySettings(settings, &cfg); err != nil {
			return nil, err
		}

		return NewDoubleMA(cfg), nil
	case TypeMultiSignal:
		cfg := DefaultMultiSignalConfig()
		if err := applySettings(settings, &cfg); err != nil {
			return nil, err
		}

		return NewMultiSignal(cfg), nil
	case TypeKingKeltner:
		cfg := DefaultKingKeltnerConfig()
		if err := applySettings(settings, &cfg); err != nil {
			return nil, err
		}

		return NewKingKeltner(cfg), nil
	default:
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "unknown strategy type %q", typeName)
	}
}

// applySettings overlays a settings map onto a typed config through a YAML
// round trip, so the config structs keep a single set of field tags.
func applySettings(settings map[string]any, out any) error {
	if len(settings) == 0 {
		return nil
	}

	raw, err := yaml.Marshal(settings)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigParseFailed, "failed to encode strategy settings", err)
	}

	if err := yaml.Unmarshal(raw, out); err != nil {
		return errors.Wrap(errors.ErrCodeConfigParseFailed, "failed to decode strategy settings", err)
	}

	return nil
}
