package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Bus         BusConfig          `json:"bus"`
	Instruments []InstrumentConfig `json:"instruments"`
	Book        BookConfig         `json:"book"`
	Trend       TrendConfig        `json:"trend"`
	Profiling   ProfilingConfig    `json:"profiling"`
}

// BusConfig selects the bus backend by connection string.
// Empty or "memory" runs in-process; a redis:// URL selects redis.
type BusConfig struct {
	Conn string `json:"conn"`
}

// InstrumentConfig is one (venue, symbol) pair to ingest and analyze.
type InstrumentConfig struct {
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
}

// BookConfig tunes the order book engine.
type BookConfig struct {
	ThrottleMs int64 `json:"throttleMs"`
	Depth      int   `json:"depth"`
}

// TrendConfig tunes the trend combiner.
type TrendConfig struct {
	Window          int     `json:"window"`
	WeightCandle    float64 `json:"weightCandle"`
	WeightVolume    float64 `json:"weightVolume"`
	WeightOrderbook float64 `json:"weightOrderbook"`
}

// ProfilingConfig captures optional continuous profiling settings.
type ProfilingConfig struct {
	ServerAddress string `json:"serverAddress"`
	Enabled       *bool  `json:"enabled"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	BusConn      string
	Instruments  []InstrumentConfig
	BookThrottle time.Duration
	BookDepth    int
	TrendWindow  int
	TrendWeights [3]float64 // candle, volume, orderbook
	Profiling    Profiling
}

// Profiling is the resolved profiling setting.
type Profiling struct {
	Enabled       bool
	ServerAddress string
}

// Load reads a JSON config file and resolves defaults.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}
	return Resolve(cfg)
}

// Resolve validates a file config and fills defaults.
func Resolve(cfg FileConfig) (Loaded, error) {
	if len(cfg.Instruments) == 0 {
		return Loaded{}, fmt.Errorf("no instruments configured")
	}
	for _, inst := range cfg.Instruments {
		if inst.Exchange == "" || inst.Symbol == "" {
			return Loaded{}, fmt.Errorf("instrument needs exchange and symbol: %+v", inst)
		}
	}

	throttle := 80 * time.Millisecond
	if cfg.Book.ThrottleMs > 0 {
		throttle = time.Duration(cfg.Book.ThrottleMs) * time.Millisecond
	}
	depth := 200
	if cfg.Book.Depth > 0 {
		depth = cfg.Book.Depth
	}
	window := 50
	if cfg.Trend.Window > 0 {
		window = cfg.Trend.Window
	}
	weights := [3]float64{1, 1, 1}
	if cfg.Trend.WeightCandle > 0 {
		weights[0] = cfg.Trend.WeightCandle
	}
	if cfg.Trend.WeightVolume > 0 {
		weights[1] = cfg.Trend.WeightVolume
	}
	if cfg.Trend.WeightOrderbook > 0 {
		weights[2] = cfg.Trend.WeightOrderbook
	}

	profiling := Profiling{
		Enabled:       cfg.Profiling.ServerAddress != "",
		ServerAddress: cfg.Profiling.ServerAddress,
	}
	if cfg.Profiling.Enabled != nil {
		profiling.Enabled = *cfg.Profiling.Enabled && cfg.Profiling.ServerAddress != ""
	}

	return Loaded{
		BusConn:      cfg.Bus.Conn,
		Instruments:  cfg.Instruments,
		BookThrottle: throttle,
		BookDepth:    depth,
		TrendWindow:  window,
		TrendWeights: weights,
		Profiling:    profiling,
	}, nil
}
