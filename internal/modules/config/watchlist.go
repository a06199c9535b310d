package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// WatchSymbol — один инструмент из списка наблюдения. FloatMarketCap
// опционален: без него net flow отдаётся ненормированным.
type WatchSymbol struct {
	Code           string  `yaml:"code"`
	FloatMarketCap float64 `yaml:"float_market_cap"`
}

type watchlistFile struct {
	Symbols []WatchSymbol `yaml:"symbols"`
}

// LoadWatchlist читает список символов из yaml-файла.
func LoadWatchlist(path string) ([]WatchSymbol, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open watchlist %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	var parsed watchlistFile
	if err := yaml.NewDecoder(file).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode watchlist %s: %w", path, err)
	}
	if len(parsed.Symbols) == 0 {
		return nil, fmt.Errorf("watchlist %s is empty", path)
	}
	for i, s := range parsed.Symbols {
		if s.Code == "" {
			return nil, fmt.Errorf("watchlist %s: symbol #%d has empty code", path, i)
		}
	}
	return parsed.Symbols, nil
}
