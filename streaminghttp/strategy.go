package streaminghttp

import (
	"fmt"
	"strings"
)

// Strategy selects how replies reach the client.
type Strategy string

const (
	StrategySync  Strategy = "sync"
	StrategyBatch Strategy = "batch"
	StrategySSE   Strategy = "sse"
)

// ParseStrategy maps a configuration value onto a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategySync, StrategyBatch, StrategySSE:
		return st, nil
	default:
		return "", fmt.Errorf("unknown transport strategy %q (want sync, batch or sse)", s)
	}
}

func (s Strategy) allowedMethods() string {
	if s == StrategySSE {
		return "GET, POST, DELETE"
	}
	return "POST, DELETE"
}
