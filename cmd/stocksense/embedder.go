package main

import (
	"fmt"

	"github.com/stocksense/stocksense-go/memory"
	"github.com/stocksense/stocksense-go/memory/embedder/hash"
	"github.com/stocksense/stocksense-go/memory/embedder/openai"
)

// buildEmbedder selects the configured embedder. The onnx kind is only
// available when built with -tags onnx; see embedder_onnx.go.
func buildEmbedder(cfg fileConfig) (memory.Embedder, error) {
	switch cfg.Embedder.Kind {
	case "", "hash":
		return hash.New(), nil
	case "openai":
		return openai.New(openai.Config{
			BaseURL: cfg.Embedder.BaseURL,
			APIKey:  cfg.Embedder.APIKey,
			Model:   cfg.Embedder.Model,
		}), nil
	case "onnx":
		return buildONNXEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedder kind %q", cfg.Embedder.Kind)
	}
}
