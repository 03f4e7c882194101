//go:build onnx

package main

import (
	"github.com/stocksense/stocksense-go/memory"
	"github.com/stocksense/stocksense-go/memory/embedder/onnx"
)

func buildONNXEmbedder(cfg fileConfig) (memory.Embedder, error) {
	return onnx.New(onnx.Config{
		LibraryPath:   cfg.Embedder.LibraryPath,
		ModelPath:     cfg.Embedder.ModelPath,
		TokenizerPath: cfg.Embedder.TokenizerPath,
	})
}
