//go:build !onnx

package main

import (
	"fmt"

	"github.com/stocksense/stocksense-go/memory"
)

func buildONNXEmbedder(fileConfig) (memory.Embedder, error) {
	return nil, fmt.Errorf("onnx embedder requires building with -tags onnx")
}
