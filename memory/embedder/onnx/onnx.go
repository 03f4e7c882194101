//go:build onnx

// Package onnx embeds text locally with a sentence-transformer model
// (all-MiniLM-L6-v2 or compatible) through ONNX Runtime. Build with
// -tags onnx and point LibraryPath at libonnxruntime.
package onnx

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

const maxSeqLen = 128

// Config configures the embedder.
type Config struct {
	// LibraryPath locates the onnxruntime shared library.
	LibraryPath string

	// ModelPath is the ONNX model file.
	ModelPath string

	// TokenizerPath is the tokenizer.json holding the WordPiece vocab.
	TokenizerPath string

	// Dimensions is the hidden size; defaults to 384 (MiniLM).
	Dimensions int
}

// Embedder runs BERT-style tokenization plus mean-pooled inference.
type Embedder struct {
	session    *ort.DynamicAdvancedSession
	vocab      map[string]int
	dimensions int
}

// New initializes the runtime, loads the vocab, and opens a session.
func New(cfg Config) (*Embedder, error) {
	if cfg.ModelPath == "" || cfg.TokenizerPath == "" {
		return nil, fmt.Errorf("ModelPath and TokenizerPath are required")
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 384
	}
	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize onnx runtime: %w", err)
	}

	vocab, err := loadVocab(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &Embedder{session: session, vocab: vocab, dimensions: cfg.Dimensions}, nil
}

// Embed converts text to a unit vector via mean pooling over attended tokens.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	const clsToken, sepToken = 101, 102

	ids := e.tokenize(text)
	if len(ids) > maxSeqLen-2 {
		ids = ids[:maxSeqLen-2]
	}

	inputIDs := make([]int64, maxSeqLen)
	attention := make([]int64, maxSeqLen)
	tokenTypes := make([]int64, maxSeqLen)

	inputIDs[0] = clsToken
	attention[0] = 1
	for i, id := range ids {
		inputIDs[i+1] = id
		attention[i+1] = 1
	}
	inputIDs[len(ids)+1] = sepToken
	attention[len(ids)+1] = 1

	shape := ort.NewShape(1, maxSeqLen)
	tensors := make([]ort.Value, 0, 3)
	for _, data := range [][]int64{inputIDs, attention, tokenTypes} {
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("create input tensor: %w", err)
		}
		defer t.Destroy()
		tensors = append(tensors, t)
	}

	outputs := []ort.Value{nil}
	if err := e.session.Run(tensors, outputs); err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}

	return e.meanPool(out, attention)
}

// Dimensions returns the hidden size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Close releases the session.
func (e *Embedder) Close() error {
	if e.session != nil {
		return e.session.Destroy()
	}
	return nil
}

func (e *Embedder) meanPool(out *ort.Tensor[float32], attention []int64) ([]float32, error) {
	data := out.GetData()
	shape := out.GetShape()
	if len(shape) != 3 || shape[0] != 1 || shape[2] != int64(e.dimensions) {
		return nil, fmt.Errorf("unexpected output shape %v", shape)
	}
	seqLen := int(shape[1])

	vec := make([]float32, e.dimensions)
	attended := float32(0)
	for i := 0; i < seqLen && i < len(attention); i++ {
		if attention[i] == 0 {
			continue
		}
		attended++
		offset := i * e.dimensions
		for j := 0; j < e.dimensions; j++ {
			vec[j] += data[offset+j]
		}
	}
	if attended == 0 {
		return vec, nil
	}

	var norm float64
	for j := range vec {
		vec[j] /= attended
		norm += float64(vec[j]) * float64(vec[j])
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for j := range vec {
			vec[j] /= n
		}
	}
	return vec, nil
}

// tokenize runs lowercase WordPiece with greedy longest-prefix matching.
func (e *Embedder) tokenize(text string) []int64 {
	const unkToken = 100

	var ids []int64
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'")
		if word == "" {
			continue
		}
		if id, ok := e.vocab[word]; ok {
			ids = append(ids, int64(id))
			continue
		}

		start := 0
		for start < len(word) {
			end := len(word)
			matched := false
			for end > start {
				piece := word[start:end]
				if start > 0 {
					piece = "##" + piece
				}
				if id, ok := e.vocab[piece]; ok {
					ids = append(ids, int64(id))
					start = end
					matched = true
					break
				}
				end--
			}
			if !matched {
				ids = append(ids, unkToken)
				start++
			}
		}
	}
	return ids
}

func loadVocab(path string) (map[string]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Model struct {
			Vocab map[string]int `json:"vocab"`
		} `json:"model"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Model.Vocab) == 0 {
		return nil, fmt.Errorf("tokenizer vocab is empty")
	}
	return parsed.Model.Vocab, nil
}
