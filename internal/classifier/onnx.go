package classifier

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"sync"

	"github.com/owulveryck/onnx-go"
	"github.com/owulveryck/onnx-go/backend/x/gorgonnx"
	"go.uber.org/zap"
	"gorgonia.org/tensor"

	"github.com/carzh/robot-color-picker/internal/color"
	"github.com/carzh/robot-color-picker/internal/config"
)

// MinFeatures is the smallest feature width an ONNX model may declare.
const MinFeatures = 2

// ONNX scores each (command, candidate) pair with a model that takes a
// [1, features] float32 bag-of-words vector and emits a single logit.
type ONNX struct {
	mu       sync.Mutex
	backend  *gorgonnx.Graph
	model    *onnx.Model
	features int
	logger   *zap.Logger
}

// NewONNX loads the model at cfg.ModelPath.
func NewONNX(cfg config.ONNXConfig, logger *zap.Logger) (*ONNX, error) {
	if cfg.Features < MinFeatures {
		return nil, fmt.Errorf("onnx: features must be at least %d, got %d", MinFeatures, cfg.Features)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	b, err := os.ReadFile(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: read model: %w", err)
	}

	backend := gorgonnx.NewGraph()
	model := onnx.NewModel(backend)
	if err := model.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("onnx: decode model: %w", err)
	}

	logger.Info("onnx classifier loaded",
		zap.String("model", cfg.ModelPath),
		zap.Int("features", cfg.Features),
	)
	return &ONNX{backend: backend, model: model, features: cfg.Features, logger: logger}, nil
}

// Score implements resolver.Classifier.
func (o *ONNX) Score(ctx context.Context, command string, candidates []color.Color) ([]float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in := tensor.New(
			tensor.WithShape(1, o.features),
			tensor.WithBacking(EncodePair(command, c, o.features)),
		)
		if err := o.model.SetInput(0, in); err != nil {
			return nil, fmt.Errorf("onnx: set input: %w", err)
		}
		if err := o.backend.Run(); err != nil {
			return nil, fmt.Errorf("onnx: run: %w", err)
		}
		outs, err := o.model.GetOutputTensors()
		if err != nil {
			return nil, fmt.Errorf("onnx: output: %w", err)
		}
		if len(outs) == 0 {
			return nil, errors.New("onnx: model produced no output")
		}
		logit, err := firstValue(outs[0].Data())
		if err != nil {
			return nil, err
		}
		scores[i] = logit
	}
	return scores, nil
}

func firstValue(data interface{}) (float64, error) {
	switch v := data.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case []float32:
		if len(v) > 0 {
			return float64(v[0]), nil
		}
	case []float64:
		if len(v) > 0 {
			return v[0], nil
		}
	}
	return 0, fmt.Errorf("onnx: unsupported output %T", data)
}

// EncodePair builds the model input for one candidate. The first half of the
// vector counts hashed command words; the second half one-hot encodes the
// candidate label.
func EncodePair(command string, candidate color.Color, features int) []float32 {
	vec := make([]float32, features)
	half := features / 2
	for _, w := range strings.Fields(normalize(command)) {
		vec[bucket(w, half)]++
	}
	vec[half+bucket(candidate.String(), features-half)] = 1
	return vec
}

func bucket(s string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(n))
}
