package classifier

import (
	"context"
	"math"
	"testing"

	"github.com/carzh/robot-color-picker/internal/color"
	"github.com/carzh/robot-color-picker/internal/config"
	"github.com/carzh/robot-color-picker/internal/resolver"
)

// testdata/pair_scorer.onnx is a single MatMul: x[1,4] times W[4,1].
var pairScorerWeights = []float64{0.5, -0.25, 2.0, -1.0}

func loadPairScorer(t *testing.T) *ONNX {
	t.Helper()
	o, err := NewONNX(config.ONNXConfig{ModelPath: "testdata/pair_scorer.onnx", Features: 4}, nil)
	if err != nil {
		t.Fatalf("NewONNX error: %v", err)
	}
	return o
}

func expectedLogit(command string, c color.Color) float64 {
	var sum float64
	for i, v := range EncodePair(command, c, len(pairScorerWeights)) {
		sum += float64(v) * pairScorerWeights[i]
	}
	return sum
}

func TestONNXScore(t *testing.T) {
	o := loadPairScorer(t)

	tests := []struct {
		command    string
		candidates []color.Color
	}{
		{"the one like a banana", redBlue},
		{"something like the sky", []color.Color{color.Blue, color.Red, color.Green}},
		{"grab it", []color.Color{color.Yellow, color.Purple}},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			scores, err := o.Score(context.Background(), tt.command, tt.candidates)
			if err != nil {
				t.Fatalf("Score error: %v", err)
			}
			if len(scores) != len(tt.candidates) {
				t.Fatalf("Expected %d logits, got %d", len(tt.candidates), len(scores))
			}
			for i, c := range tt.candidates {
				want := expectedLogit(tt.command, c)
				if math.Abs(scores[i]-want) > 1e-5 {
					t.Errorf("Score[%d] (%v) = %v, want %v", i, c, scores[i], want)
				}
			}
		})
	}
}

func TestONNXScoreCancelledContext(t *testing.T) {
	o := loadPairScorer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := o.Score(ctx, "the one like a banana", redBlue); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestONNXResolvesThroughResolver(t *testing.T) {
	r, err := resolver.New(loadPairScorer(t), redBlue, nil)
	if err != nil {
		t.Fatalf("resolver.New error: %v", err)
	}
	res, err := r.Resolve(context.Background(), "the one like a banana")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if res.Source != resolver.SourceClassifier {
		t.Errorf("Expected classifier source, got %q", res.Source)
	}
	if res.Color != color.Red && res.Color != color.Blue {
		t.Errorf("Expected a candidate color, got %v", res.Color)
	}
	if len(res.Scores) != len(redBlue) {
		t.Errorf("Expected %d scores, got %v", len(redBlue), res.Scores)
	}
}
