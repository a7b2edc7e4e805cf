package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/carzh/robot-color-picker/internal/color"
	"github.com/carzh/robot-color-picker/internal/config"
	"github.com/carzh/robot-color-picker/internal/resolver"
)

var redBlue = []color.Color{color.Red, color.Blue}

func TestLexiconScore(t *testing.T) {
	lex := NewLexicon(nil)

	tests := []struct {
		command    string
		candidates []color.Color
		want       []float64
	}{
		{"point at the thing that looks like the sky", redBlue, []float64{0, 1}},
		{"something like fire, or blood", redBlue, []float64{2, 0}},
		{"Apples and roses!", redBlue, []float64{2, 0}},
		{"a stop sign", redBlue, []float64{1, 0}},
		{"the skyscraper", redBlue, []float64{0, 0}},
		{"bananas please", []color.Color{color.Yellow, color.Green}, []float64{1, 0}},
		{"nothing to see", redBlue, []float64{0, 0}},
		{"cherries and strawberries", redBlue, []float64{2, 0}},
		{"a bowl of tomatoes", redBlue, []float64{1, 0}},
		{"ripe peaches", []color.Color{color.Orange, color.Red}, []float64{1, 0}},
		{"blue skies over the lakes", redBlue, []float64{0, 2}},
		{"two stop signs", redBlue, []float64{1, 0}},
		{"faded jeans", redBlue, []float64{0, 1}},
		{"tall grass", []color.Color{color.Green, color.Yellow}, []float64{1, 0}},
	}

	for _, tt := range tests {
		got, err := lex.Score(context.Background(), tt.command, tt.candidates)
		if err != nil {
			t.Fatalf("Score(%q) error: %v", tt.command, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("Score(%q) returned %d scores, want %d", tt.command, len(got), len(tt.want))
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Score(%q) = %v, want %v", tt.command, got, tt.want)
				break
			}
		}
	}
}

func TestSingular(t *testing.T) {
	tests := []struct{ in, want string }{
		{"cherries", "cherry"},
		{"peaches", "peach"},
		{"tomatoes", "tomato"},
		{"boxes", "box"},
		{"apples", "apple"},
		{"bees", "bee"},
		{"grass", "grass"},
		{"sky", "sky"},
		{"is", "is"},
	}
	for _, tt := range tests {
		if got := singular(tt.in); got != tt.want {
			t.Errorf("singular(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLexiconCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLexicon(nil).Score(ctx, "sky", redBlue); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestLexiconFromConfig(t *testing.T) {
	lex, err := NewLexiconFromConfig(config.LexiconConfig{
		Terms: map[string][]string{"blue": {"Smurf"}},
	})
	if err != nil {
		t.Fatalf("NewLexiconFromConfig error: %v", err)
	}

	scores, _ := lex.Score(context.Background(), "a smurf", redBlue)
	if scores[1] != 1 {
		t.Errorf("Expected configured term to score, got %v", scores)
	}
	// configured colors replace their defaults
	scores, _ = lex.Score(context.Background(), "the ocean", redBlue)
	if scores[1] != 0 {
		t.Errorf("Expected default blue terms to be replaced, got %v", scores)
	}
	// other colors keep theirs
	scores, _ = lex.Score(context.Background(), "fire", redBlue)
	if scores[0] != 1 {
		t.Errorf("Expected default red terms to survive, got %v", scores)
	}

	if _, err := NewLexiconFromConfig(config.LexiconConfig{
		Terms: map[string][]string{"teal": {"duck"}},
	}); err == nil {
		t.Error("Expected error for unknown color label")
	}
}

func TestLexiconResolvesThroughResolver(t *testing.T) {
	r, err := resolver.New(NewLexicon(nil), redBlue, nil)
	if err != nil {
		t.Fatalf("resolver.New error: %v", err)
	}
	res, err := r.Resolve(context.Background(), "the one like the ocean")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if res.Color != color.Blue || res.Source != resolver.SourceClassifier {
		t.Errorf("Expected blue from classifier, got %+v", res)
	}
}

func newOllamaServer(t *testing.T, answer string, status int, seen *generateRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if seen != nil {
			if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
				t.Errorf("Failed to decode request: %v", err)
			}
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(generateResponse{Response: answer})
	}))
}

func TestOllamaScore(t *testing.T) {
	var seen generateRequest
	srv := newOllamaServer(t, " Blue.", http.StatusOK, &seen)
	defer srv.Close()

	o := NewOllama(config.OllamaConfig{Endpoint: srv.URL, Model: "llama3", TimeoutSec: 5}, nil)
	scores, err := o.Score(context.Background(), "the sky one", redBlue)
	if err != nil {
		t.Fatalf("Score error: %v", err)
	}
	if scores[0] != 0 || scores[1] != 1 {
		t.Errorf("Expected [0 1], got %v", scores)
	}

	if seen.Model != "llama3" || seen.Stream {
		t.Errorf("Unexpected request %+v", seen)
	}
	if !strings.Contains(seen.Prompt, "the sky one") || !strings.Contains(seen.Prompt, "red, blue") {
		t.Errorf("Expected prompt to carry command and choices, got %q", seen.Prompt)
	}
}

func TestOllamaOneRequestPerScore(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "green"})
	}))
	defer srv.Close()

	candidates := []color.Color{color.Red, color.Green, color.Blue}
	o := NewOllama(config.OllamaConfig{Endpoint: srv.URL, Model: "llama3", TimeoutSec: 5}, nil)
	scores, err := o.Score(context.Background(), "like grass", candidates)
	if err != nil {
		t.Fatalf("Score error: %v", err)
	}
	if n := atomic.LoadInt32(&requests); n != 1 {
		t.Errorf("Expected 1 request for %d candidates, got %d", len(candidates), n)
	}
	if len(scores) != 3 || scores[0] != 0 || scores[1] != 1 || scores[2] != 0 {
		t.Errorf("Expected [0 1 0], got %v", scores)
	}
}

func TestOllamaUnparseableAnswer(t *testing.T) {
	srv := newOllamaServer(t, "I cannot tell", http.StatusOK, nil)
	defer srv.Close()

	o := NewOllama(config.OllamaConfig{Endpoint: srv.URL, Model: "llama3", TimeoutSec: 5}, nil)
	scores, err := o.Score(context.Background(), "hmm", redBlue)
	if err != nil {
		t.Fatalf("Score error: %v", err)
	}
	if scores[0] != 0 || scores[1] != 0 {
		t.Errorf("Expected all-zero scores, got %v", scores)
	}
}

func TestOllamaServerError(t *testing.T) {
	srv := newOllamaServer(t, "", http.StatusInternalServerError, nil)
	defer srv.Close()

	o := NewOllama(config.OllamaConfig{Endpoint: srv.URL, Model: "llama3", TimeoutSec: 5}, nil)
	if _, err := o.Score(context.Background(), "hmm", redBlue); err == nil {
		t.Error("Expected error for 500 response")
	}
}

func TestPickChoice(t *testing.T) {
	tests := []struct {
		answer string
		want   int
	}{
		{"red", 0},
		{"BLUE", 1},
		{"blue, not red", 1},
		{"reddish", -1},
		{"", -1},
	}
	for _, tt := range tests {
		if got := pickChoice(tt.answer, redBlue); got != tt.want {
			t.Errorf("pickChoice(%q) = %d, want %d", tt.answer, got, tt.want)
		}
	}
}

func TestEncodePair(t *testing.T) {
	const n = 64
	a := EncodePair("the sky one", color.Red, n)
	b := EncodePair("the sky one", color.Blue, n)

	if len(a) != n {
		t.Fatalf("Expected %d features, got %d", n, len(a))
	}

	var words, labels float32
	for i, v := range a {
		if i < n/2 {
			words += v
		} else {
			labels += v
		}
	}
	if words != 3 {
		t.Errorf("Expected 3 word counts in first half, got %v", words)
	}
	if labels != 1 {
		t.Errorf("Expected one-hot label in second half, got %v", labels)
	}

	for i := 0; i < n/2; i++ {
		if a[i] != b[i] {
			t.Fatal("Expected command half to be independent of the candidate")
		}
	}

	again := EncodePair("the sky one", color.Red, n)
	for i := range a {
		if a[i] != again[i] {
			t.Fatal("Expected encoding to be deterministic")
		}
	}
}

func TestNewONNXErrors(t *testing.T) {
	if _, err := NewONNX(config.ONNXConfig{ModelPath: "x.onnx", Features: 1}, nil); err == nil {
		t.Error("Expected error for too few features")
	}
	missing := filepath.Join(t.TempDir(), "missing.onnx")
	if _, err := NewONNX(config.ONNXConfig{ModelPath: missing, Features: 16}, nil); err == nil {
		t.Error("Expected error for missing model")
	}
}

func TestNewFactory(t *testing.T) {
	c, err := New(config.ClassifierConfig{Kind: KindLexicon}, nil)
	if err != nil {
		t.Fatalf("New(lexicon) error: %v", err)
	}
	if _, ok := c.(*Lexicon); !ok {
		t.Errorf("Expected *Lexicon, got %T", c)
	}

	c, err = New(config.ClassifierConfig{Kind: KindOllama, Ollama: config.OllamaConfig{Endpoint: "http://127.0.0.1:1", Model: "m", TimeoutSec: 1}}, nil)
	if err != nil {
		t.Fatalf("New(ollama) error: %v", err)
	}
	if _, ok := c.(*Ollama); !ok {
		t.Errorf("Expected *Ollama, got %T", c)
	}

	if _, err := New(config.ClassifierConfig{Kind: KindONNX, ONNX: config.ONNXConfig{ModelPath: "nope.onnx", Features: 8}}, nil); err == nil {
		t.Error("Expected error for missing onnx model")
	}
	if _, err := New(config.ClassifierConfig{Kind: "bert"}, nil); err == nil {
		t.Error("Expected error for unknown kind")
	}
}
