// Package classifier provides the fallback scorers used when a command names
// no color literally.
package classifier

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/carzh/robot-color-picker/internal/config"
	"github.com/carzh/robot-color-picker/internal/resolver"
)

const (
	KindLexicon = "lexicon"
	KindOllama  = "ollama"
	KindONNX    = "onnx"
)

// New builds the classifier selected by cfg.Kind.
func New(cfg config.ClassifierConfig, logger *zap.Logger) (resolver.Classifier, error) {
	switch cfg.Kind {
	case KindLexicon, "":
		lex, err := NewLexiconFromConfig(cfg.Lexicon)
		if err != nil {
			return nil, err
		}
		return lex, nil
	case KindOllama:
		return NewOllama(cfg.Ollama, logger), nil
	case KindONNX:
		model, err := NewONNX(cfg.ONNX, logger)
		if err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unknown classifier kind %q", cfg.Kind)
	}
}
