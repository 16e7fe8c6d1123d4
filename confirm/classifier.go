// Package confirm classifies replies to pending field suggestions as
// confirmation, rejection, or modification.
package confirm

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbhatt90/StudyBotAgent/types"
)

// Classifier analyzes a user message against the pending suggestion set.
type Classifier interface {
	Classify(ctx context.Context, userMessage string, pending map[string]string) (*types.ConfirmationResult, error)
}

// LocalClassifier is the deterministic keyword fallback. Confirmation and
// rejection flags may both be true or both false; the orchestrator resolves
// conflicting signals.
type LocalClassifier struct {
	AffirmativeWords []string
	NegativeWords    []string
}

// NewLocalClassifier uses the fixed fallback word sets.
func NewLocalClassifier() *LocalClassifier {
	return &LocalClassifier{
		AffirmativeWords: []string{"ok", "yes", "yeah", "sure", "looks good", "apply", "correct"},
		NegativeWords:    []string{"no", "nope", "wrong", "incorrect", "don't", "cancel"},
	}
}

func (c *LocalClassifier) Classify(ctx context.Context, userMessage string, pending map[string]string) (*types.ConfirmationResult, error) {
	normalized := strings.ToLower(strings.TrimSpace(userMessage))

	contains := func(words []string) bool {
		for _, w := range words {
			if strings.Contains(normalized, w) {
				return true
			}
		}
		return false
	}

	return &types.ConfirmationResult{
		IsConfirmation: contains(c.AffirmativeWords),
		IsRejection:    contains(c.NegativeWords),
		Confidence:     0.7,
		Reasoning:      "Fallback rule-based detection",
	}, nil
}

// FailbackClassifier tries each classifier in order and returns the first
// success.
type FailbackClassifier struct {
	classifiers []Classifier
}

func NewFailbackClassifier(classifiers ...Classifier) *FailbackClassifier {
	return &FailbackClassifier{classifiers: classifiers}
}

func (c *FailbackClassifier) Classify(ctx context.Context, userMessage string, pending map[string]string) (*types.ConfirmationResult, error) {
	var lastErr error
	for _, classifier := range c.classifiers {
		result, err := classifier.Classify(ctx, userMessage, pending)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all confirmation classifiers failed: %w", lastErr)
}
