// Package model provides shared state management and interfaces for the
// machine learning models in this library.
package model

import (
	"sync"

	"github.com/PavloICSA/netcraft-ai-sub000/pkg/errors"
)

// StateManager manages the trained state of a model in a thread-safe manner.
// Models compose it rather than embedding a base struct, so the zero value of
// an estimator is usable and reports itself as untrained.
type StateManager struct {
	Trained bool // public for gob/json encoding
	mu      sync.RWMutex

	// Dimensions seen during fitting - public for gob/json encoding
	NFeatures int
	NSamples  int
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{Trained: false}
}

// IsTrained returns whether the model has completed training.
func (s *StateManager) IsTrained() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Trained
}

// SetTrained marks the model as trained.
func (s *StateManager) SetTrained() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Trained = true
}

// Reset resets the trained state and recorded dimensions.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Trained = false
	s.NFeatures = 0
	s.NSamples = 0
}

// SetDimensions records the number of features and samples seen during
// fitting.
func (s *StateManager) SetDimensions(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NFeatures = nFeatures
	s.NSamples = nSamples
}

// GetDimensions returns the number of features and samples seen during
// fitting.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures, s.NSamples
}

// RequireTrained returns a NotTrainedError naming the model and method if
// the model has not completed training.
func (s *StateManager) RequireTrained(modelName, method string) error {
	if !s.IsTrained() {
		return errors.NewNotTrainedError(modelName, method)
	}
	return nil
}
