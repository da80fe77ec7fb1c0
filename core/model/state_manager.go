// Package model provides state management for machine learning models.
package model

import (
	"sync"

	"github.com/YuminosukeSato/oselm/pkg/errors"
)

// StateManager manages the fitted state of a model in a thread-safe manner.
// For an online estimator it also counts the samples and updates folded in
// since the last full fit.
type StateManager struct {
	mu sync.RWMutex

	fitted    bool
	nFeatures int
	nSamples  int
	nUpdates  int
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// SetFitted marks the model as fitted after a full fit of nSamples rows.
// Update counters restart from zero.
func (s *StateManager) SetFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
	s.nFeatures = nFeatures
	s.nSamples = nSamples
	s.nUpdates = 0
}

// RecordUpdate adds one incremental update of nSamples rows.
func (s *StateManager) RecordUpdate(nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nSamples += nSamples
	s.nUpdates++
}

// Reset resets the fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
	s.nFeatures = 0
	s.nSamples = 0
	s.nUpdates = 0
}

// NSamples returns the number of samples seen since the last full fit.
func (s *StateManager) NSamples() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nSamples
}

// NUpdates returns the number of incremental updates since the last full fit.
func (s *StateManager) NUpdates() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nUpdates
}

// RequireFitted returns an ErrUninitializedModel error naming op if the
// model has not been fitted.
func (s *StateManager) RequireFitted(op string) error {
	if !s.IsFitted() {
		return errors.NewUninitializedModelError(op)
	}
	return nil
}

// ModelState represents the complete state of a model.
// This can be used for serialization and debugging.
type ModelState struct {
	Fitted    bool `json:"fitted"`
	NFeatures int  `json:"n_features,omitempty"`
	NSamples  int  `json:"n_samples,omitempty"`
	NUpdates  int  `json:"n_updates,omitempty"`
}

// GetState returns the current state as a ModelState struct.
func (s *StateManager) GetState() ModelState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ModelState{
		Fitted:    s.fitted,
		NFeatures: s.nFeatures,
		NSamples:  s.nSamples,
		NUpdates:  s.nUpdates,
	}
}

// SetState sets the state from a ModelState struct.
func (s *StateManager) SetState(state ModelState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fitted = state.Fitted
	s.nFeatures = state.NFeatures
	s.nSamples = state.NSamples
	s.nUpdates = state.NUpdates
}
