package model

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/PavloICSA/netcraft-ai-sub000/pkg/errors"
)

func TestStateManager_Lifecycle(t *testing.T) {
	s := NewStateManager()

	if s.IsTrained() {
		t.Error("New state manager should not report trained")
	}
	if err := s.RequireTrained("Model", "Predict"); err == nil {
		t.Error("RequireTrained should fail before training")
	}

	s.SetDimensions(4, 100)
	s.SetTrained()

	if !s.IsTrained() {
		t.Error("Should report trained after SetTrained")
	}
	if err := s.RequireTrained("Model", "Predict"); err != nil {
		t.Errorf("RequireTrained should pass after training: %v", err)
	}

	nFeatures, nSamples := s.GetDimensions()
	if nFeatures != 4 || nSamples != 100 {
		t.Errorf("Dimensions = (%d, %d), want (4, 100)", nFeatures, nSamples)
	}

	s.Reset()
	if s.IsTrained() {
		t.Error("Reset should clear the trained flag")
	}
}

func TestStateManager_RequireTrainedErrorType(t *testing.T) {
	s := NewStateManager()

	err := s.RequireTrained("RandomForest", "Serialize")
	var notTrained *errors.NotTrainedError
	if !errors.As(err, &notTrained) {
		t.Fatalf("Expected *NotTrainedError, got %T", err)
	}
	if notTrained.ModelName != "RandomForest" || notTrained.Method != "Serialize" {
		t.Errorf("Error should carry model and method: %+v", notTrained)
	}
}

func TestStateManager_Concurrent(t *testing.T) {
	s := NewStateManager()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetTrained()
		}()
		go func() {
			defer wg.Done()
			_ = s.IsTrained()
		}()
	}
	wg.Wait()

	if !s.IsTrained() {
		t.Error("Should be trained after concurrent SetTrained calls")
	}
}

type gobModel struct {
	Weights []float64
	Bias    float64
}

func TestSaveLoadModel(t *testing.T) {
	original := &gobModel{Weights: []float64{1.5, -2.0, 0.25}, Bias: 0.5}

	path := filepath.Join(t.TempDir(), "model.gob")
	if err := SaveModel(original, path); err != nil {
		t.Fatalf("SaveModel failed: %v", err)
	}

	var restored gobModel
	if err := LoadModel(&restored, path); err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}

	if restored.Bias != original.Bias || len(restored.Weights) != len(original.Weights) {
		t.Fatalf("Restored model differs: %+v vs %+v", restored, original)
	}
	for i := range original.Weights {
		if restored.Weights[i] != original.Weights[i] {
			t.Errorf("Weight %d differs: %v vs %v", i, restored.Weights[i], original.Weights[i])
		}
	}
}
