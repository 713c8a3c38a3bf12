package ensemble

import (
	"encoding/json"
	"os"

	"github.com/PavloICSA/netcraft-ai-sub000/pkg/errors"
	"github.com/PavloICSA/netcraft-ai-sub000/tree"
)

// modelSnapshot is the on-disk document: a deep, self-contained copy of the
// trained forest that reconstructs an equivalent predictor without access
// to the training data.
type modelSnapshot struct {
	Config            Config          `json:"config"`
	Trees             []treeSnapshot  `json:"trees"`
	FeatureImportance []float64       `json:"featureImportance"`
	OOBScore          float64         `json:"oobScore"`
	Trained           bool            `json:"trained"`
	TrainingHistory   TrainingHistory `json:"trainingHistory"`
	FeatureNames      []string        `json:"featureNames,omitempty"`
	NumFeatures       int             `json:"numFeatures"`
	NumSamples        int             `json:"numSamples"`
}

type treeSnapshot struct {
	Root           []tree.Node  `json:"root"`
	Config         treeConfig   `json:"config"`
	FeatureIndices []int        `json:"featureIndices,omitempty"`
	OOBIndices     []int        `json:"oobIndices,omitempty"`
}

type treeConfig struct {
	MaxDepth       int       `json:"maxDepth"`
	MinSamplesLeaf int       `json:"minSamplesLeaf"`
	TaskType       tree.Task `json:"taskType"`
	NumFeatures    int       `json:"numFeatures"`
}

// Serialize encodes the trained forest as a JSON snapshot. An untrained
// forest cannot be serialized.
func (rf *RandomForest) Serialize() ([]byte, error) {
	if !rf.state.IsTrained() {
		return nil, errors.NewNotTrainedError("RandomForest", "Serialize")
	}

	nFeatures, nSamples := rf.state.GetDimensions()
	snapshot := modelSnapshot{
		Config:            rf.config,
		Trees:             make([]treeSnapshot, len(rf.trees)),
		FeatureImportance: rf.importances,
		OOBScore:          rf.oobScore,
		Trained:           true,
		TrainingHistory:   rf.history,
		FeatureNames:      rf.featureNames,
		NumFeatures:       nFeatures,
		NumSamples:        nSamples,
	}
	for i, t := range rf.trees {
		snapshot.Trees[i] = treeSnapshot{
			Root: t.Nodes,
			Config: treeConfig{
				MaxDepth:       t.MaxDepth,
				MinSamplesLeaf: t.MinSamplesLeaf,
				TaskType:       t.Task,
				NumFeatures:    t.NumFeatures,
			},
			FeatureIndices: t.FeatureIndices,
			OOBIndices:     t.OOBIndices,
		}
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize forest")
	}
	return data, nil
}

// Deserialize reconstructs a forest from a snapshot produced by Serialize.
// The restored forest predicts and serializes again but keeps no link to
// the training data.
func Deserialize(data []byte) (*RandomForest, error) {
	var snapshot modelSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, errors.Wrap(err, "failed to deserialize forest")
	}
	if !snapshot.Trained {
		return nil, errors.NewNotTrainedError("RandomForest", "Deserialize")
	}
	if err := snapshot.Config.Validate(); err != nil {
		return nil, err
	}
	if len(snapshot.Trees) == 0 {
		return nil, errors.NewValueError("Deserialize", "snapshot holds no trees")
	}

	rf, err := New(snapshot.Config)
	if err != nil {
		return nil, err
	}

	rf.trees = make([]*tree.Tree, len(snapshot.Trees))
	for i, ts := range snapshot.Trees {
		if len(ts.Root) == 0 {
			return nil, errors.NewValueError("Deserialize", "snapshot tree holds no nodes")
		}
		rf.trees[i] = &tree.Tree{
			Nodes:          ts.Root,
			Task:           ts.Config.TaskType,
			NumFeatures:    ts.Config.NumFeatures,
			FeatureIndices: ts.FeatureIndices,
			OOBIndices:     ts.OOBIndices,
			MaxDepth:       ts.Config.MaxDepth,
			MinSamplesLeaf: ts.Config.MinSamplesLeaf,
		}
	}
	rf.importances = snapshot.FeatureImportance
	rf.oobScore = snapshot.OOBScore
	rf.history = snapshot.TrainingHistory
	rf.featureNames = snapshot.FeatureNames
	rf.state.SetDimensions(snapshot.NumFeatures, snapshot.NumSamples)
	rf.state.SetTrained()

	return rf, nil
}

// SaveToJSON writes the serialized forest to a file.
func (rf *RandomForest) SaveToJSON(path string) error {
	data, err := rf.Serialize()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write model file")
	}
	return nil
}

// LoadFromJSON reads a serialized forest from a file.
func LoadFromJSON(path string) (*RandomForest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read model file")
	}
	return Deserialize(data)
}
