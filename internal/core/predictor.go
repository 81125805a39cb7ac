package core

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// FrequencyFeatureCount is the length of the fixed feature vector consumed by
// the frequency predictor: shops nearby, population density, population,
// employed total, bus commute total, customer convenience score, commute
// opportunity score — in that order.
const FrequencyFeatureCount = 7

// FrequencyPredictor applies the frozen regression artifacts exported at
// training time: a mean imputer, a standardising scaler, a gradient-boosted
// tree ensemble and the inverse of the min/max scaler fitted on the target.
// It performs no training.
type FrequencyPredictor struct {
	features     []string
	imputerMeans []float64
	scalerMean   []float64
	scalerScale  []float64
	targetMin    float64
	targetMax    float64
	init         float64
	learningRate float64
	trees        []regressionTree
}

type regressionTree struct {
	Nodes []treeNode `json:"nodes"`
}

// treeNode is one node of a regression tree. Leaves have Feature == -1 and
// carry the prediction in Value.
type treeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

func (t regressionTree) predict(x []float64) float64 {
	i := 0
	for {
		node := t.Nodes[i]
		if node.Feature < 0 {
			return node.Value
		}
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

type frequencyModelFile struct {
	Features []string `json:"features"`
	Imputer  struct {
		Means []float64 `json:"means"`
	} `json:"imputer"`
	Scaler struct {
		Mean  []float64 `json:"mean"`
		Scale []float64 `json:"scale"`
	} `json:"scaler"`
	TargetScaler struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"target_scaler"`
	Model struct {
		Init         float64          `json:"init"`
		LearningRate float64          `json:"learning_rate"`
		Trees        []regressionTree `json:"trees"`
	} `json:"model"`
}

// LoadFrequencyPredictor reads the frozen regression artifact. Absence of the
// file is a run-level error: the predictor never silently defaults.
func LoadFrequencyPredictor(path string) (*FrequencyPredictor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read frequency model: %w", err)
	}
	var file frequencyModelFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse frequency model %s: %w", path, err)
	}

	n := len(file.Features)
	if n != FrequencyFeatureCount {
		return nil, fmt.Errorf("frequency model %s: expected %d features, got %d", path, FrequencyFeatureCount, n)
	}
	if len(file.Imputer.Means) != n || len(file.Scaler.Mean) != n || len(file.Scaler.Scale) != n {
		return nil, fmt.Errorf("frequency model %s: artifact dimensions do not match feature count %d", path, n)
	}
	for i, s := range file.Scaler.Scale {
		if s == 0 {
			return nil, fmt.Errorf("frequency model %s: zero scale for feature %s", path, file.Features[i])
		}
	}
	if len(file.Model.Trees) == 0 {
		return nil, fmt.Errorf("frequency model %s: empty tree ensemble", path)
	}

	return &FrequencyPredictor{
		features:     file.Features,
		imputerMeans: file.Imputer.Means,
		scalerMean:   file.Scaler.Mean,
		scalerScale:  file.Scaler.Scale,
		targetMin:    file.TargetScaler.Min,
		targetMax:    file.TargetScaler.Max,
		init:         file.Model.Init,
		learningRate: file.Model.LearningRate,
		trees:        file.Model.Trees,
	}, nil
}

// Predict returns the average weekly service frequency per hour for one
// feature vector. NaN entries mark missing values and are replaced by the
// fitted imputer means before scaling.
func (p *FrequencyPredictor) Predict(features []float64) (float64, error) {
	if len(features) != len(p.features) {
		return 0, fmt.Errorf("expected %d features, got %d", len(p.features), len(features))
	}

	x := make([]float64, len(features))
	for i, v := range features {
		if math.IsNaN(v) {
			v = p.imputerMeans[i]
		}
		x[i] = (v - p.scalerMean[i]) / p.scalerScale[i]
	}

	scaled := p.init
	for _, tree := range p.trees {
		scaled += p.learningRate * tree.predict(x)
	}

	return scaled*(p.targetMax-p.targetMin) + p.targetMin, nil
}
