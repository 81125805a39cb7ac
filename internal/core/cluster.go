package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"math"
	"os"
	"strconv"
)

// ClusterAssigner scales a stop's numeric features with the frozen k-means
// scaler and assigns the nearest trained centroid.
type ClusterAssigner struct {
	scalerMean  []float64
	scalerScale []float64
	centroids   [][]float64
	labels      map[int]string
}

type clusterModelFile struct {
	Scaler struct {
		Mean  []float64 `json:"mean"`
		Scale []float64 `json:"scale"`
	} `json:"scaler"`
	Centroids [][]float64 `json:"centroids"`
}

// clusterFeatureCount covers population, shops nearby and employed total.
const clusterFeatureCount = 3

// LoadClusterAssigner reads the frozen clustering artifacts. A missing model
// file is a run-level error; a missing label dictionary only falls back to
// generic "Cluster N" labels.
func LoadClusterAssigner(modelPath, labelsPath string) (*ClusterAssigner, error) {
	data, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cluster model: %w", err)
	}
	var file clusterModelFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse cluster model %s: %w", modelPath, err)
	}
	if len(file.Scaler.Mean) != clusterFeatureCount || len(file.Scaler.Scale) != clusterFeatureCount {
		return nil, fmt.Errorf("cluster model %s: scaler dimensions do not match feature count %d", modelPath, clusterFeatureCount)
	}
	for _, s := range file.Scaler.Scale {
		if s == 0 {
			return nil, fmt.Errorf("cluster model %s: zero scaler scale", modelPath)
		}
	}
	if len(file.Centroids) == 0 {
		return nil, fmt.Errorf("cluster model %s: no centroids", modelPath)
	}
	for _, c := range file.Centroids {
		if len(c) != clusterFeatureCount {
			return nil, fmt.Errorf("cluster model %s: centroid dimensions do not match feature count %d", modelPath, clusterFeatureCount)
		}
	}

	labels, err := loadClusterLabels(labelsPath, len(file.Centroids))
	if err != nil {
		return nil, err
	}

	return &ClusterAssigner{
		scalerMean:  file.Scaler.Mean,
		scalerScale: file.Scaler.Scale,
		centroids:   file.Centroids,
		labels:      labels,
	}, nil
}

func loadClusterLabels(path string, k int) (map[int]string, error) {
	labels := make(map[int]string, k)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("cluster label dictionary %s not found, using default labels", path)
		for i := 0; i < k; i++ {
			labels[i] = fmt.Sprintf("Cluster %d", i)
		}
		return labels, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cluster labels: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse cluster labels %s: %w", path, err)
	}
	for key, label := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("cluster labels %s: non-integer cluster id %q", path, key)
		}
		labels[id] = label
	}
	return labels, nil
}

// Assign returns the cluster id and category label for a stop. A shops count
// of -1 is a missing-data marker, not a feature value, and is remapped to 0
// before scaling.
func (a *ClusterAssigner) Assign(population, shopsNearby, employedTotal float64) (int, string) {
	if shopsNearby < 0 {
		shopsNearby = 0
	}
	features := []float64{population, shopsNearby, employedTotal}

	scaled := make([]float64, clusterFeatureCount)
	for i, v := range features {
		scaled[i] = (v - a.scalerMean[i]) / a.scalerScale[i]
	}

	best := 0
	bestDist := math.Inf(1)
	for i, centroid := range a.centroids {
		var dist float64
		for j, v := range scaled {
			d := v - centroid[j]
			dist += d * d
		}
		if dist < bestDist {
			best = i
			bestDist = dist
		}
	}

	label, ok := a.labels[best]
	if !ok {
		label = fmt.Sprintf("Cluster %d", best)
	}
	return best, label
}
