package core

import (
	"path/filepath"
)

// Artifact file names inside the model directory.
const (
	minMaxFile       = "min_max_values.json"
	frequencyFile    = "frequency_model.json"
	kmeansFile       = "kmeans.json"
	clusterLabelFile = "cluster_dict.json"
)

// ModelBundle holds every frozen artifact the per-record enrichment needs.
// It is loaded once at batch start and shared read-only across workers,
// rather than re-read from storage per record.
type ModelBundle struct {
	Scores    *ScoreCalculator
	Frequency *FrequencyPredictor
	Cluster   *ClusterAssigner
}

// LoadModelBundle loads all frozen artifacts from dir. Any missing or
// malformed required artifact aborts the whole run; only the cluster label
// dictionary is optional.
func LoadModelBundle(dir string) (*ModelBundle, error) {
	table, err := LoadMinMaxTable(filepath.Join(dir, minMaxFile))
	if err != nil {
		return nil, err
	}
	frequency, err := LoadFrequencyPredictor(filepath.Join(dir, frequencyFile))
	if err != nil {
		return nil, err
	}
	cluster, err := LoadClusterAssigner(filepath.Join(dir, kmeansFile), filepath.Join(dir, clusterLabelFile))
	if err != nil {
		return nil, err
	}
	return &ModelBundle{
		Scores:    NewScoreCalculator(table),
		Frequency: frequency,
		Cluster:   cluster,
	}, nil
}
