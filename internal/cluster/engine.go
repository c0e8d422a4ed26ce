// Package cluster groups similar workflows and summarizes each group's
// statistical profile.
package cluster

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/flowsight/internal/feature"
	"github.com/fyrsmithlabs/flowsight/internal/similarity"
	"github.com/fyrsmithlabs/flowsight/internal/workflow"
)

// Default clustering parameters. The threshold was tuned against the strict
// bucket-weighted scorer; a type+duration+value match alone scores 0.85.
const (
	DefaultThreshold      = 0.68
	DefaultMinPatternSize = 2
)

// Member pairs a workflow record with its feature vector.
type Member struct {
	Record workflow.Record
	Vector feature.Vector
}

// Cluster is a group of mutually similar workflows. Membership is fixed once
// the cluster is formed; there is no re-assignment pass.
type Cluster struct {
	Members []Member
}

// Size returns the member count.
func (c Cluster) Size() int { return len(c.Members) }

// Engine groups workflows by similarity.
//
// The algorithm is a single greedy pass: each unprocessed workflow anchors a
// candidate cluster and absorbs every later unprocessed workflow scoring at
// or above the threshold against the anchor. A workflow claimed by an earlier
// anchor is never reconsidered for a later, possibly closer, cluster, so the
// result depends on input order. That trade was made for O(n²) cost and
// predictability; callers that need stable output must fix their input order.
type Engine struct {
	scorer    *similarity.Scorer
	threshold float64
	minSize   int
	logger    *zap.Logger
}

// NewEngine creates a clustering engine. Threshold must be in [0,1]; minSize
// must be at least 1. Zero values select the defaults.
func NewEngine(scorer *similarity.Scorer, threshold float64, minSize int, logger *zap.Logger) (*Engine, error) {
	if scorer == nil {
		return nil, fmt.Errorf("scorer cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be between 0.0 and 1.0, got %f", threshold)
	}
	if minSize == 0 {
		minSize = DefaultMinPatternSize
	}
	if minSize < 1 {
		return nil, fmt.Errorf("min pattern size must be at least 1, got %d", minSize)
	}
	return &Engine{
		scorer:    scorer,
		threshold: threshold,
		minSize:   minSize,
		logger:    logger,
	}, nil
}

// Cluster groups members into clusters of size >= the configured minimum,
// preserving discovery order. Pure and deterministic for a fixed input order.
func (e *Engine) Cluster(members []Member) []Cluster {
	if len(members) < e.minSize {
		return nil
	}

	processed := make([]bool, len(members))
	var clusters []Cluster

	for i := range members {
		if processed[i] {
			continue
		}

		candidate := []Member{members[i]}
		processed[i] = true

		for j := i + 1; j < len(members); j++ {
			if processed[j] {
				continue
			}
			if e.scorer.Score(members[i].Vector, members[j].Vector) >= e.threshold {
				candidate = append(candidate, members[j])
				// Claimed by this anchor's scan, win or lose: members of a
				// dropped candidate are consumed, not re-offered to later
				// anchors.
				processed[j] = true
			}
		}

		if len(candidate) < e.minSize {
			continue
		}

		clusters = append(clusters, Cluster{Members: candidate})

		e.logger.Debug("formed cluster",
			zap.String("anchor_id", members[i].Record.ID),
			zap.Int("members", len(candidate)))
	}

	e.logger.Info("clustering completed",
		zap.Int("workflows", len(members)),
		zap.Int("clusters", len(clusters)),
		zap.Float64("threshold", e.threshold))

	return clusters
}
