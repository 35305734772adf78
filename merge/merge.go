package merge

import (
	"github.com/bzclust/bzclust/bandtypes"
	"github.com/bzclust/bzclust/component"
)

// Run repeatedly absorbs the best-scoring (sample, cluster) pairing until no
// samples remain. Clusters that fill the k-grid are promoted to solved.
// Per-cluster scores are memoized and invalidated only for the cluster that
// was just modified, mirroring the original's was_modified-gated cache.
func Run(d bandtypes.Dims, scorer *Scorer, clusters, samples []*component.Component) (solved, remainingClusters []*component.Component) {
	for len(samples) > 0 {
		bestSampleIdx := -1
		bestClusterIdx := -1
		bestScore := -1.0

		for si, sample := range samples {
			for ci, cluster := range clusters {
				if !component.Validate(cluster, sample) {
					continue
				}
				score, ok := cluster.Scores[sample.Nodes[0]]
				if !ok || cluster.WasModified {
					score = scorer.Score(sample, cluster)
					cluster.Scores[sample.Nodes[0]] = score
				}
				if score > bestScore {
					bestScore = score
					bestSampleIdx = si
					bestClusterIdx = ci
				}
			}
		}

		if bestSampleIdx < 0 {
			// No remaining sample validates against any cluster; stop
			// rather than loop forever. Unassignable samples are dropped
			// (their k-points surface as unassigned in the final output).
			break
		}

		chosenSample := samples[bestSampleIdx]
		chosenCluster := clusters[bestClusterIdx]
		component.Join(d, chosenCluster, chosenSample)
		samples = removeComponent(samples, bestSampleIdx)

		for ci, cluster := range clusters {
			cluster.WasModified = ci == bestClusterIdx
		}

		if len(chosenCluster.KPoints) == d.Nk {
			solved = append(solved, chosenCluster)
			clusters = removeComponent(clusters, bestClusterIdx)
		}
	}
	return solved, clusters
}

func removeComponent(s []*component.Component, idx int) []*component.Component {
	out := make([]*component.Component, 0, len(s)-1)
	out = append(out, s[:idx]...)
	out = append(out, s[idx+1:]...)
	return out
}
