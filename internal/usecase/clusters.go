package usecase

import (
	"fmt"
	"sort"

	"github.com/spiritlens/backend/internal/domain"
)

// unionFind tracks which record each id has been grouped with
type unionFind struct {
	parent map[string]string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string)}
}

func (u *unionFind) find(id string) string {
	root := id
	for {
		p, ok := u.parent[root]
		if !ok || p == root {
			break
		}
		root = p
	}
	for id != root {
		next := u.parent[id]
		u.parent[id] = root
		id = next
	}
	return root
}

// attach makes root the representative of child's set
func (u *unionFind) attach(child, root string) {
	u.parent[u.find(child)] = u.find(root)
}

// union joins two sets under the smaller root id
func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}

// Relationship thresholds
const (
	relationshipExact  = 0.95
	relationshipHigh   = 0.85
	relationshipMedium = 0.7
)

// buildClusters groups matched records into connected components. Members
// are ordered by id, clusters by their first member. The center is the
// member with the most matches.
func buildClusters(matches []DetailedMatch) []Cluster {
	uf := newUnionFind()
	records := make(map[string]domain.Record)
	for _, m := range matches {
		uf.union(m.A.ID, m.B.ID)
		records[m.A.ID] = m.A
		records[m.B.ID] = m.B
	}

	byRoot := make(map[string][]int)
	for i, m := range matches {
		root := uf.find(m.A.ID)
		byRoot[root] = append(byRoot[root], i)
	}
	roots := make([]string, 0, len(byRoot))
	for r := range byRoot {
		roots = append(roots, r)
	}
	sort.Strings(roots)

	clusters := make([]Cluster, 0, len(roots))
	for _, root := range roots {
		edges := byRoot[root]
		degree := make(map[string]int)
		best := make(map[string]float64)
		total := 0.0
		high := 0
		for _, i := range edges {
			m := &matches[i]
			total += m.Similarity
			if m.Confidence == domain.ConfidenceHigh {
				high++
			}
			for _, id := range []string{m.A.ID, m.B.ID} {
				degree[id]++
				if m.Similarity > best[id] {
					best[id] = m.Similarity
				}
			}
		}

		ids := make([]string, 0, len(degree))
		for id := range degree {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		center := ids[0]
		members := make([]ClusterMember, 0, len(ids))
		for _, id := range ids {
			if degree[id] > degree[center] {
				center = id
			}
			members = append(members, ClusterMember{
				Record:       records[id],
				Similarity:   best[id],
				Relationship: relationshipFor(best[id]),
			})
		}

		clusters = append(clusters, Cluster{
			ID:                fmt.Sprintf("cluster_%d", len(clusters)+1),
			CenterID:          center,
			Members:           members,
			Similarity:        total / float64(len(edges)),
			RecommendedAction: clusterAction(high, len(edges)),
		})
	}
	return clusters
}

func relationshipFor(similarity float64) Relationship {
	switch {
	case similarity >= relationshipExact:
		return RelationshipExact
	case similarity >= relationshipHigh:
		return RelationshipHigh
	case similarity >= relationshipMedium:
		return RelationshipMedium
	}
	return RelationshipLow
}

func clusterAction(high, total int) ClusterAction {
	switch {
	case total == 0:
		return ClusterNoAction
	case high == total:
		return ClusterMergeAll
	case high > 0:
		return ClusterMergeHighConfidence
	}
	return ClusterFlagForReview
}
