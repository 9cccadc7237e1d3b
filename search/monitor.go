package search

import "github.com/pjv-stack/synapse/core"

// QueryMonitor provides hooks to observe the query pipeline.
// Implement this interface to track intermediate steps during a search.
type QueryMonitor interface {
	Start(query string)
	CacheHit(key string)
	AfterClassify(intent Intent)
	AfterExpand(terms []string)
	AfterVectorSearch(matches []core.SimilarityMatch)
	AfterGraphSearch(hits []core.GraphHit)
	AfterFuzzyFallback(hits map[core.ID]float32)
	StrategyDegraded(strategy string, err error)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of QueryMonitor
type noopMonitor struct{}

var _ QueryMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                            {}
func (n *noopMonitor) CacheHit(_ string)                         {}
func (n *noopMonitor) AfterClassify(_ Intent)                    {}
func (n *noopMonitor) AfterExpand(_ []string)                    {}
func (n *noopMonitor) AfterVectorSearch(_ []core.SimilarityMatch) {}
func (n *noopMonitor) AfterGraphSearch(_ []core.GraphHit)        {}
func (n *noopMonitor) AfterFuzzyFallback(_ map[core.ID]float32)  {}
func (n *noopMonitor) StrategyDegraded(_ string, _ error)        {}
func (n *noopMonitor) Finish(_ *Result)                          {}
