package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector is an optional, read-only prometheus.Collector over a search's
// Counters. It never mutates the counters; the driver's FlushStatistics
// returns a snapshot to its caller and resets them, and nothing here or
// there writes them into the MipData object. Registration is opt-in:
// a solver embedding this search core may ignore Collector entirely.
type Collector struct {
	counters *Counters
	labels   prometheus.Labels

	nodes       *prometheus.Desc
	treeWeight  *prometheus.Desc
	lpIters     *prometheus.Desc
	sbLPIters   *prometheus.Desc
	heurLPIters *prometheus.Desc
}

// NewCollector returns a Collector reading live values from counters. name
// is used as a label (e.g. the sub-MIP or search-thread identifier) to
// disambiguate multiple concurrent searches registering against the same
// registry.
func NewCollector(counters *Counters, name string) *Collector {
	labels := prometheus.Labels{"search": name}
	return &Collector{
		counters: counters,
		labels:   labels,
		nodes: prometheus.NewDesc(
			"mipcore_search_nodes_visited",
			"Number of nodes visited by this search.",
			nil, labels,
		),
		treeWeight: prometheus.NewDesc(
			"mipcore_search_pruned_tree_weight",
			"Sum of 2^(-depth) over closed subtrees for this search.",
			nil, labels,
		),
		lpIters: prometheus.NewDesc(
			"mipcore_search_lp_iterations_total",
			"LP iterations spent on ordinary node resolves.",
			nil, labels,
		),
		sbLPIters: prometheus.NewDesc(
			"mipcore_search_strong_branch_lp_iterations_total",
			"LP iterations spent probing inside strong branching.",
			nil, labels,
		),
		heurLPIters: prometheus.NewDesc(
			"mipcore_search_heuristic_lp_iterations_total",
			"LP iterations spent resolving in heuristic mode.",
			nil, labels,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.nodes
	ch <- c.treeWeight
	ch <- c.lpIters
	ch <- c.sbLPIters
	ch <- c.heurLPIters
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.counters.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.nodes, prometheus.CounterValue, float64(snap.Nodes))
	ch <- prometheus.MustNewConstMetric(c.treeWeight, prometheus.GaugeValue, snap.TreeWeight)
	ch <- prometheus.MustNewConstMetric(c.lpIters, prometheus.CounterValue, float64(snap.LPIterations))
	ch <- prometheus.MustNewConstMetric(c.sbLPIters, prometheus.CounterValue, float64(snap.StrongBranchLPIterations))
	ch <- prometheus.MustNewConstMetric(c.heurLPIters, prometheus.CounterValue, float64(snap.HeuristicLPIterations))
}
