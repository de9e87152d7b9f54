package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ContentLoads   prometheus.Counter
	FetchErrors    prometheus.Counter
	Questions      prometheus.Counter
	ProviderErrors prometheus.Counter
	TrimmedTurns   prometheus.Counter
}

var (
	once   sync.Once
	global *Metrics
)

func Global() *Metrics {
	once.Do(func() {
		global = &Metrics{
			ContentLoads: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "pagetalk",
				Name:      "content_loads_total",
				Help:      "Total successfully loaded sources",
			}),
			FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "pagetalk",
				Name:      "fetch_errors_total",
				Help:      "Total failed content fetches",
			}),
			Questions: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "pagetalk",
				Name:      "questions_total",
				Help:      "Total completed ask/summarize exchanges",
			}),
			ProviderErrors: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "pagetalk",
				Name:      "provider_errors_total",
				Help:      "Total failed provider calls",
			}),
			TrimmedTurns: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "pagetalk",
				Name:      "trimmed_turns_total",
				Help:      "Total history turns dropped from outgoing prompts",
			}),
		}
		prometheus.MustRegister(global.ContentLoads, global.FetchErrors, global.Questions, global.ProviderErrors, global.TrimmedTurns)
	})
	return global
}
