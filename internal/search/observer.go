package search

import "github.com/GoSim-25-26J-441/optibench/pkg/models"

// Observer receives search progress. Observers must not block for long and
// cannot influence the search.
type Observer interface {
	OnEvaluation(ev models.Evaluation)
	OnPeak(peak models.PeakRecord)
}

// Observers fans events out to several observers in order
type Observers []Observer

func (o Observers) OnEvaluation(ev models.Evaluation) {
	for _, obs := range o {
		obs.OnEvaluation(ev)
	}
}

func (o Observers) OnPeak(peak models.PeakRecord) {
	for _, obs := range o {
		obs.OnPeak(peak)
	}
}

type nopObserver struct{}

func (nopObserver) OnEvaluation(models.Evaluation) {}
func (nopObserver) OnPeak(models.PeakRecord)       {}
