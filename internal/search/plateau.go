package search

import (
	"context"

	"github.com/GoSim-25-26J-441/optibench/pkg/logger"
	"github.com/GoSim-25-26J-441/optibench/pkg/models"
	"github.com/GoSim-25-26J-441/optibench/pkg/utils"
)

// gasSample is one scanned gas limit; failed evaluations carry FailureThroughput.
type gasSample struct {
	gasLimit   int
	throughput float64
}

// plateauScan is the state of one interval's gas limit scan
type plateauScan struct {
	interval   int
	trials     int
	trend      ThresholdTrend
	window     *TrialWindow
	samples    []gasSample
	failures   int
	stopReason string
}

func newPlateauScan(interval, trials int, trend ThresholdTrend) *plateauScan {
	return &plateauScan{
		interval: interval,
		trials:   trials,
		trend:    trend,
		window:   NewTrialWindow(trials),
	}
}

// step records the evaluation of gasLimit and reports whether the scan stops.
func (s *plateauScan) step(gasLimit int, res models.EvaluationResult) bool {
	if !res.OK() {
		s.samples = append(s.samples, gasSample{gasLimit: gasLimit, throughput: FailureThroughput})
		s.window.Push(FailureThroughput)
		s.failures++
		// Repeated crashes are treated as the practical ceiling.
		if s.failures > s.trials {
			s.stopReason = "repeated failures"
			return true
		}
		return false
	}

	tps := res.Throughput
	s.samples = append(s.samples, gasSample{gasLimit: gasLimit, throughput: tps})

	if !s.window.Full() {
		logger.Info("more data needed", "interval", s.interval, "samples", s.window.Len()+1, "trials", s.trials)
		s.window.Push(tps)
		return false
	}

	improving := s.trend.Improving(s.window.Values(), tps)
	s.window.Push(tps)
	if !improving {
		s.stopReason = "throughput plateau"
		return true
	}
	return false
}

// peak returns the first maximum over all scanned gas limits
func (s *plateauScan) peak() models.PeakRecord {
	values := make([]float64, len(s.samples))
	for i, sample := range s.samples {
		values[i] = sample.throughput
	}
	best := utils.ArgMaxFirst(values)
	if best < 0 {
		return models.PeakRecord{Interval: s.interval, Throughput: FailureThroughput}
	}
	return models.PeakRecord{
		Interval:   s.interval,
		GasLimit:   s.samples[best].gasLimit,
		Throughput: s.samples[best].throughput,
	}
}

// FindPeak steps the gas limit up from startGas until the throughput trend
// flattens or evaluations keep failing, and returns the interval's peak.
func (e *Engine) FindPeak(ctx context.Context, interval, startGas int) (models.PeakRecord, error) {
	scan := newPlateauScan(interval, e.params.NumberTrials, e.trend)

	for gas := startGas; ; gas += e.params.GasStep {
		res, err := e.evaluate(ctx, models.PhaseGasScan, models.Candidate{Interval: interval, GasLimit: gas}, true)
		if err != nil {
			return models.PeakRecord{}, err
		}
		if scan.step(gas, res) {
			break
		}
	}

	peak := scan.peak()
	logger.Info("interval peak found",
		"interval", interval,
		"gas_limit", peak.GasLimit,
		"tps", peak.Throughput,
		"reason", scan.stopReason,
		"failures", scan.failures)
	return peak, nil
}
