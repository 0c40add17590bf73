package search

import (
	"context"
	"testing"

	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

func TestFindPeakPlateau(t *testing.T) {
	eval := &scriptedEvaluator{
		feasible:   gasAtLeast(100),
		throughput: cappedThroughput(500),
	}
	obs := &recordingObserver{}
	engine := NewEngine(testParams(), eval).WithObserver(obs)

	minGas, err := engine.FindMinGasLimit(context.Background(), 1)
	if err != nil {
		t.Fatalf("FindMinGasLimit error: %v", err)
	}
	if minGas != 100 {
		t.Fatalf("expected minimum gas 100, got %d", minGas)
	}

	peak, err := engine.FindPeak(context.Background(), 1, minGas)
	if err != nil {
		t.Fatalf("FindPeak error: %v", err)
	}
	if peak.GasLimit != 500 || peak.Throughput != 500 || peak.Interval != 1 {
		t.Fatalf("expected peak 1s/500 at 500 tps, got %+v", peak)
	}

	scan := obs.phase(models.PhaseGasScan)
	if len(scan) != 12 {
		t.Fatalf("expected 12 scan evaluations, got %d", len(scan))
	}
	if last := scan[len(scan)-1].Candidate.GasLimit; last != 650 {
		t.Fatalf("expected scan to stop at gas 650, got %d", last)
	}
	for i := 1; i < len(scan); i++ {
		if scan[i].Candidate.GasLimit <= scan[i-1].Candidate.GasLimit {
			t.Fatalf("scan gas limits not increasing at %d: %d then %d",
				i, scan[i-1].Candidate.GasLimit, scan[i].Candidate.GasLimit)
		}
		if !scan[i].Measured {
			t.Fatalf("scan evaluation %d was not measured", i)
		}
	}
	if eval.reads != len(scan) {
		t.Fatalf("expected one throughput read per scan evaluation, got %d reads", eval.reads)
	}
}

func TestPlateauScanIsolatedFailure(t *testing.T) {
	scan := newPlateauScan(1, 3, ThresholdTrend{Sensitivity: 0.05})

	steps := []struct {
		gas int
		res models.EvaluationResult
	}{
		{100, models.Success(100)},
		{150, models.Success(150)},
		{200, models.Success(200)},
		{250, models.Failure(errDeploy)},
		{300, models.Success(300)},
		{350, models.Success(350)},
		{400, models.Success(400)},
		{450, models.Success(450)},
	}
	for _, s := range steps {
		if scan.step(s.gas, s.res) {
			t.Fatalf("scan stopped unexpectedly at gas %d (%s)", s.gas, scan.stopReason)
		}
	}
	if scan.failures != 1 {
		t.Fatalf("expected failure counter to stay at 1, got %d", scan.failures)
	}
	if scan.window.Len() != 3 {
		t.Fatalf("expected window to stay bounded at 3, got %d", scan.window.Len())
	}

	peak := scan.peak()
	if peak.GasLimit != 450 || peak.Throughput != 450 {
		t.Fatalf("expected peak at 450, got %+v", peak)
	}
}

func TestPlateauScanRepeatedFailures(t *testing.T) {
	eval := &scriptedEvaluator{feasible: func(models.Candidate) bool { return false }}
	params := testParams()

	peak, err := NewEngine(params, eval).FindPeak(context.Background(), 2, 100)
	if err != nil {
		t.Fatalf("FindPeak error: %v", err)
	}
	if len(eval.deployed) != params.NumberTrials+1 {
		t.Fatalf("expected %d evaluations, got %d", params.NumberTrials+1, len(eval.deployed))
	}
	if peak.Throughput != FailureThroughput {
		t.Fatalf("expected failure throughput, got %v", peak.Throughput)
	}
	if eval.reads != 0 {
		t.Fatalf("expected no throughput reads after failed deployments, got %d", eval.reads)
	}
}

func TestFindPeakScatteredFailuresStopScan(t *testing.T) {
	// Every other gas limit crashes while throughput keeps improving; the
	// failure counter is never reset, so the fourth crash ends the scan.
	eval := &scriptedEvaluator{
		feasible:   func(c models.Candidate) bool { return c.GasLimit%100 == 0 },
		throughput: func(c models.Candidate) float64 { return float64(c.GasLimit) },
	}
	params := testParams()

	peak, err := NewEngine(params, eval).FindPeak(context.Background(), 1, 100)
	if err != nil {
		t.Fatalf("FindPeak error: %v", err)
	}

	wantGas := []int{100, 150, 200, 250, 300, 350, 400, 450}
	if len(eval.deployed) != len(wantGas) {
		t.Fatalf("expected %d evaluations, got %d", len(wantGas), len(eval.deployed))
	}
	for i, c := range eval.deployed {
		if c.GasLimit != wantGas[i] {
			t.Errorf("evaluation %d: expected gas %d, got %d", i, wantGas[i], c.GasLimit)
		}
	}
	if peak.GasLimit != 400 || peak.Throughput != 400 {
		t.Fatalf("expected peak at 400, got %+v", peak)
	}
}

func TestPlateauScanFailureCounterNotReset(t *testing.T) {
	scan := newPlateauScan(1, 3, ThresholdTrend{Sensitivity: 0.05})
	for gas := 100; gas < 450; gas += 50 {
		res := models.Success(float64(gas))
		if gas%100 != 0 {
			res = models.Failure(errDeploy)
		}
		if scan.step(gas, res) {
			t.Fatalf("scan stopped early at gas %d (%s)", gas, scan.stopReason)
		}
	}
	if scan.failures != 3 {
		t.Fatalf("expected 3 failures, got %d", scan.failures)
	}
	if !scan.step(450, models.Failure(errDeploy)) {
		t.Fatalf("expected the fourth failure to stop the scan")
	}
	if scan.stopReason != "repeated failures" {
		t.Fatalf("unexpected stop reason %q", scan.stopReason)
	}
}

func TestPlateauScanSingleRegressionContinues(t *testing.T) {
	scan := newPlateauScan(1, 3, ThresholdTrend{Sensitivity: 0.05})
	for i, tps := range []float64{100, 200, 300} {
		scan.step(100*(i+1), models.Success(tps))
	}
	// 250 regresses against 300 but still improves on 100.
	if scan.step(400, models.Success(250)) {
		t.Fatalf("scan stopped on a single regression")
	}
	// 210 improves on nothing in [200 300 250].
	if !scan.step(500, models.Success(210)) {
		t.Fatalf("expected scan to stop without improvement")
	}
	if scan.stopReason == "" {
		t.Fatalf("expected a stop reason")
	}
	if peak := scan.peak(); peak.GasLimit != 300 {
		t.Fatalf("expected peak at gas 300, got %+v", peak)
	}
}

func TestPlateauScanPeakTieTakesFirst(t *testing.T) {
	scan := newPlateauScan(4, 3, ThresholdTrend{Sensitivity: 0.05})
	for i, tps := range []float64{400, 500, 500, 500} {
		scan.step(100*(i+1), models.Success(tps))
	}
	if peak := scan.peak(); peak.GasLimit != 200 {
		t.Fatalf("expected the first maximum at gas 200, got %+v", peak)
	}
}
