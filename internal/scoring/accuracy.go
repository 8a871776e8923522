package scoring

import (
	"context"
	"fmt"

	"github.com/shieldops/rollcall/internal/store"
)

// MinAccuracySamples is the smallest history an accuracy analysis accepts.
const MinAccuracySamples = 20

// BandAccuracy compares a score band's static defaults with observed rates.
type BandAccuracy struct {
	Band                 string  `json:"band"`
	Samples              int     `json:"samples"`
	PredictedApplication float64 `json:"predicted_application"`
	ActualApplication    float64 `json:"actual_application"`
	PredictedHire        float64 `json:"predicted_hire"`
	ActualHire           float64 `json:"actual_hire"`
}

// AccuracyReport summarizes estimator calibration over historical outcomes.
type AccuracyReport struct {
	TotalSamples int            `json:"total_samples"`
	Bands        []BandAccuracy `json:"bands"`
	MeanAbsError float64        `json:"mean_abs_error"`
}

type bandDef struct {
	name     string
	min, max float64
}

var accuracyBands = []bandDef{
	{"80+", 80, 101},
	{"70-79", 70, 80},
	{"60-69", 60, 70},
	{"50-59", 50, 60},
	{"40-49", 40, 50},
	{"<40", 0, 40},
}

// AnalyzeAccuracy measures how well the static band table tracks observed
// outcomes. Requires at least MinAccuracySamples historical records.
func (e *Estimator) AnalyzeAccuracy(ctx context.Context) (*AccuracyReport, error) {
	outcomes, err := e.store.GetHistoricalOutcomes(ctx, 0, 100)
	if err != nil {
		return nil, fmt.Errorf("load historical outcomes: %w", err)
	}
	if len(outcomes) < MinAccuracySamples {
		return nil, &InsufficientDataError{Needed: MinAccuracySamples, Got: len(outcomes)}
	}

	report := &AccuracyReport{TotalSamples: len(outcomes)}
	var errSum float64
	var errN int

	for _, band := range accuracyBands {
		var samples, entered, hired int
		for _, o := range outcomes {
			if o.Score >= band.min && o.Score < band.max {
				samples++
				if store.PipelineStatuses[o.Status] {
					entered++
				}
				if o.Status == store.StatusHireCompleted {
					hired++
				}
			}
		}
		predicted := staticBand(band.min)
		ba := BandAccuracy{
			Band:                 band.name,
			Samples:              samples,
			PredictedApplication: predicted.Application,
			PredictedHire:        predicted.Hire,
		}
		if samples > 0 {
			ba.ActualApplication = round2(float64(entered) / float64(samples))
			ba.ActualHire = round2(float64(hired) / float64(samples))
			errSum += abs(ba.PredictedApplication-ba.ActualApplication) + abs(ba.PredictedHire-ba.ActualHire)
			errN += 2
		}
		report.Bands = append(report.Bands, ba)
	}

	if errN > 0 {
		report.MeanAbsError = round2(errSum / float64(errN))
	}
	return report, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
