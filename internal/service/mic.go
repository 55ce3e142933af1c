package service

import (
	"context"
	"errors"
	"math"

	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

const defaultSampleRate = 16000

// runMicTest streams input levels until the run is stopped.
func (s *Service) runMicTest(ctx context.Context, _ settings.TaskArgs, listener settings.TaskListener) (settings.TaskResult, error) {
	if s.opts.Audio == nil {
		return nil, errors.New("audio input is not available")
	}
	tree, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	device := inputDeviceName(tree["input_device"])
	rate := defaultSampleRate
	if f, ok := settings.AsFloat(tree["sample_rate"]); ok && f > 0 {
		rate = int(f)
	}

	err = s.opts.Audio.Meter(ctx, device, rate, func(samples []float32) {
		listener.OnAudioLevel(LevelDB(samples))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}

	return settings.TaskResult{}, nil
}

// LevelDB returns the RMS level of samples in dB, clamped to the meter
// range. Silence reports the meter floor.
func LevelDB(samples []float32) float64 {
	if len(samples) == 0 {
		return settings.MinMeterDB
	}
	var sum float64
	for _, v := range samples {
		sum += float64(v) * float64(v)
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms <= 0 {
		return settings.MinMeterDB
	}
	db := 20 * math.Log10(rms)
	db = math.Max(settings.MinMeterDB, math.Min(settings.MaxMeterDB, db))

	return math.Round(db*10) / 10
}
