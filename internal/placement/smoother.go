package placement

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// SmoothingConfig tunes the constant-velocity Kalman filter applied to
// anchored positions.
type SmoothingConfig struct {
	Enabled bool
	// Dt is the nominal frame interval in seconds.
	Dt float64
	// Acceleration is the process noise standard deviation.
	Acceleration float64
	// Measurement is the measurement noise standard deviation, in canvas
	// fractions.
	Measurement float64
}

// DefaultSmoothing returns disabled smoothing with values tuned for 30 fps.
func DefaultSmoothing() SmoothingConfig {
	return SmoothingConfig{
		Dt:           1.0 / 30,
		Acceleration: 2.0,
		Measurement:  0.01,
	}
}

// smoother filters anchored positions. It is reset on every mode change so
// entering an anchor lands exactly on it.
type smoother struct {
	cfg     SmoothingConfig
	tracker *kalman_filter.Kalman2D
}

func newSmoother(cfg SmoothingConfig) *smoother {
	return &smoother{cfg: cfg}
}

func (s *smoother) reset(x, y float64) {
	s.tracker = kalman_filter.NewKalman2D(s.cfg.Dt, 0, 0, s.cfg.Acceleration, s.cfg.Measurement, s.cfg.Measurement,
		kalman_filter.WithState2D(x, y))
}

// filter feeds a measurement and returns the smoothed position.
func (s *smoother) filter(x, y float64) (float64, float64, error) {
	if s.tracker == nil {
		s.reset(x, y)
		return x, y, nil
	}
	s.tracker.Predict()
	if err := s.tracker.Update(x, y); err != nil {
		return x, y, errors.Wrap(err, "can't update anchor smoother")
	}
	fx, fy := s.tracker.GetState()
	return fx, fy, nil
}
