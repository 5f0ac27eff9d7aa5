package normalization

import (
	"errors"
	"testing"

	"marathon-league/internal/domain"
)

const marathonKm = 42.195

func int64p(v int64) *int64 { return &v }

func TestNormalize_CleanRecordWithSplits(t *testing.T) {
	f := &domain.FinishRecord{
		FinishTimeMs: 7_500_000,
		FirstHalfMs:  int64p(3_800_000),
		SecondHalfMs: int64p(3_700_000),
		Last5kMs:     int64p(850_000),
	}

	r, err := Normalize(f, marathonKm)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if !r.HasSplits {
		t.Error("expected HasSplits true")
	}
	if r.SplitDeltaMs != 100_000 {
		t.Errorf("expected split delta 100000, got %d", r.SplitDeltaMs)
	}
	if !r.HasFinalSegment {
		t.Error("expected HasFinalSegment true")
	}
	if r.FinalPacePerKmMs != 170_000 {
		t.Errorf("expected final pace 170000 ms/km, got %f", r.FinalPacePerKmMs)
	}
	if r.Warning != "" {
		t.Errorf("expected no warning, got %q", r.Warning)
	}
}

func TestNormalize_MissingSplitsIsNotAnError(t *testing.T) {
	f := &domain.FinishRecord{FinishTimeMs: 7_500_000}

	r, err := Normalize(f, marathonKm)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if r.HasSplits || r.HasFinalSegment {
		t.Error("absent splits must not be derived")
	}
}

func TestNormalize_NonPositiveFinishTime(t *testing.T) {
	f := &domain.FinishRecord{FinishTimeMs: 0}

	r, err := Normalize(f, marathonKm)
	if !errors.Is(err, ErrInvalidFinishData) {
		t.Fatalf("expected ErrInvalidFinishData, got %v", err)
	}
	if r.Warning == "" {
		t.Error("expected warning on invalid finish time")
	}
}

func TestNormalize_InconsistentSplits(t *testing.T) {
	// Halves sum to 7,300,000 against a 7,500,000 finish: beyond tolerance.
	f := &domain.FinishRecord{
		FinishTimeMs: 7_500_000,
		FirstHalfMs:  int64p(3_700_000),
		SecondHalfMs: int64p(3_600_000),
	}

	r, err := Normalize(f, marathonKm)
	if !errors.Is(err, ErrInvalidFinishData) {
		t.Fatalf("expected ErrInvalidFinishData, got %v", err)
	}
	if r.HasSplits {
		t.Error("inconsistent splits must not be derived")
	}
	// The finisher is still scoreable on placement and time gap.
	if r.FinishTimeMs != 7_500_000 {
		t.Errorf("finish time must survive recovery, got %d", r.FinishTimeMs)
	}
}

func TestNormalize_SplitsWithinRoundingTolerance(t *testing.T) {
	// Off by 500ms: inside the timing-mat rounding tolerance.
	f := &domain.FinishRecord{
		FinishTimeMs: 7_500_000,
		FirstHalfMs:  int64p(3_750_000),
		SecondHalfMs: int64p(3_749_500),
	}

	r, err := Normalize(f, marathonKm)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !r.HasSplits {
		t.Error("splits within tolerance must be accepted")
	}
}

func TestNormalize_Last5kLongerThanRace(t *testing.T) {
	f := &domain.FinishRecord{
		FinishTimeMs: 7_500_000,
		Last5kMs:     int64p(8_000_000),
	}

	r, err := Normalize(f, marathonKm)
	if !errors.Is(err, ErrInvalidFinishData) {
		t.Fatalf("expected ErrInvalidFinishData, got %v", err)
	}
	if r.HasFinalSegment {
		t.Error("implausible last-5k split must not be derived")
	}
}
