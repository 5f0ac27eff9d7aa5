package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"marathon-league/internal/domain"
)

// rulesFile mirrors domain.ScoringRules with koanf tags for YAML loading.
type rulesFile struct {
	Version         int   `koanf:"version"`
	PlacementPoints []int `koanf:"placement_points"`
	MaxScoredPlace  int   `koanf:"max_scored_place"`
	TimeGapWindows  []struct {
		ThresholdSeconds int64 `koanf:"threshold_seconds"`
		BonusPoints      int   `koanf:"bonus_points"`
	} `koanf:"time_gap_windows"`
	NegativeSplit            bonusFile  `koanf:"negative_split"`
	EvenPace                 bonusFile  `koanf:"even_pace"`
	FastFinishKick           bonusFile  `koanf:"fast_finish_kick"`
	CourseRecord             recordFile `koanf:"course_record"`
	WorldRecord              recordFile `koanf:"world_record"`
	RecordsMutuallyExclusive bool       `koanf:"records_mutually_exclusive"`
	ConfirmationPolicy       string     `koanf:"confirmation_policy"`
	ProvisionalPolicy        string     `koanf:"provisional_policy"`
}

type bonusFile struct {
	Enabled   bool    `koanf:"enabled"`
	Points    int     `koanf:"points"`
	Tolerance float64 `koanf:"tolerance"`
}

type recordFile struct {
	Enabled bool `koanf:"enabled"`
	Points  int  `koanf:"points"`
}

// LoadRules reads a YAML scoring rules definition and validates it.
func LoadRules(path string) (*domain.ScoringRules, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load rules file %s: %w", path, err)
	}

	var rf rulesFile
	if err := k.UnmarshalWithConf("", &rf, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal rules file %s: %w", path, err)
	}

	rules := &domain.ScoringRules{
		Version:                  rf.Version,
		PlacementPoints:          rf.PlacementPoints,
		MaxScoredPlace:           rf.MaxScoredPlace,
		NegativeSplit:            domain.PerformanceBonus(rf.NegativeSplit),
		EvenPace:                 domain.PerformanceBonus(rf.EvenPace),
		FastFinishKick:           domain.PerformanceBonus(rf.FastFinishKick),
		CourseRecord:             domain.RecordBonus(rf.CourseRecord),
		WorldRecord:              domain.RecordBonus(rf.WorldRecord),
		RecordsMutuallyExclusive: rf.RecordsMutuallyExclusive,
		RecordConfirmationPolicy: domain.ConfirmationPolicy(rf.ConfirmationPolicy),
		ProvisionalPointsPolicy:  domain.ProvisionalPolicy(rf.ProvisionalPolicy),
	}
	for _, w := range rf.TimeGapWindows {
		rules.TimeGapWindows = append(rules.TimeGapWindows, domain.TimeGapWindow{
			ThresholdSeconds: w.ThresholdSeconds,
			BonusPoints:      w.BonusPoints,
		})
	}

	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules file %s: %w", path, err)
	}
	return rules, nil
}
