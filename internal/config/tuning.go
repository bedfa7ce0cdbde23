package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/tuning.yaml
var defaultTuningYAML []byte

// Tuning holds the table geometry, physics constants and AI knobs.
type Tuning struct {
	Table   TableTuning   `yaml:"table" json:"table"`
	Physics PhysicsTuning `yaml:"physics" json:"physics"`
	Aim     AimTuning     `yaml:"aim" json:"aim"`
	AI      AITuning      `yaml:"ai" json:"ai"`
}

type TableTuning struct {
	Width         float64 `yaml:"width" json:"width"`
	Height        float64 `yaml:"height" json:"height"`
	Pad           float64 `yaml:"pad" json:"pad"`
	Margin        float64 `yaml:"margin" json:"margin"`
	BallRadius    float64 `yaml:"ball_radius" json:"ball_radius"`
	PocketRadius  float64 `yaml:"pocket_radius" json:"pocket_radius"`
	PocketEpsilon float64 `yaml:"pocket_epsilon" json:"pocket_epsilon"`
}

type PhysicsTuning struct {
	Restitution     float64 `yaml:"restitution" json:"restitution"`
	Friction        float64 `yaml:"friction" json:"friction"`
	StopThreshold   float64 `yaml:"stop_threshold" json:"stop_threshold"`
	MaxSpeed        float64 `yaml:"max_speed" json:"max_speed"`
	SubSteps        int     `yaml:"sub_steps" json:"sub_steps"`
	CollisionPasses int     `yaml:"collision_passes" json:"collision_passes"`
}

// AimTuning controls how pointer drags become strikes.
type AimTuning struct {
	GrabRadiusFactor float64 `yaml:"grab_radius_factor" json:"grab_radius_factor"` // multiples of ball radius
	MaxDrag          float64 `yaml:"max_drag" json:"max_drag"`
	MinDrag          float64 `yaml:"min_drag" json:"min_drag"`
}

type AITuning struct {
	EasyPower       float64 `yaml:"easy_power" json:"easy_power"`
	MediumPower     float64 `yaml:"medium_power" json:"medium_power"`
	HardPowerCap    float64 `yaml:"hard_power_cap" json:"hard_power_cap"`
	HardSamples     int     `yaml:"hard_samples" json:"hard_samples"`
	AimJitter       float64 `yaml:"aim_jitter" json:"aim_jitter"`
	PowerJitter     float64 `yaml:"power_jitter" json:"power_jitter"`
	ProbeDistance   float64 `yaml:"probe_distance" json:"probe_distance"`
	ClearLineFactor float64 `yaml:"clear_line_factor" json:"clear_line_factor"`
	InHandJitter    float64 `yaml:"in_hand_jitter" json:"in_hand_jitter"`
	TapPower        float64 `yaml:"tap_power" json:"tap_power"`
}

// DefaultTuning returns the built-in table. It mirrors defaults/tuning.yaml.
func DefaultTuning() Tuning {
	return Tuning{
		Table: TableTuning{
			Width:         960,
			Height:        520,
			Pad:           26,
			Margin:        20,
			BallRadius:    10,
			PocketRadius:  22,
			PocketEpsilon: 1.5,
		},
		Physics: PhysicsTuning{
			Restitution:     0.98,
			Friction:        0.992,
			StopThreshold:   0.02,
			MaxSpeed:        7.5,
			SubSteps:        2,
			CollisionPasses: 2,
		},
		Aim: AimTuning{
			GrabRadiusFactor: 3.2,
			MaxDrag:          220,
			MinDrag:          3,
		},
		AI: AITuning{
			EasyPower:       0.65,
			MediumPower:     0.72,
			HardPowerCap:    0.85,
			HardSamples:     12,
			AimJitter:       0.15,
			PowerJitter:     0.2,
			ProbeDistance:   20,
			ClearLineFactor: 2.2,
			InHandJitter:    40,
			TapPower:        0.3,
		},
	}
}

// LoadTuning loads table tuning.
// Search order: customPath -> ~/.eightball/tuning.yaml -> ./configs/tuning.yaml -> embedded default.
// Keys missing from a file keep their default value.
func LoadTuning(customPath string) (Tuning, error) {
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return Tuning{}, fmt.Errorf("failed to read tuning %s: %w", customPath, err)
		}
		t, err := parseTuning(data)
		if err != nil {
			return Tuning{}, fmt.Errorf("failed to parse tuning %s: %w", customPath, err)
		}
		return t, nil
	}

	if userPath := userConfigPath("tuning.yaml"); userPath != "" {
		if data, err := os.ReadFile(userPath); err == nil {
			if t, err := parseTuning(data); err == nil {
				return t, nil
			}
		}
	}

	if data, err := os.ReadFile("configs/tuning.yaml"); err == nil {
		if t, err := parseTuning(data); err == nil {
			return t, nil
		}
	}

	t, err := parseTuning(defaultTuningYAML)
	if err != nil {
		return DefaultTuning(), nil // Fallback to hardcoded if embed fails
	}
	return t, nil
}

func parseTuning(data []byte) (Tuning, error) {
	t := DefaultTuning()
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tuning{}, err
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

// Validate rejects values the integrator cannot run with.
func (t Tuning) Validate() error {
	switch {
	case t.Table.BallRadius <= 0:
		return fmt.Errorf("ball_radius must be positive")
	case t.Table.PocketRadius <= t.Table.PocketEpsilon:
		return fmt.Errorf("pocket_radius must exceed pocket_epsilon")
	case t.Table.Width-2*(t.Table.Pad+t.Table.Margin) <= 2*t.Table.BallRadius ||
		t.Table.Height-2*(t.Table.Pad+t.Table.Margin) <= 2*t.Table.BallRadius:
		return fmt.Errorf("play area must be wider and taller than a ball")
	case t.Physics.Friction <= 0 || t.Physics.Friction > 1:
		return fmt.Errorf("friction must be in (0, 1]")
	case t.Physics.SubSteps < 1 || t.Physics.CollisionPasses < 1:
		return fmt.Errorf("sub_steps and collision_passes must be >= 1")
	case t.Aim.MaxDrag <= 0 || t.Aim.MinDrag < 0 || t.Aim.MinDrag >= t.Aim.MaxDrag:
		return fmt.Errorf("aim drags must satisfy 0 <= min_drag < max_drag")
	}
	return nil
}

// userConfigPath returns the path to a user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".eightball", filename)
}
