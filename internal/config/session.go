package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Track creation modes. Track mode annotates an object across a frame
// range; Detection mode annotates single frames.
const (
	ModeTrack     = "Track"
	ModeDetection = "Detection"
)

// SessionConfig holds the annotation session settings. Fields are
// pointers so a JSON file can override any subset; getters apply the
// defaults. The schema matches the client settings payload so the same
// JSON serves startup configuration and runtime updates.
type SessionConfig struct {
	// New-track creation settings
	NewTrackType *string `json:"new_track_type,omitempty"`
	NewTrackMode *string `json:"new_track_mode,omitempty"` // "Track" or "Detection"

	// Interpolation default for newly created tracks. Existing tracks use
	// their computed eligibility; detections never interpolate.
	InterpolateOnCreate *bool `json:"interpolate_on_create,omitempty"`

	// Auto-advance: in Track mode, step playback one frame after each
	// created keyframe. In Detection mode, continuous create starts the
	// next detection immediately.
	AdvanceFrameOnCreate *bool `json:"advance_frame_on_create,omitempty"`
	ContinuousCreate     *bool `json:"continuous_create,omitempty"`

	// Destructive-action prompts
	PromptBeforeDelete *bool `json:"prompt_before_delete,omitempty"`
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }

// DefaultSessionConfig returns the built-in defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		NewTrackType:         ptrString("unknown"),
		NewTrackMode:         ptrString(ModeTrack),
		InterpolateOnCreate:  ptrBool(true),
		AdvanceFrameOnCreate: ptrBool(true),
		ContinuousCreate:     ptrBool(false),
		PromptBeforeDelete:   ptrBool(true),
	}
}

// LoadSessionConfig loads a SessionConfig from a JSON file. Fields
// omitted from the file retain their defaults, so partial configs are
// safe.
func LoadSessionConfig(path string) (*SessionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &SessionConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values outside their domain.
func (c *SessionConfig) Validate() error {
	if c.NewTrackMode != nil {
		switch *c.NewTrackMode {
		case ModeTrack, ModeDetection:
		default:
			return fmt.Errorf("new_track_mode must be %q or %q, got %q", ModeTrack, ModeDetection, *c.NewTrackMode)
		}
	}
	if c.NewTrackType != nil && *c.NewTrackType == "" {
		return fmt.Errorf("new_track_type must not be empty")
	}
	return nil
}

// MergeWith overlays non-nil fields of other onto a copy of c.
func (c *SessionConfig) MergeWith(other *SessionConfig) *SessionConfig {
	merged := *c
	if other == nil {
		return &merged
	}
	if other.NewTrackType != nil {
		merged.NewTrackType = other.NewTrackType
	}
	if other.NewTrackMode != nil {
		merged.NewTrackMode = other.NewTrackMode
	}
	if other.InterpolateOnCreate != nil {
		merged.InterpolateOnCreate = other.InterpolateOnCreate
	}
	if other.AdvanceFrameOnCreate != nil {
		merged.AdvanceFrameOnCreate = other.AdvanceFrameOnCreate
	}
	if other.ContinuousCreate != nil {
		merged.ContinuousCreate = other.ContinuousCreate
	}
	if other.PromptBeforeDelete != nil {
		merged.PromptBeforeDelete = other.PromptBeforeDelete
	}
	return &merged
}

// Getters with defaults.

func (c *SessionConfig) GetNewTrackType() string {
	if c != nil && c.NewTrackType != nil {
		return *c.NewTrackType
	}
	return "unknown"
}

func (c *SessionConfig) GetNewTrackMode() string {
	if c != nil && c.NewTrackMode != nil {
		return *c.NewTrackMode
	}
	return ModeTrack
}

func (c *SessionConfig) GetInterpolateOnCreate() bool {
	if c != nil && c.InterpolateOnCreate != nil {
		return *c.InterpolateOnCreate
	}
	return true
}

func (c *SessionConfig) GetAdvanceFrameOnCreate() bool {
	if c != nil && c.AdvanceFrameOnCreate != nil {
		return *c.AdvanceFrameOnCreate
	}
	return true
}

func (c *SessionConfig) GetContinuousCreate() bool {
	if c != nil && c.ContinuousCreate != nil {
		return *c.ContinuousCreate
	}
	return false
}

func (c *SessionConfig) GetPromptBeforeDelete() bool {
	if c != nil && c.PromptBeforeDelete != nil {
		return *c.PromptBeforeDelete
	}
	return true
}
