package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles for the coaching pipeline.
// Supports gradual rollout and per-student overrides for debugging.
type FeatureFlags struct {
	mu sync.RWMutex

	// Core features
	features map[string]*Feature

	// Override rules (for testing/debugging)
	studentOverrides map[string]map[string]bool // studentID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Students are assigned based on hash of their ID
	RolloutPercent int

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	StudentID string
	IsAdmin   bool
}

// Predefined feature flag names.
const (
	// === Completion Decision Features ===
	FeatureHeuristicOverride = "completion.heuristic_override" // keyword heuristic can override the model verdict
	FeatureStructuredOutput  = "completion.structured_output"  // request JSON response format from the provider

	// === Leaderboard Features ===
	FeatureLeaderboardCache    = "leaderboard.cache"          // serve boards from the cache layer
	FeatureLeaderboardSubjects = "leaderboard.subject_boards" // per-subject boards alongside the global one

	// === Admin Features ===
	FeatureProgressLog  = "admin.progress_log"    // record chat turns for review
	FeatureLessonImport = "admin.markdown_import" // legacy markdown catalog import
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:         make(map[string]*Feature),
		studentOverrides: make(map[string]map[string]bool),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureHeuristicOverride] = &Feature{
		Name:           FeatureHeuristicOverride,
		Description:    "Keyword heuristic composes with the model verdict",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureStructuredOutput] = &Feature{
		Name:           FeatureStructuredOutput,
		Description:    "Request a JSON response format from the provider",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLeaderboardCache] = &Feature{
		Name:           FeatureLeaderboardCache,
		Description:    "Serve leaderboards from the cache layer",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLeaderboardSubjects] = &Feature{
		Name:           FeatureLeaderboardSubjects,
		Description:    "Per-subject boards alongside the global one",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureProgressLog] = &Feature{
		Name:           FeatureProgressLog,
		Description:    "Record chat turns for admin review",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLessonImport] = &Feature{
		Name:           FeatureLessonImport,
		Description:    "Legacy markdown catalog import endpoint",
		Enabled:        true,
		RolloutPercent: 100,
	}
}

// loadFromEnvironment applies FEATURE_* environment overrides.
// FEATURE_COMPLETION_HEURISTIC_OVERRIDE=false disables a feature;
// FEATURE_LEADERBOARD_CACHE_ROLLOUT=50 sets a rollout percentage.
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureEnvKey(name)

		if val := os.Getenv(envKey); val != "" {
			if enabled, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = enabled
			}
		}

		if val := os.Getenv(envKey + "_ROLLOUT"); val != "" {
			if pct, err := strconv.Atoi(val); err == nil && pct >= 0 && pct <= 100 {
				feature.RolloutPercent = pct
			}
		}
	}
}

// featureEnvKey converts "leaderboard.cache" to "FEATURE_LEADERBOARD_CACHE".
func featureEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks whether a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(name string, ctx FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Per-student overrides win
	if overrides, ok := ff.studentOverrides[ctx.StudentID]; ok {
		if enabled, ok := overrides[name]; ok {
			return enabled
		}
	}

	feature, ok := ff.features[name]
	if !ok {
		return false
	}

	if !feature.Enabled {
		return false
	}

	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Admins see everything that's enabled
	if ctx.IsAdmin {
		return true
	}

	if feature.RolloutPercent >= 100 {
		return true
	}
	if feature.RolloutPercent <= 0 {
		return false
	}

	return rolloutBucket(ctx.StudentID) < feature.RolloutPercent
}

// IsEnabledGlobally checks a feature without student context; rollout
// percentages below 100 count as disabled.
func (ff *FeatureFlags) IsEnabledGlobally(name string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[name]
	if !ok {
		return false
	}
	return feature.Enabled && feature.RolloutPercent >= 100
}

// SetOverride forces a feature on or off for one student.
func (ff *FeatureFlags) SetOverride(studentID, name string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if ff.studentOverrides[studentID] == nil {
		ff.studentOverrides[studentID] = make(map[string]bool)
	}
	ff.studentOverrides[studentID][name] = enabled
}

// ClearOverrides removes all per-student overrides for one student.
func (ff *FeatureFlags) ClearOverrides(studentID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.studentOverrides, studentID)
}

// SetEnabled toggles a feature globally at runtime.
func (ff *FeatureFlags) SetEnabled(name string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if feature, ok := ff.features[name]; ok {
		feature.Enabled = enabled
	}
}

// List returns a snapshot of all features.
func (ff *FeatureFlags) List() []Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make([]Feature, 0, len(ff.features))
	for _, f := range ff.features {
		result = append(result, *f)
	}
	return result
}

// rolloutBucket maps a student ID to a stable bucket in [0, 100).
func rolloutBucket(studentID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(studentID))
	return int(h.Sum32() % 100)
}
