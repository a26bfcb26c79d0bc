package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// MaxKeyPaths bounds recursive key-path extraction so adversarial or
// huge payloads cannot blow up fingerprinting cost.
const MaxKeyPaths = 50

// DriftThreshold is the structural change score above which a schema
// change is considered significant.
const DriftThreshold = 0.1

// Fingerprint is a structural snapshot of one (source, domain)
// response shape. The key-path list and type map always cover the same
// key set.
type Fingerprint struct {
	SourceName     string            `json:"source_name"`
	Domain         string            `json:"domain"`
	KeyPaths       []string          `json:"key_paths"`
	TypeSignatures map[string]string `json:"type_signatures"`
	SampleValues   map[string]any    `json:"sample_values"`
	CreatedAt      int64             `json:"created_at"`
	VersionHash    string            `json:"version_hash"`
}

// TypeChange records a type transition for a key present in both
// fingerprints.
type TypeChange struct {
	OldType string `json:"old_type"`
	NewType string `json:"new_type"`
}

// FingerprintDiff is the result of comparing two fingerprints.
type FingerprintDiff struct {
	VersionChanged bool                  `json:"version_changed"`
	NewKeys        []string              `json:"new_keys"`
	RemovedKeys    []string              `json:"removed_keys"`
	TypeChanges    map[string]TypeChange `json:"type_changes"`
	// Score is the structural change score in [0,1]: changed keys over
	// the union of all key paths.
	Score float64 `json:"structural_change_score"`
}

// Significant reports whether the diff crosses the drift threshold.
func (d *FingerprintDiff) Significant() bool {
	return d != nil && d.Score > DriftThreshold
}

// NewFingerprint builds a fingerprint from a decoded JSON payload.
func NewFingerprint(data any, sourceName, domain string) *Fingerprint {
	paths := make([]string, 0, MaxKeyPaths)
	types := make(map[string]string)
	samples := make(map[string]any)

	walkPaths(data, "", func(path string, value any) bool {
		if len(paths) >= MaxKeyPaths {
			return false
		}

		paths = append(paths, path)
		types[path] = typeName(value)

		if sample, ok := sampleValue(value); ok {
			samples[path] = sample
		}

		return true
	})

	return &Fingerprint{
		SourceName:     sourceName,
		Domain:         domain,
		KeyPaths:       paths,
		TypeSignatures: types,
		SampleValues:   samples,
		CreatedAt:      time.Now().Unix(),
		VersionHash:    versionHash(paths, types),
	}
}

// walkPaths visits every key path in a decoded JSON value. Arrays are
// sampled at their first element, recorded as path[0]. The visitor
// returns false to stop the walk.
func walkPaths(data any, prefix string, visit func(path string, value any) bool) bool {
	switch v := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}

			if !visit(path, v[key]) {
				return false
			}

			if !walkPaths(v[key], path, visit) {
				return false
			}
		}
	case []any:
		if len(v) > 0 {
			return walkPaths(v[0], prefix+"[0]", visit)
		}
	}

	return true
}

// typeName returns the JSON type name of a decoded value.
func typeName(value any) string {
	switch value.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case bool:
		return "bool"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", value)
	}
}

// sampleValue returns scalar values small enough to store as samples.
func sampleValue(value any) (any, bool) {
	const maxSampleLen = 100

	switch v := value.(type) {
	case string:
		if len(v) < maxSampleLen {
			return v, true
		}
	case float64, int, int64, bool:
		return v, true
	}

	return nil, false
}

// versionHash derives the structural version hash from sorted paths
// and their types.
func versionHash(paths []string, types map[string]string) string {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	structure := struct {
		Paths []string          `json:"paths"`
		Types map[string]string `json:"types"`
	}{Paths: sorted, Types: types}

	raw, err := json.Marshal(structure)
	if err != nil {
		// Marshal of strings cannot fail; keep the hash stable anyway.
		raw = []byte(fmt.Sprint(sorted))
	}

	sum := sha256.Sum256(raw)

	return hex.EncodeToString(sum[:])
}

// CompareFingerprints diffs two fingerprints. The score is 0 for
// identical structures and 1 when nothing is shared (including a diff
// against an empty fingerprint).
func CompareFingerprints(oldFP, newFP *Fingerprint) *FingerprintDiff {
	diff := &FingerprintDiff{
		VersionChanged: oldFP.VersionHash != newFP.VersionHash,
		NewKeys:        make([]string, 0),
		RemovedKeys:    make([]string, 0),
		TypeChanges:    make(map[string]TypeChange),
	}

	oldKeys := make(map[string]struct{}, len(oldFP.KeyPaths))
	for _, path := range oldFP.KeyPaths {
		oldKeys[path] = struct{}{}
	}

	newKeys := make(map[string]struct{}, len(newFP.KeyPaths))
	for _, path := range newFP.KeyPaths {
		newKeys[path] = struct{}{}
	}

	for path := range newKeys {
		if _, ok := oldKeys[path]; !ok {
			diff.NewKeys = append(diff.NewKeys, path)
		}
	}

	for path := range oldKeys {
		if _, ok := newKeys[path]; !ok {
			diff.RemovedKeys = append(diff.RemovedKeys, path)
			continue
		}

		oldType := oldFP.TypeSignatures[path]
		newType := newFP.TypeSignatures[path]
		if oldType != newType {
			diff.TypeChanges[path] = TypeChange{OldType: oldType, NewType: newType}
		}
	}

	sort.Strings(diff.NewKeys)
	sort.Strings(diff.RemovedKeys)

	union := len(oldKeys)
	for path := range newKeys {
		if _, ok := oldKeys[path]; !ok {
			union++
		}
	}

	if union > 0 {
		changed := len(diff.NewKeys) + len(diff.RemovedKeys) + len(diff.TypeChanges)
		diff.Score = float64(changed) / float64(union)
	}

	return diff
}

// fingerprintPath returns the schema file path for (source, domain).
func (c *Cache) fingerprintPath(sourceName, domain string) string {
	return filepath.Join(c.schemaDir, fmt.Sprintf("%s_%s.json", sourceName, domain))
}

// Fingerprint returns the stored fingerprint for (source, domain).
func (c *Cache) Fingerprint(sourceName, domain string) (*Fingerprint, bool) {
	raw, err := os.ReadFile(c.fingerprintPath(sourceName, domain))
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("failed to load schema fingerprint",
				"source", sourceName,
				"domain", domain,
				"error", err.Error(),
			)
		}
		return nil, false
	}

	var fp Fingerprint
	if unmarshalErr := json.Unmarshal(raw, &fp); unmarshalErr != nil {
		c.log.Warn("corrupt schema fingerprint",
			"source", sourceName,
			"domain", domain,
			"error", unmarshalErr.Error(),
		)
		return nil, false
	}

	return &fp, true
}

// SetFingerprint persists a fingerprint, last write wins per
// (source, domain).
func (c *Cache) SetFingerprint(fp *Fingerprint) error {
	raw, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("fingerprint marshal: %w", err)
	}

	path := c.fingerprintPath(fp.SourceName, fp.Domain)
	if writeErr := os.WriteFile(path, raw, filePerm); writeErr != nil {
		c.log.Error("failed to save schema fingerprint",
			"source", fp.SourceName,
			"domain", fp.Domain,
			"error", writeErr.Error(),
		)
		return fmt.Errorf("fingerprint write: %w", writeErr)
	}

	return nil
}

// UpdateFingerprint builds a fresh fingerprint from payload, diffs it
// against any stored one, persists the new fingerprint and returns the
// diff (nil when there was no prior fingerprint).
func (c *Cache) UpdateFingerprint(payload any, sourceName, domain string) (*Fingerprint, *FingerprintDiff, error) {
	newFP := NewFingerprint(payload, sourceName, domain)

	var diff *FingerprintDiff
	if oldFP, ok := c.Fingerprint(sourceName, domain); ok {
		diff = CompareFingerprints(oldFP, newFP)
		if diff.Significant() {
			c.log.Warn("significant schema change detected",
				"source", sourceName,
				"domain", domain,
				"score", diff.Score,
				"new_keys", len(diff.NewKeys),
				"removed_keys", len(diff.RemovedKeys),
			)
		}
	}

	if err := c.SetFingerprint(newFP); err != nil {
		return newFP, diff, err
	}

	return newFP, diff, nil
}

// KeyPaths extracts up to max key paths from a decoded JSON payload.
// Shared by fingerprinting, endpoint validation and rule adaptation.
func KeyPaths(data any, max int) []string {
	paths := make([]string, 0, max)

	walkPaths(data, "", func(path string, _ any) bool {
		if len(paths) >= max {
			return false
		}

		paths = append(paths, path)

		return true
	})

	return paths
}
