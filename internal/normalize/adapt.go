package normalize

import (
	"strings"

	"github.com/Brobert48/nhl-led-scoreboard/internal/cache"
)

// adaptRules rewrites rules that reference keys removed by a schema
// change. For each removed key, rules referencing it either get their
// source path substituted with a replacement found in the current
// payload, or are relaxed to optional with a type-appropriate default.
// Rules are never deleted.
func (n *Normalizer) adaptRules(rules []*Rule, diff *cache.FingerprintDiff, raw map[string]any, domainName, sourceName string) {
	if len(diff.RemovedKeys) == 0 {
		return
	}

	allPaths := cache.KeyPaths(raw, cache.MaxKeyPaths)

	n.mu.Lock()
	defer n.mu.Unlock()

	for _, removed := range diff.RemovedKeys {
		for _, rule := range rules {
			if !ruleReferences(rule, removed) {
				continue
			}

			replacement := findReplacementPath(removed, allPaths, diff.NewKeys)
			if replacement != "" {
				rewritten := rewriteSourcePath(rule.SourcePath, removed, replacement)
				if rewritten != rule.SourcePath {
					n.log.Info("adapted rule to schema change",
						"source", sourceName,
						"domain", domainName,
						"old_path", rule.SourcePath,
						"new_path", rewritten,
					)
					rule.SourcePath = rewritten
					continue
				}
			}

			if rule.Required || rule.Default == nil {
				rule.Required = false
				if rule.Default == nil {
					rule.Default = defaultForTarget(rule.TargetPath)
				}
				n.log.Info("relaxed rule for removed key",
					"source", sourceName,
					"domain", domainName,
					"path", rule.SourcePath,
				)
			}
		}
	}
}

// ruleReferences reports whether a rule's source path refers to a
// removed key. Removed keys are absolute payload paths while item
// rules use element-relative paths, so a suffix match covers rules
// inside a fanned-out list. The suffix must begin at a segment
// boundary: a removed "games[0].gameState" refers to a rule path
// "gameState", not to one named "State".
func ruleReferences(rule *Rule, removedKey string) bool {
	if strings.Contains(rule.SourcePath, removedKey) {
		return true
	}

	return strings.HasSuffix(removedKey, "."+rule.SourcePath)
}

// findReplacementPath searches for a substitute for a removed key:
// an existing path with the same terminal name (exact first, then
// case-insensitive substring), then a newly added key under the same
// parent as the removed one.
func findReplacementPath(removedKey string, allPaths, newKeys []string) string {
	terminal := terminalSegment(removedKey)

	for _, path := range allPaths {
		if path != removedKey && terminalSegment(path) == terminal {
			return path
		}
	}

	lowerTerminal := strings.ToLower(terminal)
	for _, path := range allPaths {
		if path != removedKey && strings.Contains(strings.ToLower(terminalSegment(path)), lowerTerminal) {
			return path
		}
	}

	parent := parentPath(removedKey)
	candidate := ""
	for _, newKey := range newKeys {
		if parentPath(newKey) != parent {
			continue
		}
		if candidate != "" {
			// Ambiguous: more than one new sibling, give up.
			return ""
		}
		candidate = newKey
	}

	return candidate
}

// parentPath strips the last segment from a dotted path.
func parentPath(path string) string {
	if idx := strings.LastIndexByte(path, '.'); idx >= 0 {
		return path[:idx]
	}

	return ""
}

// rewriteSourcePath substitutes a replacement path into a rule's
// source path. When the removed key is absolute and the rule path is
// element-relative, the shared prefix is stripped from the replacement
// first.
func rewriteSourcePath(sourcePath, removedKey, replacement string) string {
	if strings.Contains(sourcePath, removedKey) {
		return strings.Replace(sourcePath, removedKey, replacement, 1)
	}

	// sourcePath is a suffix of removedKey: strip the absolute prefix.
	prefix := strings.TrimSuffix(removedKey, sourcePath)
	if prefix != "" && strings.HasPrefix(replacement, prefix) {
		return strings.TrimPrefix(replacement, prefix)
	}

	return sourcePath
}
