// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultFuzzyDistance is the largest edit distance accepted by Resolve.
const DefaultFuzzyDistance = 2

const runesPerEdit = 4

// LoadRegistry reads a JSON problem-type registry. An empty path yields the
// built-in catalogue.
func LoadRegistry(path string) (*ProblemTypeRegistry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ProblemTypeRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate rejects registries with empty or duplicate identifiers.
func (r *ProblemTypeRegistry) Validate() error {
	seen := make(map[string]string, len(r.ProblemTypes))
	for i, pt := range r.ProblemTypes {
		key := Fold(pt.ID)
		if key == "" {
			return fmt.Errorf("problem type #%d has no id", i)
		}
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("problem type %q duplicates %q", pt.ID, prev)
		}
		seen[key] = pt.ID
	}
	return nil
}

// Fold lower-cases s, strips diacritics and trims surrounding space so that
// "Écran Cassé" and "ecran casse" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.TrimSpace(cases.Fold().String(stripped))
}

// Resolver maps free-text problem descriptions onto registry entries.
// It is read-only after construction and safe for concurrent use.
type Resolver struct {
	registry    *ProblemTypeRegistry
	byID        map[string]int
	byAlias     map[string]int
	folded      []string
	maxDistance int
}

func NewResolver(reg *ProblemTypeRegistry, maxDistance int) *Resolver {
	if reg == nil {
		reg = Default()
	}
	if maxDistance < 0 {
		maxDistance = 0
	}
	r := &Resolver{
		registry:    reg,
		byID:        make(map[string]int, len(reg.ProblemTypes)),
		byAlias:     make(map[string]int),
		folded:      make([]string, len(reg.ProblemTypes)),
		maxDistance: maxDistance,
	}
	for i, pt := range reg.ProblemTypes {
		id := Fold(pt.ID)
		r.folded[i] = id
		r.byID[id] = i
		for _, alias := range pt.Aliases {
			if a := Fold(alias); a != "" {
				if _, taken := r.byAlias[a]; !taken {
					r.byAlias[a] = i
				}
			}
		}
	}
	return r
}

// Resolve finds the problem type for text: exact id first, then alias, then
// the closest id within the configured edit distance. Fuzzy matches allow
// one edit per runesPerEdit runes of the shorter word, so short words
// never match fuzzily.
func (r *Resolver) Resolve(text string) (ProblemType, bool) {
	key := Fold(text)
	if key == "" {
		return ProblemType{}, false
	}
	if i, ok := r.byID[key]; ok {
		return r.registry.ProblemTypes[i], true
	}
	if i, ok := r.byAlias[key]; ok {
		return r.registry.ProblemTypes[i], true
	}
	if r.maxDistance == 0 {
		return ProblemType{}, false
	}

	keyLen := utf8.RuneCountInString(key)
	best, bestDist := -1, r.maxDistance+1
	for i, id := range r.folded {
		allowed := min(r.maxDistance, min(keyLen, utf8.RuneCountInString(id))/runesPerEdit)
		if allowed == 0 {
			continue
		}
		d := levenshtein.ComputeDistance(key, id)
		if d <= allowed && d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return ProblemType{}, false
	}
	return r.registry.ProblemTypes[best], true
}

// Keywords returns the folded keyword set for text, or nil when the problem
// type is unknown.
func (r *Resolver) Keywords(text string) []string {
	pt, ok := r.Resolve(text)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(pt.Keywords))
	for _, kw := range pt.Keywords {
		if f := Fold(kw); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ProblemTypes lists the registry entries in declaration order.
func (r *Resolver) ProblemTypes() []ProblemType {
	return r.registry.ProblemTypes
}
