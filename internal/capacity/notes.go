package capacity

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NotePools holds the free-text pools notes are drawn from.
// Selection probabilities live in the simulator; pools are flavor only.
type NotePools struct {
	General []string
	ByCat   map[Category][]string
}

// poolsFile is the on-disk YAML shape for custom pools.
type poolsFile struct {
	General []string `yaml:"general"`
	Sensory []string `yaml:"sensory"`
	Demand  []string `yaml:"demand"`
	Social  []string `yaml:"social"`
}

// For returns the pool for a category, falling back to the general pool
// when the category is unknown or has no pool.
func (p NotePools) For(c Category) []string {
	if pool, ok := p.ByCat[c]; ok && len(pool) > 0 {
		return pool
	}
	return p.General
}

// DefaultPools returns the built-in note pools.
func DefaultPools() NotePools {
	return NotePools{
		General: []string{
			"slow start to the day",
			"felt steady most of the afternoon",
			"ran out of steam after dinner",
			"good sleep last night helped",
			"kept putting things off",
			"quiet day, nothing notable",
			"better than expected",
			"needed more breaks than usual",
			"managed the essentials only",
			"ended the day with energy to spare",
		},
		ByCat: map[Category][]string{
			CategorySensory: {
				"noise at the office was a lot",
				"bright lights all morning",
				"crowded train both ways",
				"construction next door all day",
				"too many screens, eyes tired",
				"strong smells in the kitchen",
				"open plan chatter nonstop",
				"headphones helped for a while",
				"everything felt too loud",
				"needed a dark room by evening",
			},
			CategoryDemand: {
				"back-to-back meetings",
				"deadline moved up again",
				"three things due at once",
				"covering for a colleague",
				"unexpected errand ate the morning",
				"long list, short day",
				"had to redo yesterday's work",
				"constant interruptions",
				"juggling family logistics",
				"one urgent thing after another",
			},
			CategorySocial: {
				"big family gathering",
				"difficult conversation at work",
				"hosted friends for dinner",
				"lots of small talk today",
				"phone call ran long",
				"said yes to too many plans",
				"met new people, fun but draining",
				"awkward meeting with the landlord",
				"group chat blowing up",
				"needed time alone afterwards",
			},
		},
	}
}

// LoadPools reads custom note pools from a YAML file.
// Every pool in the file replaces the corresponding built-in one;
// omitted pools keep their defaults. Empty pools are rejected so the
// simulator can always index into a non-empty list.
func LoadPools(path string) (NotePools, error) {
	pools := DefaultPools()

	data, err := os.ReadFile(path)
	if err != nil {
		return NotePools{}, fmt.Errorf("read note pools: %w", err)
	}

	var f poolsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return NotePools{}, fmt.Errorf("parse note pools: %w", err)
	}

	for _, e := range []struct {
		name string
		pool []string
		set  func([]string)
	}{
		{"general", f.General, func(p []string) { pools.General = p }},
		{"sensory", f.Sensory, func(p []string) { pools.ByCat[CategorySensory] = p }},
		{"demand", f.Demand, func(p []string) { pools.ByCat[CategoryDemand] = p }},
		{"social", f.Social, func(p []string) { pools.ByCat[CategorySocial] = p }},
	} {
		if e.pool == nil {
			continue
		}
		if len(e.pool) == 0 {
			return NotePools{}, fmt.Errorf("note pool %q must not be empty", e.name)
		}
		e.set(e.pool)
	}

	return pools, nil
}
