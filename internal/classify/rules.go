// Package classify decides whether a closed way describes an area.
package classify

import (
	"fmt"
	"os"

	"github.com/paulmach/osm"
	"gopkg.in/yaml.v3"
)

// Rule is one tag judgement. A rule matches when the key is present and
// either AnyValue is set or the value is equal.
type Rule struct {
	Key      string
	Value    string
	AnyValue bool
	Area     bool
}

// Matches reports whether the rule applies to tags
func (r Rule) Matches(tags osm.Tags) bool {
	for _, t := range tags {
		if t.Key == r.Key && (r.AnyValue || t.Value == r.Value) {
			return true
		}
	}
	return false
}

// Rules is an ordered rule table; the first matching rule decides.
type Rules []Rule

// IsArea scans the table in order. No match means not an area.
func (rs Rules) IsArea(tags osm.Tags) bool {
	for _, r := range rs {
		if r.Matches(tags) {
			return r.Area
		}
	}
	return false
}

func key(k string) Rule { return Rule{Key: k, AnyValue: true, Area: true} }
func not(k, v string) Rule { return Rule{Key: k, Value: v} }
func notAll(k string, vs ...string) []Rule {
	rules := make([]Rule, 0, len(vs))
	for _, v := range vs {
		rules = append(rules, not(k, v))
	}
	return rules
}

// DefaultRules returns the built-in table. area=no comes first so it wins
// over every other tag; within each key the value exceptions precede the
// key-wide default.
func DefaultRules() Rules {
	var rs Rules
	add := func(rules ...Rule) { rs = append(rs, rules...) }

	add(not("area", "no"))

	add(notAll("aeroway", "gate", "taxiway")...)
	add(key("aeroway"))

	add(notAll("amenity", "atm", "bbq", "bench", "bureau_de_change", "clock",
		"drinking_water", "grit_bin", "parking_entrance", "post_box",
		"telephone", "vending_machine", "waste_basket")...)
	add(key("amenity"))

	add(key("area"))
	add(key("area:highway"))

	add(notAll("building", "entrance", "no")...)
	add(key("building"))

	add(key("craft"))

	add(notAll("emergency", "fire_hydrant", "phone")...)
	add(key("emergency"))

	add(not("golf", "hole"))
	add(key("golf"))

	add(not("historic", "boundary_stone"))
	add(key("historic"))

	add(not("junction", "roundabout"))
	add(key("junction"))

	add(key("landuse"))

	add(notAll("leisure", "picnic_table", "track", "slipway")...)
	add(key("leisure"))

	add(notAll("man_made", "cutline", "embankment", "flagpole", "mast",
		"petroleum_well", "pipeline", "survey_point")...)
	add(key("man_made"))

	add(key("military"))

	add(notAll("natural", "coastline", "peak", "saddle", "spring", "tree",
		"tree_row", "volcano")...)
	add(key("natural"))

	add(key("office"))
	add(key("piste:type"))
	add(key("place"))

	add(notAll("power", "line", "minor_line", "pole", "tower")...)
	add(key("power"))

	add(not("public_transport", "stop_position"))
	add(key("public_transport"))

	add(key("shop"))

	add(not("tourism", "viewpoint"))
	add(key("tourism"))

	add(notAll("waterway", "canal", "ditch", "drain", "river", "stream", "weir")...)
	add(key("waterway"))

	return rs
}

// ruleFile is the YAML layout of a rule table
type ruleFile struct {
	Rules []struct {
		Key   string  `yaml:"key"`
		Value *string `yaml:"value,omitempty"`
		Area  bool    `yaml:"area"`
	} `yaml:"rules"`
}

// LoadRules reads a rule table from a YAML file:
//
//	rules:
//	  - {key: area, value: "no", area: false}
//	  - {key: building, area: true}
//
// A rule without value matches any value.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules parses a YAML rule table
func ParseRules(data []byte) (Rules, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rule YAML: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rule file has no rules")
	}

	rs := make(Rules, 0, len(f.Rules))
	for i, r := range f.Rules {
		if r.Key == "" {
			return nil, fmt.Errorf("rule %d: missing key", i+1)
		}
		rule := Rule{Key: r.Key, Area: r.Area, AnyValue: r.Value == nil}
		if r.Value != nil {
			rule.Value = *r.Value
		}
		rs = append(rs, rule)
	}
	return rs, nil
}
