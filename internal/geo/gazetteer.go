// Package geo provides the place-name gazetteer fallback and great-circle
// distance math used by the matching engine.
package geo

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed gazetteer.yaml
var gazetteerYAML []byte

// Coord is a WGS84 point.
type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// gazetteerFile mirrors the embedded YAML layout.
type gazetteerFile struct {
	Places map[string][2]float64 `yaml:"places"`
}

var (
	loadOnce  sync.Once
	loadErr   error
	gazetteer map[string]Coord
)

// load parses the embedded gazetteer exactly once. The resulting map is
// never mutated afterwards.
func load() {
	var f gazetteerFile
	if err := yaml.Unmarshal(gazetteerYAML, &f); err != nil {
		loadErr = eris.Wrap(err, "geo: parse gazetteer")
		return
	}
	m := make(map[string]Coord, len(f.Places))
	for name, ll := range f.Places {
		m[name] = Coord{Lat: ll[0], Lng: ll[1]}
	}
	gazetteer = m
	zap.L().Debug("gazetteer loaded", zap.Int("places", len(m)))
}

// Size returns the number of places in the gazetteer.
func Size() int {
	loadOnce.Do(load)
	return len(gazetteer)
}

// Resolve maps a city and/or district name to approximate coordinates. The
// city is tried first, then the district. Returns false when neither is in
// the gazetteer.
func Resolve(city, district string) (Coord, bool) {
	loadOnce.Do(load)
	if loadErr != nil {
		zap.L().Error("geo: gazetteer unavailable", zap.Error(loadErr))
		return Coord{}, false
	}

	if c, ok := gazetteer[Normalize(city)]; ok {
		return c, true
	}
	if c, ok := gazetteer[Normalize(district)]; ok {
		return c, true
	}
	return Coord{}, false
}

// suffixTokens are trailing words stripped during normalization so that
// "Mumbai City" and "Pune district" hit their plain entries.
var suffixTokens = map[string]bool{
	"city":     true,
	"town":     true,
	"district": true,
}

// Normalize lowercases, trims, and strips trailing "city"/"town"/"district"
// tokens from a place name.
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return ""
	}
	fields := strings.Fields(s)
	for len(fields) > 1 && suffixTokens[fields[len(fields)-1]] {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}
