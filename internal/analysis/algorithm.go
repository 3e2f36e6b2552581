package analysis

import "fmt"

// Algorithm selects the solving strategy.
// The set mirrors the variants the solver contract defines; an Engine may
// support only some of them.
type Algorithm int

const (
	Naive Algorithm = iota
	LocationInsensitive
	DatafrogOpt
	Hybrid
	Compare
)

var algorithmNames = map[Algorithm]string{
	Naive:               "naive",
	LocationInsensitive: "location_insensitive",
	DatafrogOpt:         "datafrog_opt",
	Hybrid:              "hybrid",
	Compare:             "compare",
}

// Algorithms returns every defined variant.
func Algorithms() []Algorithm {
	return []Algorithm{Naive, LocationInsensitive, DatafrogOpt, Hybrid, Compare}
}

func (a Algorithm) String() string {
	if name, ok := algorithmNames[a]; ok {
		return name
	}
	return fmt.Sprintf("algorithm(%d)", int(a))
}

// ParseAlgorithm converts a configuration name into an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	for a, n := range algorithmNames {
		if n == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown algorithm %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	if _, ok := algorithmNames[a]; !ok {
		return nil, fmt.Errorf("unknown algorithm %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
