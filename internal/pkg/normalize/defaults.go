package normalize

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultClubs is the built-in club list used when no aliases file is configured.
var DefaultClubs = []Entry{
	// Premier League
	{Name: "Arsenal"},
	{Name: "Aston Villa"},
	{Name: "Bournemouth"},
	{Name: "Brentford"},
	{Name: "Brighton", Aliases: []string{"Brighton & Hove", "Brighton and Hove", "Brighton & Hove Albion"}},
	{Name: "Burnley"},
	{Name: "Chelsea"},
	{Name: "Crystal Palace"},
	{Name: "Everton"},
	{Name: "Fulham"},
	{Name: "Leeds", Aliases: []string{"Leeds United"}},
	{Name: "Liverpool"},
	{Name: "Manchester City", Aliases: []string{"Man City"}},
	{ID: "manu", Name: "Manchester United", Aliases: []string{"MANU", "Man United", "Man Utd"}},
	{Name: "Newcastle", Aliases: []string{"Newcastle United"}},
	{Name: "Nottingham", Aliases: []string{"Nottingham Forest"}},
	{Name: "QPR", Aliases: []string{"Queens Park Rangers"}},
	{Name: "Sunderland"},
	{Name: "Tottenham", Aliases: []string{"Spurs", "Tottenham Hotspur"}},
	{Name: "West Ham", Aliases: []string{"West Ham United"}},
	{Name: "Wolverhampton", Aliases: []string{"Wolves", "Wolverhampton Wanderers"}},
	// Ligue 1
	{Name: "PSG", Aliases: []string{"Paris Saint-Germain", "Paris St Germain", "Paris Saint Germain"}},
	// La Liga
	{Name: "Barcelona"},
	{Name: "Real Madrid"},
	{Name: "Atlético Madrid", Aliases: []string{"Atletico Madrid", "Atl. Madrid"}},
	{Name: "Celta", Aliases: []string{"Celta Vigo", "Celta De Vigo"}},
}

// DefaultProviders maps provider spellings printed by aggregator sites to provider IDs.
var DefaultProviders = []Entry{
	{ID: "footballtravel", Name: "FootballTravel.dk", Aliases: []string{"Football Travel", "Footballtravel"}},
	{ID: "fantravel", Name: "Fantravel.dk", Aliases: []string{"Fan Travel", "Fantravel"}},
	{ID: "olka", Name: "Olka Express", Aliases: []string{"Olka", "Olka.dk"}},
}

type entriesFile struct {
	Clubs     []Entry `yaml:"clubs"`
	Providers []Entry `yaml:"providers"`
}

// LoadFile reads club and provider entries from a YAML file:
//
//	clubs:
//	  - name: Tottenham
//	    aliases: [Spurs, Tottenham Hotspur]
//	providers:
//	  - id: footballtravel
//	    name: FootballTravel.dk
func LoadFile(path string) (clubs, providers []Entry, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read aliases file: %w", err)
	}
	var f entriesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("failed to parse aliases file: %w", err)
	}
	return f.Clubs, f.Providers, nil
}

// EntriesFromMap turns a "name: [aliases]" config block into entries, sorted by name.
func EntriesFromMap(m map[string][]string) []Entry {
	out := make([]Entry, 0, len(m))
	for name, aliases := range m {
		out = append(out, Entry{Name: name, Aliases: aliases})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Merge layers extra entries over base. An extra entry with the ID or the normalized
// name of an existing entry adds its aliases to it; anything else is appended.
func Merge(base []Entry, extra ...[]Entry) []Entry {
	out := make([]Entry, len(base))
	for i, e := range base {
		out[i] = Entry{ID: e.ID, Name: e.Name, Aliases: append([]string(nil), e.Aliases...)}
	}
	find := func(e Entry) int {
		key := Normalize(e.Name)
		for i, o := range out {
			if e.ID != "" && (o.ID == e.ID || Slug(o.Name) == e.ID) {
				return i
			}
			if key != "" && Normalize(o.Name) == key {
				return i
			}
		}
		return -1
	}
	for _, layer := range extra {
		for _, e := range layer {
			i := find(e)
			if i < 0 {
				out = append(out, Entry{ID: e.ID, Name: e.Name, Aliases: append([]string(nil), e.Aliases...)})
				continue
			}
			out[i].Aliases = appendNew(out[i].Aliases, e.Aliases...)
		}
	}
	return out
}

func appendNew(dst []string, more ...string) []string {
	for _, m := range more {
		dup := false
		for _, d := range dst {
			if Normalize(d) == Normalize(m) {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, m)
		}
	}
	return dst
}
