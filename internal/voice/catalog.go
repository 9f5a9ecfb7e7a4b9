package voice

import (
	"sort"
	"strings"
)

// Info describes a single voice identity.
type Info struct {
	ID          string
	Name        string
	Language    string
	Gender      string
	Description string
}

// Voice IDs follow the {language}{gender}_{name} convention used by
// Kokoro-style engines, e.g. af_bella = American Female, Bella.
var prefixInfo = map[string]struct {
	language string
	gender   string
	region   string
}{
	"af": {"en-US", "female", "American"},
	"am": {"en-US", "male", "American"},
	"bf": {"en-GB", "female", "British"},
	"bm": {"en-GB", "male", "British"},
	"ef": {"es", "female", "Spanish"},
	"em": {"es", "male", "Spanish"},
	"ff": {"fr", "female", "French"},
	"fm": {"fr", "male", "French"},
	"hf": {"hi", "female", "Hindi"},
	"hm": {"hi", "male", "Hindi"},
	"if": {"it", "female", "Italian"},
	"im": {"it", "male", "Italian"},
	"jf": {"ja", "female", "Japanese"},
	"jm": {"ja", "male", "Japanese"},
	"pf": {"pt", "female", "Portuguese"},
	"pm": {"pt", "male", "Portuguese"},
	"zf": {"zh", "female", "Chinese"},
	"zm": {"zh", "male", "Chinese"},
}

// Describe expands a voice ID into human-readable metadata.
func Describe(id string) Info {
	info := Info{ID: id, Language: "unknown", Gender: "unknown"}

	namePart := id
	if len(id) > 3 && id[2] == '_' {
		namePart = id[3:]
	}
	info.Name = titleCase(strings.ReplaceAll(namePart, "_", " "))

	region := "Unknown"
	if len(id) >= 2 {
		if p, ok := prefixInfo[id[:2]]; ok {
			info.Language = p.language
			info.Gender = p.gender
			region = p.region
		}
	}
	info.Description = region + " " + info.Gender + " voice"
	return info
}

// Fallback is the built-in voice table, used when the engine's voice
// listing is unreachable.
func Fallback() []Info {
	ids := []string{
		"af_bella",
		"af_nicole",
		"af_sarah",
		"am_adam",
		"am_michael",
		"bf_emma",
		"bm_george",
	}
	infos := make([]Info, len(ids))
	for i, id := range ids {
		infos[i] = Describe(id)
	}
	return infos
}

// DescribeAll expands a list of engine voice IDs, sorted by ID.
func DescribeAll(ids []string) []Info {
	infos := make([]Info, len(ids))
	for i, id := range ids {
		infos[i] = Describe(id)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
