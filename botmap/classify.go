package botmap

// Classification is the result of attributing a user-agent string.
type Classification struct {
	BotName string
	IsBot   bool
	IsLLM   bool
}

// unknown is returned for empty agents and agents no definition matches.
var unknown = Classification{BotName: "Unknown"}

// Classify attributes a user-agent string to the first definition whose
// pattern matches anywhere in it (unanchored substring search).
func (r *Registry) Classify(agent string) Classification {
	if agent == "" {
		return unknown
	}
	for i := range r.defs {
		if r.defs[i].re.MatchString(agent) {
			return Classification{
				BotName: r.defs[i].Name,
				IsBot:   true,
				IsLLM:   r.defs[i].IsLLM,
			}
		}
	}
	return unknown
}
