package exposure

import "strconv"

// Command is a single call to the camera control endpoint, i.e.
// /control?var=Var&val=Val.
type Command struct {
	Var string `json:"var"`
	Val string `json:"val"`
}

// gainPlaceholder is replaced by the current gain when building commands.
const gainPlaceholder = "{gain}"

// tierCommands controls how to switch to each exposure tier. Order matters.
var tierCommands = map[Tier][]Command{
	TierAuto: {
		{Var: "aec", Val: "1"},
	},
	TierAGC: {
		{Var: "aec", Val: "0"},
		{Var: "aec_value", Val: "1200"},
		{Var: "agc", Val: "1"},
	},
	TierManual: {
		{Var: "aec", Val: "0"},
		{Var: "agc", Val: "0"},
		{Var: "agc_gain", Val: gainPlaceholder},
	},
}

// Commands returns the ordered control commands that put the camera into s.
// It returns nil for an unknown tier.
func Commands(s State) []Command {
	tmpl, ok := tierCommands[s.Tier]
	if !ok {
		return nil
	}

	cmds := make([]Command, 0, len(tmpl))
	for _, c := range tmpl {
		if c.Val == gainPlaceholder {
			c.Val = strconv.Itoa(s.Gain)
		}
		cmds = append(cmds, c)
	}

	return cmds
}
