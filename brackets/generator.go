package brackets

import "context"

// GenerateBracketParams: команды в порядке посева.
type GenerateBracketParams struct {
	CompetitionID string
	TeamIDs       []string
	// Legs is how many times each pair meets in a round robin. Zero means two.
	Legs int
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error)

	GetName() string
}

// uniqueTeams drops empty and repeated ids, keeping the first occurrence.
func uniqueTeams(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
