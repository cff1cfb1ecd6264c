package brackets

import (
	"context"
	"fmt"
	"sort"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() BracketGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateBracket pairs every team with every other team. With two legs (the
// default) each pair meets twice with home and away swapped, so N teams give
// N*(N-1) fixtures: all first legs in order, then all return legs.
func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	teams := uniqueTeams(params.TeamIDs)
	if len(teams) < 2 {
		return nil, fmt.Errorf("RoundRobinGenerator: not enough teams (found %d, min 2 required)", len(teams))
	}

	legs := params.Legs
	if legs != 1 {
		legs = 2
	}

	pairsPerLeg := len(teams) * (len(teams) - 1) / 2
	matches := make([]*BracketMatch, 0, pairsPerLeg*legs)
	matchOrder := 0

	for i := 0; i < len(teams); i++ {
		for j := i + 1; j < len(teams); j++ {
			home, away := teams[i], teams[j]

			matchOrder++
			matches = append(matches, &BracketMatch{
				UID:          fmt.Sprintf("RR%d_L1_%s_%s", matchOrder, home, away),
				Round:        1,
				OrderInRound: matchOrder,
				HomeTeamID:   &home,
				AwayTeamID:   &away,
			})

			if legs == 2 {
				matches = append(matches, &BracketMatch{
					UID:          fmt.Sprintf("RR%d_L2_%s_%s", matchOrder, away, home),
					Round:        2,
					OrderInRound: matchOrder + pairsPerLeg,
					HomeTeamID:   &away,
					AwayTeamID:   &home,
				})
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].OrderInRound < matches[j].OrderInRound
	})

	return matches, nil
}
