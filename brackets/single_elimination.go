package brackets

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

type BracketMatch struct {
	UID          string
	Round        int
	OrderInRound int

	HomeTeamID *string
	AwayTeamID *string

	SourceMatch1UID *string
	SourceMatch2UID *string

	// IsPlaceholder: участники матча определятся позже.
	IsPlaceholder bool

	IsBye     bool
	ByeTeamID *string
}

// Playable reports whether both teams are known and neither side is a bye.
func (m *BracketMatch) Playable() bool {
	return !m.IsBye && !m.IsPlaceholder && m.HomeTeamID != nil && m.AwayTeamID != nil
}

type node struct {
	teamID           *string
	sourceMatchUID   *string
	isByePlaceholder bool
}

type SingleEliminationGenerator struct {
}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateBracket builds the whole elimination tree. The field is padded to
// the next power of two with byes placed at the end of the seeding order;
// later rounds reference the matches that feed them.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	teams := uniqueTeams(params.TeamIDs)
	n := len(teams)

	if n == 0 {
		return nil, errors.New("cannot generate bracket with zero teams")
	}
	if n < 2 {
		return nil, errors.New("not enough teams to generate a single elimination bracket (minimum 2)")
	}

	numRounds := int(math.Ceil(math.Log2(float64(n))))
	sizeOfFullBracket := 1 << uint(numRounds)

	allGeneratedMatches := make([]*BracketMatch, 0, sizeOfFullBracket-1)

	currentRoundNodes := make([]*node, sizeOfFullBracket)
	for i := 0; i < sizeOfFullBracket; i++ {
		if i < n {
			id := teams[i]
			currentRoundNodes[i] = &node{teamID: &id}
		} else {
			currentRoundNodes[i] = &node{isByePlaceholder: true}
		}
	}
	// Spread byes so no first-round pair is bye against bye: pair seed i with
	// seed size-1-i.
	currentRoundNodes = foldSeeds(currentRoundNodes)

	for r := 1; r <= numRounds; r++ {
		nextRoundNodes := make([]*node, 0, len(currentRoundNodes)/2)
		matchesInThisRound := 0

		for i := 0; i < len(currentRoundNodes); i += 2 {
			node1 := currentRoundNodes[i]
			node2 := currentRoundNodes[i+1]

			currentMatchUID := fmt.Sprintf("R%dM%d", r, matchesInThisRound+1)

			bm := &BracketMatch{
				UID:          currentMatchUID,
				Round:        r,
				OrderInRound: matchesInThisRound + 1,
			}

			if node1.teamID != nil {
				bm.HomeTeamID = node1.teamID
			} else if node1.sourceMatchUID != nil {
				bm.SourceMatch1UID = node1.sourceMatchUID
				bm.IsPlaceholder = true
			}

			if node2.teamID != nil {
				bm.AwayTeamID = node2.teamID
			} else if node2.sourceMatchUID != nil {
				bm.SourceMatch2UID = node2.sourceMatchUID
				bm.IsPlaceholder = true
			}

			switch {
			case node1.teamID != nil && node2.isByePlaceholder:
				bm.IsBye = true
				bm.ByeTeamID = node1.teamID
				bm.AwayTeamID = nil
				nextRoundNodes = append(nextRoundNodes, &node{teamID: node1.teamID})
			case node2.teamID != nil && node1.isByePlaceholder:
				bm.IsBye = true
				bm.ByeTeamID = node2.teamID
				bm.HomeTeamID = node2.teamID
				bm.AwayTeamID = nil
				nextRoundNodes = append(nextRoundNodes, &node{teamID: node2.teamID})
			case node1.teamID != nil && node2.teamID != nil:
				nextRoundNodes = append(nextRoundNodes, &node{sourceMatchUID: &currentMatchUID})
			case node1.sourceMatchUID != nil || node2.sourceMatchUID != nil:
				nextRoundNodes = append(nextRoundNodes, &node{sourceMatchUID: &currentMatchUID})
			case node1.isByePlaceholder && node2.isByePlaceholder:
				continue
			default:
				return nil, fmt.Errorf("unexpected node combination for round %d, match %d: node1=%+v, node2=%+v", r, matchesInThisRound+1, node1, node2)
			}

			allGeneratedMatches = append(allGeneratedMatches, bm)
			matchesInThisRound++
		}
		currentRoundNodes = nextRoundNodes

		if len(currentRoundNodes) == 0 && r < numRounds {
			return nil, fmt.Errorf("internal error: no nodes left for round %d, but expected %d total rounds", r+1, numRounds)
		}
	}

	sort.Slice(allGeneratedMatches, func(i, j int) bool {
		if allGeneratedMatches[i].Round != allGeneratedMatches[j].Round {
			return allGeneratedMatches[i].Round < allGeneratedMatches[j].Round
		}
		return allGeneratedMatches[i].OrderInRound < allGeneratedMatches[j].OrderInRound
	})

	return allGeneratedMatches, nil
}

// FirstRound returns the playable first-round matches of a bracket.
func FirstRound(matches []*BracketMatch) []*BracketMatch {
	out := make([]*BracketMatch, 0, len(matches))
	for _, m := range matches {
		if m.Round == 1 && m.Playable() {
			out = append(out, m)
		}
	}
	return out
}

func foldSeeds(nodes []*node) []*node {
	size := len(nodes)
	out := make([]*node, 0, size)
	for i := 0; i < size/2; i++ {
		out = append(out, nodes[i], nodes[size-1-i])
	}
	return out
}
