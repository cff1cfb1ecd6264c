package brackets

import (
	"context"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/sports-competitions/models"
)

func teamIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("team-%d", i+1)
	}
	return ids
}

func TestRoundRobinFixtureCount(t *testing.T) {
	gen := NewRoundRobinGenerator()
	for n := 2; n <= 8; n++ {
		matches, err := gen.GenerateBracket(context.Background(), GenerateBracketParams{TeamIDs: teamIDs(n)})
		if err != nil {
			t.Fatalf("n=%d: error = %v", n, err)
		}
		if len(matches) != n*(n-1) {
			t.Fatalf("n=%d: got %d fixtures, want %d", n, len(matches), n*(n-1))
		}

		seen := make(map[string]int)
		for _, m := range matches {
			if *m.HomeTeamID == *m.AwayTeamID {
				t.Fatalf("team %s plays itself", *m.HomeTeamID)
			}
			seen[*m.HomeTeamID+"|"+*m.AwayTeamID]++
		}
		for key, count := range seen {
			if count != 1 {
				t.Errorf("n=%d: fixture %s appears %d times", n, key, count)
			}
		}
		for i, m := range matches {
			if m.OrderInRound != i+1 {
				t.Errorf("n=%d: match %d has order %d", n, i, m.OrderInRound)
			}
		}
	}
}

func TestRoundRobinSingleLegAndDuplicates(t *testing.T) {
	gen := NewRoundRobinGenerator()
	matches, err := gen.GenerateBracket(context.Background(), GenerateBracketParams{
		TeamIDs: []string{"a", "b", "a", "", "c"},
		Legs:    1,
	})
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d fixtures, want 3", len(matches))
	}

	if _, err := gen.GenerateBracket(context.Background(), GenerateBracketParams{TeamIDs: []string{"a", "a"}}); err == nil {
		t.Fatal("expected an error for a single distinct team")
	}
}

func TestSingleEliminationFirstRound(t *testing.T) {
	tests := []struct {
		teams       int
		playable    int
		byes        int
		totalRounds int
	}{
		{2, 1, 0, 1},
		{4, 2, 0, 2},
		{5, 1, 3, 3},
		{6, 2, 2, 3},
		{8, 4, 0, 3},
	}
	gen := NewSingleEliminationGenerator()
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d teams", tt.teams), func(t *testing.T) {
			matches, err := gen.GenerateBracket(context.Background(), GenerateBracketParams{TeamIDs: teamIDs(tt.teams)})
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			first := FirstRound(matches)
			if len(first) != tt.playable {
				t.Errorf("playable first-round matches = %d, want %d", len(first), tt.playable)
			}
			byes, maxRound := 0, 0
			for _, m := range matches {
				if m.IsBye {
					byes++
				}
				if m.Round > maxRound {
					maxRound = m.Round
				}
			}
			if byes != tt.byes {
				t.Errorf("byes = %d, want %d", byes, tt.byes)
			}
			if maxRound != tt.totalRounds {
				t.Errorf("rounds = %d, want %d", maxRound, tt.totalRounds)
			}
		})
	}
}

func completed(home, away primitive.ObjectID, hs, as int) models.Match {
	return models.Match{HomeTeamID: home, AwayTeamID: away, HomeScore: &hs, AwayScore: &as, Status: models.MatchCompleted}
}

func TestTallyTeamRecord(t *testing.T) {
	a, b, c := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	live := completed(a, c, 5, 0)
	live.Status = models.MatchLive

	matches := []models.Match{
		completed(a, b, 2, 1), // win
		completed(b, a, 1, 1), // draw
		completed(c, a, 3, 0), // loss
		completed(b, c, 4, 4), // not involved
		live,                  // not finished
	}
	rec := TallyTeamRecord(a.Hex(), matches)

	want := models.TeamRecord{
		TeamID: a.Hex(), Played: 3, Won: 1, Drawn: 1, Lost: 1,
		GoalsFor: 3, GoalsAgainst: 5, GoalDifference: -2, Points: 4,
	}
	if rec != want {
		t.Fatalf("record = %+v, want %+v", rec, want)
	}
}

func TestStandingsOrdering(t *testing.T) {
	a, b, c := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	teams := []models.Team{
		{Base: models.Base{ObjectID: a}, Name: "Alpha"},
		{Base: models.Base{ObjectID: b}, Name: "Bravo"},
		{Base: models.Base{ObjectID: c}, Name: "Charlie"},
	}
	matches := []models.Match{
		completed(a, b, 1, 0),
		completed(c, b, 3, 0),
		completed(a, c, 0, 0),
	}
	got := Standings(teams, matches)
	order := []string{got[0].TeamName, got[1].TeamName, got[2].TeamName}
	// Alpha and Charlie both have 4 points; Charlie wins on goal difference.
	want := []string{"Charlie", "Alpha", "Bravo"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
		if got[i].Rank != i+1 {
			t.Errorf("%s rank = %d, want %d", got[i].TeamName, got[i].Rank, i+1)
		}
	}
}

func TestLowestFreeNumber(t *testing.T) {
	if n, ok := LowestFreeNumber(nil, 99); !ok || n != 1 {
		t.Errorf("empty roster: got %d, %v", n, ok)
	}
	if n, ok := LowestFreeNumber([]int{1, 2, 4, 7}, 99); !ok || n != 3 {
		t.Errorf("gap: got %d, %v", n, ok)
	}
	full := make([]int, 99)
	for i := range full {
		full[i] = i + 1
	}
	if _, ok := LowestFreeNumber(full, 99); ok {
		t.Error("full roster should report no free number")
	}
}
