package brackets

import (
	"sort"
	"strings"

	"github.com/Dosada05/sports-competitions/models"
)

// TallyTeamRecord sums the completed matches a team took part in. Matches of
// other teams, unfinished matches and matches without both scores are ignored.
func TallyTeamRecord(teamID string, matches []models.Match) models.TeamRecord {
	rec := models.TeamRecord{TeamID: teamID}
	for i := range matches {
		applyResult(&rec, &matches[i])
	}
	rec.GoalDifference = rec.GoalsFor - rec.GoalsAgainst
	return rec
}

func applyResult(rec *models.TeamRecord, m *models.Match) {
	if m.Status != models.MatchCompleted || m.HomeScore == nil || m.AwayScore == nil {
		return
	}
	var scored, conceded int
	switch rec.TeamID {
	case m.HomeTeamID.Hex():
		scored, conceded = *m.HomeScore, *m.AwayScore
	case m.AwayTeamID.Hex():
		scored, conceded = *m.AwayScore, *m.HomeScore
	default:
		return
	}

	rec.Played++
	rec.GoalsFor += scored
	rec.GoalsAgainst += conceded
	switch {
	case scored > conceded:
		rec.Won++
		rec.Points += models.PointsForWin
	case scored == conceded:
		rec.Drawn++
		rec.Points += models.PointsForDraw
	default:
		rec.Lost++
		rec.Points += models.PointsForLoss
	}
}

// Standings ranks every team of a competition by points, then goal
// difference, then goals scored, then name. Teams without a completed match
// are listed with an empty record.
func Standings(teams []models.Team, matches []models.Match) []models.TeamRecord {
	records := make([]models.TeamRecord, 0, len(teams))
	for _, team := range teams {
		rec := TallyTeamRecord(team.ObjectID.Hex(), matches)
		rec.TeamName = team.Name
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDifference != b.GoalDifference {
			return a.GoalDifference > b.GoalDifference
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		return strings.ToLower(a.TeamName) < strings.ToLower(b.TeamName)
	})
	for i := range records {
		records[i].Rank = i + 1
	}
	return records
}

// LowestFreeNumber returns the smallest number in 1..limit not in used, or
// false when every number is taken.
func LowestFreeNumber(used []int, limit int) (int, bool) {
	taken := make(map[int]bool, len(used))
	for _, n := range used {
		taken[n] = true
	}
	for n := 1; n <= limit; n++ {
		if !taken[n] {
			return n, true
		}
	}
	return 0, false
}
