// Package result ranks the completed scores of an assessment and summarizes them.
// Every function is pure: inputs are never mutated and nothing is shared between calls.
package result

import "sort"

// ScoreRecord is the completed score of one student for an assessment.
type ScoreRecord struct {
	StudentID   string  `json:"student_id"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"` // percentage in [0,100]
}

// RankedRecord is a ScoreRecord with its 1-based competition rank.
type RankedRecord struct {
	ScoreRecord
	Position int `json:"position"`
}

// Rank sorts scores by descending score (stable among ties) and assigns competition ranks:
// tied scores share a position and the next lower score skips by the size of the tie group,
// e.g. [90 80 80 70] -> [1 2 2 4].
func Rank(scores []ScoreRecord) []RankedRecord {
	sorted := make([]ScoreRecord, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	ranked := make([]RankedRecord, 0, len(sorted))
	var (
		currentRank  = 1
		tieGroupSize int
		prevScore    float64
		hasPrev      bool
	)
	for _, rec := range sorted {
		if hasPrev && rec.Score != prevScore {
			currentRank += tieGroupSize
			tieGroupSize = 0
		}
		ranked = append(ranked, RankedRecord{ScoreRecord: rec, Position: currentRank})
		tieGroupSize++
		prevScore, hasPrev = rec.Score, true
	}
	return ranked
}

// Records strips the positions of ranked, keeping its order.
func Records(ranked []RankedRecord) []ScoreRecord {
	recs := make([]ScoreRecord, 0, len(ranked))
	for _, r := range ranked {
		recs = append(recs, r.ScoreRecord)
	}
	return recs
}

// PositionOf finds the ranked record of a student.
func PositionOf(ranked []RankedRecord, studentID string) (RankedRecord, bool) {
	for _, r := range ranked {
		if r.StudentID == studentID {
			return r, true
		}
	}
	return RankedRecord{}, false
}
