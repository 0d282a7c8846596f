package result

import (
	"math"

	"github.com/montanaflynn/stats"
)

// DefaultPassMark is the score at or above which an attempt counts as passed.
const DefaultPassMark = 50.0

// Summary holds the statistics of the completed scores of an assessment.
// Score fields are nil when nobody completed the assessment.
type Summary struct {
	ParticipantCount  int      `json:"participant_count"`
	RosterSize        int      `json:"roster_size"`
	AverageScore      *float64 `json:"average_score"`
	MedianScore       *float64 `json:"median_score"`
	StdDevScore       *float64 `json:"std_dev_score"`
	MinScore          *float64 `json:"min_score"`
	MaxScore          *float64 `json:"max_score"`
	ParticipationRate float64  `json:"participation_rate"`
	PassMark          float64  `json:"pass_mark"`
	PassCount         int      `json:"pass_count"`
	PassRate          float64  `json:"pass_rate"` // of participants
}

// Summarize computes the Summary of scores against the DefaultPassMark.
func Summarize(scores []ScoreRecord, rosterSize int) Summary {
	return SummarizeWithPassMark(scores, rosterSize, DefaultPassMark)
}

// SummarizeWithPassMark computes the Summary of scores. rosterSize is the number of students
// enrolled, participants or not; it is not checked against len(scores).
func SummarizeWithPassMark(scores []ScoreRecord, rosterSize int, passMark float64) Summary {
	sum := Summary{
		ParticipantCount:  len(scores),
		RosterSize:        rosterSize,
		ParticipationRate: percentage(len(scores), rosterSize),
		PassMark:          passMark,
	}
	if len(scores) == 0 {
		return sum
	}

	data := make(stats.Float64Data, 0, len(scores))
	for _, s := range scores {
		data = append(data, s.Score)
		if s.Score >= passMark {
			sum.PassCount++
		}
	}
	sum.PassRate = percentage(sum.PassCount, len(scores))

	// stats only errors on empty input, which is handled above
	mean, _ := stats.Mean(data)
	median, _ := stats.Median(data)
	stdDev, _ := stats.StandardDeviationPopulation(data)
	lowest, _ := stats.Min(data)
	highest, _ := stats.Max(data)

	sum.AverageScore = roundPtr(mean)
	sum.MedianScore = roundPtr(median)
	sum.StdDevScore = roundPtr(stdDev)
	sum.MinScore = roundPtr(lowest)
	sum.MaxScore = roundPtr(highest)
	return sum
}

// Round rounds x half away from zero to 1 decimal place.
func Round(x float64) float64 {
	return math.Round(x*10) / 10
}

func roundPtr(x float64) *float64 {
	r := Round(x)
	return &r
}

func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return Round(float64(part) / float64(whole) * 100)
}

// Bucket is a closed-open score interval [From, To) of a Distribution; the last one is closed at 100.
type Bucket struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Count int     `json:"count"`
}

// Distribution counts scores in fixed-width buckets covering [0,100].
// Out of range scores are clamped into the first or last bucket.
func Distribution(scores []ScoreRecord, width float64) []Bucket {
	if width <= 0 || width > 100 {
		width = 10
	}
	n := int(math.Ceil(100 / width))
	buckets := make([]Bucket, n)
	for i := range buckets {
		buckets[i].From = float64(i) * width
		buckets[i].To = math.Min(float64(i+1)*width, 100)
	}
	for _, s := range scores {
		idx := int(s.Score / width)
		if idx >= n {
			idx = n - 1
		} else if idx < 0 {
			idx = 0
		}
		buckets[idx].Count++
	}
	return buckets
}
