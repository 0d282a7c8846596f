package result

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(f float64) *float64 { return &f }

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		scores []ScoreRecord
		roster int
		want   Summary
	}{
		{
			name: "empty", scores: nil, roster: 30,
			want: Summary{RosterSize: 30, PassMark: DefaultPassMark},
		},
		{
			name: "empty roster", scores: nil, roster: 0,
			want: Summary{PassMark: DefaultPassMark},
		},
		{
			name: "tie scenario", scores: records(90, 80, 80, 70), roster: 5,
			want: Summary{
				ParticipantCount: 4, RosterSize: 5,
				AverageScore: fptr(80), MedianScore: fptr(80), StdDevScore: fptr(7.1),
				MinScore: fptr(70), MaxScore: fptr(90),
				ParticipationRate: 80, PassMark: DefaultPassMark, PassCount: 4, PassRate: 100,
			},
		},
		{
			name: "single", scores: records(75), roster: 1,
			want: Summary{
				ParticipantCount: 1, RosterSize: 1,
				AverageScore: fptr(75), MedianScore: fptr(75), StdDevScore: fptr(0),
				MinScore: fptr(75), MaxScore: fptr(75),
				ParticipationRate: 100, PassMark: DefaultPassMark, PassCount: 1, PassRate: 100,
			},
		},
		{
			name: "all tied", scores: records(60, 60, 60), roster: 3,
			want: Summary{
				ParticipantCount: 3, RosterSize: 3,
				AverageScore: fptr(60), MedianScore: fptr(60), StdDevScore: fptr(0),
				MinScore: fptr(60), MaxScore: fptr(60),
				ParticipationRate: 100, PassMark: DefaultPassMark, PassCount: 3, PassRate: 100,
			},
		},
		{
			name: "rounding", scores: records(33.33, 66.66, 45), roster: 7,
			want: Summary{
				ParticipantCount: 3, RosterSize: 7,
				AverageScore: fptr(48.3), MedianScore: fptr(45), StdDevScore: fptr(13.8),
				MinScore: fptr(33.3), MaxScore: fptr(66.7),
				ParticipationRate: 42.9, PassMark: DefaultPassMark, PassCount: 1, PassRate: 33.3,
			},
		},
		{
			name: "zero roster does not divide by zero", scores: records(40), roster: 0,
			want: Summary{
				ParticipantCount: 1,
				AverageScore:     fptr(40), MedianScore: fptr(40), StdDevScore: fptr(0),
				MinScore: fptr(40), MaxScore: fptr(40),
				PassMark: DefaultPassMark, PassRate: 0,
			},
		},
		{
			name: "roster smaller than participants is not validated", scores: records(100, 100), roster: 1,
			want: Summary{
				ParticipantCount: 2, RosterSize: 1,
				AverageScore: fptr(100), MedianScore: fptr(100), StdDevScore: fptr(0),
				MinScore: fptr(100), MaxScore: fptr(100),
				ParticipationRate: 200, PassMark: DefaultPassMark, PassCount: 2, PassRate: 100,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.scores, tt.roster))
		})
	}
}

func TestSummarizeWithPassMark(t *testing.T) {
	sum := SummarizeWithPassMark(records(39.9, 40, 75, 20), 4, 40)
	assert.Equal(t, 2, sum.PassCount)
	assert.Equal(t, 50.0, sum.PassRate)
	assert.Equal(t, 40.0, sum.PassMark)
}

func TestSummarize_emptyIsNullInJSON(t *testing.T) {
	data, err := json.Marshal(Summarize(nil, 3))
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	for _, k := range []string{"average_score", "median_score", "std_dev_score", "min_score", "max_score"} {
		v, ok := got[k]
		assert.True(t, ok, k)
		assert.Nil(t, v, k)
	}
	assert.Equal(t, 0.0, got["participation_rate"])
	assert.Equal(t, 0.0, got["participant_count"])
}

func TestRound(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{80, 80},
		{80.04, 80},
		{80.05, 80.1},
		{80.25, 80.3},
		{66.666, 66.7},
		{-2.25, -2.3},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round(tt.in), "Round(%v)", tt.in)
	}
}

func TestDistribution(t *testing.T) {
	got := Distribution(records(0, 9.9, 10, 55, 99.9, 100), 10)
	require.Len(t, got, 10)

	counts := make([]int, 0, len(got))
	for _, b := range got {
		counts = append(counts, b.Count)
	}
	assert.Equal(t, []int{2, 1, 0, 0, 0, 1, 0, 0, 0, 2}, counts)
	assert.Equal(t, Bucket{From: 90, To: 100, Count: 2}, got[9])

	// uneven width: the last bucket is shorter
	got = Distribution(records(100), 30)
	require.Len(t, got, 4)
	assert.Equal(t, Bucket{From: 90, To: 100, Count: 1}, got[3])

	// invalid width falls back to 10
	assert.Len(t, Distribution(nil, 0), 10)
}
