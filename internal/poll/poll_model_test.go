package poll

import (
	"testing"
	"time"
)

func TestPollResultPercentages(t *testing.T) {
	t.Run("SplitsTotalAcrossOptions", func(t *testing.T) {
		p := &Poll{
			ID:             1,
			Question:       "tabs or spaces?",
			TotalVoteCount: 4,
			Options: []PollOption{
				{ID: 10, Text: "tabs", VoteCount: 3},
				{ID: 11, Text: "spaces", VoteCount: 1},
			},
		}

		result := p.Result()
		if got := result.Options[0].Percentage; got != "75.00" {
			t.Errorf("Expected 75.00 for first option, got %s", got)
		}
		if got := result.Options[1].Percentage; got != "25.00" {
			t.Errorf("Expected 25.00 for second option, got %s", got)
		}
	})

	t.Run("ZeroTotalYieldsZeroPercentages", func(t *testing.T) {
		p := &Poll{
			ID:             2,
			Question:       "anyone there?",
			TotalVoteCount: 0,
			Options: []PollOption{
				{ID: 20, Text: "yes"},
				{ID: 21, Text: "no"},
				{ID: 22, Text: "maybe"},
			},
		}

		result := p.Result()
		for _, option := range result.Options {
			if option.Percentage != "0.00" {
				t.Errorf("Expected 0.00 for option %d, got %s", option.ID, option.Percentage)
			}
		}
	})

	t.Run("RoundsToTwoDecimals", func(t *testing.T) {
		p := &Poll{
			TotalVoteCount: 3,
			Options: []PollOption{
				{ID: 30, VoteCount: 1},
				{ID: 31, VoteCount: 2},
			},
		}

		result := p.Result()
		if got := result.Options[0].Percentage; got != "33.33" {
			t.Errorf("Expected 33.33, got %s", got)
		}
		if got := result.Options[1].Percentage; got != "66.67" {
			t.Errorf("Expected 66.67, got %s", got)
		}
	})

	t.Run("CarriesPollFields", func(t *testing.T) {
		expires := time.Now().Add(time.Hour)
		p := &Poll{
			ID:             3,
			UserID:         7,
			Question:       "q",
			TotalVoteCount: 1,
			Active:         true,
			ExpiresAt:      expires,
			Options:        []PollOption{{ID: 40, Text: "a", VoteCount: 1}},
		}

		result := p.Result()
		if result.ID != 3 || result.UserID != 7 || !result.Active {
			t.Errorf("Result lost poll fields: %+v", result)
		}
		if !result.ExpiresAt.Equal(expires) {
			t.Errorf("Expected expiry %v, got %v", expires, result.ExpiresAt)
		}
		if result.Options[0].Percentage != "100.00" {
			t.Errorf("Expected 100.00, got %s", result.Options[0].Percentage)
		}
	})
}
