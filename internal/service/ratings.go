package service

import (
	"strconv"

	"github.com/sakif/piano-library/internal/model"
)

// averageRatings aggregates community ratings for one piece across every
// user's library. Only non-null values count; an empty set yields a null
// average with a zero count. Averages are formatted to one decimal place
// ("4.0") because that is the shape the frontend has always displayed.
func averageRatings(pieceID int, users []model.User) model.AverageRatings {
	var playing, listening []int

	for i := range users {
		for j := range users[i].Library {
			entry := &users[i].Library[j]
			if entry.PieceID != pieceID {
				continue
			}
			if entry.Ratings.Playing != nil {
				playing = append(playing, *entry.Ratings.Playing)
			}
			if entry.Ratings.Listening != nil {
				listening = append(listening, *entry.Ratings.Listening)
			}
		}
	}

	return model.AverageRatings{
		Playing:   formatAverage(playing),
		Listening: formatAverage(listening),
		TotalRatings: model.RatingCounts{
			Playing:   len(playing),
			Listening: len(listening),
		},
	}
}

func formatAverage(values []int) *string {
	if len(values) == 0 {
		return nil
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	s := strconv.FormatFloat(float64(sum)/float64(len(values)), 'f', 1, 64)
	return &s
}
