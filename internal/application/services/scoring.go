package services

import "github.com/pharmacie-web/backend/internal/domain/entities"

// CalculateScores folds the answers into per-axis totals. Questions are
// visited in quiz order and options in declared order, which fixes the axis
// order used to break ties.
func CalculateScores(questions []entities.Question, answers entities.UserAnswers) *entities.ScoreMap {
	scores := entities.NewScoreMap()
	for _, q := range questions {
		answer, ok := answers[q.ID]
		if !ok || answer.IsEmpty() {
			continue
		}
		for _, opt := range q.Options {
			if !answer.Contains(opt.Value) {
				continue
			}
			for _, w := range opt.Points {
				scores.Add(w.Axis, w.Weight)
			}
		}
	}
	return scores
}
