package significance

import "github.com/dyike/pricemove/internal/models"

// DefaultBatchSize bounds the number of articles per oracle call.
const DefaultBatchSize = 5

// Batch splits articles into consecutive groups of at most size, keeping
// order. Empty input yields no batches. A size below 1 uses DefaultBatchSize.
func Batch(articles []models.Article, size int) [][]models.Article {
	if size < 1 {
		size = DefaultBatchSize
	}
	if len(articles) == 0 {
		return nil
	}
	batches := make([][]models.Article, 0, (len(articles)+size-1)/size)
	for start := 0; start < len(articles); start += size {
		end := start + size
		if end > len(articles) {
			end = len(articles)
		}
		batches = append(batches, articles[start:end:end])
	}
	return batches
}
