package engagement

// Average reduces a full set of star values to their arithmetic mean. An
// empty set is a defined outcome and yields 0, never a division error.
func Average(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, value := range values {
		sum += value
	}
	return float64(sum) / float64(len(values))
}

// ratingValues projects the raw record set onto its star values.
func ratingValues(ratings []Rating) []int {
	values := make([]int, 0, len(ratings))
	for _, rating := range ratings {
		values = append(values, rating.Value)
	}
	return values
}
