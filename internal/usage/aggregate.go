package usage

// UsedIndices returns, in ascending order, the index of every channel that
// used reports for at least one instance. With no instances the result is
// empty.
func UsedIndices[C any](instances []*Element, channels []C, used func(*Element, C) bool) []int {
	indices := []int{}
	if len(instances) == 0 {
		return indices
	}
	for i, ch := range channels {
		for _, inst := range instances {
			if used(inst, ch) {
				indices = append(indices, i)
				break
			}
		}
	}
	return indices
}
