package tokens

import "fmt"

// KeepNewest returns the index of the first line to keep so that lines[i:]
// fits in budget tokens, counting one extra token per line for the newline.
// Older lines are dropped first. A budget of zero or less keeps everything.
func KeepNewest(c Counter, model string, lines []string, budget int) (int, error) {
	if budget <= 0 {
		return 0, nil
	}

	used := 0
	for i := len(lines) - 1; i >= 0; i-- {
		n, err := c.CountText(model, lines[i])
		if err != nil {
			return 0, fmt.Errorf("failed to count history tokens: %w", err)
		}
		if used+n+1 > budget {
			return i + 1, nil
		}
		used += n + 1
	}
	return 0, nil
}
