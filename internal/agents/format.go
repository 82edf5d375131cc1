package agents

import "strconv"

// Missing data renders as an explicit "N/A" in prompts rather than failing.

func indicator(m map[string]float64, key string) string {
	if v, ok := m[key]; ok {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	return "N/A"
}

func floatOrNA(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func ratioOrNA(ratios map[string]string, key string) string {
	if ratios == nil {
		return "N/A"
	}
	if v, ok := ratios[key]; ok && v != "" {
		return v
	}
	return "N/A"
}

func stringOrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
