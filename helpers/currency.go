package helpers

import "fmt"

// FormatWon formats a price as Korean Won with comma thousand separators
func FormatWon(amount float64) string {
	// Convert to integer for formatting
	value := int64(amount)

	// Handle negative numbers
	negative := value < 0
	if negative {
		value = -value
	}

	// Convert to string and add thousand separators
	str := fmt.Sprintf("%d", value)
	length := len(str)

	var result string
	if length <= 3 {
		result = str
	} else {
		for i, digit := range str {
			if i > 0 && (length-i)%3 == 0 {
				result += ","
			}
			result += string(digit)
		}
	}

	if negative {
		return fmt.Sprintf("-%s원", result)
	}
	return fmt.Sprintf("%s원", result)
}

// FormatPct renders a nullable return percentage for display
func FormatPct(pct *float64) string {
	if pct == nil {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", *pct)
}
