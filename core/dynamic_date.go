package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDynamicDate expands "$date:format:unit:offset" relative to base.
// "$date:day:day:-1" is yesterday as 2006-01-02. Other strings pass through.
func ParseDynamicDate(expression string, base time.Time) (string, error) {
	if !strings.HasPrefix(expression, "$date:") {
		return expression, nil
	}

	// the format may itself hold colons (HH:mm), so unit and offset are
	// taken from the end
	body := strings.TrimPrefix(expression, "$date:")
	parts := strings.Split(body, ":")
	if len(parts) < 3 {
		return "", fmt.Errorf("invalid dynamic date format: %s", expression)
	}
	format := strings.Join(parts[:len(parts)-2], ":")
	unit := parts[len(parts)-2]
	offset, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return "", fmt.Errorf("invalid offset in dynamic date: %s", expression)
	}

	t := base
	switch unit {
	case "day":
		t = t.AddDate(0, 0, offset)
	case "month":
		t = t.AddDate(0, offset, 0)
	case "year":
		t = t.AddDate(offset, 0, 0)
	default:
		return "", fmt.Errorf("unsupported unit in dynamic date: %s", unit)
	}
	return formatTime(t, format), nil
}

func formatTime(t time.Time, format string) string {
	switch format {
	case "day", "":
		return t.Format(time.DateOnly)
	case "month":
		return t.Format("2006-01")
	case "year":
		return t.Format("2006")
	case "datetime":
		return t.Format(time.DateTime)
	default:
		// yyyy-MM-dd style patterns
		return t.Format(GoLayout(format))
	}
}
