package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	"02.01.2006",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006 15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// transformDate accepts the Russian day-first layout and ISO dates. An empty
// cell gives the zero time.
func transformDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func transformBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "да", "д", "true", "t", "yes", "y", "1", "+":
		return true, nil
	case "нет", "н", "false", "f", "no", "n", "0", "-", "":
		return false, nil
	}
	return false, fmt.Errorf("unrecognized yes/no value %q", s)
}

// transformFloat accepts both decimal separators. An empty cell is zero.
func transformFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(strings.ReplaceAll(s, " ", ""), ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

func transformInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}

func transformString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// splitFullName splits "Фамилия Имя Отчество". Everything after the first
// name is kept as the patronymic.
func splitFullName(s string) (last, first, patronymic string, err error) {
	parts := strings.Fields(s)
	if len(parts) < 2 {
		return "", "", "", fmt.Errorf("full name %q needs at least a last and a first name", s)
	}
	return parts[0], parts[1], strings.Join(parts[2:], " "), nil
}
