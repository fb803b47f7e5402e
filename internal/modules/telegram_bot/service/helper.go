package service

import (
	"fmt"
	"strconv"
	"strings"
)

func f2(v float64) string { // для красивого вывода
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func f0(v float64) string {
	return fmt.Sprintf("%.0f", v)
}

func parseInt64(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.ReplaceAll(s, ",", "."), "%"), 64)
	return v, err == nil
}
