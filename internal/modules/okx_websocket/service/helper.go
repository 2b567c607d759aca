package service

import "strconv"

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
