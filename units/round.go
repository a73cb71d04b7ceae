package units

import (
	"math"
	"strconv"
	"strings"
)

// FormatFloat renders x the way the published code set renders strengths:
// shortest round-trip digits, integral values keep a ".0" suffix, and very
// small or very large magnitudes switch to exponent notation.
func FormatFloat(x float64) string {
	switch {
	case math.IsNaN(x):
		return "nan"
	case math.IsInf(x, 1):
		return "inf"
	case math.IsInf(x, -1):
		return "-inf"
	case x == 0:
		if math.Signbit(x) {
			return "-0.0"
		}
		return "0.0"
	}

	sci := strconv.FormatFloat(x, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.LastIndexByte(sci, 'e')+1:])
	if err == nil && (exp < -4 || exp >= 16) {
		return sci
	}

	s := strconv.FormatFloat(x, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// RoundTo rounds x to places decimals, half to even on the exact binary value.
func RoundTo(x float64, places int) float64 {
	if places < 0 {
		p := math.Pow10(-places)
		return math.RoundToEven(x/p) * p
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	if err != nil {
		return x
	}
	return r
}

// RoundNine rounds a value whose last significant digit is a 9 up at that
// digit: 49.9 becomes 50, 0.099 becomes 0.1 and 190 becomes 200. A 9 in the
// leading position is left alone, as is any 9 followed by non-zero digits.
func RoundNine(x float64) float64 {
	s := FormatFloat(x)

	i := strings.LastIndexByte(s, '9')
	if i <= 0 {
		return x
	}

	head, tail := s[:i+1], s[i+1:]
	// a 9 inside the exponent is not a digit of the value
	if strings.IndexByte(head, 'e') >= 0 {
		return x
	}
	exponent := ""
	if e := strings.IndexByte(tail, 'e'); e >= 0 {
		exponent = tail[e:]
		if zeros := tail[:e]; zeros != "" && strings.Trim(zeros, "0") != "" {
			return x
		}
	} else if tail != "" {
		rest, err := strconv.ParseFloat(tail, 64)
		if err != nil || rest != 0 {
			return x
		}
	}

	value, err := strconv.ParseFloat(head, 64)
	if err != nil {
		return x
	}

	var rounded string
	if dot := strings.IndexByte(head, '.'); dot == -1 {
		tens := int64(math.RoundToEven(value/10)) * 10
		rounded = strconv.FormatInt(tens, 10) + tail
	} else {
		places := len(head) - 1 - dot
		rounded = FormatFloat(RoundTo(value, places-1)) + exponent
	}

	result, err := strconv.ParseFloat(rounded, 64)
	if err != nil {
		return x
	}
	return result
}
