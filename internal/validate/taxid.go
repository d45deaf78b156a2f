package validate

import (
	"errors"
	"strings"
)

var (
	ErrTaxIDLength   = errors.New("wrong number of digits")
	ErrTaxIDChecksum = errors.New("check digits do not match")
)

// Digits strips everything but ASCII digits.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allSame(d string) bool {
	return strings.Count(d, d[:1]) == len(d)
}

// checkDigit computes one mod-11 verifier digit for d against weights.
func checkDigit(d string, weights []int) byte {
	sum := 0
	for i, w := range weights {
		sum += int(d[i]-'0') * w
	}
	r := sum % 11
	if r < 2 {
		return '0'
	}
	return byte('0' + 11 - r)
}

var (
	cpfW1  = []int{10, 9, 8, 7, 6, 5, 4, 3, 2}
	cpfW2  = []int{11, 10, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjW1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjW2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// CPF validates an individual tax id and returns its bare digits.
func CPF(s string) (string, error) {
	d := Digits(s)
	if len(d) != 11 {
		return "", ErrTaxIDLength
	}
	if allSame(d) || checkDigit(d, cpfW1) != d[9] || checkDigit(d, cpfW2) != d[10] {
		return "", ErrTaxIDChecksum
	}
	return d, nil
}

// CNPJ validates a company tax id and returns its bare digits.
func CNPJ(s string) (string, error) {
	d := Digits(s)
	if len(d) != 14 {
		return "", ErrTaxIDLength
	}
	if allSame(d) || checkDigit(d, cnpjW1) != d[12] || checkDigit(d, cnpjW2) != d[13] {
		return "", ErrTaxIDChecksum
	}
	return d, nil
}

// FormatCPF renders 11 digits as 000.000.000-00.
func FormatCPF(d string) string {
	if len(d) != 11 {
		return d
	}
	return d[:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:]
}

// FormatCNPJ renders 14 digits as 00.000.000/0000-00.
func FormatCNPJ(d string) string {
	if len(d) != 14 {
		return d
	}
	return d[:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:]
}

// Phone accepts Brazilian numbers with area code (10 or 11 digits) and
// returns them formatted. Empty input is valid and stays empty.
func Phone(s string) (string, bool) {
	d := Digits(s)
	switch len(d) {
	case 0:
		return "", strings.TrimSpace(s) == ""
	case 10:
		return "(" + d[:2] + ") " + d[2:6] + "-" + d[6:], true
	case 11:
		return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:], true
	}
	return "", false
}
