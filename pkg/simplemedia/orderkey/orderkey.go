// Package orderkey validates and generates fractional-indexing order keys.
//
// A key is an integer part followed by an optional fractional part, both
// written in base 62 ("0-9A-Za-z"). The head character of the integer part
// encodes its length: 'a'..'z' give 2..27 characters, 'A'..'Z' give 27..2.
// Keys compare correctly as plain strings, so a new key can always be placed
// between two neighbours without touching any other key.
package orderkey

import (
	"errors"
	"fmt"
	"strings"
)

// Digits is the base-62 alphabet in ascending order.
const Digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const zero = '0'

// smallestInteger is the lowest representable integer part. It cannot be
// decremented, so it is reserved and never valid as a whole key.
var smallestInteger = "A" + strings.Repeat("0", 26)

// ErrInvalidKey is matched by every InvalidKeyError.
var ErrInvalidKey = errors.New("invalid order key")

// InvalidKeyError describes why a key was rejected.
type InvalidKeyError struct {
	Key    string
	Reason string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid order key %q: %s", e.Key, e.Reason)
}

func (e *InvalidKeyError) Is(target error) bool {
	return target == ErrInvalidKey
}

func invalid(key, reason string) error {
	return &InvalidKeyError{Key: key, Reason: reason}
}

// Validate reports whether key is a well-formed order key.
func Validate(key string) error {
	if key == "" {
		return invalid(key, "empty key")
	}
	for i := 0; i < len(key); i++ {
		if strings.IndexByte(Digits, key[i]) < 0 {
			return invalid(key, fmt.Sprintf("invalid character %q", key[i]))
		}
	}
	if key == smallestInteger {
		return invalid(key, "reserved key")
	}
	i, err := integerPart(key)
	if err != nil {
		return err
	}
	if f := key[len(i):]; f != "" && f[len(f)-1] == zero {
		return invalid(key, "trailing zero")
	}
	return nil
}

func integerLength(key string, head byte) (int, error) {
	switch {
	case head >= 'a' && head <= 'z':
		return int(head-'a') + 2, nil
	case head >= 'A' && head <= 'Z':
		return int('Z'-head) + 2, nil
	}
	return 0, invalid(key, fmt.Sprintf("invalid head %q", head))
}

func integerPart(key string) (string, error) {
	n, err := integerLength(key, key[0])
	if err != nil {
		return "", err
	}
	if n > len(key) {
		return "", invalid(key, "truncated integer part")
	}
	return key[:n], nil
}

func digitIndex(c byte) int {
	return strings.IndexByte(Digits, c)
}

// midpoint returns a fractional part strictly between a and b. An empty b
// with hasB false means "no upper bound".
func midpoint(a, b string, hasB bool) (string, error) {
	if hasB && a >= b {
		return "", fmt.Errorf("%w: %q is not less than %q", ErrInvalidKey, a, b)
	}
	if (a != "" && a[len(a)-1] == zero) || (b != "" && b[len(b)-1] == zero) {
		return "", fmt.Errorf("%w: trailing zero", ErrInvalidKey)
	}
	if b != "" {
		n := 0
		for {
			ca := byte(zero)
			if n < len(a) {
				ca = a[n]
			}
			if ca != b[n] {
				break
			}
			n++
		}
		if n > 0 {
			var rest string
			if n < len(a) {
				rest = a[n:]
			}
			m, err := midpoint(rest, b[n:], true)
			if err != nil {
				return "", err
			}
			return b[:n] + m, nil
		}
	}

	digitA := 0
	if a != "" {
		digitA = digitIndex(a[0])
	}
	digitB := len(Digits)
	if b != "" {
		digitB = digitIndex(b[0])
	}
	if digitB-digitA > 1 {
		return string(Digits[(digitA+digitB+1)/2]), nil
	}
	if len(b) > 1 {
		return b[:1], nil
	}
	var rest string
	if len(a) > 1 {
		rest = a[1:]
	}
	m, err := midpoint(rest, "", false)
	if err != nil {
		return "", err
	}
	return string(Digits[digitA]) + m, nil
}

// incrementInteger returns the next integer part, or "" when x is the largest.
func incrementInteger(x string) string {
	head, digs := x[0], []byte(x[1:])
	carry := true
	for i := len(digs) - 1; i >= 0; i-- {
		d := digitIndex(digs[i]) + 1
		if d == len(Digits) {
			digs[i] = zero
			continue
		}
		digs[i] = Digits[d]
		carry = false
		break
	}
	if !carry {
		return string(head) + string(digs)
	}
	switch head {
	case 'Z':
		return "a0"
	case 'z':
		return ""
	}
	h := head + 1
	if h > 'a' {
		digs = append(digs, zero)
	} else {
		digs = digs[:len(digs)-1]
	}
	return string(h) + string(digs)
}

// decrementInteger returns the previous integer part, or "" when x is the smallest.
func decrementInteger(x string) string {
	head, digs := x[0], []byte(x[1:])
	borrow := true
	for i := len(digs) - 1; i >= 0; i-- {
		d := digitIndex(digs[i]) - 1
		if d == -1 {
			digs[i] = Digits[len(Digits)-1]
			continue
		}
		digs[i] = Digits[d]
		borrow = false
		break
	}
	if !borrow {
		return string(head) + string(digs)
	}
	switch head {
	case 'a':
		return "Z" + string(Digits[len(Digits)-1])
	case 'A':
		return ""
	}
	h := head - 1
	if h < 'Z' {
		digs = append(digs, Digits[len(Digits)-1])
	} else {
		digs = digs[:len(digs)-1]
	}
	return string(h) + string(digs)
}

// KeyBetween returns a key strictly between a and b. An empty a means "before
// everything" and an empty b means "after everything".
func KeyBetween(a, b string) (string, error) {
	if a != "" {
		if err := Validate(a); err != nil {
			return "", err
		}
	}
	if b != "" {
		if err := Validate(b); err != nil {
			return "", err
		}
	}
	if a != "" && b != "" && a >= b {
		return "", fmt.Errorf("%w: %q is not less than %q", ErrInvalidKey, a, b)
	}

	switch {
	case a == "" && b == "":
		return "a0", nil
	case a == "":
		ib, _ := integerPart(b)
		fb := b[len(ib):]
		if ib == smallestInteger {
			m, err := midpoint("", fb, true)
			if err != nil {
				return "", err
			}
			return ib + m, nil
		}
		if ib < b {
			return ib, nil
		}
		res := decrementInteger(ib)
		if res == "" {
			return "", fmt.Errorf("%w: cannot decrement %q", ErrInvalidKey, b)
		}
		return res, nil
	case b == "":
		ia, _ := integerPart(a)
		fa := a[len(ia):]
		if i := incrementInteger(ia); i != "" {
			return i, nil
		}
		m, err := midpoint(fa, "", false)
		if err != nil {
			return "", err
		}
		return ia + m, nil
	}

	ia, _ := integerPart(a)
	fa := a[len(ia):]
	ib, _ := integerPart(b)
	fb := b[len(ib):]
	if ia == ib {
		m, err := midpoint(fa, fb, true)
		if err != nil {
			return "", err
		}
		return ia + m, nil
	}
	i := incrementInteger(ia)
	if i == "" {
		return "", fmt.Errorf("%w: cannot increment %q", ErrInvalidKey, a)
	}
	if i < b {
		return i, nil
	}
	m, err := midpoint(fa, "", false)
	if err != nil {
		return "", err
	}
	return ia + m, nil
}

// NKeysBetween returns n ascending keys strictly between a and b.
func NKeysBetween(a, b string, n int) ([]string, error) {
	switch {
	case n <= 0:
		return nil, nil
	case n == 1:
		k, err := KeyBetween(a, b)
		if err != nil {
			return nil, err
		}
		return []string{k}, nil
	case b == "":
		keys := make([]string, 0, n)
		c := a
		for range n {
			k, err := KeyBetween(c, b)
			if err != nil {
				return nil, err
			}
			keys = append(keys, k)
			c = k
		}
		return keys, nil
	case a == "":
		keys := make([]string, n)
		c := b
		for i := n - 1; i >= 0; i-- {
			k, err := KeyBetween(a, c)
			if err != nil {
				return nil, err
			}
			keys[i] = k
			c = k
		}
		return keys, nil
	}

	mid := n / 2
	c, err := KeyBetween(a, b)
	if err != nil {
		return nil, err
	}
	left, err := NKeysBetween(a, c, mid)
	if err != nil {
		return nil, err
	}
	right, err := NKeysBetween(c, b, n-mid-1)
	if err != nil {
		return nil, err
	}
	keys := append(left, c)
	return append(keys, right...), nil
}
