package rai

// luhnValid reports whether digits passes the Luhn checksum: walking the
// digits in reverse, every second digit is doubled (minus 9 when the double
// exceeds 9) and the sum must be divisible by 10. Any non-digit byte fails.
func luhnValid(digits string) bool {
	if digits == "" {
		return false
	}
	sum := 0
	for i := 0; i < len(digits); i++ {
		c := digits[len(digits)-1-i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return sum%10 == 0
}
