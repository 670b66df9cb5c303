package allele

var complementBase = map[byte]byte{
	'A': 'T', 'T': 'A',
	'C': 'G', 'G': 'C',
	'N': 'N',
}

// Complement returns the reverse complement of an upper-case allele.
// "-" is returned unchanged. ok is false if the allele has a base other than ACGTN.
func Complement(a string) (string, bool) {
	if a == Deletion || a == "" {
		return a, true
	}

	out := make([]byte, len(a))
	for i := 0; i < len(a); i++ {
		c, ok := complementBase[a[i]]
		if !ok {
			return "", false
		}
		out[len(a)-1-i] = c
	}
	return string(out), true
}

// StrandAmbiguous reports whether a SNV reads the same on both strands
// (A/T or C/G), so a flipped report cannot be told apart from the other allele.
func StrandAmbiguous(ref, alt string) bool {
	if len(ref) != 1 || len(alt) != 1 {
		return false
	}
	c, ok := Complement(alt)
	return ok && c == ref
}
