package namematch

// ocrConfusions are two-character sequences optical extraction commonly reads
// in place of a single character (or the reverse). Consuming a pair against
// its partner costs one edit, so "Hagunia" sits one edit from "Haguma".
var ocrConfusions = map[string]byte{
	"rn": 'm',
	"ni": 'm',
	"cl": 'd',
	"vv": 'w',
	"lj": 'y',
}

// Similarity returns a normalized edit similarity in [0, 1]: one minus the
// OCR-aware edit distance over the longer token's length.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(editDistance(a, b))/float64(longest)
}

// editDistance is Levenshtein distance extended with unit-cost substitutions
// between known OCR confusion pairs and their single-character partners.
func editDistance(a, b string) int {
	rows, cols := len(a)+1, len(b)+1
	dist := make([][]int, rows)
	for i := range dist {
		dist[i] = make([]int, cols)
		dist[i][0] = i
	}
	for j := 1; j < cols; j++ {
		dist[0][j] = j
	}

	for i := 1; i < rows; i++ {
		for j := 1; j < cols; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			best := min3(
				dist[i-1][j]+1,      // delete from a
				dist[i][j-1]+1,      // insert into a
				dist[i-1][j-1]+cost, // substitute
			)
			// Two characters of one token read as one of the other.
			if i >= 2 {
				if single, ok := ocrConfusions[a[i-2:i]]; ok && single == b[j-1] {
					if d := dist[i-2][j-1] + 1; d < best {
						best = d
					}
				}
			}
			if j >= 2 {
				if single, ok := ocrConfusions[b[j-2:j]]; ok && single == a[i-1] {
					if d := dist[i-1][j-2] + 1; d < best {
						best = d
					}
				}
			}
			dist[i][j] = best
		}
	}
	return dist[rows-1][cols-1]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
