package engine

import "strings"

// PieceOrder is the order captured pieces are reported in.
var PieceOrder = []string{"q", "r", "b", "n", "p"}

// PositionKey truncates a FEN to board, side, castling and en-passant fields.
// Move counters are dropped so repeated positions compare equal.
func PositionKey(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}

// Lost returns one code per piece present in before but missing from after.
func Lost(before, after Count) []string {
	var lost []string
	for _, code := range PieceOrder {
		for n := before[code] - after[code]; n > 0; n-- {
			lost = append(lost, code)
		}
	}
	return lost
}
