// Package book reads Polyglot-format opening books.
package book

import (
	"encoding/binary"
	"io"
	"math/rand"
	"os"
	"slices"
	"sort"

	"github.com/hailam/boomchess/internal/board"
)

// BookEntry represents a single book entry.
type BookEntry struct {
	Move   string // UCI text; castling is written king-captures-rook
	Weight uint16
}

// Book represents an opening book.
type Book struct {
	entries map[uint64][]BookEntry
}

// New creates an empty book.
func New() *Book {
	return &Book{
		entries: make(map[uint64][]BookEntry),
	}
}

// LoadPolyglot loads a Polyglot format opening book from a file.
func LoadPolyglot(filename string) (*Book, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadPolyglotReader(file)
}

// LoadPolyglotReader loads a Polyglot format book from a reader.
func LoadPolyglotReader(r io.Reader) (*Book, error) {
	book := New()

	// Polyglot entry format:
	// 8 bytes: position key (big-endian)
	// 2 bytes: move (big-endian)
	// 2 bytes: weight (big-endian)
	// 4 bytes: learn data (ignored)
	var entry [16]byte

	for {
		_, err := io.ReadFull(r, entry[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		key := binary.BigEndian.Uint64(entry[0:8])
		moveData := binary.BigEndian.Uint16(entry[8:10])
		weight := binary.BigEndian.Uint16(entry[10:12])

		book.entries[key] = append(book.entries[key], BookEntry{
			Move:   decodePolyglotMove(moveData),
			Weight: weight,
		})
	}

	return book, nil
}

// WritePolyglot writes the book as Polyglot entries sorted by key.
func (b *Book) WritePolyglot(w io.Writer) error {
	keys := make([]uint64, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var entry [16]byte
	for _, k := range keys {
		for _, e := range b.entries[k] {
			binary.BigEndian.PutUint64(entry[0:8], k)
			binary.BigEndian.PutUint16(entry[8:10], encodePolyglotMove(e.Move))
			binary.BigEndian.PutUint16(entry[10:12], e.Weight)
			if _, err := w.Write(entry[:]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Add records a move for the position.
func (b *Book) Add(pos *board.Position, m board.Move, weight uint16) {
	text := m.String()
	if m.IsCastling() {
		for _, c := range castleMoves {
			if c.king == text {
				text = c.polyglot
			}
		}
	}
	key := pos.PolyglotKey()
	b.entries[key] = append(b.entries[key], BookEntry{Move: text, Weight: weight})
}

var promoLetters = [...]byte{0, 'n', 'b', 'r', 'q'}

// castleMoves pairs the king-captures-rook encoding with the king's move.
var castleMoves = [...]struct{ polyglot, king string }{
	{"e1h1", "e1g1"},
	{"e1a1", "e1c1"},
	{"e8h8", "e8g8"},
	{"e8a8", "e8c8"},
}

// decodePolyglotMove converts a Polyglot move encoding to UCI text.
// Polyglot move format (bits):
// 0-5: to square
// 6-11: from square
// 12-14: promotion piece (0=none, 1=knight, 2=bishop, 3=rook, 4=queen)
func decodePolyglotMove(data uint16) string {
	toFile := data & 7
	toRank := (data >> 3) & 7
	fromFile := (data >> 6) & 7
	fromRank := (data >> 9) & 7
	promo := (data >> 12) & 7

	from := board.NewSquare(int(fromFile), int(fromRank))
	to := board.NewSquare(int(toFile), int(toRank))

	text := from.String() + to.String()
	if promo > 0 && int(promo) < len(promoLetters) {
		text += string(promoLetters[promo])
	}
	return text
}

// encodePolyglotMove is the inverse of decodePolyglotMove.
func encodePolyglotMove(text string) uint16 {
	from, err := board.ParseSquare(text[0:2])
	if err != nil {
		return 0
	}
	to, err := board.ParseSquare(text[2:4])
	if err != nil {
		return 0
	}

	data := uint16(to.File()) | uint16(to.Rank())<<3 | uint16(from.File())<<6 | uint16(from.Rank())<<9
	if len(text) == 5 {
		for i, c := range promoLetters {
			if i > 0 && c == text[4] {
				data |= uint16(i) << 12
			}
		}
	}
	return data
}

// Probe looks up a position in the book and returns a move using weighted random selection.
// Entries that are not legal in the position are skipped.
func (b *Book) Probe(pos *board.Position) (board.Move, bool) {
	entries := b.ProbeAll(pos)
	if len(entries) == 0 {
		return board.NoMove, false
	}

	// Weighted random selection
	totalWeight := uint32(0)
	for _, e := range entries {
		totalWeight += uint32(e.Weight)
	}

	if totalWeight == 0 {
		// All weights are 0, just pick the first
		return verifyAndConvert(pos, entries[0].Move)
	}

	r := rand.Uint32() % totalWeight
	cumulative := uint32(0)
	for _, e := range entries {
		cumulative += uint32(e.Weight)
		if r < cumulative {
			return verifyAndConvert(pos, e.Move)
		}
	}

	// Fallback to first entry
	return verifyAndConvert(pos, entries[0].Move)
}

// ProbeAll returns the legal book moves for the position, sorted by weight.
func (b *Book) ProbeAll(pos *board.Position) []BookEntry {
	if b == nil {
		return nil
	}

	entries, ok := b.entries[pos.PolyglotKey()]
	if !ok {
		return nil
	}

	result := make([]BookEntry, 0, len(entries))
	for _, e := range entries {
		if _, ok := verifyAndConvert(pos, e.Move); ok {
			result = append(result, e)
		}
	}
	// Sort by weight (highest first)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Weight > result[j].Weight
	})

	return result
}

// verifyAndConvert resolves the move text against the legal moves so the
// returned move carries the correct flags. A king taking its own rook is
// converted to the castling move.
func verifyAndConvert(pos *board.Position, text string) (board.Move, bool) {
	for _, c := range castleMoves {
		if c.polyglot != text {
			continue
		}
		from, _ := board.ParseSquare(text[0:2])
		if pos.PieceAt(from).Type == board.King {
			text = c.king
		}
		break
	}
	m, err := pos.ParseMove(text)
	if err != nil {
		return board.NoMove, false
	}
	return m, true
}

// Size returns the number of unique positions in the book.
func (b *Book) Size() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}
