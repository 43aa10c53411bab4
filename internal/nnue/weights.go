package nnue

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Weight file format constants
const (
	MagicNumber = 0x4D4F4F42 // "BOOM" little-endian
	Version     = 1
)

// ErrBadNetwork reports a weights file that does not describe this network.
var ErrBadNetwork = errors.New("bad network file")

// FileHeader is the header of the binary weight file.
type FileHeader struct {
	Magic   uint32
	Version uint32
	L1Size  uint32
	L2Size  uint32
}

// Load reads network weights from a file in either the binary or the text
// format. Binary files are recognized by their magic number.
func (n *Network) Load(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open weights file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	head, err := r.Peek(4)
	if err == nil && binary.LittleEndian.Uint32(head) == MagicNumber {
		return n.ReadBinary(r)
	}
	return n.ReadText(r)
}

// Save writes the network to a binary weights file.
func (n *Network) Save(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create weights file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := n.WriteBinary(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadBinary loads network weights in the binary format:
//   - Header: Magic, Version, L1Size, L2Size (uint32 each)
//   - L1Weights: InputSize * L1Size * int16, L1Bias: L1Size * int32
//   - L2Weights: L1Size*2 * L2Size * int16, L2Bias: L2Size * int32
//   - OutputWeights: L2Size * int16, OutputBias: int32
//
// All values are little-endian.
func (n *Network) ReadBinary(r io.Reader) error {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("%w: failed to read header: %v", ErrBadNetwork, err)
	}

	if header.Magic != MagicNumber {
		return fmt.Errorf("%w: invalid magic number %x", ErrBadNetwork, header.Magic)
	}
	if header.Version != Version {
		return fmt.Errorf("%w: unsupported version %d", ErrBadNetwork, header.Version)
	}
	if header.L1Size != L1Size || header.L2Size != L2Size {
		return fmt.Errorf("%w: layer sizes %d/%d, want %d/%d",
			ErrBadNetwork, header.L1Size, header.L2Size, L1Size, L2Size)
	}

	fields := []any{
		&n.L1Weights, &n.L1Bias,
		&n.L2Weights, &n.L2Bias,
		&n.OutputWeights, &n.OutputBias,
	}
	for _, field := range fields {
		if err := binary.Read(r, binary.LittleEndian, field); err != nil {
			return fmt.Errorf("%w: truncated weights: %v", ErrBadNetwork, err)
		}
	}
	return nil
}

// WriteBinary writes the network in the format read by ReadBinary.
func (n *Network) WriteBinary(w io.Writer) error {
	header := FileHeader{
		Magic:   MagicNumber,
		Version: Version,
		L1Size:  L1Size,
		L2Size:  L2Size,
	}
	fields := []any{
		&header,
		&n.L1Weights, &n.L1Bias,
		&n.L2Weights, &n.L2Bias,
		&n.OutputWeights, &n.OutputBias,
	}
	for _, field := range fields {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return fmt.Errorf("failed to write weights: %w", err)
		}
	}
	return nil
}

// ReadText loads unquantized weights written as whitespace separated
// floats. Each layer lists its weights output by output, then its biases,
// starting with the first layer.
func (n *Network) ReadText(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	read := 0
	next := func() (float64, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return 0, err
			}
			return 0, fmt.Errorf("%w: file ends after %d values", ErrBadNetwork, read)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: value %d: %v", ErrBadNetwork, read, err)
		}
		read++
		return v, nil
	}

	var err error
	layer := func(in, out int, weight func(i, j int, v float64), bias func(j int, v float64)) {
		for j := 0; j < out && err == nil; j++ {
			for i := 0; i < in && err == nil; i++ {
				var v float64
				if v, err = next(); err == nil {
					weight(i, j, v)
				}
			}
		}
		for j := 0; j < out && err == nil; j++ {
			var v float64
			if v, err = next(); err == nil {
				bias(j, v)
			}
		}
	}

	layer(InputSize, L1Size,
		func(i, j int, v float64) { n.L1Weights[i][j] = int16(v * QFactor) },
		func(j int, v float64) { n.L1Bias[j] = int32(v * QFactor) })
	layer(L1Size*2, L2Size,
		func(i, j int, v float64) { n.L2Weights[i][j] = int16(v * QFactor) },
		func(j int, v float64) { n.L2Bias[j] = int32(v * QFactor * QFactor) })
	layer(L2Size, 1,
		func(i, _ int, v float64) { n.OutputWeights[i] = int16(v * QFactor) },
		func(_ int, v float64) { n.OutputBias = int32(v * QFactor * QFactor) })
	return err
}
