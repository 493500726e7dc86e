package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"
)

// Columnar file layout:
//
//	"PCOL" | column blocks (zstd) | metadata | metadata offset (int64 LE) | "LOCP"
//
// Metadata is varint encoded: rows, columns, then per column name, type byte,
// block offset (int64 LE) and block size.
const (
	FileExt    = ".pcol"
	beginMagic = "PCOL"
	endMagic   = "LOCP"
	footerSize = 8 + len(endMagic)
)

type columnType byte

const (
	colText     columnType = 0x01
	colCategory columnType = 0x02
	colFloat    columnType = 0x03
	colInt      columnType = 0x04
)

func columnTypeFor(t FieldType) columnType {
	switch t {
	case FieldText:
		return colText
	case FieldCategory:
		return colCategory
	case FieldInt:
		return colInt
	default:
		return colFloat
	}
}

type columnMeta struct {
	Name   string
	Type   columnType
	Offset int64
	Size   int64
}

type fileMeta struct {
	NumRows uint64
	Columns []columnMeta
}

// WriteFile stores the dataset at path. The file is written next to its
// destination and renamed into place.
func WriteFile(path string, ds *Dataset) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriterSize(tmp, 1<<20)
	if err := Encode(bw, ds); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	return os.Rename(tmp.Name(), path)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Encode writes the dataset in the columnar file format.
func Encode(w io.Writer, ds *Dataset) error {
	cw := &countingWriter{w: w}
	if _, err := io.WriteString(cw, beginMagic); err != nil {
		return fmt.Errorf("write magic begin: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithZeroFrames(true))
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	defer enc.Close()

	meta := fileMeta{NumRows: uint64(ds.Len())}
	for _, f := range ProductSchema {
		payload, err := encodeColumn(ds, f.Name)
		if err != nil {
			return err
		}
		block := enc.EncodeAll(payload, nil)

		offset := cw.n
		if _, err := cw.Write(block); err != nil {
			return fmt.Errorf("write column %s: %w", f.Name, err)
		}
		meta.Columns = append(meta.Columns, columnMeta{
			Name:   f.Name,
			Type:   columnTypeFor(f.Type),
			Offset: offset,
			Size:   int64(len(block)),
		})
	}

	metaOffset := cw.n
	if _, err := cw.Write(encodeMeta(meta)); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := binary.Write(cw, binary.LittleEndian, metaOffset); err != nil {
		return fmt.Errorf("write metadata offset: %w", err)
	}
	if _, err := io.WriteString(cw, endMagic); err != nil {
		return fmt.Errorf("write magic end: %w", err)
	}
	return nil
}

func encodeColumn(ds *Dataset, name string) ([]byte, error) {
	var buf bytes.Buffer
	switch name {
	case ColName:
		for _, s := range ds.names {
			buf.Write(binary.AppendUvarint(nil, uint64(len(s))))
			buf.WriteString(s)
		}
	case ColMainCategory:
		encodeCategorical(&buf, &ds.mainCategory)
	case ColSubCategory:
		encodeCategorical(&buf, &ds.subCategory)
	case ColNoOfRatings:
		bitmap := make([]byte, (ds.Len()+7)/8)
		for i, ok := range ds.noOfRatingsValid {
			if ok {
				bitmap[i/8] |= 1 << (i % 8)
			}
		}
		buf.Write(bitmap)
		var prev int64
		tmp := make([]byte, binary.MaxVarintLen64)
		for _, v := range ds.noOfRatings {
			n := binary.PutUvarint(tmp, ZigZagEncode(v-prev))
			buf.Write(tmp[:n])
			prev = v
		}
	default:
		values, err := ds.Numeric(name)
		if err != nil {
			return nil, err
		}
		tmp := make([]byte, 8)
		for _, v := range values {
			binary.LittleEndian.PutUint64(tmp, math.Float64bits(v))
			buf.Write(tmp)
		}
	}
	return buf.Bytes(), nil
}

func encodeCategorical(buf *bytes.Buffer, c *Categorical) {
	buf.Write(binary.AppendUvarint(nil, uint64(len(c.levels))))
	for _, level := range c.levels {
		buf.Write(binary.AppendUvarint(nil, uint64(len(level))))
		buf.WriteString(level)
	}
	for _, code := range c.codes {
		buf.Write(binary.AppendUvarint(nil, uint64(code)))
	}
}

func encodeMeta(meta fileMeta) []byte {
	var buf bytes.Buffer
	buf.Write(binary.AppendUvarint(nil, meta.NumRows))
	buf.Write(binary.AppendUvarint(nil, uint64(len(meta.Columns))))
	for _, col := range meta.Columns {
		buf.Write(binary.AppendUvarint(nil, uint64(len(col.Name))))
		buf.WriteString(col.Name)
		buf.WriteByte(byte(col.Type))
		buf.Write(binary.LittleEndian.AppendUint64(nil, uint64(col.Offset)))
		buf.Write(binary.AppendUvarint(nil, uint64(col.Size)))
	}
	return buf.Bytes()
}

// ZigZagEncode int64 => uint64.
func ZigZagEncode(n int64) uint64 {
	return uint64((n << 1) ^ (n >> 63))
}

// ZigZagDecode uint64 => int64.
func ZigZagDecode(z uint64) int64 {
	return int64(z>>1) ^ -int64(z&1)
}

// ReadFile loads a columnar dataset file.
func ReadFile(ctx context.Context, path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(ctx, path, data)
}

// Decode parses a columnar file held in memory. Columns are decompressed in
// parallel.
func Decode(ctx context.Context, source string, data []byte) (*Dataset, error) {
	if len(data) < len(beginMagic)+footerSize {
		return nil, parseErr(source, fmt.Errorf("file is too short (%d bytes)", len(data)))
	}
	if string(data[:len(beginMagic)]) != beginMagic {
		return nil, parseErr(source, fmt.Errorf("invalid magic: expected %q, got %q", beginMagic, data[:len(beginMagic)]))
	}
	if got := string(data[len(data)-len(endMagic):]); got != endMagic {
		return nil, parseErr(source, fmt.Errorf("invalid magic: expected %q, got %q", endMagic, got))
	}

	offsetPointer := int64(len(data) - footerSize)
	metaOffset := int64(binary.LittleEndian.Uint64(data[offsetPointer:]))
	if metaOffset < int64(len(beginMagic)) || metaOffset >= offsetPointer {
		return nil, parseErr(source, fmt.Errorf("invalid metadata offset %d", metaOffset))
	}

	meta, err := decodeMeta(data[metaOffset:offsetPointer])
	if err != nil {
		return nil, parseErr(source, err)
	}

	byName := make(map[string]columnMeta, len(meta.Columns))
	for _, col := range meta.Columns {
		if col.Offset < int64(len(beginMagic)) || col.Size < 0 ||
			col.Offset > metaOffset || col.Size > metaOffset-col.Offset {
			return nil, &ParseError{Source: source, Column: col.Name, Err: fmt.Errorf("column block out of bounds")}
		}
		byName[col.Name] = col
	}
	for _, f := range ProductSchema {
		col, ok := byName[f.Name]
		if !ok {
			if f.Derived {
				continue
			}
			return nil, &ParseError{Source: source, Column: f.Name, Err: fmt.Errorf("missing required column")}
		}
		if col.Type != columnTypeFor(f.Type) {
			return nil, &ParseError{Source: source, Column: f.Name, Err: fmt.Errorf("column type %d, want %s", col.Type, f.Type)}
		}
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	rows := int(meta.NumRows)
	ds := &Dataset{}
	_, hasPct := byName[ColDiscountPercentage]

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for _, f := range ProductSchema {
		col, ok := byName[f.Name]
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var payload []byte
			if col.Size > 0 {
				out, err := dec.DecodeAll(data[col.Offset:col.Offset+col.Size], nil)
				if err != nil {
					return &ParseError{Source: source, Column: col.Name, Err: fmt.Errorf("decompress: %w", err)}
				}
				payload = out
			}
			if err := decodeColumn(ds, col.Name, payload, rows); err != nil {
				return &ParseError{Source: source, Column: col.Name, Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !hasPct {
		ds.discountPct = make([]float64, rows)
		for i := range ds.discountPct {
			ds.discountPct[i] = DiscountPercentage(ds.actualPrice[i], ds.discountPrice[i])
		}
	}
	return ds, nil
}

func decodeMeta(buf []byte) (*fileMeta, error) {
	r := bytes.NewReader(buf)
	meta := &fileMeta{}

	numRows, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read NumRows: %w", err)
	}
	if numRows > math.MaxInt32 {
		return nil, fmt.Errorf("row count %d out of range", numRows)
	}
	meta.NumRows = numRows

	numColumns, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read NumColumns: %w", err)
	}
	if numColumns > 64 {
		return nil, fmt.Errorf("too many columns: %d", numColumns)
	}

	for i := 0; i < int(numColumns); i++ {
		nameLen, err := binary.ReadUvarint(r)
		if err != nil || nameLen > uint64(r.Len()) {
			return nil, fmt.Errorf("failed to read length of column %d name", i)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, fmt.Errorf("failed to read column %d name: %w", i, err)
		}
		typ, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("failed to read type of column %d: %w", i, err)
		}
		var offset int64
		if err := binary.Read(r, binary.LittleEndian, &offset); err != nil {
			return nil, fmt.Errorf("failed to read offset of column %d: %w", i, err)
		}
		size, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read size of column %d: %w", i, err)
		}
		meta.Columns = append(meta.Columns, columnMeta{
			Name:   string(name),
			Type:   columnType(typ),
			Offset: offset,
			Size:   int64(size),
		})
	}
	return meta, nil
}

func decodeColumn(ds *Dataset, name string, payload []byte, rows int) error {
	r := bytes.NewReader(payload)
	switch name {
	case ColName:
		names := make([]string, rows)
		for i := range names {
			s, err := readString(r)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			names[i] = s
		}
		ds.names = names
		return nil

	case ColMainCategory:
		c, err := decodeCategorical(r, rows)
		ds.mainCategory = c
		return err

	case ColSubCategory:
		c, err := decodeCategorical(r, rows)
		ds.subCategory = c
		return err

	case ColNoOfRatings:
		bitmap := make([]byte, (rows+7)/8)
		if _, err := io.ReadFull(r, bitmap); err != nil {
			return fmt.Errorf("read validity: %w", err)
		}
		values := make([]int64, rows)
		valid := make([]bool, rows)
		var prev int64
		for i := range values {
			zz, err := binary.ReadUvarint(r)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			prev += ZigZagDecode(zz)
			values[i] = prev
			valid[i] = bitmap[i/8]&(1<<(i%8)) != 0
		}
		ds.noOfRatings, ds.noOfRatingsValid = values, valid
		return nil

	default:
		if len(payload) != rows*8 {
			return fmt.Errorf("float block has %d bytes, want %d", len(payload), rows*8)
		}
		values := make([]float64, rows)
		for i := range values {
			v := math.Float64frombits(binary.LittleEndian.Uint64(payload[i*8:]))
			if math.IsInf(v, 0) {
				return fmt.Errorf("row %d: value is not finite", i+1)
			}
			values[i] = v
		}
		switch name {
		case ColRatings:
			ds.ratings = values
		case ColActualPrice:
			ds.actualPrice = values
		case ColDiscountPrice:
			ds.discountPrice = values
		case ColDiscountPercentage:
			ds.discountPct = values
		}
		return nil
	}
}

func readString(r *bytes.Reader) (string, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return "", err
	}
	if n > uint64(r.Len()) {
		return "", io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeCategorical(r *bytes.Reader, rows int) (Categorical, error) {
	numLevels, err := binary.ReadUvarint(r)
	if err != nil {
		return Categorical{}, fmt.Errorf("read level count: %w", err)
	}
	if numLevels > uint64(r.Len()) {
		return Categorical{}, fmt.Errorf("level count %d exceeds block", numLevels)
	}
	c := Categorical{
		levels: make([]string, numLevels),
		codes:  make([]int32, rows),
		index:  make(map[string]int32, numLevels),
	}
	for i := range c.levels {
		s, err := readString(r)
		if err != nil {
			return Categorical{}, fmt.Errorf("level %d: %w", i, err)
		}
		c.levels[i] = s
		c.index[s] = int32(i)
	}
	for i := range c.codes {
		code, err := binary.ReadUvarint(r)
		if err != nil {
			return Categorical{}, fmt.Errorf("row %d: %w", i+1, err)
		}
		if code >= numLevels {
			return Categorical{}, fmt.Errorf("row %d: code %d out of range", i+1, code)
		}
		c.codes[i] = int32(code)
	}
	return c, nil
}
