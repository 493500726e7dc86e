package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"golang.org/x/sync/errgroup"

	"amazon-dashboard/internal/models"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

// CSVSource reads products from a CSV file with a header row. When
// Categories is set only rows of those main categories are kept.
type CSVSource struct {
	Path       string
	Categories []string
}

func (s *CSVSource) Name() string { return s.Path }

func (s *CSVSource) Read(ctx context.Context) (*Dataset, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, s.Path, err)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	ds, err := ReadCSV(ctx, s.Path, file)
	if err != nil {
		return nil, err
	}
	return ds.WithMainCategories(s.Categories), nil
}

// ReadCSV parses CSV product rows in batches; each batch is parsed by a
// bounded set of workers and appended in file order.
func ReadCSV(ctx context.Context, source string, r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, parseErr(source, fmt.Errorf("empty file"))
		}
		return nil, parseErr(source, err)
	}
	parser, err := newRowParser(source, header)
	if err != nil {
		return nil, err
	}
	reader.FieldsPerRecord = len(header)

	builder := NewBuilder(batchSize)
	batch := make([][]string, 0, batchSize)
	rowsRead := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &ParseError{Source: source, Row: pe.Line - 1, Err: pe.Err}
			}
			return nil, parseErr(source, err)
		}

		batch = append(batch, record)
		if len(batch) >= batchSize {
			if err := parseBatch(ctx, parser, batch, rowsRead, builder); err != nil {
				return nil, err
			}
			rowsRead += len(batch)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := parseBatch(ctx, parser, batch, rowsRead, builder); err != nil {
			return nil, err
		}
	}

	return builder.Build(), nil
}

func parseBatch(ctx context.Context, parser *rowParser, batch [][]string, firstRow int, builder *Builder) error {
	parsed := make([]models.Product, len(batch))

	var g errgroup.Group
	g.SetLimit(maxWorkers)

	chunk := (len(batch) + maxWorkers - 1) / maxWorkers
	for start := 0; start < len(batch); start += chunk {
		end := min(start+chunk, len(batch))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				p, err := parser.parse(firstRow+i+1, batch[i])
				if err != nil {
					return err
				}
				parsed[i] = p
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, p := range parsed {
		builder.Append(p)
	}
	return nil
}
