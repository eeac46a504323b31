// Package processor turns raw file bytes into text chunks with metadata.
// Clean Architecture: Adapter implementing ports.DocumentProcessor.
// Plain-text formats parse natively; PDFs go through a Python sidecar.
package processor

import (
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/entities"
)

// PDFParser extracts text from PDF bytes. Implemented by the Python
// sidecar client; nil disables PDF support.
type PDFParser interface {
	Parse(ctx context.Context, data []byte, filename string) (string, error)
}

// Processor implements ports.DocumentProcessor with character-window
// chunking broken at word boundaries.
type Processor struct {
	chunkSize    int
	chunkOverlap int
	pdf          PDFParser
	log          *zap.Logger
}

// NewProcessor creates a processor. A nil pdf parser makes .pdf files
// unsupported.
func NewProcessor(chunkSize, chunkOverlap int, pdf PDFParser, log *zap.Logger) *Processor {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 50
	}
	return &Processor{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		pdf:          pdf,
		log:          log,
	}
}

// Supported reports whether the filename's extension can be processed.
func (p *Processor) Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".csv":
		return true
	case ".pdf":
		return p.pdf != nil
	default:
		return false
	}
}

// Process extracts text and splits it into chunks. Chunk IDs are md5
// hashes of the chunk content alone, so identical content always maps to
// the same id regardless of which file it came from.
func (p *Processor) Process(ctx context.Context, data []byte, filename string) ([]entities.Chunk, error) {
	if !p.Supported(filename) {
		return nil, fmt.Errorf("%w: %s", entities.ErrUnsupportedType, filepath.Ext(filename))
	}

	text, err := p.extract(ctx, data, filename)
	if err != nil {
		return nil, err
	}

	pieces := p.split(text)
	p.log.Debug("processed document",
		zap.String("filename", filename),
		zap.Int("bytes", len(data)),
		zap.Int("chunks", len(pieces)))

	chunks := make([]entities.Chunk, 0, len(pieces))
	for i, content := range pieces {
		chunks = append(chunks, entities.Chunk{
			ID:      entities.ChunkID(content),
			Content: content,
			Metadata: map[string]any{
				"source":      filename,
				"chunk_index": i,
			},
		})
	}
	return chunks, nil
}

func (p *Processor) extract(ctx context.Context, data []byte, filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		text, err := p.pdf.Parse(ctx, data, filename)
		if err != nil {
			return "", fmt.Errorf("extracting %s: %w", filename, err)
		}
		return text, nil
	case ".csv":
		return flattenCSV(data)
	default:
		return string(data), nil
	}
}

// flattenCSV joins each row's cells so column values stay adjacent in the
// chunked text.
func flattenCSV(data []byte) (string, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parsing csv: %w", err)
	}

	var sb strings.Builder
	for _, row := range records {
		sb.WriteString(strings.Join(row, ", "))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// split breaks text into overlapping windows at word boundaries. The window
// always advances, so adjacent chunks cannot repeat forever.
func (p *Processor) split(text string) []string {
	content := strings.TrimSpace(text)
	if len(content) == 0 {
		return nil
	}

	var out []string
	start := 0
	for start < len(content) {
		end := start + p.chunkSize
		if end >= len(content) {
			end = len(content)
		} else if lastSpace := strings.LastIndex(content[start:end], " "); lastSpace > 0 {
			end = start + lastSpace
		}

		if piece := strings.TrimSpace(content[start:end]); piece != "" {
			out = append(out, piece)
		}

		if end == len(content) {
			break
		}
		next := end - p.chunkOverlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return out
}
