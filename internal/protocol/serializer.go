package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Serializer кодирует сообщения в JSON и при необходимости сжимает их gzip.
// Decode распознает сжатые данные по сигнатуре, поэтому читает оба формата.
type Serializer struct {
	compress bool
	level    int
}

// NewSerializer создает сериализатор. compress включает gzip на выходе.
func NewSerializer(compress bool) *Serializer {
	return &Serializer{compress: compress, level: gzip.BestSpeed}
}

// Compressed сообщает, сжимает ли сериализатор данные
func (s *Serializer) Compressed() bool {
	return s.compress
}

// Encode сериализует значение
func (s *Serializer) Encode(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации в JSON: %w", err)
	}
	if !s.compress {
		return data, nil
	}
	return Gzip(data, s.level)
}

// Decode десериализует данные, сжатые или нет
func (s *Serializer) Decode(data []byte, v interface{}) error {
	if bytes.HasPrefix(data, gzipMagic) {
		raw, err := Gunzip(data)
		if err != nil {
			return err
		}
		data = raw
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("ошибка десериализации из JSON: %w", err)
	}
	return nil
}

// Gzip сжимает данные с указанным уровнем
func Gzip(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("ошибка сжатия: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("ошибка сжатия: %w", err)
	}
	return buf.Bytes(), nil
}

// Gunzip распаковывает данные
func Gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки: %w", err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
