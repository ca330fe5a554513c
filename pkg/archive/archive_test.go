package archive

import (
	"bytes"
	"errors"
	"testing"
)

func TestHeader(t *testing.T) {
	t.Run("MarshalUnmarshal", func(t *testing.T) {
		original := NewHeader(CodecLZ4, KindDDS, 1024, 512)

		data, err := original.MarshalBinary()
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if len(data) != HeaderSize {
			t.Fatalf("expected %d bytes, got %d", HeaderSize, len(data))
		}

		decoded := &Header{}
		if err := decoded.UnmarshalBinary(data); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}

		if *decoded != *original {
			t.Errorf("mismatch: got %+v, want %+v", decoded, original)
		}
	})

	tests := []struct {
		name   string
		mutate func(h *Header)
		want   error
	}{
		{"InvalidMagic", func(h *Header) { h.Magic = [4]byte{} }, ErrInvalidHeader},
		{"ZeroLength", func(h *Header) { h.Length = 0 }, ErrInvalidHeader},
		{"ZeroCompressed", func(h *Header) { h.CompressedLength = 0 }, ErrInvalidHeader},
		{"TooLarge", func(h *Header) { h.Length = MaxLength + 1 }, ErrInvalidHeader},
		{"Version", func(h *Header) { h.Version = 2 }, ErrInvalidHeader},
		{"Codec", func(h *Header) { h.Codec = 9 }, ErrUnknownCodec},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHeader(CodecZstd, KindRaw, 1024, 512)
			tt.mutate(h)
			if err := h.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestReadWrite(t *testing.T) {
	original := bytes.Repeat([]byte("Hello, World! This is test data for compression. "), 40)

	for _, codec := range []Codec{CodecStore, CodecZstd, CodecLZ4} {
		t.Run(codec.String(), func(t *testing.T) {
			var buf bytes.Buffer
			ws := &seekableBuffer{Buffer: &buf}

			if err := Encode(ws, codec, KindDDS, original); err != nil {
				t.Fatalf("encode: %v", err)
			}
			if !IsArchive(buf.Bytes()) {
				t.Fatal("expected archive magic")
			}

			decoded, h, err := ReadAll(bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !bytes.Equal(decoded, original) {
				t.Errorf("data mismatch: got %d bytes, want %d", len(decoded), len(original))
			}
			if h.Codec != codec || h.Kind != KindDDS {
				t.Errorf("header %+v", h)
			}
			if int(h.CompressedLength) != buf.Len()-HeaderSize {
				t.Errorf("Expected compressed length %d, got %d", buf.Len()-HeaderSize, h.CompressedLength)
			}
			if codec != CodecStore && h.CompressedLength >= h.Length {
				t.Errorf("Expected %s to shrink repetitive input, got %d of %d", codec, h.CompressedLength, h.Length)
			}
		})
	}
}

func TestWriterLengthMismatch(t *testing.T) {
	ws := &seekableBuffer{Buffer: &bytes.Buffer{}}
	w, err := NewWriter(ws, CodecZstd, KindRaw, 10)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("short")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err == nil {
		t.Error("expected error for short body")
	}
}

func TestTruncated(t *testing.T) {
	original := bytes.Repeat([]byte{1, 2, 3, 4}, 256)
	for _, codec := range []Codec{CodecZstd, CodecLZ4} {
		t.Run(codec.String(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&seekableBuffer{Buffer: &buf}, codec, KindRaw, original); err != nil {
				t.Fatal(err)
			}
			cut := buf.Bytes()[:buf.Len()-3]
			if _, _, err := ReadAll(bytes.NewReader(cut)); err == nil {
				t.Error("expected error for truncated body")
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	plain := []byte("DDS not wrapped")
	got, err := Unwrap(plain)
	if err != nil || !bytes.Equal(got, plain) {
		t.Errorf("Unwrap(plain) = %q, %v", got, err)
	}

	var buf bytes.Buffer
	if err := Encode(&seekableBuffer{Buffer: &buf}, CodecLZ4, KindBLP, plain); err != nil {
		t.Fatal(err)
	}
	got, err = Unwrap(buf.Bytes())
	if err != nil || !bytes.Equal(got, plain) {
		t.Errorf("Unwrap(archive) = %q, %v", got, err)
	}
}

func TestParseCodec(t *testing.T) {
	tests := []struct {
		in   string
		want Codec
		ext  string
	}{
		{"none", CodecStore, ""},
		{"zstd", CodecZstd, ".zst"},
		{"lz4", CodecLZ4, ".lz4"},
	}
	for _, tt := range tests {
		got, err := ParseCodec(tt.in)
		if err != nil || got != tt.want || got.Ext() != tt.ext {
			t.Errorf("ParseCodec(%q) = %v (%q), %v", tt.in, got, got.Ext(), err)
		}
	}
	if _, err := ParseCodec("gzip"); !errors.Is(err, ErrUnknownCodec) {
		t.Errorf("expected ErrUnknownCodec, got %v", err)
	}
}

type seekableBuffer struct {
	*bytes.Buffer
	pos int64
}

func (s *seekableBuffer) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case 0:
		newPos = offset
	case 1:
		newPos = s.pos + offset
	case 2:
		newPos = int64(s.Buffer.Len()) + offset
	}
	s.pos = newPos
	return newPos, nil
}

func (s *seekableBuffer) Write(p []byte) (n int, err error) {
	for int64(s.Buffer.Len()) < s.pos {
		s.Buffer.WriteByte(0)
	}
	if s.pos < int64(s.Buffer.Len()) {
		data := s.Buffer.Bytes()
		n = copy(data[s.pos:], p)
		if n < len(p) {
			m, err := s.Buffer.Write(p[n:])
			n += m
			if err != nil {
				return n, err
			}
		}
	} else {
		n, err = s.Buffer.Write(p)
	}
	s.pos += int64(n)
	return n, err
}
