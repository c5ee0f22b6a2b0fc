package io

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/klauspost/compress/zstd"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
)

// Image is a program image: the initial memory contents of a machine.
type Image []int64

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// ParseImage reads an image as comma-separated decimal text. Input that
// starts with a zstd frame is decompressed first.
func ParseImage(r io.Reader) (image Image, err error) {
	br := bufio.NewReader(r)

	magic, _ := br.Peek(len(zstdMagic))
	var text io.Reader = br
	if bytes.Equal(magic, zstdMagic) {
		var dec *zstd.Decoder
		dec, err = zstd.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "zstd")
		}
		defer dec.Close()
		text = dec
	}

	data, err := io.ReadAll(text)
	if err != nil {
		return nil, errors.Wrap(err, "read failed")
	}

	words := strings.FieldsFunc(string(data), func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(words) == 0 {
		return nil, ErrImageEmpty
	}

	image = make(Image, len(words))
	for n, word := range words {
		image[n], err = strconv.ParseInt(word, 10, 64)
		if err != nil {
			return nil, &ErrParseValue{Index: n, Word: word}
		}
	}

	return image, nil
}

// LoadImage loads an image from the file fileName.
func LoadImage(fileName string) (image Image, err error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "open failed")
	}
	defer f.Close()

	image, err = ParseImage(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%v: load failed", fileName)
	}

	return image, nil
}

// WriteImage writes an image as comma-separated decimal text, optionally
// zstd compressed.
func WriteImage(w io.Writer, image Image, compress bool) (err error) {
	if !compress {
		_, err = io.WriteString(w, image.String()+"\n")
		return errors.Wrap(err, "write failed")
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return errors.Wrap(err, "zstd")
	}

	_, err = io.WriteString(enc, image.String()+"\n")
	if err != nil {
		enc.Close()
		return errors.Wrap(err, "write failed")
	}

	return errors.Wrap(enc.Close(), "write failed")
}

// String returns the image as comma-separated decimal text.
func (image Image) String() string {
	words := make([]string, len(image))
	for n, value := range image {
		words[n] = strconv.FormatInt(value, 10)
	}
	return strings.Join(words, ",")
}

// Id returns a base58 fingerprint of the image contents.
func (image Image) Id() string {
	buf := make([]byte, 8*len(image))
	for n, value := range image {
		binary.LittleEndian.PutUint64(buf[n*8:], uint64(value))
	}
	sum := blake3.Sum256(buf)
	return base58.Encode(sum[:])
}
