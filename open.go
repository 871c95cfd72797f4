package geoquery

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeBZip2
)

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// DetectDataType peeks at the head of br and reports which compression, if
// any, the stream uses. Nothing is consumed from br. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
func DetectDataType(br *bufio.Reader) (DataType, error) {
	head, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return DataTypeInvalid, err
	}

	for dt, sig := range byteCodeSigs {
		if len(head) >= len(sig) && bytes.Equal(head[:len(sig)], sig) {
			return dt, nil
		}
	}

	return DataTypeNoCompression, nil
}

// OpenTable opens a table for reading. The path may be local (a leading ~/ is
// expanded) or a gs://bucket/object URL, in which case client must be non-nil.
// gzip, bzip2, xz and single-entry zip files are decompressed on the fly.
func OpenTable(ctx context.Context, path string, client *storage.Client) (io.ReadCloser, error) {
	raw, err := openRaw(ctx, path, client)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(raw)
	dt, err := DetectDataType(br)
	if err != nil {
		raw.Close()
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	var r io.Reader
	switch dt {
	case DataTypeGzip:
		r, err = gzip.NewReader(br)
	case DataTypeBZip2:
		r = bzip2.NewReader(br)
	case DataTypeXZ:
		r, err = xz.NewReader(br, 0)
	case DataTypeZip:
		zr := zipstream.NewReader(br)
		_, err = zr.Next()
		r = zr
	default:
		r = br
	}
	if err != nil {
		raw.Close()
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return &tableReadCloser{Reader: r, closer: raw}, nil
}

func openRaw(ctx context.Context, path string, client *storage.Client) (io.ReadCloser, error) {
	if bucket, object, ok := SplitGSPath(path); ok {
		if client == nil {
			return nil, fmt.Errorf("%s: a storage client is required for gs:// paths", path)
		}
		return client.Bucket(bucket).Object(object).NewReader(ctx)
	}

	return os.Open(ExpandHome(path))
}

// SplitGSPath splits gs://bucket/path/to/object into its bucket and object.
// ok is false for anything that is not a well-formed gs:// URL.
func SplitGSPath(path string) (bucket, object string, ok bool) {
	if !strings.HasPrefix(path, "gs://") {
		return "", "", false
	}

	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] == "" {
		return "", "", false
	}

	return pathParts[0], pathParts[1], true
}

// ExpandHome expands ~ to the current user's home directory, where
// appropriate. Paths like /something/~/something are left alone.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	usr, err := user.Current()
	if err != nil {
		return path
	}

	if path == "~" {
		return usr.HomeDir
	}

	return filepath.Join(usr.HomeDir, path[2:])
}

// tableReadCloser closes the underlying source when the (possibly
// decompressing) reader is done.
type tableReadCloser struct {
	io.Reader
	closer io.Closer
}

func (t *tableReadCloser) Close() error {
	if c, ok := t.Reader.(io.Closer); ok {
		c.Close()
	}

	return t.closer.Close()
}
